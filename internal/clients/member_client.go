package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"liblend/internal/httpx"
	"liblend/internal/member"
)

type MemberClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewMemberClient creates a client for the member service. The lending
// workflow only reads members, so the client surface is a single lookup.
func NewMemberClient(baseURL string, timeout time.Duration) *MemberClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &MemberClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "member-service",
		}),
	}
}

func (c *MemberClient) GetMember(ctx context.Context, id int64) (*member.Member, error) {
	var m member.Member
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, doJSON(ctx, c.httpClient, http.MethodGet,
			fmt.Sprintf("%s/members/%d", c.baseURL, id), nil, &m, memberError)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, err
	}
	return &m, nil
}

func memberError(status int, body httpx.ErrorBody) error {
	switch {
	case status == http.StatusNotFound:
		return member.ErrNotFound
	default:
		return fmt.Errorf("%w: status %d (%s)", ErrUnavailable, status, body.Code)
	}
}
