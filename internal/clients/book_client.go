// Package clients holds the HTTP clients the loan service uses to reach
// the book and member services. Clients translate transport failures and
// the peer's error envelope into domain errors; callers never see raw
// status codes.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"liblend/internal/book"
	"liblend/internal/httpx"
)

// ErrUnavailable marks a retryable transport failure: a timeout, a network
// error, a 5xx from the peer, or an open circuit breaker.
var ErrUnavailable = errors.New("peer service unavailable")

const defaultTimeout = 5 * time.Second

type BookClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewBookClient creates a client for the book service. timeout bounds each
// call; a call exceeding it is reported as ErrUnavailable, which the
// remote adapter treats as failed-and-compensatable rather than pending.
func NewBookClient(baseURL string, timeout time.Duration) *BookClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &BookClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "book-service",
		}),
	}
}

func (c *BookClient) GetBook(ctx context.Context, id int64) (*book.Book, error) {
	var b book.Book
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("%s/books/%d", c.baseURL, id), nil, &b)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// AdjustCopies invokes the book service's conditional counter update. The
// op key rides along so the server can discard a duplicate delivery.
func (c *BookClient) AdjustCopies(ctx context.Context, id int64, delta, expectedMinimum int, opKey string) (*book.Book, error) {
	payload := struct {
		Delta           int    `json:"delta"`
		ExpectedMinimum int    `json:"expected_minimum"`
		OpKey           string `json:"op_key"`
	}{Delta: delta, ExpectedMinimum: expectedMinimum, OpKey: opKey}

	var b book.Book
	err := c.call(ctx, http.MethodPost, fmt.Sprintf("%s/books/%d/copies", c.baseURL, id), payload, &b)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *BookClient) call(ctx context.Context, method, url string, payload, out any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, doJSON(ctx, c.httpClient, method, url, payload, out, bookError)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// bookError maps the book service's error envelope to domain errors.
func bookError(status int, body httpx.ErrorBody) error {
	switch {
	case status == http.StatusNotFound:
		return book.ErrNotFound
	case status == http.StatusConflict && body.Code == "no_copies_available":
		return book.ErrNoCopiesAvailable
	case status == http.StatusConflict && body.Code == "copies_exceed_total":
		return book.ErrCopiesExceedTotal
	case status == http.StatusConflict && body.Code == "duplicate_isbn":
		return book.ErrDuplicateISBN
	default:
		return fmt.Errorf("%w: status %d (%s)", ErrUnavailable, status, body.Code)
	}
}

// doJSON performs one round trip. Transport failures and 5xx responses come
// back as ErrUnavailable; 4xx responses go through mapErr.
func doJSON(ctx context.Context, client *http.Client, method, url string, payload, out any, mapErr func(int, httpx.ErrorBody) error) error {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return mapErr(resp.StatusCode, httpx.DecodeError(body))
	}
}
