package member

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"liblend/internal/date"
)

// Status is the membership status. It is a closed enumeration: values are
// validated wherever they cross a process boundary, so a peer service can
// never smuggle an unknown status into the store.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

// ParseStatus validates a wire representation of Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusInactive, StatusSuspended:
		return Status(s), nil
	}
	return "", fmt.Errorf("invalid member status %q", s)
}

// UnmarshalJSON rejects values outside the enumeration.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Member is a library member. The lending workflow only ever reads members;
// mutation happens through the member service's own CRUD operations.
type Member struct {
	ID             int64     `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	MembershipDate date.Date `json:"membership_date"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

var (
	// ErrNotFound is returned when no member exists with the given ID.
	ErrNotFound = errors.New("member not found")
	// ErrDuplicateEmail is returned when a create or update would reuse an
	// email already present in the store.
	ErrDuplicateEmail = errors.New("member with this email already exists")
)
