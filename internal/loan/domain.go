package loan

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"liblend/internal/date"
)

// Status is the loan status. ACTIVE and RETURNED are the only persisted
// values; OVERDUE is a computed view of an active loan past its due date and
// never hits the store, so no nightly job has to rewrite loans.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusReturned Status = "RETURNED"
	StatusOverdue  Status = "OVERDUE"
)

// ParseStatus validates a wire representation of Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusReturned, StatusOverdue:
		return Status(s), nil
	}
	return "", fmt.Errorf("invalid loan status %q", s)
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

// Loan records one book on loan to one member. Book and member are
// referenced by identifier only; denormalized snapshots exist solely in
// read responses.
type Loan struct {
	ID         int64      `json:"id"`
	BookID     int64      `json:"book_id"`
	MemberID   int64      `json:"member_id"`
	LoanDate   date.Date  `json:"loan_date"`
	DueDate    date.Date  `json:"due_date"`
	ReturnDate *date.Date `json:"return_date,omitempty"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// EffectiveStatus returns the status as seen at the given instant: an
// active loan past its due date reads as OVERDUE.
func (l *Loan) EffectiveStatus(now time.Time) Status {
	if l.Status == StatusActive && date.Of(now).After(l.DueDate) {
		return StatusOverdue
	}
	return l.Status
}

// CreateParams holds the fields for a new loan record. IdempotencyKey, when
// set, makes creation safe to resend: a second create carrying the same key
// returns the loan created by the first.
type CreateParams struct {
	BookID         int64
	MemberID       int64
	LoanDate       date.Date
	DueDate        date.Date
	IdempotencyKey string
}

// Update is a partial mutation of a loan record. Nil fields are left
// untouched. Setting Status to RETURNED is guarded: the store rejects it
// with ErrAlreadyReturned unless the loan is still ACTIVE, which makes the
// return transition race-safe.
type Update struct {
	DueDate    *date.Date
	ReturnDate *date.Date
	Status     *Status
}

// Filter narrows List results. Nil fields match everything.
type Filter struct {
	BookID   *int64
	MemberID *int64
}

var (
	// ErrNotFound is returned when no loan exists with the given ID.
	ErrNotFound = errors.New("loan not found")
	// ErrAlreadyReturned is returned when a mutation targets a loan that
	// has already been returned. No transition leaves RETURNED.
	ErrAlreadyReturned = errors.New("loan has already been returned")
)
