package lending

import (
	"fmt"
)

// Kind classifies orchestrator failures so the transport layer can map
// them to protocol responses without parsing messages.
type Kind int

const (
	// KindNotFound means a referenced entity does not exist; the caller
	// can recover by correcting its input.
	KindNotFound Kind = iota + 1
	// KindConflict means a precondition was violated (no copies, inactive
	// member, already returned).
	KindConflict
	// KindTransient means a store call failed in a retryable way (timeout,
	// network error, unavailable peer).
	KindTransient
	// KindCompensationFailed means a saga step failed and the compensating
	// action failed too. The book counter and the loan records may
	// disagree until reconciled; this is never swallowed.
	KindCompensationFailed
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindCompensationFailed:
		return "compensation_failed"
	}
	return "unknown"
}

// Entity names the entity a NotFound error refers to.
type Entity string

const (
	EntityBook   Entity = "book"
	EntityMember Entity = "member"
	EntityLoan   Entity = "loan"
)

// Reason identifies which precondition a Conflict violated.
type Reason string

const (
	ReasonNoCopiesAvailable Reason = "no_copies_available"
	ReasonMemberNotActive   Reason = "member_not_active"
	ReasonAlreadyReturned   Reason = "already_returned"
)

// Error is the structured failure returned by the orchestrator. Callers of
// Checkout and Return always receive an *Error, never a raw store or
// transport error.
type Error struct {
	Kind   Kind
	Entity Entity // set for KindNotFound
	ID     int64  // set for KindNotFound
	Reason Reason // set for KindConflict
	Step   string // set for KindTransient and KindCompensationFailed
	Err    error  // underlying cause, if any
	// CompensationErr is the failure of the compensating action itself,
	// set only for KindCompensationFailed (Err then holds the original
	// step failure).
	CompensationErr error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
	case KindConflict:
		return fmt.Sprintf("conflict: %s", e.Reason)
	case KindTransient:
		return fmt.Sprintf("transient failure at %s: %v", e.Step, e.Err)
	case KindCompensationFailed:
		return fmt.Sprintf("compensation failed at %s: original error: %v; compensation error: %v", e.Step, e.Err, e.CompensationErr)
	}
	return fmt.Sprintf("lending error: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports an absent entity.
func NotFound(entity Entity, id int64) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id}
}

// Conflict reports a violated precondition.
func Conflict(reason Reason) *Error {
	return &Error{Kind: KindConflict, Reason: reason}
}

// Transient reports a retryable step failure.
func Transient(step string, err error) *Error {
	return &Error{Kind: KindTransient, Step: step, Err: err}
}

// CompensationFailed reports a failed saga rollback. original is the step
// failure that triggered compensation; compensation is the failure of the
// rollback itself.
func CompensationFailed(step string, original, compensation error) *Error {
	return &Error{Kind: KindCompensationFailed, Step: step, Err: original, CompensationErr: compensation}
}
