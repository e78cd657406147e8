// Package lending implements the checkout/return workflow: the one part of
// the system that coordinates writes across the book and loan stores. The
// orchestrator is stateless and re-entrant; all topology knowledge lives
// behind the Stores interface.
package lending

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"liblend/internal/book"
	"liblend/internal/date"
	"liblend/internal/loan"
	"liblend/internal/member"
)

const defaultCompensationTimeout = 10 * time.Second

// Orchestrator coordinates the checkout and return sagas over a Stores
// implementation.
type Orchestrator struct {
	stores              Stores
	tracer              trace.Tracer
	now                 func() time.Time
	compensationTimeout time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source. Tests use this to pin "today".
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithCompensationTimeout bounds how long a detached compensation attempt
// may run after the original request is gone.
func WithCompensationTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.compensationTimeout = d }
}

// NewOrchestrator creates an orchestrator over the given stores.
func NewOrchestrator(stores Stores, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stores:              stores,
		tracer:              otel.Tracer("liblend/lending"),
		now:                 time.Now,
		compensationTimeout: defaultCompensationTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CheckoutRequest carries a validated checkout. Field-level validation
// (dates present, due date after loan date) is the transport layer's job;
// the orchestrator enforces the business preconditions.
type CheckoutRequest struct {
	BookID   int64
	MemberID int64
	LoanDate date.Date
	DueDate  date.Date
	// IdempotencyKey, when supplied by the client, makes the whole
	// checkout safe to resend: the counter adjustment and the loan insert
	// both deduplicate on keys derived from it.
	IdempotencyKey string
}

// ResolvedLoan is a loan denormalized with book and member snapshots for
// read convenience. Status carries the effective view, so an active loan
// past its due date reads as OVERDUE.
type ResolvedLoan struct {
	loan.Loan
	Book   book.Book     `json:"book"`
	Member member.Member `json:"member"`
}

// Checkout validates eligibility, decrements the book's availability
// counter and creates the loan. The two writes form a saga: if the loan
// insert fails after the decrement committed, the decrement is compensated
// and the original failure reported.
func (o *Orchestrator) Checkout(ctx context.Context, req CheckoutRequest) (*ResolvedLoan, error) {
	ctx, span := o.tracer.Start(ctx, "lending.checkout",
		trace.WithAttributes(
			attribute.Int64("book.id", req.BookID),
			attribute.Int64("member.id", req.MemberID),
		),
	)
	defer span.End()

	// A resent checkout carrying a known client key is read-only: hand
	// back the loan the first attempt created.
	if req.IdempotencyKey != "" {
		if existing, err := o.stores.FindLoanByKey(ctx, req.IdempotencyKey); err == nil {
			return o.Resolve(ctx, existing)
		} else if !errors.Is(err, loan.ErrNotFound) {
			return nil, transientOr("find loan by key", err)
		}
	}

	// Preconditions, in order; the first failure wins and nothing has
	// been written yet.
	b, err := o.stores.GetBook(ctx, req.BookID)
	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			return nil, NotFound(EntityBook, req.BookID)
		}
		return nil, transientOr("get book", err)
	}
	m, err := o.stores.GetMember(ctx, req.MemberID)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return nil, NotFound(EntityMember, req.MemberID)
		}
		return nil, transientOr("get member", err)
	}
	if b.AvailableCopies <= 0 {
		return nil, Conflict(ReasonNoCopiesAvailable)
	}
	if m.Status != member.StatusActive {
		return nil, Conflict(ReasonMemberNotActive)
	}

	// The saga key is fresh per attempt. It deduplicates transport-level
	// retries of one attempt (the adapter may resend an adjustment whose
	// response was lost), not client resends, which the key pre-check
	// above already made read-only.
	opKey := uuid.NewString()

	// Step A decrements the counter with a compare-and-swap, so a
	// concurrent checkout racing past the precondition read still cannot
	// take the last copy twice. Step B creates the loan.
	var (
		decremented *book.Book
		created     *loan.Loan
	)
	sagaErr := o.stores.Atomically(ctx, func(ctx context.Context) error {
		var err error
		decremented, err = o.stores.AdjustBookCopies(ctx, req.BookID, -1, 0, opKey+"/checkout")
		if err != nil {
			return fmt.Errorf("decrement copies: %w", err)
		}
		created, err = o.stores.CreateLoan(ctx, loan.CreateParams{
			BookID:         req.BookID,
			MemberID:       req.MemberID,
			LoanDate:       req.LoanDate,
			DueDate:        req.DueDate,
			IdempotencyKey: req.IdempotencyKey,
		})
		if err != nil {
			return fmt.Errorf("create loan: %w", err)
		}
		return nil
	})
	if sagaErr != nil {
		original := classifyCheckoutFailure(sagaErr)
		if decremented == nil || RolledBack(sagaErr) {
			// Step A never committed; there is nothing to undo.
			return nil, original
		}

		log.Printf("lending: checkout of book %d failed after decrement, compensating: %v", req.BookID, sagaErr)
		if compErr := o.adjustDetached(ctx, req.BookID, +1, opKey+"/checkout-undo"); compErr != nil {
			log.Printf("lending: compensation for book %d FAILED, counter needs reconciliation: %v", req.BookID, compErr)
			return nil, CompensationFailed("create loan", original, compErr)
		}
		return nil, original
	}

	resolved := &ResolvedLoan{Loan: *created, Book: *decremented, Member: *m}
	resolved.Status = resolved.EffectiveStatus(o.now())
	span.SetAttributes(attribute.Int64("loan.id", created.ID))
	return resolved, nil
}

// Return marks the loan returned and gives the copy back to the book's
// availability counter. The loan mutation runs first: it carries the
// already-returned guard. A failed increment afterwards leaves the counter
// understated, which is recoverable drift; it is retried, never rolled
// back into un-returning the loan.
func (o *Orchestrator) Return(ctx context.Context, loanID int64) (*ResolvedLoan, error) {
	ctx, span := o.tracer.Start(ctx, "lending.return",
		trace.WithAttributes(attribute.Int64("loan.id", loanID)),
	)
	defer span.End()

	l, err := o.stores.GetLoan(ctx, loanID)
	if err != nil {
		if errors.Is(err, loan.ErrNotFound) {
			return nil, NotFound(EntityLoan, loanID)
		}
		return nil, transientOr("get loan", err)
	}
	if l.Status == loan.StatusReturned {
		return nil, Conflict(ReasonAlreadyReturned)
	}

	today := date.Of(o.now())
	returned := loan.StatusReturned
	opKey := uuid.NewString() + "/return"

	var (
		updated     *loan.Loan
		incremented *book.Book
	)
	sagaErr := o.stores.Atomically(ctx, func(ctx context.Context) error {
		var err error
		updated, err = o.stores.UpdateLoan(ctx, loanID, loan.Update{
			ReturnDate: &today,
			Status:     &returned,
		})
		if err != nil {
			return fmt.Errorf("mark returned: %w", err)
		}
		incremented, err = o.stores.AdjustBookCopies(ctx, l.BookID, +1, 0, opKey)
		if err != nil {
			return fmt.Errorf("increment copies: %w", err)
		}
		return nil
	})
	if sagaErr != nil {
		if updated == nil || RolledBack(sagaErr) {
			return nil, classifyReturnFailure(sagaErr, loanID)
		}

		// The loan is committed as returned; only the increment is
		// missing. Retry it detached from the caller (the op key makes a
		// duplicate apply harmless).
		log.Printf("lending: return of loan %d committed but increment failed, retrying: %v", loanID, sagaErr)
		b, retryErr := o.adjustDetachedBook(ctx, l.BookID, +1, opKey)
		if retryErr != nil {
			log.Printf("lending: increment for book %d still failing, counter understated until reconciled: %v", l.BookID, retryErr)
			return nil, Transient("increment copies", retryErr)
		}
		incremented = b
	}

	return o.resolve(ctx, updated, incremented)
}

// Resolve denormalizes a loan with current book and member snapshots.
// This is a read-only fan-out used by loan read endpoints.
func (o *Orchestrator) Resolve(ctx context.Context, l *loan.Loan) (*ResolvedLoan, error) {
	return o.resolve(ctx, l, nil)
}

func (o *Orchestrator) resolve(ctx context.Context, l *loan.Loan, b *book.Book) (*ResolvedLoan, error) {
	if b == nil {
		var err error
		b, err = o.stores.GetBook(ctx, l.BookID)
		if err != nil {
			if errors.Is(err, book.ErrNotFound) {
				return nil, NotFound(EntityBook, l.BookID)
			}
			return nil, transientOr("get book", err)
		}
	}
	m, err := o.stores.GetMember(ctx, l.MemberID)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return nil, NotFound(EntityMember, l.MemberID)
		}
		return nil, transientOr("get member", err)
	}

	resolved := &ResolvedLoan{Loan: *l, Book: *b, Member: *m}
	resolved.Status = resolved.EffectiveStatus(o.now())
	return resolved, nil
}

// adjustDetached applies a counter adjustment on a context detached from
// the caller's cancellation: once a saga step has committed, its undo or
// completion must run even if the client has gone away.
func (o *Orchestrator) adjustDetached(ctx context.Context, bookID int64, delta int, opKey string) error {
	_, err := o.adjustDetachedBook(ctx, bookID, delta, opKey)
	return err
}

func (o *Orchestrator) adjustDetachedBook(ctx context.Context, bookID int64, delta int, opKey string) (*book.Book, error) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.compensationTimeout)
	defer cancel()
	return o.stores.AdjustBookCopies(dctx, bookID, delta, 0, opKey)
}

// classifyCheckoutFailure maps a checkout saga failure onto the error
// taxonomy. Adapter-produced *Error values pass through unchanged.
func classifyCheckoutFailure(err error) *Error {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr
	}
	switch {
	case errors.Is(err, book.ErrNoCopiesAvailable):
		// A concurrent checkout exhausted the counter between the
		// precondition read and the write.
		return Conflict(ReasonNoCopiesAvailable)
	case errors.Is(err, book.ErrNotFound):
		return Transient("decrement copies", err)
	default:
		return Transient("checkout", err)
	}
}

func classifyReturnFailure(err error, loanID int64) *Error {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr
	}
	switch {
	case errors.Is(err, loan.ErrAlreadyReturned):
		return Conflict(ReasonAlreadyReturned)
	case errors.Is(err, loan.ErrNotFound):
		return NotFound(EntityLoan, loanID)
	default:
		return Transient("return", err)
	}
}

// transientOr wraps err as a transient step failure unless it is already a
// structured lending error.
func transientOr(step string, err error) *Error {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr
	}
	return Transient(step, err)
}
