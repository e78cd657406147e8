package lending

import (
	"context"
	"errors"

	"liblend/internal/book"
	"liblend/internal/loan"
	"liblend/internal/member"
)

// Stores is the capability contract the orchestrator runs against. The
// monolithic topology implements it with direct store calls sharing one
// database; the distributed topology implements it with HTTP calls to the
// book and member services plus the loan service's own store. The
// orchestrator never knows which one it has.
type Stores interface {
	GetBook(ctx context.Context, id int64) (*book.Book, error)
	GetMember(ctx context.Context, id int64) (*member.Member, error)

	// AdjustBookCopies is the store-level compare-and-swap on the
	// available-copy counter. delta is -1 (checkout) or +1 (return); for a
	// decrement the store rejects the write unless the resulting count
	// stays >= expectedMinimum at write time. opKey deduplicates retries.
	AdjustBookCopies(ctx context.Context, id int64, delta, expectedMinimum int, opKey string) (*book.Book, error)

	CreateLoan(ctx context.Context, p loan.CreateParams) (*loan.Loan, error)
	GetLoan(ctx context.Context, id int64) (*loan.Loan, error)
	FindLoanByKey(ctx context.Context, key string) (*loan.Loan, error)
	UpdateLoan(ctx context.Context, id int64, u loan.Update) (*loan.Loan, error)

	// Atomically runs fn as one unit when the underlying stores share a
	// transaction boundary; fn's store calls then commit or roll back
	// together, and a failure comes back wrapped with ErrRolledBack.
	// Implementations without a shared boundary run fn directly: partial
	// effects survive fn's failure and the caller owns compensation.
	Atomically(ctx context.Context, fn func(ctx context.Context) error) error
}

// ErrRolledBack marks an Atomically failure whose partial effects were
// undone by the adapter. The orchestrator skips compensation when it sees
// this: there is nothing left to compensate.
var ErrRolledBack = errors.New("effects rolled back")

// RolledBack reports whether err carries the rolled-back marker.
func RolledBack(err error) bool {
	return errors.Is(err, ErrRolledBack)
}
