package lending

import (
	"context"
	"errors"

	"liblend/internal/book"
	"liblend/internal/loan"
	"liblend/internal/member"
)

// TxRunner runs fn inside a transaction shared by every store call fn
// makes, committing on nil and rolling back on error. The monolith passes
// postgres.InTx bound to its database; memory-backed wiring passes nil.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// LocalStores implements Stores with direct calls into the three store
// services. This is the monolithic topology: with a TxRunner, a saga's
// effect steps collapse into one atomic commit and the orchestrator's
// compensation path goes dead (but stays correct for the nil-runner case).
type LocalStores struct {
	books   book.Service
	members member.Service
	loans   loan.Service
	tx      TxRunner
}

// NewLocalStores wires the monolithic adapter. tx may be nil when the
// backing stores have no shared transaction boundary (in-memory wiring);
// each call then commits on its own and compensation is live.
func NewLocalStores(books book.Service, members member.Service, loans loan.Service, tx TxRunner) *LocalStores {
	return &LocalStores{books: books, members: members, loans: loans, tx: tx}
}

func (s *LocalStores) GetBook(ctx context.Context, id int64) (*book.Book, error) {
	return s.books.Get(ctx, id)
}

func (s *LocalStores) GetMember(ctx context.Context, id int64) (*member.Member, error) {
	return s.members.Get(ctx, id)
}

func (s *LocalStores) AdjustBookCopies(ctx context.Context, id int64, delta, expectedMinimum int, opKey string) (*book.Book, error) {
	return s.books.AdjustCopies(ctx, id, delta, expectedMinimum, opKey)
}

func (s *LocalStores) CreateLoan(ctx context.Context, p loan.CreateParams) (*loan.Loan, error) {
	return s.loans.Create(ctx, p)
}

func (s *LocalStores) GetLoan(ctx context.Context, id int64) (*loan.Loan, error) {
	return s.loans.Get(ctx, id)
}

func (s *LocalStores) FindLoanByKey(ctx context.Context, key string) (*loan.Loan, error) {
	return s.loans.FindByIdempotencyKey(ctx, key)
}

func (s *LocalStores) UpdateLoan(ctx context.Context, id int64, u loan.Update) (*loan.Loan, error) {
	return s.loans.Update(ctx, id, u)
}

// Atomically runs fn inside the shared transaction when one is available.
// A failure with the runner present means everything fn did was rolled
// back, so the error goes back wearing the ErrRolledBack marker and the
// orchestrator knows not to compensate.
func (s *LocalStores) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	if err := s.tx(ctx, fn); err != nil {
		return errors.Join(ErrRolledBack, err)
	}
	return nil
}
