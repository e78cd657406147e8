package lending

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v5"

	"liblend/internal/book"
	"liblend/internal/clients"
	"liblend/internal/loan"
	"liblend/internal/member"
)

const defaultMaxTries = 3

// RemoteStores implements Stores for the distributed topology: book and
// member state live behind HTTP services, loan records in the loan
// service's own store. There is no shared transaction, so Atomically is a
// plain call-through and the orchestrator's compensation carries the
// consistency burden.
//
// Reads and keyed counter adjustments are idempotent, so they retry with
// exponential backoff on unavailability. Loan creation is never resent
// here; its idempotency is the loan store's job.
type RemoteStores struct {
	books    *clients.BookClient
	members  *clients.MemberClient
	loans    loan.Service
	maxTries uint
}

// NewRemoteStores wires the distributed adapter.
func NewRemoteStores(books *clients.BookClient, members *clients.MemberClient, loans loan.Service) *RemoteStores {
	return &RemoteStores{books: books, members: members, loans: loans, maxTries: defaultMaxTries}
}

func (s *RemoteStores) GetBook(ctx context.Context, id int64) (*book.Book, error) {
	b, err := retryUnavailable(ctx, s.maxTries, func() (*book.Book, error) {
		return s.books.GetBook(ctx, id)
	})
	if errors.Is(err, clients.ErrUnavailable) {
		return nil, Transient("get book", err)
	}
	return b, err
}

func (s *RemoteStores) GetMember(ctx context.Context, id int64) (*member.Member, error) {
	m, err := retryUnavailable(ctx, s.maxTries, func() (*member.Member, error) {
		return s.members.GetMember(ctx, id)
	})
	if errors.Is(err, clients.ErrUnavailable) {
		return nil, Transient("get member", err)
	}
	return m, err
}

func (s *RemoteStores) AdjustBookCopies(ctx context.Context, id int64, delta, expectedMinimum int, opKey string) (*book.Book, error) {
	b, err := retryUnavailable(ctx, s.maxTries, func() (*book.Book, error) {
		return s.books.AdjustCopies(ctx, id, delta, expectedMinimum, opKey)
	})
	if errors.Is(err, clients.ErrUnavailable) {
		return nil, Transient("adjust book copies", err)
	}
	return b, err
}

func (s *RemoteStores) CreateLoan(ctx context.Context, p loan.CreateParams) (*loan.Loan, error) {
	return s.loans.Create(ctx, p)
}

func (s *RemoteStores) GetLoan(ctx context.Context, id int64) (*loan.Loan, error) {
	return s.loans.Get(ctx, id)
}

func (s *RemoteStores) FindLoanByKey(ctx context.Context, key string) (*loan.Loan, error) {
	return s.loans.FindByIdempotencyKey(ctx, key)
}

func (s *RemoteStores) UpdateLoan(ctx context.Context, id int64, u loan.Update) (*loan.Loan, error) {
	return s.loans.Update(ctx, id, u)
}

// Atomically has no transaction to offer across service boundaries; fn's
// steps commit one by one and failures surface to the orchestrator with
// partial effects intact.
func (s *RemoteStores) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// retryUnavailable retries op while it fails with clients.ErrUnavailable,
// up to maxTries attempts with exponential backoff. Domain errors stop the
// retry immediately.
func retryUnavailable[T any](ctx context.Context, maxTries uint, op func() (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !errors.Is(err, clients.ErrUnavailable) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxTries),
	)
}
