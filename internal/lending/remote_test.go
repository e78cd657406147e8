package lending_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liblend/internal/book"
	"liblend/internal/clients"
	"liblend/internal/lending"
	"liblend/internal/loan"
	"liblend/internal/member"
)

// distEnv is the distributed topology in miniature: book and member
// services behind real HTTP servers, the loan store local, everything
// reached through the remote adapter.
type distEnv struct {
	books   book.Service
	members member.Service
	loans   loan.Service
	lender  *lending.Orchestrator
}

func newDistEnv(t *testing.T, loans loan.Service) *distEnv {
	t.Helper()

	e := &distEnv{
		books:   book.NewMemoryService(),
		members: member.NewMemoryService(),
		loans:   loans,
	}

	bookRouter := chi.NewRouter()
	bookRouter.Mount("/books", book.NewHandler(e.books).Routes())
	bookSrv := httptest.NewServer(bookRouter)
	t.Cleanup(bookSrv.Close)

	memberRouter := chi.NewRouter()
	memberRouter.Mount("/members", member.NewHandler(e.members).Routes())
	memberSrv := httptest.NewServer(memberRouter)
	t.Cleanup(memberSrv.Close)

	stores := lending.NewRemoteStores(
		clients.NewBookClient(bookSrv.URL, time.Second),
		clients.NewMemberClient(memberSrv.URL, time.Second),
		e.loans,
	)
	e.lender = lending.NewOrchestrator(stores, lending.WithClock(func() time.Time { return testNow }))
	return e
}

func TestDistributedCheckoutAndReturn(t *testing.T) {
	ctx := context.Background()
	e := newDistEnv(t, loan.NewMemoryService())

	b := seedBook(t, e.books, 2, 2)
	m := seedMember(t, e.members, member.StatusActive)

	out, err := e.lender.Checkout(ctx, checkoutReq(b.ID, m.ID))
	require.NoError(t, err)
	assert.Equal(t, loan.StatusActive, out.Status)
	assert.Equal(t, 1, out.Book.AvailableCopies)

	returned, err := e.lender.Return(ctx, out.Loan.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.StatusReturned, returned.Status)
	assert.Equal(t, 2, returned.Book.AvailableCopies)
}

func TestDistributedCheckoutPreconditions(t *testing.T) {
	ctx := context.Background()
	e := newDistEnv(t, loan.NewMemoryService())

	b := seedBook(t, e.books, 1, 0)
	m := seedMember(t, e.members, member.StatusInactive)

	// Missing entities travel the wire as domain sentinels and come back
	// out of the orchestrator classified.
	_, err := e.lender.Checkout(ctx, checkoutReq(42, m.ID))
	var lerr *lending.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, lending.KindNotFound, lerr.Kind)
	assert.Equal(t, lending.EntityBook, lerr.Entity)

	_, err = e.lender.Checkout(ctx, checkoutReq(b.ID, m.ID))
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, lending.ReasonNoCopiesAvailable, lerr.Reason)
}

func TestDistributedCompensation(t *testing.T) {
	ctx := context.Background()

	boom := errors.New("loan store down")
	failing := &createHookLoans{Service: loan.NewMemoryService(), createErr: boom}
	e := newDistEnv(t, failing)

	b := seedBook(t, e.books, 2, 2)
	m := seedMember(t, e.members, member.StatusActive)

	_, err := e.lender.Checkout(ctx, checkoutReq(b.ID, m.ID))
	var lerr *lending.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, lending.KindTransient, lerr.Kind)

	// The decrement committed on the book service; the compensating
	// increment must have crossed the wire and restored it.
	stored, err := e.books.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.AvailableCopies)
}

func TestDistributedBookServiceDown(t *testing.T) {
	ctx := context.Background()

	stores := lending.NewRemoteStores(
		clients.NewBookClient("http://127.0.0.1:1", 100*time.Millisecond),
		clients.NewMemberClient("http://127.0.0.1:1", 100*time.Millisecond),
		loan.NewMemoryService(),
	)
	lender := lending.NewOrchestrator(stores, lending.WithClock(func() time.Time { return testNow }))

	_, err := lender.Checkout(ctx, checkoutReq(1, 1))
	var lerr *lending.Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, lending.KindTransient, lerr.Kind)
	assert.ErrorIs(t, err, clients.ErrUnavailable)
}
