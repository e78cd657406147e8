package loan

import "context"

// Service defines the interface for the loan store. It manages loan records
// only; the checkout/return workflow that coordinates loans with book
// availability lives in the lending package.
type Service interface {
	List(ctx context.Context, f Filter) ([]*Loan, error)
	Get(ctx context.Context, id int64) (*Loan, error)
	// FindByIdempotencyKey returns the loan created under the given client
	// key, or ErrNotFound. Checkout uses it to make resends read-only.
	FindByIdempotencyKey(ctx context.Context, key string) (*Loan, error)
	Create(ctx context.Context, p CreateParams) (*Loan, error)
	Update(ctx context.Context, id int64, u Update) (*Loan, error)
	Delete(ctx context.Context, id int64) error
}
