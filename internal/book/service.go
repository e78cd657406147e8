package book

import "context"

// Service defines the interface for the book store.
type Service interface {
	List(ctx context.Context) ([]*Book, error)
	Get(ctx context.Context, id int64) (*Book, error)
	Create(ctx context.Context, b *Book) (*Book, error)
	Update(ctx context.Context, id int64, b *Book) (*Book, error)
	Delete(ctx context.Context, id int64) error

	// AdjustCopies applies delta to the available-copy counter as a
	// conditional update: it fails with ErrNoCopiesAvailable unless the
	// resulting count stays >= expectedMinimum at write time, and with
	// ErrCopiesExceedTotal if it would pass TotalCopies. The check and the
	// write are a single atomic step, so two callers racing for the last
	// copy cannot both win.
	//
	// opKey makes the adjustment idempotent: an adjustment whose key has
	// already been applied is a no-op that returns the current book.
	AdjustCopies(ctx context.Context, id int64, delta, expectedMinimum int, opKey string) (*Book, error)
}
