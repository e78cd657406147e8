package member

import "context"

// Service defines the interface for the member store.
type Service interface {
	List(ctx context.Context) ([]*Member, error)
	Get(ctx context.Context, id int64) (*Member, error)
	Create(ctx context.Context, m *Member) (*Member, error)
	Update(ctx context.Context, id int64, m *Member) (*Member, error)
	Delete(ctx context.Context, id int64) error
}
