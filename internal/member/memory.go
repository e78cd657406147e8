package member

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memoryService is an in-memory Service for tests and local development.
type memoryService struct {
	mu      sync.Mutex
	nextID  int64
	members map[int64]*Member
}

// NewMemoryService creates an empty in-memory member store.
func NewMemoryService() Service {
	return &memoryService{
		nextID:  1,
		members: make(map[int64]*Member),
	}
}

func (s *memoryService) List(_ context.Context) ([]*Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := make([]*Member, 0, len(s.members))
	for _, m := range s.members {
		copied := *m
		members = append(members, &copied)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

func (s *memoryService) Get(_ context.Context, id int64) (*Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (s *memoryService) Create(_ context.Context, in *Member) (*Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.members {
		if existing.Email == in.Email {
			return nil, ErrDuplicateEmail
		}
	}

	m := *in
	m.ID = s.nextID
	s.nextID++
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	s.members[m.ID] = &m

	copied := m
	return &copied, nil
}

func (s *memoryService) Update(_ context.Context, id int64, in *Member) (*Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.members[id]
	if !ok {
		return nil, ErrNotFound
	}
	for otherID, existing := range s.members {
		if otherID != id && existing.Email == in.Email {
			return nil, ErrDuplicateEmail
		}
	}

	m.FirstName = in.FirstName
	m.LastName = in.LastName
	m.Email = in.Email
	m.Phone = in.Phone
	m.MembershipDate = in.MembershipDate
	m.Status = in.Status
	m.UpdatedAt = time.Now().UTC()

	copied := *m
	return &copied, nil
}

func (s *memoryService) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[id]; !ok {
		return ErrNotFound
	}
	delete(s.members, id)
	return nil
}
