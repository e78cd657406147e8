package loan

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memoryService is an in-memory Service for tests and local development.
// The status guard in Update mirrors the SQL conditional update: a
// RETURNED loan never transitions again.
type memoryService struct {
	mu     sync.Mutex
	nextID int64
	loans  map[int64]*Loan
	byKey  map[string]int64
}

// NewMemoryService creates an empty in-memory loan store.
func NewMemoryService() Service {
	return &memoryService{
		nextID: 1,
		loans:  make(map[int64]*Loan),
		byKey:  make(map[string]int64),
	}
}

func (s *memoryService) List(_ context.Context, f Filter) ([]*Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var loans []*Loan
	for _, l := range s.loans {
		if f.BookID != nil && l.BookID != *f.BookID {
			continue
		}
		if f.MemberID != nil && l.MemberID != *f.MemberID {
			continue
		}
		copied := *l
		loans = append(loans, &copied)
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID < loans[j].ID })
	return loans, nil
}

func (s *memoryService) Get(_ context.Context, id int64) (*Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.loans[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *l
	return &copied, nil
}

func (s *memoryService) FindByIdempotencyKey(_ context.Context, key string) (*Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byKey[key]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *s.loans[id]
	return &copied, nil
}

func (s *memoryService) Create(_ context.Context, p CreateParams) (*Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.IdempotencyKey != "" {
		if id, ok := s.byKey[p.IdempotencyKey]; ok {
			copied := *s.loans[id]
			return &copied, nil
		}
	}

	now := time.Now().UTC()
	l := &Loan{
		ID:        s.nextID,
		BookID:    p.BookID,
		MemberID:  p.MemberID,
		LoanDate:  p.LoanDate,
		DueDate:   p.DueDate,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextID++
	s.loans[l.ID] = l
	if p.IdempotencyKey != "" {
		s.byKey[p.IdempotencyKey] = l.ID
	}

	copied := *l
	return &copied, nil
}

func (s *memoryService) Update(_ context.Context, id int64, u Update) (*Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.loans[id]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Status != nil && l.Status != StatusActive {
		return nil, ErrAlreadyReturned
	}

	if u.DueDate != nil {
		l.DueDate = *u.DueDate
	}
	if u.ReturnDate != nil {
		d := *u.ReturnDate
		l.ReturnDate = &d
	}
	if u.Status != nil {
		l.Status = *u.Status
	}
	l.UpdatedAt = time.Now().UTC()

	copied := *l
	return &copied, nil
}

func (s *memoryService) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.loans[id]; !ok {
		return ErrNotFound
	}
	delete(s.loans, id)
	return nil
}
