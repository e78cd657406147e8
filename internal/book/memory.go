package book

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memoryService is an in-memory Service used by tests and by local
// development without a database. AdjustCopies holds the lock across the
// check and the write, giving the same compare-and-swap guarantee as the
// SQL conditional update.
type memoryService struct {
	mu      sync.Mutex
	nextID  int64
	books   map[int64]*Book
	applied map[string]struct{}
}

// NewMemoryService creates an empty in-memory book store.
func NewMemoryService() Service {
	return &memoryService{
		nextID:  1,
		books:   make(map[int64]*Book),
		applied: make(map[string]struct{}),
	}
}

func (s *memoryService) List(_ context.Context) ([]*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	books := make([]*Book, 0, len(s.books))
	for _, b := range s.books {
		copied := *b
		books = append(books, &copied)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

func (s *memoryService) Get(_ context.Context, id int64) (*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

func (s *memoryService) get(id int64) (*Book, error) {
	b, ok := s.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (s *memoryService) Create(_ context.Context, in *Book) (*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.books {
		if existing.ISBN == in.ISBN {
			return nil, ErrDuplicateISBN
		}
	}

	b := *in
	b.ID = s.nextID
	s.nextID++
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.books[b.ID] = &b

	copied := b
	return &copied, nil
}

func (s *memoryService) Update(_ context.Context, id int64, in *Book) (*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	for otherID, existing := range s.books {
		if otherID != id && existing.ISBN == in.ISBN {
			return nil, ErrDuplicateISBN
		}
	}

	b.Title = in.Title
	b.ISBN = in.ISBN
	b.Author = in.Author
	b.Publisher = in.Publisher
	b.PublishedYear = in.PublishedYear
	b.UpdatedAt = time.Now().UTC()

	copied := *b
	return &copied, nil
}

func (s *memoryService) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return ErrNotFound
	}
	delete(s.books, id)
	return nil
}

func (s *memoryService) AdjustCopies(_ context.Context, id int64, delta, expectedMinimum int, opKey string) (*Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return nil, ErrNotFound
	}

	if _, done := s.applied[opKey]; done {
		copied := *b
		return &copied, nil
	}

	next := b.AvailableCopies + delta
	if next < expectedMinimum {
		return nil, ErrNoCopiesAvailable
	}
	if next > b.TotalCopies {
		return nil, ErrCopiesExceedTotal
	}

	b.AvailableCopies = next
	b.UpdatedAt = time.Now().UTC()
	s.applied[opKey] = struct{}{}

	copied := *b
	return &copied, nil
}
