package book

import (
	"errors"
	"time"
)

// Book is a catalog entry and its copy counters. AvailableCopies is only
// ever mutated through Service.AdjustCopies, which enforces
// 0 <= available <= total at write time.
type Book struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	ISBN            string    `json:"isbn"`
	Author          string    `json:"author"`
	Publisher       string    `json:"publisher,omitempty"`
	PublishedYear   int       `json:"published_year,omitempty"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

var (
	// ErrNotFound is returned when no book exists with the given ID.
	ErrNotFound = errors.New("book not found")
	// ErrDuplicateISBN is returned when a create or update would reuse an
	// ISBN already present in the store.
	ErrDuplicateISBN = errors.New("book with this ISBN already exists")
	// ErrNoCopiesAvailable is returned when a decrement would push the
	// available counter below the requested minimum.
	ErrNoCopiesAvailable = errors.New("no copies available")
	// ErrCopiesExceedTotal is returned when an increment would push the
	// available counter past the total number of copies.
	ErrCopiesExceedTotal = errors.New("available copies would exceed total")
)
