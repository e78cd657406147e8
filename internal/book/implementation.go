package book

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"liblend/internal/postgres"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// service implements Service on Postgres.
type service struct {
	db *sql.DB
}

// NewService creates a Postgres-backed book store.
func NewService(db *sql.DB) Service {
	return &service{db: db}
}

const bookColumns = "id, title, isbn, author, publisher, published_year, total_copies, available_copies, created_at, updated_at"

func scanBook(row interface{ Scan(...any) error }) (*Book, error) {
	b := &Book{}
	err := row.Scan(
		&b.ID,
		&b.Title,
		&b.ISBN,
		&b.Author,
		&b.Publisher,
		&b.PublishedYear,
		&b.TotalCopies,
		&b.AvailableCopies,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) List(ctx context.Context) ([]*Book, error) {
	rows, err := postgres.From(ctx, s.db).QueryContext(ctx, `
		SELECT `+bookColumns+` FROM books ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (s *service) Get(ctx context.Context, id int64) (*Book, error) {
	row := postgres.From(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+bookColumns+` FROM books WHERE id = $1
	`, id)
	b, err := scanBook(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get book %d: %w", id, err)
	}
	return b, nil
}

func (s *service) Create(ctx context.Context, in *Book) (*Book, error) {
	row := postgres.From(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO books (title, isbn, author, publisher, published_year, total_copies, available_copies)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+bookColumns+`
	`, in.Title, in.ISBN, in.Author, in.Publisher, in.PublishedYear, in.TotalCopies, in.AvailableCopies)
	b, err := scanBook(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateISBN
		}
		return nil, fmt.Errorf("create book: %w", err)
	}
	return b, nil
}

func (s *service) Update(ctx context.Context, id int64, in *Book) (*Book, error) {
	row := postgres.From(ctx, s.db).QueryRowContext(ctx, `
		UPDATE books
		SET title = $1, isbn = $2, author = $3, publisher = $4, published_year = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING `+bookColumns+`
	`, in.Title, in.ISBN, in.Author, in.Publisher, in.PublishedYear, id)
	b, err := scanBook(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrDuplicateISBN
		}
		return nil, fmt.Errorf("update book %d: %w", id, err)
	}
	return b, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	res, err := postgres.From(ctx, s.db).ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustCopies performs the compare-and-swap on the availability counter.
// The op-key insert and the conditional update commit together; when the
// key was already applied the counter is left untouched.
func (s *service) AdjustCopies(ctx context.Context, id int64, delta, expectedMinimum int, opKey string) (*Book, error) {
	var out *Book
	err := postgres.InTx(ctx, s.db, func(ctx context.Context) error {
		q := postgres.From(ctx, s.db)

		res, err := q.ExecContext(ctx, `
			INSERT INTO book_adjustments (op_key, book_id, delta)
			VALUES ($1, $2, $3)
			ON CONFLICT (op_key) DO NOTHING
		`, opKey, id, delta)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrNotFound
			}
			return fmt.Errorf("record adjustment: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// Already applied; return current state without re-adjusting.
			b, err := s.Get(ctx, id)
			if err != nil {
				return err
			}
			out = b
			return nil
		}

		row := q.QueryRowContext(ctx, `
			UPDATE books
			SET available_copies = available_copies + $1, updated_at = NOW()
			WHERE id = $2
			  AND available_copies + $1 >= $3
			  AND available_copies + $1 <= total_copies
			RETURNING `+bookColumns+`
		`, delta, id, expectedMinimum)
		b, err := scanBook(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return s.classifyAdjustConflict(ctx, id, delta, expectedMinimum)
			}
			return fmt.Errorf("adjust copies for book %d: %w", id, err)
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// classifyAdjustConflict decides why the conditional update matched no row:
// a missing book, an exhausted counter, or an increment past the total.
func (s *service) classifyAdjustConflict(ctx context.Context, id int64, delta, expectedMinimum int) error {
	b, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if b.AvailableCopies+delta < expectedMinimum {
		return ErrNoCopiesAvailable
	}
	return ErrCopiesExceedTotal
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == foreignKeyViolation
}
