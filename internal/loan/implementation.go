package loan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"liblend/internal/postgres"
)

// service implements Service on Postgres.
type service struct {
	db *sql.DB
}

// NewService creates a Postgres-backed loan store.
func NewService(db *sql.DB) Service {
	return &service{db: db}
}

const loanColumns = "id, book_id, member_id, loan_date, due_date, return_date, status, created_at, updated_at"

func scanLoan(row interface{ Scan(...any) error }) (*Loan, error) {
	l := &Loan{}
	err := row.Scan(
		&l.ID,
		&l.BookID,
		&l.MemberID,
		&l.LoanDate,
		&l.DueDate,
		&l.ReturnDate,
		&l.Status,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *service) List(ctx context.Context, f Filter) ([]*Loan, error) {
	query := "SELECT " + loanColumns + " FROM loans"
	var (
		conds []string
		args  []any
	)
	if f.BookID != nil {
		args = append(args, *f.BookID)
		conds = append(conds, fmt.Sprintf("book_id = $%d", len(args)))
	}
	if f.MemberID != nil {
		args = append(args, *f.MemberID)
		conds = append(conds, fmt.Sprintf("member_id = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := postgres.From(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	var loans []*Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

func (s *service) Get(ctx context.Context, id int64) (*Loan, error) {
	row := postgres.From(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+loanColumns+` FROM loans WHERE id = $1
	`, id)
	l, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get loan %d: %w", id, err)
	}
	return l, nil
}

func (s *service) FindByIdempotencyKey(ctx context.Context, key string) (*Loan, error) {
	row := postgres.From(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+loanColumns+` FROM loans WHERE idempotency_key = $1
	`, key)
	l, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find loan by idempotency key: %w", err)
	}
	return l, nil
}

// Create inserts a loan with status ACTIVE. When p.IdempotencyKey is set
// and a loan carrying the same key already exists, that loan is returned
// instead of inserting a duplicate.
func (s *service) Create(ctx context.Context, p CreateParams) (*Loan, error) {
	key := sql.NullString{String: p.IdempotencyKey, Valid: p.IdempotencyKey != ""}

	row := postgres.From(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO loans (book_id, member_id, loan_date, due_date, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING `+loanColumns+`
	`, p.BookID, p.MemberID, p.LoanDate, p.DueDate, StatusActive, key)
	l, err := scanLoan(row)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("create loan: %w", err)
	}

	// Conflict on the idempotency key: hand back the original insert.
	row = postgres.From(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+loanColumns+` FROM loans WHERE idempotency_key = $1
	`, p.IdempotencyKey)
	l, err = scanLoan(row)
	if err != nil {
		return nil, fmt.Errorf("load loan for idempotency key: %w", err)
	}
	return l, nil
}

func (s *service) Update(ctx context.Context, id int64, u Update) (*Loan, error) {
	sets := []string{"updated_at = NOW()"}
	var args []any
	if u.DueDate != nil {
		args = append(args, *u.DueDate)
		sets = append(sets, fmt.Sprintf("due_date = $%d", len(args)))
	}
	if u.ReturnDate != nil {
		args = append(args, *u.ReturnDate)
		sets = append(sets, fmt.Sprintf("return_date = $%d", len(args)))
	}
	guarded := false
	if u.Status != nil {
		args = append(args, *u.Status)
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
		// Status transitions only apply to loans that are still active.
		guarded = true
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE loans SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	if guarded {
		args = append(args, StatusActive)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " RETURNING " + loanColumns

	row := postgres.From(ctx, s.db).QueryRowContext(ctx, query, args...)
	l, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.classifyUpdateMiss(ctx, id)
		}
		return nil, fmt.Errorf("update loan %d: %w", id, err)
	}
	return l, nil
}

// classifyUpdateMiss distinguishes a missing loan from a guarded status
// transition that lost to an earlier return.
func (s *service) classifyUpdateMiss(ctx context.Context, id int64) error {
	l, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if l.Status == StatusReturned {
		return ErrAlreadyReturned
	}
	return fmt.Errorf("update loan %d: no row matched", id)
}

func (s *service) Delete(ctx context.Context, id int64) error {
	res, err := postgres.From(ctx, s.db).ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete loan %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
