package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"liblend/internal/postgres"
)

const uniqueViolation = "23505"

// service implements Service on Postgres.
type service struct {
	db *sql.DB
}

// NewService creates a Postgres-backed member store.
func NewService(db *sql.DB) Service {
	return &service{db: db}
}

const memberColumns = "id, first_name, last_name, email, phone, membership_date, status, created_at, updated_at"

func scanMember(row interface{ Scan(...any) error }) (*Member, error) {
	m := &Member{}
	err := row.Scan(
		&m.ID,
		&m.FirstName,
		&m.LastName,
		&m.Email,
		&m.Phone,
		&m.MembershipDate,
		&m.Status,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *service) List(ctx context.Context) ([]*Member, error) {
	rows, err := postgres.From(ctx, s.db).QueryContext(ctx, `
		SELECT `+memberColumns+` FROM members ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *service) Get(ctx context.Context, id int64) (*Member, error) {
	row := postgres.From(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+memberColumns+` FROM members WHERE id = $1
	`, id)
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get member %d: %w", id, err)
	}
	return m, nil
}

func (s *service) Create(ctx context.Context, in *Member) (*Member, error) {
	row := postgres.From(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO members (first_name, last_name, email, phone, membership_date, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+memberColumns+`
	`, in.FirstName, in.LastName, in.Email, in.Phone, in.MembershipDate, in.Status)
	m, err := scanMember(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create member: %w", err)
	}
	return m, nil
}

func (s *service) Update(ctx context.Context, id int64, in *Member) (*Member, error) {
	row := postgres.From(ctx, s.db).QueryRowContext(ctx, `
		UPDATE members
		SET first_name = $1, last_name = $2, email = $3, phone = $4, membership_date = $5, status = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING `+memberColumns+`
	`, in.FirstName, in.LastName, in.Email, in.Phone, in.MembershipDate, in.Status, id)
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("update member %d: %w", id, err)
	}
	return m, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	res, err := postgres.From(ctx, s.db).ExecContext(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete member %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
