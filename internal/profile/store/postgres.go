package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"opsdesk/internal/profile"
	"opsdesk/pkg/platform/sentinel"
)

// Postgres persists profiles in the hosted relational backend.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const profileColumns = `id, email, first_name, last_name, avatar_url, role, status, created_at, updated_at, last_active`

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	return scanProfile(row)
}

func (s *Postgres) Create(ctx context.Context, p *profile.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Email, p.FirstName, p.LastName, p.AvatarURL,
		string(p.Role), string(p.Status), p.CreatedAt, p.UpdatedAt, p.LastActiveAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, p *profile.Profile) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles
		SET email = $2, first_name = $3, last_name = $4, avatar_url = $5,
		    role = $6, status = $7, updated_at = $8
		WHERE id = $1`,
		p.ID, p.Email, p.FirstName, p.LastName, p.AvatarURL,
		string(p.Role), string(p.Status), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) UpdateLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET last_active = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("touch last_active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch last_active: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) List(ctx context.Context, filter profile.Filter) (*profile.Page, error) {
	where, args := buildFilter(filter)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM profiles`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count profiles: %w", err)
	}

	query := `SELECT ` + profileColumns + ` FROM profiles` + where +
		` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	page := &profile.Page{Total: total}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		page.Profiles = append(page.Profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return page, nil
}

func buildFilter(filter profile.Filter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		clauses = append(clauses, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(email ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d)", n, n, n))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*profile.Profile, error) {
	var p profile.Profile
	var role, status string
	var lastActive sql.NullTime
	err := row.Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.AvatarURL,
		&role, &status, &p.CreatedAt, &p.UpdatedAt, &lastActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	p.Role = profile.ParseRole(role)
	p.Status = profile.ParseStatus(status)
	if lastActive.Valid {
		p.LastActiveAt = &lastActive.Time
	}
	return &p, nil
}
