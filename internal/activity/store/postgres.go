package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"opsdesk/internal/activity"
)

// Postgres persists the append-only action trail.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const entryColumns = `id, user_id, action, details, metadata, created_at, user_email, user_full_name, user_avatar_url`

func (s *Postgres) Append(ctx context.Context, e activity.Entry) error {
	var metadata []byte
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = b
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_logs (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.UserID, e.Action, e.Details, metadata, e.CreatedAt,
		e.UserEmail, e.UserFullName, e.UserAvatarURL,
	)
	if err != nil {
		return fmt.Errorf("insert activity entry: %w", err)
	}
	return nil
}

func (s *Postgres) List(ctx context.Context, filter activity.Filter) ([]activity.Entry, error) {
	where, args := buildFilter(filter)

	query := `SELECT ` + entryColumns + ` FROM activity_logs` + where +
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
		return nil, fmt.Errorf("list activity entries: %w", err)
	}
	defer rows.Close()

	entries := []activity.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func buildFilter(filter activity.Filter) (string, []any) {
	conds := []string{}
	args := []any{}
	if filter.UserID != (uuid.UUID{}) {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		conds = append(conds, fmt.Sprintf("action = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanEntry(rows *sql.Rows) (*activity.Entry, error) {
	var (
		e        activity.Entry
		metadata []byte
	)
	err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Details, &metadata,
		&e.CreatedAt, &e.UserEmail, &e.UserFullName, &e.UserAvatarURL)
	if err != nil {
		return nil, fmt.Errorf("scan activity entry: %w", err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &e, nil
}
