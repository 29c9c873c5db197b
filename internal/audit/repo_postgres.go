package audit

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// Schema is applied at startup via utils.EnsureSchema.
const Schema = `CREATE TABLE IF NOT EXISTS audit_events (
	id          UUID PRIMARY KEY,
	type        TEXT NOT NULL,
	caller_key  TEXT NOT NULL,
	origin      TEXT NOT NULL DEFAULT '',
	ip_address  TEXT NOT NULL DEFAULT '',
	meeting_id  TEXT NOT NULL DEFAULT '',
	user_ids    TEXT NOT NULL DEFAULT '',
	message     TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL
)`

// PostgresRepo stores events in audit_events. INSERT only.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) (*PostgresRepo, error) {
	if db == nil {
		return nil, errors.New("audit: db is nil")
	}
	return &PostgresRepo{db: db}, nil
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, type, caller_key, origin, ip_address, meeting_id, user_ids, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, string(e.Type), e.CallerKey, e.Origin, e.IPAddress, e.MeetingID,
		strings.Join(e.UserIDs, ","), e.Message, e.CreatedAt,
	)
	return err
}
