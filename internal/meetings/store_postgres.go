package meetings

import (
	"context"
	"database/sql"
	"errors"

	"meeting-platform/pkg/utils"
)

// Schema is applied at startup via utils.EnsureSchema.
const Schema = `CREATE TABLE IF NOT EXISTS meetings (
	id          TEXT PRIMARY KEY,
	url         TEXT NOT NULL,
	call_cid    TEXT NOT NULL DEFAULT '',
	host_id     TEXT NOT NULL,
	host_name   TEXT NOT NULL,
	guest_id    TEXT NOT NULL,
	guest_name  TEXT NOT NULL,
	provider    TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL
)`

// PostgresStore persists meetings through database/sql with the pgx driver.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("meetings: db is nil")
	}
	return &PostgresStore{db: db}, nil
}

// Save upserts the record. Re-issuing the same id keeps the original created_at.
func (s *PostgresStore) Save(ctx context.Context, m Meeting) error {
	return utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO meetings (id, url, call_cid, host_id, host_name, guest_id, guest_name, provider, created_at, expires_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (id) DO UPDATE SET
			   url = EXCLUDED.url,
			   call_cid = EXCLUDED.call_cid,
			   expires_at = EXCLUDED.expires_at`,
			m.ID, m.URL, m.CallCID, m.HostID, m.HostName, m.GuestID, m.GuestName, m.Provider, m.CreatedAt, m.ExpiresAt,
		)
		return err
	})
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Meeting, error) {
	var m Meeting
	err := s.db.QueryRowContext(ctx,
		`SELECT id, url, call_cid, host_id, host_name, guest_id, guest_name, provider, created_at, expires_at
		 FROM meetings WHERE id = $1`, id,
	).Scan(&m.ID, &m.URL, &m.CallCID, &m.HostID, &m.HostName, &m.GuestID, &m.GuestName, &m.Provider, &m.CreatedAt, &m.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Meeting{}, ErrNotFound
	}
	if err != nil {
		return Meeting{}, err
	}
	return m, nil
}
