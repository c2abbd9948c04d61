package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/and161185/feedlog/internal/errs"
	"github.com/and161185/feedlog/internal/storage"
)

// Store implements storage.Storage on the app_state table.
type Store struct{ db *DB }

var _ storage.Storage = (*Store)(nil)

// NewStore constructs a PostgreSQL-backed blob store.
func NewStore(db *DB) *Store { return &Store{db: db} }

// Get selects the blob stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT value FROM app_state WHERE key=$1`
	var v []byte
	if err := s.db.Pool.QueryRow(ctx, q, key).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

// Set upserts the blob for key in a single statement, so readers see either the
// old or the new snapshot.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	const q = `
INSERT INTO app_state (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()`
	_, err := s.db.Pool.Exec(ctx, q, key, value)
	return err
}
