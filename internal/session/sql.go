package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quickref/internal/models"
)

// SQLStore persists sessions in the context_sessions table. Expired rows are hidden from Get and
// removed by PurgeExpired.
type SQLStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLStore wraps a migrated database handle. The store takes ownership of db.
func NewSQLStore(db *sql.DB, ttl time.Duration) *SQLStore {
	return &SQLStore{
		db:  db,
		ttl: ttl,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *SQLStore) Create(ctx context.Context, content string) (string, error) {
	se := newSession(content, s.now(), s.ttl)
	var expires sql.NullTime
	if !se.ExpiresAt.IsZero() {
		expires = sql.NullTime{Time: se.ExpiresAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO context_sessions (id, content, created_at, expires_at)
		VALUES (?, ?, ?, ?)`, se.ID, se.Content, se.CreatedAt, expires)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return se.ID, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*models.ContextSession, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	var (
		se      models.ContextSession
		expires sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, content, created_at, expires_at FROM context_sessions
		WHERE id = ?`, id).Scan(&se.ID, &se.Content, &se.CreatedAt, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if expires.Valid {
		se.ExpiresAt = expires.Time
	}
	if se.Expired(s.now()) {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM context_sessions WHERE id = ?`, id); err != nil {
			debugLog("drop expired session %s failed: %v", id, err)
		}
		return nil, ErrNotFound
	}
	return &se, nil
}

func (s *SQLStore) Invalidate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM context_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeExpired deletes every row whose expiry has passed.
func (s *SQLStore) PurgeExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM context_sessions
		WHERE expires_at IS NOT NULL AND expires_at <= ?`, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
