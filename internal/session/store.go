// Package session keeps converted file text under opaque session identifiers.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"quickref/internal/models"
)

// ErrNotFound is returned for ids that were never created, have expired, or were invalidated.
var ErrNotFound = errors.New("session not found")

// Store maps session ids to context text. Implementations are safe for concurrent use and
// never modify a session's content after Create.
type Store interface {
	Create(ctx context.Context, content string) (string, error)
	Get(ctx context.Context, id string) (*models.ContextSession, error)
	Invalidate(ctx context.Context, id string) error
	Close() error
}

// Purger is implemented by stores that need an external loop to drop expired sessions.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

func newID() string {
	return uuid.New().String()
}

// validID filters ids that cannot have been produced by newID so backends can skip the lookup.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newSession(content string, now time.Time, ttl time.Duration) *models.ContextSession {
	s := &models.ContextSession{
		ID:        newID(),
		Content:   content,
		CreatedAt: now,
	}
	if ttl > 0 {
		s.ExpiresAt = now.Add(ttl)
	}
	return s
}
