package repository

import (
	"numrent/internal/domain"
)

// SessionRepository defines durable session storage. Only the credential
// pair and the rented number are persisted; live provider handles are not.
type SessionRepository interface {
	// Get returns the session for a user, or nil when none exists
	Get(userID int64) (*domain.Session, error)
	Put(session *domain.Session) error
	Delete(userID int64) error
	// LoadAll returns every persisted session keyed by user ID
	LoadAll() (map[int64]*domain.Session, error)
	// PersistAll replaces the stored snapshot with the given mapping in
	// one transaction. Used by the shutdown write-back, not by the
	// per-mutation Put path.
	PersistAll(sessions map[int64]*domain.Session) error
}
