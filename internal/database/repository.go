package database

import (
	"context"
)

// IdentityStore provides access to enrolled identities and their
// reference embeddings.
type IdentityStore interface {
	// AddIdentity registers a new identity with its first reference embedding.
	// Returns ErrDuplicateIdentity if the normalized name is already taken.
	AddIdentity(ctx context.Context, name string, embedding []float64) (*Identity, error)
	// AddEmbedding appends another reference embedding to an existing identity.
	AddEmbedding(ctx context.Context, name string, embedding []float64) error
	// GetIdentity retrieves an identity with all its embeddings by name.
	// Returns ErrIdentityNotFound if the name is not enrolled.
	GetIdentity(ctx context.Context, name string) (*Identity, error)
	// ListIdentities returns all identities with their embeddings,
	// ordered by name.
	ListIdentities(ctx context.Context) ([]Identity, error)
	// RemoveIdentity deletes an identity and its embeddings.
	// Returns ErrIdentityNotFound if the name is not enrolled.
	// Historical sessions are kept.
	RemoveIdentity(ctx context.Context, name string) error
	// CountIdentities returns the number of enrolled identities.
	CountIdentities(ctx context.Context) (int, error)
}

// SessionStore provides access to attendance session records.
type SessionStore interface {
	// OpenSession creates a new open session (no OUT time) and returns it.
	OpenSession(ctx context.Context, name, date, inTime string) (*Session, error)
	// CloseSession sets the OUT time on an existing session.
	// Returns ErrSessionNotFound if the id does not exist.
	CloseSession(ctx context.Context, id int64, outTime string) error
	// FindOpenSession returns the open session for (name, date), or nil
	// if there is none. At most one open session may exist per pair.
	FindOpenSession(ctx context.Context, name, date string) (*Session, error)
	// FindOpenSessionBefore returns the newest open session for the name
	// dated strictly before the given date, or nil. Used to settle
	// sessions left open across midnight.
	FindOpenSessionBefore(ctx context.Context, name, date string) (*Session, error)
	// ListSessions returns all sessions ordered by (date ASC, in_time ASC).
	ListSessions(ctx context.Context) ([]Session, error)
}

// Store is the full persistence gateway: identities plus sessions.
type Store interface {
	IdentityStore
	SessionStore

	// Close releases the underlying database resources.
	Close() error
}
