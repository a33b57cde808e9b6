// Package mock provides an in-memory implementation of the database
// interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/facematch"
)

// Store is an in-memory database.Store with error injection.
type Store struct {
	mu         sync.Mutex
	nextID     int64
	identities map[string]*database.Identity // keyed by normalized name
	sessions   []*database.Session

	// Error injection
	AddIdentityError  error
	AddEmbeddingError error
	GetIdentityError  error
	ListError         error
	RemoveError       error
	OpenSessionError  error
	CloseSessionError error
	FindOpenError     error
	ListSessionsError error
}

// NewStore creates a new empty mock store.
func NewStore() *Store {
	return &Store{
		identities: make(map[string]*database.Identity),
	}
}

// Close implements database.Store.
func (m *Store) Close() error { return nil }

func (m *Store) nextIdentifier() int64 {
	m.nextID++
	return m.nextID
}

// AddIdentity registers a new identity.
func (m *Store) AddIdentity(ctx context.Context, name string, embedding []float64) (*database.Identity, error) {
	if m.AddIdentityError != nil {
		return nil, m.AddIdentityError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := facematch.NormalizeIdentityName(name)
	if _, ok := m.identities[key]; ok {
		return nil, database.ErrDuplicateIdentity
	}

	identity := &database.Identity{
		ID:         m.nextIdentifier(),
		Name:       name,
		Embeddings: [][]float64{embedding},
	}
	m.identities[key] = identity
	return identity, nil
}

// AddEmbedding appends an embedding to an existing identity.
func (m *Store) AddEmbedding(ctx context.Context, name string, embedding []float64) error {
	if m.AddEmbeddingError != nil {
		return m.AddEmbeddingError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	identity, ok := m.identities[facematch.NormalizeIdentityName(name)]
	if !ok {
		return database.ErrIdentityNotFound
	}
	identity.Embeddings = append(identity.Embeddings, embedding)
	return nil
}

// GetIdentity retrieves an identity by name.
func (m *Store) GetIdentity(ctx context.Context, name string) (*database.Identity, error) {
	if m.GetIdentityError != nil {
		return nil, m.GetIdentityError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	identity, ok := m.identities[facematch.NormalizeIdentityName(name)]
	if !ok {
		return nil, database.ErrIdentityNotFound
	}
	copied := *identity
	return &copied, nil
}

// ListIdentities returns all identities ordered by name.
func (m *Store) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	identities := make([]database.Identity, 0, len(m.identities))
	for _, identity := range m.identities {
		identities = append(identities, *identity)
	}
	sort.Slice(identities, func(i, j int) bool {
		return identities[i].Name < identities[j].Name
	})
	return identities, nil
}

// RemoveIdentity deletes an identity.
func (m *Store) RemoveIdentity(ctx context.Context, name string) error {
	if m.RemoveError != nil {
		return m.RemoveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := facematch.NormalizeIdentityName(name)
	if _, ok := m.identities[key]; !ok {
		return database.ErrIdentityNotFound
	}
	delete(m.identities, key)
	return nil
}

// CountIdentities returns the number of identities.
func (m *Store) CountIdentities(ctx context.Context) (int, error) {
	if m.ListError != nil {
		return 0, m.ListError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.identities), nil
}

// OpenSession creates a new open session.
func (m *Store) OpenSession(ctx context.Context, name, date, inTime string) (*database.Session, error) {
	if m.OpenSessionError != nil {
		return nil, m.OpenSessionError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	session := &database.Session{
		ID:     m.nextIdentifier(),
		Name:   name,
		Date:   date,
		InTime: inTime,
	}
	m.sessions = append(m.sessions, session)
	copied := *session
	return &copied, nil
}

// CloseSession sets the OUT time on a session.
func (m *Store) CloseSession(ctx context.Context, id int64, outTime string) error {
	if m.CloseSessionError != nil {
		return m.CloseSessionError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, session := range m.sessions {
		if session.ID == id {
			session.OutTime = outTime
			return nil
		}
	}
	return database.ErrSessionNotFound
}

// FindOpenSession returns the open session for (name, date), or nil.
func (m *Store) FindOpenSession(ctx context.Context, name, date string) (*database.Session, error) {
	if m.FindOpenError != nil {
		return nil, m.FindOpenError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, session := range m.sessions {
		if session.Name == name && session.Date == date && session.Open() {
			copied := *session
			return &copied, nil
		}
	}
	return nil, nil
}

// FindOpenSessionBefore returns the newest open session dated before date, or nil.
func (m *Store) FindOpenSessionBefore(ctx context.Context, name, date string) (*database.Session, error) {
	if m.FindOpenError != nil {
		return nil, m.FindOpenError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var newest *database.Session
	for _, session := range m.sessions {
		if session.Name != name || !session.Open() || session.Date >= date {
			continue
		}
		if newest == nil || session.Date > newest.Date ||
			(session.Date == newest.Date && session.InTime > newest.InTime) {
			newest = session
		}
	}
	if newest == nil {
		return nil, nil
	}
	copied := *newest
	return &copied, nil
}

// ListSessions returns all sessions ordered by (date ASC, in_time ASC).
func (m *Store) ListSessions(ctx context.Context) ([]database.Session, error) {
	if m.ListSessionsError != nil {
		return nil, m.ListSessionsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]database.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, *session)
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].Date != sessions[j].Date {
			return sessions[i].Date < sessions[j].Date
		}
		if sessions[i].InTime != sessions[j].InTime {
			return sessions[i].InTime < sessions[j].InTime
		}
		return sessions[i].ID < sessions[j].ID
	})
	return sessions, nil
}

// Sessions returns a snapshot of all stored sessions for assertions.
func (m *Store) Sessions() []database.Session {
	sessions, _ := m.ListSessions(context.Background())
	return sessions
}
