// Package matcher resolves live face embeddings to enrolled identities.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kozaktomas/face-attend/internal/database"
)

// ErrNoIdentities is returned when matching is attempted with an empty
// enrollment set so callers can short-circuit the recognition loop.
var ErrNoIdentities = errors.New("no identities enrolled")

// candidateK is how many ANN neighbors are fetched before exact re-ranking.
const candidateK = 8

// Matcher matches probe embeddings against a read-only snapshot of the
// enrolled identities. The snapshot is refreshed explicitly after
// enrollment or deletion; matching itself has no side effects.
type Matcher struct {
	store     database.IdentityStore
	tolerance float64

	mu         sync.RWMutex
	identities map[string]database.Identity // keyed by name
	index      *database.HNSWIndex
}

// New creates a matcher with an empty snapshot. Call Refresh before Match.
func New(store database.IdentityStore, tolerance float64) *Matcher {
	return &Matcher{
		store:      store,
		tolerance:  tolerance,
		identities: make(map[string]database.Identity),
		index:      database.NewHNSWIndex(),
	}
}

// Refresh reloads the snapshot and rebuilds the ANN index from the store.
func (m *Matcher) Refresh(ctx context.Context) error {
	identities, err := m.store.ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("loading identities: %w", err)
	}

	byName := make(map[string]database.Identity, len(identities))
	for _, identity := range identities {
		byName[identity.Name] = identity
	}

	index := database.NewHNSWIndex()
	if err := index.BuildFromIdentities(identities); err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	m.mu.Lock()
	m.identities = byName
	m.index = index
	m.mu.Unlock()
	return nil
}

// Empty reports whether the snapshot has no enrolled identities.
func (m *Matcher) Empty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities) == 0
}

// Count returns the number of identities in the snapshot.
func (m *Matcher) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities)
}

// Match returns the best-matching identity name for the probe embedding
// and whether the match passed the tolerance. When it did not, the face
// is unknown and name is empty. Returns ErrNoIdentities for an empty
// snapshot.
func (m *Matcher) Match(embedding []float64) (string, float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.identities) == 0 {
		return "", 0, false, ErrNoIdentities
	}

	candidates := m.candidateNames(embedding)

	bestName := ""
	bestDistance := 0.0
	first := true
	for _, name := range candidates {
		identity, ok := m.identities[name]
		if !ok {
			continue
		}
		for _, ref := range identity.Embeddings {
			d := database.EuclideanDistance(embedding, ref)
			if first || d < bestDistance {
				bestName = identity.Name
				bestDistance = d
				first = false
			}
		}
	}

	if first || bestDistance > m.tolerance {
		return "", bestDistance, false, nil
	}
	return bestName, bestDistance, true, nil
}

// candidateNames returns the identity names worth exact re-ranking:
// ANN neighbors when the index is usable, every identity otherwise.
func (m *Matcher) candidateNames(embedding []float64) []string {
	if names, err := m.index.Search(embedding, candidateK); err == nil && len(names) > 0 {
		seen := make(map[string]struct{}, len(names))
		unique := names[:0]
		for _, name := range names {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			unique = append(unique, name)
		}
		return unique
	}

	all := make([]string, 0, len(m.identities))
	for name := range m.identities {
		all = append(all, name)
	}
	return all
}
