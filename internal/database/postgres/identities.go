package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/facematch"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// Store provides PostgreSQL-backed identity and session storage.
type Store struct {
	pool *Pool
}

// NewStore creates a store on top of an existing pool.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// AddIdentity registers a new identity with its first reference embedding.
func (s *Store) AddIdentity(ctx context.Context, name string, embedding []float64) (*database.Identity, error) {
	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	identity := &database.Identity{Name: name, Embeddings: [][]float64{embedding}}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO identities (name, normalized_name)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, name, facematch.NormalizeIdentityName(name)).Scan(&identity.ID, &identity.CreatedAt)
	if isUniqueViolation(err) {
		return nil, database.ErrDuplicateIdentity
	}
	if err != nil {
		return nil, fmt.Errorf("insert identity: %w", err)
	}

	if err := insertEmbedding(ctx, tx, identity.ID, 0, embedding); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit identity: %w", err)
	}
	return identity, nil
}

// AddEmbedding appends another reference embedding to an existing identity.
func (s *Store) AddEmbedding(ctx context.Context, name string, embedding []float64) error {
	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	var position int
	err = tx.QueryRowContext(ctx, `
		SELECT i.id, COALESCE(MAX(e.position) + 1, 0)
		FROM identities i
		LEFT JOIN identity_embeddings e ON e.identity_id = i.id
		WHERE i.normalized_name = $1
		GROUP BY i.id
	`, facematch.NormalizeIdentityName(name)).Scan(&id, &position)
	if errors.Is(err, sql.ErrNoRows) {
		return database.ErrIdentityNotFound
	}
	if err != nil {
		return fmt.Errorf("find identity: %w", err)
	}

	if err := insertEmbedding(ctx, tx, id, position, embedding); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit embedding: %w", err)
	}
	return nil
}

func insertEmbedding(ctx context.Context, tx *sql.Tx, identityID int64, position int, embedding []float64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO identity_embeddings (identity_id, position, encoding, embedding)
		VALUES ($1, $2, $3, $4)
	`, identityID, position, database.EncodeEmbedding(embedding), pgvector.NewVector(database.Float32s(embedding)))
	if err != nil {
		return fmt.Errorf("insert embedding: %w", err)
	}
	return nil
}

// GetIdentity retrieves an identity with all its embeddings by name.
func (s *Store) GetIdentity(ctx context.Context, name string) (*database.Identity, error) {
	identity := &database.Identity{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, created_at FROM identities WHERE normalized_name = $1
	`, facematch.NormalizeIdentityName(name)).Scan(&identity.ID, &identity.Name, &identity.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT encoding FROM identity_embeddings
		WHERE identity_id = $1
		ORDER BY position
	`, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		emb, err := database.DecodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("decode embedding for %q: %w", identity.Name, err)
		}
		identity.Embeddings = append(identity.Embeddings, emb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}

	return identity, nil
}

// ListIdentities returns all identities with their embeddings, ordered by name.
func (s *Store) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.id, i.name, i.created_at, e.encoding
		FROM identities i
		LEFT JOIN identity_embeddings e ON e.identity_id = i.id
		ORDER BY i.name, e.position
	`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var identities []database.Identity
	byID := make(map[int64]int)
	for rows.Next() {
		var (
			id        int64
			name      string
			createdAt sql.NullTime
			blob      []byte
		)
		if err := rows.Scan(&id, &name, &createdAt, &blob); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}

		idx, ok := byID[id]
		if !ok {
			identities = append(identities, database.Identity{ID: id, Name: name, CreatedAt: createdAt.Time})
			idx = len(identities) - 1
			byID[id] = idx
		}
		if len(blob) > 0 {
			emb, err := database.DecodeEmbedding(blob)
			if err != nil {
				return nil, fmt.Errorf("decode embedding for %q: %w", name, err)
			}
			identities[idx].Embeddings = append(identities[idx].Embeddings, emb)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

// RemoveIdentity deletes an identity; embeddings cascade, sessions are kept.
func (s *Store) RemoveIdentity(ctx context.Context, name string) error {
	result, err := s.pool.Exec(ctx, `
		DELETE FROM identities WHERE normalized_name = $1
	`, facematch.NormalizeIdentityName(name))
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete identity result: %w", err)
	}
	if affected == 0 {
		return database.ErrIdentityNotFound
	}
	return nil
}

// CountIdentities returns the number of enrolled identities.
func (s *Store) CountIdentities(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// NearestIdentity is one row of a vector search result.
type NearestIdentity struct {
	Name     string
	Distance float64
}

// FindNearestIdentities returns the identities whose reference embeddings
// are closest to the probe, using the pgvector L2 operator. Distances are
// computed on the float32 vector column, not the exact byte encoding.
func (s *Store) FindNearestIdentities(ctx context.Context, embedding []float64, limit int) ([]NearestIdentity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.name, e.embedding <-> $1 AS distance
		FROM identity_embeddings e
		JOIN identities i ON i.id = e.identity_id
		ORDER BY distance
		LIMIT $2
	`, pgvector.NewVector(database.Float32s(embedding)), limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []NearestIdentity
	for rows.Next() {
		var n NearestIdentity
		if err := rows.Scan(&n.Name, &n.Distance); err != nil {
			return nil, fmt.Errorf("scan vector result: %w", err)
		}
		results = append(results, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vector results: %w", err)
	}
	return results, nil
}

// isUniqueViolation reports whether the error is a PostgreSQL unique
// constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
