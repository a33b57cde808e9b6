package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/facematch"
)

// AddIdentity registers a new identity with its first reference embedding.
func (s *Store) AddIdentity(ctx context.Context, name string, embedding []float64) (*database.Identity, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO identities (name, normalized_name) VALUES (?, ?)
	`, name, facematch.NormalizeIdentityName(name))
	if isUniqueViolation(err) {
		return nil, database.ErrDuplicateIdentity
	}
	if err != nil {
		return nil, fmt.Errorf("insert identity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("identity id: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO identity_embeddings (identity_id, position, encoding) VALUES (?, 0, ?)
	`, id, database.EncodeEmbedding(embedding))
	if err != nil {
		return nil, fmt.Errorf("insert embedding: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit identity: %w", err)
	}

	return &database.Identity{ID: id, Name: name, Embeddings: [][]float64{embedding}}, nil
}

// AddEmbedding appends another reference embedding to an existing identity.
func (s *Store) AddEmbedding(ctx context.Context, name string, embedding []float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	var position int
	err = tx.QueryRowContext(ctx, `
		SELECT i.id, COALESCE(MAX(e.position) + 1, 0)
		FROM identities i
		LEFT JOIN identity_embeddings e ON e.identity_id = i.id
		WHERE i.normalized_name = ?
		GROUP BY i.id
	`, facematch.NormalizeIdentityName(name)).Scan(&id, &position)
	if errors.Is(err, sql.ErrNoRows) {
		return database.ErrIdentityNotFound
	}
	if err != nil {
		return fmt.Errorf("find identity: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO identity_embeddings (identity_id, position, encoding) VALUES (?, ?, ?)
	`, id, position, database.EncodeEmbedding(embedding))
	if err != nil {
		return fmt.Errorf("insert embedding: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit embedding: %w", err)
	}
	return nil
}

// GetIdentity retrieves an identity with all its embeddings by name.
func (s *Store) GetIdentity(ctx context.Context, name string) (*database.Identity, error) {
	identity := &database.Identity{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at FROM identities WHERE normalized_name = ?
	`, facematch.NormalizeIdentityName(name)).Scan(&identity.ID, &identity.Name, &identity.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT encoding FROM identity_embeddings WHERE identity_id = ? ORDER BY position
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
	rows, err := s.db.QueryContext(ctx, `
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
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM identities WHERE normalized_name = ?
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
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}
