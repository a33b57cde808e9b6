package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attend/internal/database"
)

// OpenSession creates a new open session and returns it.
func (s *Store) OpenSession(ctx context.Context, name, date, inTime string) (*database.Session, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (name, date, in_time) VALUES (?, ?, ?)
	`, name, date, inTime)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	return &database.Session{ID: id, Name: name, Date: date, InTime: inTime}, nil
}

// CloseSession sets the OUT time on an existing session.
func (s *Store) CloseSession(ctx context.Context, id int64, outTime string) error {
	result, err := s.db.ExecContext(ctx, "UPDATE sessions SET out_time = ? WHERE id = ?", outTime, id)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("close session result: %w", err)
	}
	if affected == 0 {
		return database.ErrSessionNotFound
	}
	return nil
}

// FindOpenSession returns the open session for (name, date), or nil.
func (s *Store) FindOpenSession(ctx context.Context, name, date string) (*database.Session, error) {
	return scanOpenSession(s.db.QueryRowContext(ctx, `
		SELECT id, name, date, in_time
		FROM sessions
		WHERE name = ? AND date = ? AND out_time IS NULL
	`, name, date))
}

// FindOpenSessionBefore returns the newest open session for the name dated
// strictly before the given date, or nil.
func (s *Store) FindOpenSessionBefore(ctx context.Context, name, date string) (*database.Session, error) {
	return scanOpenSession(s.db.QueryRowContext(ctx, `
		SELECT id, name, date, in_time
		FROM sessions
		WHERE name = ? AND date < ? AND out_time IS NULL
		ORDER BY date DESC, in_time DESC
		LIMIT 1
	`, name, date))
}

func scanOpenSession(row *sql.Row) (*database.Session, error) {
	var session database.Session
	err := row.Scan(&session.ID, &session.Name, &session.Date, &session.InTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan open session: %w", err)
	}
	return &session, nil
}

// ListSessions returns all sessions ordered by (date ASC, in_time ASC).
func (s *Store) ListSessions(ctx context.Context) ([]database.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, date, in_time, COALESCE(out_time, '')
		FROM sessions
		ORDER BY date ASC, in_time ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []database.Session
	for rows.Next() {
		var session database.Session
		if err := rows.Scan(&session.ID, &session.Name, &session.Date, &session.InTime, &session.OutTime); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}
