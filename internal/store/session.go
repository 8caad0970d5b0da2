package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session represents one tracked body from the moment it was added until tracking ended.
type Session struct {
	ID          string
	BodyID      string
	StartedAt   time.Time
	EndedAt     *time.Time
	HeightScale float64
}

// Active reports whether the session has not ended.
func (s *Session) Active() bool {
	return s.EndedAt == nil
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, body_id, started_at, ended_at, height_scale`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	s := &Session{}
	var endedAt sql.NullTime

	if err := row.Scan(&s.ID, &s.BodyID, &s.StartedAt, &endedAt, &s.HeightScale); err != nil {
		return nil, err
	}

	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}
	return s, nil
}

// Create inserts a new session into the database.
// A zero StartedAt is set to the current time.
func (r *SessionRepository) Create(s *Session) error {
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, body_id, started_at, ended_at, height_scale)
		 VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.BodyID, s.StartedAt, s.EndedAt, s.HeightScale,
	)
	return err
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	s, err := scanSession(r.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// List retrieves all sessions, most recently started first.
func (r *SessionRepository) List() ([]*Session, error) {
	return r.query(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_at DESC`)
}

// ListActive retrieves the sessions that have not ended.
func (r *SessionRepository) ListActive() ([]*Session, error) {
	return r.query(`SELECT ` + sessionColumns + ` FROM sessions WHERE ended_at IS NULL ORDER BY started_at DESC`)
}

func (r *SessionRepository) query(q string, args ...any) ([]*Session, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// End marks a session as ended at the given time.
func (r *SessionRepository) End(id string, at time.Time) error {
	return r.exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, at, id)
}

// UpdateHeightScale stores the latest estimated height scale of a session.
func (r *SessionRepository) UpdateHeightScale(id string, scale float64) error {
	return r.exec(`UPDATE sessions SET height_scale = ? WHERE id = ?`, scale, id)
}

// Delete removes a session and, through the cascade, its samples and summaries.
func (r *SessionRepository) Delete(id string) error {
	return r.exec(`DELETE FROM sessions WHERE id = ?`, id)
}

// exec runs a statement that must affect exactly one session row.
func (r *SessionRepository) exec(q string, args ...any) error {
	result, err := r.db.Exec(q, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
