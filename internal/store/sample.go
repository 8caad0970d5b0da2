package store

import (
	"database/sql"
)

// HandSample represents one recorded limb position stored in the database.
type HandSample struct {
	ID         int64   `json:"id"`
	SessionID  string  `json:"session_id"`
	Limb       string  `json:"limb"`
	Sequence   int     `json:"sequence"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	RecordedMs int64   `json:"recorded_ms"`
}

// SampleRepository provides operations for recorded hand samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Append inserts samples in a single transaction. Each sample gets the next
// sequence number of its session and limb, and its Sequence field is set.
func (r *SampleRepository) Append(samples []HandSample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO hand_samples (session_id, limb, sequence, x, y, z, recorded_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	type key struct{ session, limb string }
	next := make(map[key]int)

	for i := range samples {
		s := &samples[i]
		k := key{s.SessionID, s.Limb}

		seq, ok := next[k]
		if !ok {
			if err := tx.QueryRow(
				`SELECT COALESCE(MAX(sequence), 0) FROM hand_samples WHERE session_id = ? AND limb = ?`,
				s.SessionID, s.Limb,
			).Scan(&seq); err != nil {
				return err
			}
		}
		seq++
		next[k] = seq

		if _, err := stmt.Exec(s.SessionID, s.Limb, seq, s.X, s.Y, s.Z, s.RecordedMs); err != nil {
			return err
		}
		s.Sequence = seq
	}

	return tx.Commit()
}

// ListBySession retrieves the samples of one session limb in sequence order.
func (r *SampleRepository) ListBySession(sessionID, limb string) ([]HandSample, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, limb, sequence, x, y, z, recorded_ms
		 FROM hand_samples
		 WHERE session_id = ? AND limb = ?
		 ORDER BY sequence`,
		sessionID, limb,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []HandSample
	for rows.Next() {
		var s HandSample
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Limb, &s.Sequence, &s.X, &s.Y, &s.Z, &s.RecordedMs); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// Count returns the number of samples recorded for a session.
func (r *SampleRepository) Count(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM hand_samples WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
