package store

import (
	"database/sql"
	"errors"
)

// Summary represents the windowed minima statistics of a limb at one point in time.
type Summary struct {
	ID          int64   `json:"id"`
	SessionID   string  `json:"session_id"`
	Limb        string  `json:"limb"`
	MinimaCount int     `json:"minima_count"`
	MeanX       float64 `json:"mean_x"`
	MeanY       float64 `json:"mean_y"`
	MeanZ       float64 `json:"mean_z"`
	SDX         float64 `json:"sd_x"`
	SDY         float64 `json:"sd_y"`
	SDZ         float64 `json:"sd_z"`
	HistoryLen  int     `json:"history_len"`
	ComputedMs  int64   `json:"computed_ms"`
}

// SummaryRepository provides operations for limb summaries.
type SummaryRepository struct {
	db *sql.DB
}

// Summaries returns the summary repository for this store.
func (s *Store) Summaries() *SummaryRepository {
	return &SummaryRepository{db: s.db}
}

const summaryColumns = `id, session_id, limb, minima_count, mean_x, mean_y, mean_z,
	sd_x, sd_y, sd_z, history_len, computed_ms`

func scanSummary(row rowScanner) (*Summary, error) {
	s := &Summary{}
	err := row.Scan(
		&s.ID, &s.SessionID, &s.Limb, &s.MinimaCount,
		&s.MeanX, &s.MeanY, &s.MeanZ,
		&s.SDX, &s.SDY, &s.SDZ,
		&s.HistoryLen, &s.ComputedMs,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new summary and sets its ID.
func (r *SummaryRepository) Create(s *Summary) error {
	result, err := r.db.Exec(
		`INSERT INTO limb_summaries (session_id, limb, minima_count, mean_x, mean_y, mean_z,
		 sd_x, sd_y, sd_z, history_len, computed_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.SessionID, s.Limb, s.MinimaCount, s.MeanX, s.MeanY, s.MeanZ,
		s.SDX, s.SDY, s.SDZ, s.HistoryLen, s.ComputedMs,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

// Latest retrieves the most recent summary of a session limb.
func (r *SummaryRepository) Latest(sessionID, limb string) (*Summary, error) {
	s, err := scanSummary(r.db.QueryRow(
		`SELECT `+summaryColumns+` FROM limb_summaries
		 WHERE session_id = ? AND limb = ?
		 ORDER BY id DESC LIMIT 1`,
		sessionID, limb,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListBySession retrieves every summary of a session in insertion order.
func (r *SummaryRepository) ListBySession(sessionID string) ([]*Summary, error) {
	rows, err := r.db.Query(
		`SELECT `+summaryColumns+` FROM limb_summaries WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*Summary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}
