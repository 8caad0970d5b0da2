// Package tracking keeps per-body hand histories and turns host tracking
// updates into windowed hand-height statistics.
package tracking

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/bodystats/internal/body"
	"github.com/ayusman/bodystats/internal/extrema"
)

// ErrUnknownBody is returned when a body ID is not being tracked.
var ErrUnknownBody = errors.New("unknown body")

// LimbReport is the outcome of one limb update: the latest sample and, once the
// history holds at least one local minimum, the windowed statistics.
type LimbReport struct {
	BodyID     string           `json:"body_id"`
	SessionID  string           `json:"session_id"`
	Limb       body.Limb        `json:"limb"`
	Sample     body.Point3D     `json:"sample"`
	HistoryLen int              `json:"history_len"`
	PathLength float64          `json:"path_length"`
	Summary    *extrema.Summary `json:"summary,omitempty"`
	Timestamp  int64            `json:"timestamp"`
}

// LimbError reports a limb sample that could not be recorded.
type LimbError struct {
	BodyID string
	Limb   body.Limb
	Err    error
}

func (e *LimbError) Error() string {
	return fmt.Sprintf("body %s %s: %v", e.BodyID, e.Limb, e.Err)
}

func (e *LimbError) Unwrap() error {
	return e.Err
}

// TrackerInfo is a read-only snapshot of a Tracker.
type TrackerInfo struct {
	BodyID      string                `json:"body_id"`
	SessionID   string                `json:"session_id"`
	StartedAt   time.Time             `json:"started_at"`
	HeightScale float64               `json:"height_scale"`
	Updates     int                   `json:"updates"`
	HistoryLens map[body.Limb]int     `json:"history_lens"`
	PathLengths map[body.Limb]float64 `json:"path_lengths"`
}

// Tracker owns the histories of one tracked body, one per limb.
type Tracker struct {
	bodyID      string
	sessionID   string
	startedAt   time.Time
	heightScale float64
	updates     int
	histories   map[body.Limb]*extrema.History

	// paths holds the distance each limb travelled since the session started.
	paths map[body.Limb]float64
}

func newTracker(bodyID, sessionID string, limbs []body.Limb, historyLimit int, startedAt time.Time) *Tracker {
	t := &Tracker{
		bodyID:    bodyID,
		sessionID: sessionID,
		startedAt: startedAt,
		histories: make(map[body.Limb]*extrema.History, len(limbs)),
		paths:     make(map[body.Limb]float64, len(limbs)),
	}
	for _, l := range limbs {
		t.histories[l] = extrema.NewHistory(historyLimit)
	}
	return t
}

func (t *Tracker) info() TrackerInfo {
	lens := make(map[body.Limb]int, len(t.histories))
	paths := make(map[body.Limb]float64, len(t.histories))
	for l, h := range t.histories {
		lens[l] = h.Len()
		paths[l] = t.paths[l]
	}
	return TrackerInfo{
		BodyID:      t.bodyID,
		SessionID:   t.sessionID,
		StartedAt:   t.startedAt,
		HeightScale: t.heightScale,
		Updates:     t.updates,
		HistoryLens: lens,
		PathLengths: paths,
	}
}

// record appends a limb sample and adds the distance from the previous one
// to the limb's path length. Rejected samples leave both unchanged.
func (t *Tracker) record(l body.Limb, p body.Point3D) error {
	h := t.histories[l]
	prev, hasPrev := h.Last()
	if err := h.Append(p); err != nil {
		return err
	}
	if hasPrev {
		t.paths[l] += body.Distance(prev, p)
	}
	return nil
}

// report builds the limb report from the current state of the limb's history.
func (t *Tracker) report(l body.Limb, maxMinima int, ts int64) (LimbReport, bool) {
	h, ok := t.histories[l]
	if !ok {
		return LimbReport{}, false
	}

	last, ok := h.Last()
	if !ok {
		return LimbReport{}, false
	}

	r := LimbReport{
		BodyID:     t.bodyID,
		SessionID:  t.sessionID,
		Limb:       l,
		Sample:     last,
		HistoryLen: h.Len(),
		PathLength: t.paths[l],
		Timestamp:  ts,
	}

	// No minima yet is a normal state early in a session, not a failure.
	if s, err := h.Stats(maxMinima); err == nil {
		r.Summary = &s
	}

	return r, true
}
