package tracking

import (
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/ayusman/bodystats/internal/body"
)

// DefaultMaxMinima is the number of most recent minima used for statistics.
const DefaultMaxMinima = 8

// Options configures a Registry.
type Options struct {
	// MaxMinima caps the number of minima per statistics query (default: 8).
	MaxMinima int

	// HistoryLimit bounds each limb history; 0 keeps every sample.
	HistoryLimit int

	// Limbs lists the tracked limbs (default: both hands).
	Limbs []body.Limb
}

// Result describes what one change set did to the registry.
type Result struct {
	Started []TrackerInfo
	Reports []LimbReport
	Ended   []TrackerInfo
	Errors  []error
}

// Registry maps host trackable IDs to their trackers. It serialises every
// access, so each limb's append and minima scan never interleave.
type Registry struct {
	opts     Options
	trackers map[string]*Tracker
	mu       sync.Mutex
	now      func() time.Time
	newID    func() string
}

// NewRegistry creates a Registry with the given options.
func NewRegistry(opts Options) *Registry {
	if opts.MaxMinima <= 0 {
		opts.MaxMinima = DefaultMaxMinima
	}
	if opts.HistoryLimit < 0 {
		opts.HistoryLimit = 0
	}
	if len(opts.Limbs) == 0 {
		opts.Limbs = body.Limbs
	}

	limbs := make([]body.Limb, 0, len(opts.Limbs))
	for _, l := range opts.Limbs {
		if _, ok := l.Joint(); !ok {
			log.Printf("tracking: ignoring limb %q with no joint mapping", l)
			continue
		}
		limbs = append(limbs, l)
	}
	opts.Limbs = limbs

	return &Registry{
		opts:     opts,
		trackers: make(map[string]*Tracker),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Options returns the effective options of the registry.
func (r *Registry) Options() Options {
	return r.opts
}

// Apply processes one host change set.
//
// Added bodies get a tracker (existing trackers keep their histories).
// Updated bodies append every tracked limb's position and report the new
// statistics; updates for bodies that were never added are ignored.
// Removed bodies lose their tracker and histories.
func (r *Registry) Apply(cs body.ChangeSet) (Result, error) {
	if err := cs.Validate(); err != nil {
		return Result{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	ts := cs.Timestamp
	if ts == 0 {
		ts = now.UnixMilli()
	}

	var res Result

	for _, b := range cs.Added {
		t, ok := r.trackers[b.ID]
		if !ok {
			log.Printf("tracking: adding a new skeleton [%s]", b.ID)
			t = newTracker(b.ID, r.newID(), r.opts.Limbs, r.opts.HistoryLimit, now)
			r.trackers[b.ID] = t
			res.Started = append(res.Started, t.info())
		}
		if b.EstimatedHeightScale != 0 {
			t.heightScale = b.EstimatedHeightScale
		}
	}

	for _, b := range cs.Updated {
		t, ok := r.trackers[b.ID]
		if !ok {
			continue
		}

		t.updates++
		if b.EstimatedHeightScale != 0 {
			t.heightScale = b.EstimatedHeightScale
		}

		for _, l := range r.opts.Limbs {
			p, ok := b.Joint(l)
			if !ok {
				continue
			}
			if err := t.record(l, p); err != nil {
				res.Errors = append(res.Errors, &LimbError{BodyID: b.ID, Limb: l, Err: err})
				continue
			}
			if rep, ok := t.report(l, r.opts.MaxMinima, ts); ok {
				res.Reports = append(res.Reports, rep)
			}
		}
	}

	for _, id := range cs.Removed {
		t, ok := r.trackers[id]
		if !ok {
			continue
		}
		log.Printf("tracking: removing a skeleton [%s]", id)
		res.Ended = append(res.Ended, t.info())
		delete(r.trackers, id)
	}

	return res, nil
}

// Get returns a snapshot of the tracker for the given body.
func (r *Registry) Get(id string) (TrackerInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trackers[id]
	if !ok {
		return TrackerInfo{}, fmt.Errorf("%w: %s", ErrUnknownBody, id)
	}
	return t.info(), nil
}

// List returns snapshots of every tracker, ordered by body ID.
func (r *Registry) List() []TrackerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := lo.Keys(r.trackers)
	slices.Sort(ids)

	infos := make([]TrackerInfo, 0, len(ids))
	for _, id := range ids {
		infos = append(infos, r.trackers[id].info())
	}
	return infos
}

// Stats recomputes the report of every tracked limb of a body.
// Limbs with no samples yet are omitted.
func (r *Registry) Stats(id string) ([]LimbReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trackers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBody, id)
	}

	ts := r.now().UnixMilli()
	reports := make([]LimbReport, 0, len(r.opts.Limbs))
	for _, l := range r.opts.Limbs {
		if rep, ok := t.report(l, r.opts.MaxMinima, ts); ok {
			reports = append(reports, rep)
		}
	}
	return reports, nil
}

// Samples returns a copy of one limb's history, oldest first.
func (r *Registry) Samples(id string, l body.Limb) ([]body.Point3D, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trackers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBody, id)
	}

	h, ok := t.histories[l]
	if !ok {
		return nil, fmt.Errorf("limb %s is not tracked", l)
	}
	return h.Samples(), nil
}

// Remove stops tracking a body and discards its histories.
func (r *Registry) Remove(id string) (TrackerInfo, error) {
	res, err := r.Apply(body.ChangeSet{Removed: []string{id}})
	if err != nil {
		return TrackerInfo{}, err
	}
	if len(res.Ended) == 0 {
		return TrackerInfo{}, fmt.Errorf("%w: %s", ErrUnknownBody, id)
	}
	return res.Ended[0], nil
}
