// Package app provides the main application logic for the bodystats hand-height service.
package app

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ayusman/bodystats/internal/body"
	"github.com/ayusman/bodystats/internal/store"
	"github.com/ayusman/bodystats/internal/tracking"
)

// Config holds configuration options for the application.
type Config struct {
	// Store persists sessions, samples and summaries; nil keeps everything in memory.
	Store        *store.Store
	MaxMinima    int
	HistoryLimit int
}

// ReportFunc receives every batch of limb reports produced by one change set.
type ReportFunc func([]tracking.LimbReport)

// App applies host tracking updates to the registry, records them and fans
// the resulting reports out to subscribers.
type App struct {
	config    Config
	registry  *tracking.Registry
	startedAt time.Time

	// applyMu keeps registry changes, their store writes and the
	// notifications in the same order.
	applyMu sync.Mutex
	scales  map[string]float64

	subMu       sync.RWMutex
	subscribers []ReportFunc

	mu      sync.RWMutex
	queue   chan body.ChangeSet
	stopCh  chan struct{}
	done    chan struct{}
	dropped atomic.Uint64
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	return &App{
		config: config,
		registry: tracking.NewRegistry(tracking.Options{
			MaxMinima:    config.MaxMinima,
			HistoryLimit: config.HistoryLimit,
		}),
		startedAt: time.Now(),
		scales:    make(map[string]float64),
	}
}

// Registry returns the tracking registry.
func (a *App) Registry() *tracking.Registry {
	return a.registry
}

// Store returns the configured store, or nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// StartedAt returns when the application was created.
func (a *App) StartedAt() time.Time {
	return a.startedAt
}

// Subscribe registers fn to receive every non-empty batch of reports.
// Batches arrive in the order the change sets were applied. fn runs before
// the next change set is applied, so it must not block or call Apply.
func (a *App) Subscribe(fn ReportFunc) {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	a.subscribers = append(a.subscribers, fn)
}

// Apply processes one host change set: the registry is updated, the outcome
// is recorded in the store and the reports are sent to subscribers.
// Store failures are logged and do not fail the update.
func (a *App) Apply(cs body.ChangeSet) (tracking.Result, error) {
	a.applyMu.Lock()
	defer a.applyMu.Unlock()

	res, err := a.registry.Apply(cs)
	if err != nil {
		return res, err
	}

	for _, e := range res.Errors {
		log.Printf("app: skipped sample: %v", e)
	}

	if len(res.Started) > 0 {
		if scale, ok := cs.HeightScale(); ok {
			log.Printf("app: estimated height scale factor %.3f", scale)
		}
	}

	if a.config.Store != nil {
		a.record(cs, res)
	}

	for _, rep := range res.Reports {
		if rep.Summary != nil {
			log.Printf("app: [%s] %s", rep.BodyID, FormatReport(rep))
		}
	}

	for _, info := range res.Ended {
		total := 0
		for _, n := range info.HistoryLens {
			total += n
		}
		log.Printf("app: session %s for body %s ended with %s samples",
			info.SessionID, info.BodyID, humanize.Comma(int64(total)))
	}

	if len(res.Reports) > 0 {
		a.notify(res.Reports)
	}

	return res, nil
}

// Remove stops tracking a body and ends its session.
func (a *App) Remove(id string) (tracking.TrackerInfo, error) {
	res, err := a.Apply(body.ChangeSet{Removed: []string{id}})
	if err != nil {
		return tracking.TrackerInfo{}, err
	}
	if len(res.Ended) == 0 {
		return tracking.TrackerInfo{}, fmt.Errorf("%w: %s", tracking.ErrUnknownBody, id)
	}
	return res.Ended[0], nil
}

func (a *App) notify(reports []tracking.LimbReport) {
	a.subMu.RLock()
	subs := make([]ReportFunc, len(a.subscribers))
	copy(subs, a.subscribers)
	a.subMu.RUnlock()

	for _, fn := range subs {
		fn(reports)
	}
}

// record writes the sessions, samples and summaries of one applied change set.
func (a *App) record(cs body.ChangeSet, res tracking.Result) {
	sessions := a.config.Store.Sessions()

	for _, info := range res.Started {
		err := sessions.Create(&store.Session{
			ID:          info.SessionID,
			BodyID:      info.BodyID,
			StartedAt:   info.StartedAt,
			HeightScale: info.HeightScale,
		})
		if err != nil {
			log.Printf("app: failed to record session %s: %v", info.SessionID, err)
			continue
		}
		a.scales[info.SessionID] = info.HeightScale
	}

	// Later height scale estimates replace the one the session started with.
	for _, b := range cs.Updated {
		if b.EstimatedHeightScale == 0 {
			continue
		}
		info, err := a.registry.Get(b.ID)
		if err != nil {
			continue
		}
		if prev, ok := a.scales[info.SessionID]; ok && prev == b.EstimatedHeightScale {
			continue
		}
		if err := sessions.UpdateHeightScale(info.SessionID, b.EstimatedHeightScale); err != nil {
			log.Printf("app: failed to update height scale of session %s: %v", info.SessionID, err)
			continue
		}
		a.scales[info.SessionID] = b.EstimatedHeightScale
	}

	if len(res.Reports) > 0 {
		samples := make([]store.HandSample, 0, len(res.Reports))
		for _, rep := range res.Reports {
			samples = append(samples, store.HandSample{
				SessionID:  rep.SessionID,
				Limb:       string(rep.Limb),
				X:          rep.Sample.X,
				Y:          rep.Sample.Y,
				Z:          rep.Sample.Z,
				RecordedMs: rep.Timestamp,
			})
		}
		if err := a.config.Store.Samples().Append(samples); err != nil {
			log.Printf("app: failed to record %d samples: %v", len(samples), err)
		}
	}

	for _, rep := range res.Reports {
		if rep.Summary == nil {
			continue
		}
		if err := a.config.Store.Summaries().Create(summaryRecord(rep)); err != nil {
			log.Printf("app: failed to record summary for %s %s: %v", rep.SessionID, rep.Limb, err)
		}
	}

	now := time.Now()
	for _, info := range res.Ended {
		if err := sessions.End(info.SessionID, now); err != nil {
			log.Printf("app: failed to end session %s: %v", info.SessionID, err)
		}
		delete(a.scales, info.SessionID)
	}
}

func summaryRecord(rep tracking.LimbReport) *store.Summary {
	s := rep.Summary
	return &store.Summary{
		SessionID:   rep.SessionID,
		Limb:        string(rep.Limb),
		MinimaCount: s.Count,
		MeanX:       s.Mean.X,
		MeanY:       s.Mean.Y,
		MeanZ:       s.Mean.Z,
		SDX:         s.StdDev.X,
		SDY:         s.StdDev.Y,
		SDZ:         s.StdDev.Z,
		HistoryLen:  rep.HistoryLen,
		ComputedMs:  rep.Timestamp,
	}
}

// FormatReport renders the statistics of a report with three decimals,
// e.g. "left_hand Mean: (-0.250, 2.000, -1.500) SD: (0.000, 1.000, 0.000)".
func FormatReport(rep tracking.LimbReport) string {
	if rep.Summary == nil {
		return fmt.Sprintf("%s no minima yet", rep.Limb)
	}
	return fmt.Sprintf("%s Mean: %s SD: %s", rep.Limb, rep.Summary.Mean, rep.Summary.StdDev)
}
