package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ayusman/bodystats/internal/body"
)

// QueueSize is the number of change sets buffered ahead of the pipeline.
const QueueSize = 256

// ErrQueueFull is returned when a change set cannot be queued because the
// pipeline cannot keep up. Such change sets are counted by Dropped.
var ErrQueueFull = errors.New("update queue full")

// Start begins the update pipeline. Until it is started, Submit applies
// change sets synchronously.
func (a *App) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return
	}

	a.queue = make(chan body.ChangeSet, QueueSize)
	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.queue, a.stopCh, a.done)

	log.Println("Update pipeline started")
}

// Stop halts the pipeline after the queued change sets have been applied.
func (a *App) Stop() {
	a.mu.Lock()
	if a.stopCh == nil {
		a.mu.Unlock()
		return
	}
	close(a.stopCh)
	done := a.done
	a.stopCh = nil
	a.queue = nil
	a.done = nil
	a.mu.Unlock()

	<-done
	log.Println("Update pipeline stopped")
}

// Submit hands a change set to the pipeline, waiting for queue space until
// ctx is done. A change set it accepted is applied even if Stop is called
// right after. Invalid change sets are rejected immediately.
func (a *App) Submit(ctx context.Context, cs body.ChangeSet) error {
	if err := cs.Validate(); err != nil {
		return err
	}

	a.mu.RLock()
	if a.stopCh == nil {
		a.mu.RUnlock()
		_, err := a.Apply(cs)
		return err
	}
	// Holding the read lock keeps Stop from closing the pipeline under us.
	// The pipeline itself never takes a.mu, so it keeps draining the queue.
	defer a.mu.RUnlock()

	select {
	case a.queue <- cs:
		return nil
	case <-ctx.Done():
		a.dropped.Add(1)
		return fmt.Errorf("%w: %w", ErrQueueFull, ctx.Err())
	}
}

// Dropped returns how many change sets were refused because the queue was full.
func (a *App) Dropped() uint64 {
	return a.dropped.Load()
}

// runPipeline applies queued change sets in arrival order.
func (a *App) runPipeline(queue <-chan body.ChangeSet, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case cs := <-queue:
			a.applyQueued(cs)
		case <-stopCh:
			// Drain what was accepted before the stop
			for {
				select {
				case cs := <-queue:
					a.applyQueued(cs)
				default:
					return
				}
			}
		}
	}
}

func (a *App) applyQueued(cs body.ChangeSet) {
	if _, err := a.Apply(cs); err != nil {
		log.Printf("app: dropped change set: %v", err)
	}
}
