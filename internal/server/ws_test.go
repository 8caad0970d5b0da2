package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ayusman/bodystats/internal/body"
	"github.com/ayusman/bodystats/internal/tracking"
)

func TestReportHub_BroadcastQueuesBatches(t *testing.T) {
	h := NewReportHub()
	c := &hubClient{send: make(chan []byte, sendBuffer)}
	h.clients[c] = true

	h.Broadcast([]tracking.LimbReport{{BodyID: "b1", Limb: body.LeftHand, HistoryLen: 3}})

	select {
	case msg := <-c.send:
		var batch struct {
			Reports []tracking.LimbReport `json:"reports"`
		}
		if err := json.Unmarshal(msg, &batch); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if len(batch.Reports) != 1 || batch.Reports[0].HistoryLen != 3 {
			t.Errorf("unexpected batch %+v", batch)
		}
	default:
		t.Fatal("expected a queued batch")
	}
}

func TestReportHub_SlowClientDoesNotBlock(t *testing.T) {
	h := NewReportHub()

	// A client nobody reads from.
	stalled := &hubClient{send: make(chan []byte)}
	h.clients[stalled] = true

	done := make(chan struct{})
	go func() {
		h.Broadcast([]tracking.LimbReport{{BodyID: "b1", Limb: body.LeftHand}})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a stalled client")
	}

	if h.Clients() != 0 {
		t.Errorf("Clients() = %d, want 0", h.Clients())
	}
	if _, ok := <-stalled.send; ok {
		t.Error("stalled client's send channel should be closed")
	}
}
