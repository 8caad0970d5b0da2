// Package ingest connects the service to an MQTT broker: host change sets
// arrive on one topic and limb reports are published per body and limb.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ayusman/bodystats/internal/body"
	"github.com/ayusman/bodystats/internal/tracking"
)

// ErrEmptyChangeSet is returned for payloads that carry no bodies.
var ErrEmptyChangeSet = errors.New("empty change set")

// SubmitTimeout bounds how long one incoming message waits for room in the
// application queue before it is dropped.
const SubmitTimeout = 2 * time.Second

// Submitter accepts decoded change sets, waiting for room until ctx is done.
type Submitter interface {
	Submit(ctx context.Context, cs body.ChangeSet) error
}

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Subscriber delivers the payloads of a topic to a handler.
type Subscriber interface {
	Subscribe(topic string, handler func(payload []byte)) error
}

// Topics names the MQTT topics used by the bridge.
type Topics struct {
	// Updates carries JSON change sets from the host.
	Updates string
	// Stats is the prefix of the per-limb report topics.
	Stats string
}

// StatsTopic returns the topic a limb report is published on.
func (t Topics) StatsTopic(bodyID string, l body.Limb) string {
	return fmt.Sprintf("%s/%s/%s", t.Stats, bodyID, l)
}

// Bridge moves change sets from the broker into the application and
// reports back out to the broker.
type Bridge struct {
	sink   Submitter
	pub    Publisher
	topics Topics
}

// NewBridge creates a bridge. A nil publisher disables report publishing.
func NewBridge(sink Submitter, pub Publisher, topics Topics) *Bridge {
	return &Bridge{sink: sink, pub: pub, topics: topics}
}

// Start subscribes the bridge to the updates topic.
func (b *Bridge) Start(sub Subscriber) error {
	if err := sub.Subscribe(b.topics.Updates, func(payload []byte) {
		if err := b.HandleMessage(payload); err != nil {
			log.Printf("ingest: dropped message: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.topics.Updates, err)
	}
	log.Printf("ingest: subscribed to %s", b.topics.Updates)
	return nil
}

// HandleMessage decodes one JSON change set and submits it. A full
// application queue holds the message for up to SubmitTimeout.
func (b *Bridge) HandleMessage(payload []byte) error {
	var cs body.ChangeSet
	if err := json.Unmarshal(payload, &cs); err != nil {
		return fmt.Errorf("failed to decode change set: %w", err)
	}
	if cs.IsEmpty() {
		return ErrEmptyChangeSet
	}

	ctx, cancel := context.WithTimeout(context.Background(), SubmitTimeout)
	defer cancel()
	return b.sink.Submit(ctx, cs)
}

// PublishReports publishes every report to its limb topic. It is meant to be
// registered as an application report subscriber.
func (b *Bridge) PublishReports(reports []tracking.LimbReport) {
	if b.pub == nil {
		return
	}

	for _, rep := range reports {
		payload, err := json.Marshal(rep)
		if err != nil {
			log.Printf("ingest: report marshal error: %v", err)
			continue
		}
		topic := b.topics.StatsTopic(rep.BodyID, rep.Limb)
		if err := b.pub.Publish(topic, payload); err != nil {
			log.Printf("ingest: publish error (%s): %v", topic, err)
		}
	}
}
