package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/bodystats/internal/app"
	"github.com/ayusman/bodystats/internal/body"
	"github.com/ayusman/bodystats/internal/tracking"
)

type fakeBroker struct {
	mu        sync.Mutex
	published map[string][]byte
	handlers  map[string]func([]byte)
	failOn    string
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		published: make(map[string][]byte),
		handlers:  make(map[string]func([]byte)),
	}
}

func (f *fakeBroker) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if topic == f.failOn {
		return errors.New("broker unavailable")
	}
	f.published[topic] = payload
	return nil
}

func (f *fakeBroker) Subscribe(topic string, handler func([]byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if topic == f.failOn {
		return errors.New("broker unavailable")
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeBroker) deliver(t *testing.T, topic string, v any) {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)

	f.mu.Lock()
	h := f.handlers[topic]
	f.mu.Unlock()
	require.NotNil(t, h, "no handler for %s", topic)
	h(payload)
}

var testTopics = Topics{Updates: "bodystats/updates", Stats: "bodystats/stats"}

func TestTopics_StatsTopic(t *testing.T) {
	assert.Equal(t, "bodystats/stats/b1/left_hand", testTopics.StatsTopic("b1", body.LeftHand))
}

func TestBridge_EndToEnd(t *testing.T) {
	a := app.New(app.Config{})
	broker := newFakeBroker()
	bridge := NewBridge(a, broker, testTopics)
	a.Subscribe(bridge.PublishReports)

	require.NoError(t, bridge.Start(broker))

	for _, cs := range body.HandPath("b1", []float64{5, 3, 4, 1, 6}, []float64{1, 2}) {
		broker.deliver(t, testTopics.Updates, cs)
	}

	broker.mu.Lock()
	defer broker.mu.Unlock()

	payload, ok := broker.published["bodystats/stats/b1/left_hand"]
	require.True(t, ok, "left hand report should be published")

	var rep tracking.LimbReport
	require.NoError(t, json.Unmarshal(payload, &rep))
	assert.Equal(t, 5, rep.HistoryLen)
	require.NotNil(t, rep.Summary)
	assert.InDelta(t, 2.0, rep.Summary.Mean.Y, 1e-9)
	assert.InDelta(t, 1.0, rep.Summary.StdDev.Y, 1e-9)

	payload, ok = broker.published["bodystats/stats/b1/right_hand"]
	require.True(t, ok, "right hand report should be published")
	var right tracking.LimbReport
	require.NoError(t, json.Unmarshal(payload, &right))
	assert.Equal(t, 2, right.HistoryLen)
	assert.Nil(t, right.Summary)
}

type recordingSink struct {
	sets      []body.ChangeSet
	deadlines []bool
	err       error
}

func (r *recordingSink) Submit(ctx context.Context, cs body.ChangeSet) error {
	_, ok := ctx.Deadline()
	r.deadlines = append(r.deadlines, ok)
	r.sets = append(r.sets, cs)
	return r.err
}

func TestBridge_HandleMessage(t *testing.T) {
	t.Run("decodes change sets", func(t *testing.T) {
		sink := &recordingSink{}
		bridge := NewBridge(sink, nil, testTopics)

		err := bridge.HandleMessage([]byte(`{"updated":[{"id":"b1","joints":{"27":{"x":0,"y":1.2,"z":-1}}}],"timestamp":99}`))
		require.NoError(t, err)
		require.Len(t, sink.sets, 1)

		assert.Equal(t, []bool{true}, sink.deadlines, "submission should be bounded by a timeout")

		cs := sink.sets[0]
		assert.Equal(t, int64(99), cs.Timestamp)
		p, ok := cs.Updated[0].Joint(body.LeftHand)
		require.True(t, ok)
		assert.Equal(t, 1.2, p.Y)
	})

	t.Run("malformed payload", func(t *testing.T) {
		sink := &recordingSink{}
		bridge := NewBridge(sink, nil, testTopics)

		assert.Error(t, bridge.HandleMessage([]byte(`{"updated":`)))
		assert.Empty(t, sink.sets)
	})

	t.Run("empty change set", func(t *testing.T) {
		sink := &recordingSink{}
		bridge := NewBridge(sink, nil, testTopics)

		assert.ErrorIs(t, bridge.HandleMessage([]byte(`{}`)), ErrEmptyChangeSet)
		assert.Empty(t, sink.sets)
	})

	t.Run("submit errors are returned", func(t *testing.T) {
		sink := &recordingSink{err: app.ErrQueueFull}
		bridge := NewBridge(sink, nil, testTopics)

		err := bridge.HandleMessage([]byte(`{"removed":["b1"]}`))
		assert.ErrorIs(t, err, app.ErrQueueFull)
	})
}

func TestBridge_PublishReports(t *testing.T) {
	t.Run("publish failures do not stop other reports", func(t *testing.T) {
		broker := newFakeBroker()
		broker.failOn = "bodystats/stats/b1/left_hand"
		bridge := NewBridge(&recordingSink{}, broker, testTopics)

		bridge.PublishReports([]tracking.LimbReport{
			{BodyID: "b1", Limb: body.LeftHand},
			{BodyID: "b1", Limb: body.RightHand},
		})

		assert.NotContains(t, broker.published, "bodystats/stats/b1/left_hand")
		assert.Contains(t, broker.published, "bodystats/stats/b1/right_hand")
	})

	t.Run("nil publisher", func(t *testing.T) {
		bridge := NewBridge(&recordingSink{}, nil, testTopics)
		assert.NotPanics(t, func() {
			bridge.PublishReports([]tracking.LimbReport{{BodyID: "b1", Limb: body.LeftHand}})
		})
	})
}

func TestBridge_StartFails(t *testing.T) {
	broker := newFakeBroker()
	broker.failOn = testTopics.Updates
	bridge := NewBridge(&recordingSink{}, broker, testTopics)

	assert.Error(t, bridge.Start(broker))
}
