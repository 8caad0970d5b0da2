package tracking

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/bodystats/internal/body"
	"github.com/ayusman/bodystats/internal/extrema"
)

func newTestRegistry(opts Options) *Registry {
	r := NewRegistry(opts)
	r.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	n := 0
	r.newID = func() string {
		n++
		return "session-" + string(rune('0'+n))
	}
	return r
}

func applyAll(t *testing.T, r *Registry, sets []body.ChangeSet) []Result {
	t.Helper()
	results := make([]Result, 0, len(sets))
	for _, cs := range sets {
		res, err := r.Apply(cs)
		require.NoError(t, err)
		results = append(results, res)
	}
	return results
}

func TestNewRegistry_Defaults(t *testing.T) {
	t.Parallel()

	r := NewRegistry(Options{HistoryLimit: -5, Limbs: []body.Limb{body.LeftHand, "tail"}})
	opts := r.Options()

	assert.Equal(t, DefaultMaxMinima, opts.MaxMinima)
	assert.Equal(t, 0, opts.HistoryLimit)
	assert.Equal(t, []body.Limb{body.LeftHand}, opts.Limbs)

	assert.Equal(t, body.Limbs, NewRegistry(Options{}).Options().Limbs)
}

func TestRegistry_Apply(t *testing.T) {
	t.Parallel()

	t.Run("added body starts a session without samples", func(t *testing.T) {
		t.Parallel()
		r := newTestRegistry(Options{})

		res, err := r.Apply(body.ChangeSet{Added: []body.Body{body.StandingBody("b1")}})
		require.NoError(t, err)
		require.Len(t, res.Started, 1)
		assert.Equal(t, "b1", res.Started[0].BodyID)
		assert.Equal(t, "session-1", res.Started[0].SessionID)
		assert.Equal(t, 1.0, res.Started[0].HeightScale)
		assert.Empty(t, res.Reports)

		info, err := r.Get("b1")
		require.NoError(t, err)
		assert.Equal(t, 0, info.HistoryLens[body.LeftHand])
	})

	t.Run("re-adding a body keeps its histories", func(t *testing.T) {
		t.Parallel()
		r := newTestRegistry(Options{})
		applyAll(t, r, body.HandPath("b1", []float64{1, 0.5}, nil))

		res, err := r.Apply(body.ChangeSet{Added: []body.Body{body.StandingBody("b1")}})
		require.NoError(t, err)
		assert.Empty(t, res.Started)

		info, err := r.Get("b1")
		require.NoError(t, err)
		assert.Equal(t, 2, info.HistoryLens[body.LeftHand])
		assert.Equal(t, "session-1", info.SessionID)
	})

	t.Run("updates for unknown bodies are ignored", func(t *testing.T) {
		t.Parallel()
		r := newTestRegistry(Options{})

		res, err := r.Apply(body.ChangeSet{Updated: []body.Body{body.StandingBody("ghost")}})
		require.NoError(t, err)
		assert.Empty(t, res.Reports)
		assert.Empty(t, r.List())
	})

	t.Run("updates report windowed statistics", func(t *testing.T) {
		t.Parallel()
		r := newTestRegistry(Options{MaxMinima: 8})

		results := applyAll(t, r, body.HandPath("b1",
			[]float64{5, 3, 4, 1, 6},
			[]float64{2, 2, 2, 2, 2},
		))

		last := results[len(results)-1]
		require.Len(t, last.Reports, 2)

		left := last.Reports[0]
		assert.Equal(t, body.LeftHand, left.Limb)
		assert.Equal(t, 5, left.HistoryLen)
		assert.Equal(t, 6.0, left.Sample.Y)
		assert.Equal(t, int64(5*33), left.Timestamp)
		require.NotNil(t, left.Summary)
		assert.Equal(t, 2, left.Summary.Count)
		assert.InDelta(t, 2.0, left.Summary.Mean.Y, 1e-9)
		assert.InDelta(t, 1.0, left.Summary.StdDev.Y, 1e-9)
		assert.InDelta(t, -0.25, left.Summary.Mean.X, 1e-9)
		assert.InDelta(t, -1.5, left.Summary.Mean.Z, 1e-9)

		right := last.Reports[1]
		assert.Equal(t, body.RightHand, right.Limb)
		assert.Nil(t, right.Summary, "flat path has no strict minima")
	})

	t.Run("early updates carry no summary", func(t *testing.T) {
		t.Parallel()
		r := newTestRegistry(Options{})

		results := applyAll(t, r, body.HandPath("b1", []float64{1, 0.5}, nil))
		for _, res := range results {
			for _, rep := range res.Reports {
				assert.Nil(t, rep.Summary)
			}
		}
	})

	t.Run("non-finite joint is reported and not recorded", func(t *testing.T) {
		t.Parallel()
		r := newTestRegistry(Options{})
		applyAll(t, r, body.HandPath("b1", []float64{1}, []float64{1}))

		bad := body.StandingBody("b1")
		bad.Joints[body.LeftHandJoint] = body.Point3D{Y: math.NaN()}

		res, err := r.Apply(body.ChangeSet{Updated: []body.Body{bad}})
		require.NoError(t, err)
		require.Len(t, res.Errors, 1)
		assert.True(t, errors.Is(res.Errors[0], extrema.ErrInvalidSample))

		var limbErr *LimbError
		require.True(t, errors.As(res.Errors[0], &limbErr))
		assert.Equal(t, body.LeftHand, limbErr.Limb)

		require.Len(t, res.Reports, 1)
		assert.Equal(t, body.RightHand, res.Reports[0].Limb)

		info, err := r.Get("b1")
		require.NoError(t, err)
		assert.Equal(t, 1, info.HistoryLens[body.LeftHand])
		assert.Equal(t, 2, info.HistoryLens[body.RightHand])
	})

	t.Run("path length accumulates the distance between samples", func(t *testing.T) {
		t.Parallel()
		r := newTestRegistry(Options{})
		results := applyAll(t, r, body.HandPath("b1", []float64{1, 0.5, 0.8}, nil))

		require.Len(t, results[1].Reports, 1)
		assert.Equal(t, 0.0, results[1].Reports[0].PathLength)
		assert.InDelta(t, 0.5, results[2].Reports[0].PathLength, 1e-9)
		assert.InDelta(t, 0.8, results[3].Reports[0].PathLength, 1e-9)

		bad := body.StandingBody("b1")
		bad.Joints[body.LeftHandJoint] = body.Point3D{Y: math.Inf(1)}
		delete(bad.Joints, body.RightHandJoint)
		_, err := r.Apply(body.ChangeSet{Updated: []body.Body{bad}})
		require.NoError(t, err)

		info, err := r.Get("b1")
		require.NoError(t, err)
		assert.InDelta(t, 0.8, info.PathLengths[body.LeftHand], 1e-9)
		assert.Equal(t, 0.0, info.PathLengths[body.RightHand])
	})

	t.Run("removed bodies discard histories", func(t *testing.T) {
		t.Parallel()
		r := newTestRegistry(Options{})
		applyAll(t, r, body.HandPath("b1", []float64{1, 0.5, 1}, nil))

		res, err := r.Apply(body.ChangeSet{Removed: []string{"b1", "never-seen"}})
		require.NoError(t, err)
		require.Len(t, res.Ended, 1)
		assert.Equal(t, 3, res.Ended[0].HistoryLens[body.LeftHand])

		_, err = r.Get("b1")
		assert.ErrorIs(t, err, ErrUnknownBody)

		// Adding again starts from scratch with a new session.
		res, err = r.Apply(body.ChangeSet{Added: []body.Body{body.StandingBody("b1")}})
		require.NoError(t, err)
		require.Len(t, res.Started, 1)
		assert.Equal(t, "session-2", res.Started[0].SessionID)
		assert.Equal(t, 0, res.Started[0].HistoryLens[body.LeftHand])
	})

	t.Run("invalid change set is rejected", func(t *testing.T) {
		t.Parallel()
		r := newTestRegistry(Options{})

		_, err := r.Apply(body.ChangeSet{Updated: []body.Body{{}}})
		assert.ErrorIs(t, err, body.ErrInvalidChangeSet)
	})

	t.Run("history limit bounds retained samples", func(t *testing.T) {
		t.Parallel()
		r := newTestRegistry(Options{HistoryLimit: 4})
		applyAll(t, r, body.HandPath("b1", []float64{1, 2, 3, 4, 5, 6}, nil))

		samples, err := r.Samples("b1", body.LeftHand)
		require.NoError(t, err)
		require.Len(t, samples, 4)
		assert.Equal(t, 3.0, samples[0].Y)
	})
}

func TestRegistry_Queries(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(Options{})
	applyAll(t, r, body.HandPath("b2", []float64{5, 3, 4, 1, 6}, nil))
	applyAll(t, r, body.HandPath("b1", []float64{1}, []float64{1}))

	t.Run("list is ordered by body id", func(t *testing.T) {
		infos := r.List()
		require.Len(t, infos, 2)
		assert.Equal(t, "b1", infos[0].BodyID)
		assert.Equal(t, "b2", infos[1].BodyID)
		assert.Equal(t, 5, infos[1].Updates)
	})

	t.Run("stats skips limbs without samples", func(t *testing.T) {
		reports, err := r.Stats("b2")
		require.NoError(t, err)
		require.Len(t, reports, 1)
		assert.Equal(t, body.LeftHand, reports[0].Limb)
		require.NotNil(t, reports[0].Summary)
		assert.InDelta(t, 2.0, reports[0].Summary.Mean.Y, 1e-9)
	})

	t.Run("samples copy the history", func(t *testing.T) {
		samples, err := r.Samples("b2", body.LeftHand)
		require.NoError(t, err)
		require.Len(t, samples, 5)
		samples[0].Y = 100

		again, err := r.Samples("b2", body.LeftHand)
		require.NoError(t, err)
		assert.Equal(t, 5.0, again[0].Y)
	})

	t.Run("unknown body and limb", func(t *testing.T) {
		_, err := r.Stats("nobody")
		assert.ErrorIs(t, err, ErrUnknownBody)

		_, err = r.Samples("nobody", body.LeftHand)
		assert.ErrorIs(t, err, ErrUnknownBody)

		_, err = r.Samples("b1", body.Limb("tail"))
		assert.Error(t, err)
	})
}

func TestRegistry_Remove(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(Options{})
	applyAll(t, r, body.HandPath("b1", []float64{1}, nil))

	info, err := r.Remove("b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", info.BodyID)

	_, err = r.Remove("b1")
	assert.ErrorIs(t, err, ErrUnknownBody)
}
