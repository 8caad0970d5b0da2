// Package extrema computes statistics over the local minima of a limb's height.
//
// A History records one limb's positions in temporal order. FindLocalMinima
// picks the most recent samples whose height is strictly below both temporal
// neighbours, and Mean / StandardDeviation reduce them per axis.
package extrema

import (
	"errors"
	"fmt"

	"github.com/ayusman/bodystats/internal/body"
)

// ErrInvalidSample is returned when a sample has a NaN or infinite coordinate.
var ErrInvalidSample = errors.New("invalid sample")

// History is an ordered, append-only record of one limb's positions.
// It is not safe for concurrent use.
type History struct {
	samples []body.Point3D
	limit   int
}

// NewHistory creates an empty History. A positive limit bounds the number of
// retained samples, dropping the oldest when full; limit <= 0 keeps everything.
func NewHistory(limit int) *History {
	if limit < 0 {
		limit = 0
	}
	return &History{limit: limit}
}

// Append records a new sample. Non-finite samples are rejected and leave the
// History unchanged.
func (h *History) Append(p body.Point3D) error {
	if !p.IsFinite() {
		return fmt.Errorf("%w: (%v, %v, %v)", ErrInvalidSample, p.X, p.Y, p.Z)
	}

	if h.limit > 0 && len(h.samples) >= h.limit {
		// Shift left by 1, removing the oldest sample
		copy(h.samples, h.samples[1:])
		h.samples = h.samples[:h.limit-1]
	}
	h.samples = append(h.samples, p)
	return nil
}

// Len returns the number of retained samples.
func (h *History) Len() int {
	return len(h.samples)
}

// Last returns the most recent sample.
func (h *History) Last() (body.Point3D, bool) {
	if len(h.samples) == 0 {
		return body.Point3D{}, false
	}
	return h.samples[len(h.samples)-1], true
}

// Samples returns a copy of the retained samples, oldest first.
func (h *History) Samples() []body.Point3D {
	out := make([]body.Point3D, len(h.samples))
	copy(out, h.samples)
	return out
}

// Stats computes the windowed statistics of the History.
func (h *History) Stats(maxNum int) (Summary, error) {
	return WindowedStats(h.samples, maxNum)
}
