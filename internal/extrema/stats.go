package extrema

import (
	"errors"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/bodystats/internal/body"
)

// ErrEmptyInput is returned when statistics are requested for no samples.
var ErrEmptyInput = errors.New("empty input")

// Summary holds the per-axis mean and population standard deviation of a set
// of local minima.
type Summary struct {
	Mean   body.Point3D `json:"mean"`
	StdDev body.Point3D `json:"std_dev"`
	Count  int          `json:"count"`
}

// axes splits samples into one slice per coordinate.
func axes(samples []body.Point3D) (xs, ys, zs []float64) {
	xs = make([]float64, len(samples))
	ys = make([]float64, len(samples))
	zs = make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.X
		ys[i] = s.Y
		zs[i] = s.Z
	}
	return xs, ys, zs
}

// Mean returns the arithmetic mean of each coordinate across samples.
func Mean(samples []body.Point3D) (body.Point3D, error) {
	if len(samples) == 0 {
		return body.Point3D{}, ErrEmptyInput
	}

	xs, ys, zs := axes(samples)
	return body.Point3D{
		X: stat.Mean(xs, nil),
		Y: stat.Mean(ys, nil),
		Z: stat.Mean(zs, nil),
	}, nil
}

// StandardDeviation returns the population standard deviation of each
// coordinate across samples, sqrt(sum((v - mean)^2) / n).
func StandardDeviation(samples []body.Point3D) (body.Point3D, error) {
	s, err := summarize(samples)
	if err != nil {
		return body.Point3D{}, err
	}
	return s.StdDev, nil
}

// summarize computes mean and population standard deviation in one pass per axis.
func summarize(samples []body.Point3D) (Summary, error) {
	if len(samples) == 0 {
		return Summary{}, ErrEmptyInput
	}

	xs, ys, zs := axes(samples)

	var s Summary
	s.Mean.X, s.StdDev.X = stat.PopMeanStdDev(xs, nil)
	s.Mean.Y, s.StdDev.Y = stat.PopMeanStdDev(ys, nil)
	s.Mean.Z, s.StdDev.Z = stat.PopMeanStdDev(zs, nil)
	s.Count = len(samples)

	return s, nil
}

// WindowedStats finds up to maxNum most recent local minima of history and
// reduces them to their mean and standard deviation. The minima are computed
// once and shared by both reductions.
// Returns ErrEmptyInput when history yields no minima.
func WindowedStats(history []body.Point3D, maxNum int) (Summary, error) {
	return summarize(FindLocalMinima(history, maxNum))
}
