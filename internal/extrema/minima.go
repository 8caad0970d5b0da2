package extrema

import "github.com/ayusman/bodystats/internal/body"

// LocalMinimaIndices returns the indices of up to maxNum local minima of the
// vertical coordinate, most recent first.
//
// The scan starts at the second-to-last sample and walks back to index 1, so
// neither the first nor the latest sample can ever be selected. A sample is a
// minimum when its Y is strictly less than both neighbours' Y.
func LocalMinimaIndices(history []body.Point3D, maxNum int) []int {
	indices := make([]int, 0)
	if maxNum <= 0 {
		return indices
	}

	for i := len(history) - 2; i > 0 && len(indices) < maxNum; i-- {
		if history[i].Y < history[i-1].Y && history[i].Y < history[i+1].Y {
			indices = append(indices, i)
		}
	}

	return indices
}

// FindLocalMinima returns up to maxNum local minima of the vertical coordinate
// in the order they were found, most recent first. Histories shorter than
// three samples have no interior sample and yield an empty slice.
func FindLocalMinima(history []body.Point3D, maxNum int) []body.Point3D {
	indices := LocalMinimaIndices(history, maxNum)

	mins := make([]body.Point3D, len(indices))
	for i, idx := range indices {
		mins[i] = history[idx]
	}
	return mins
}
