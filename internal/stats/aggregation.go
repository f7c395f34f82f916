package stats

import (
	"math"
	"sort"
)

// MedianInPlace calculates the median of values, reordering the slice.
// Even-length inputs return the mean of the two middle values.
// Returns NaN for an empty slice.
func MedianInPlace(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return values[0]
	}

	sort.Float64s(values)
	if n%2 == 0 {
		return (values[n/2-1] + values[n/2]) / 2
	}
	return values[n/2]
}
