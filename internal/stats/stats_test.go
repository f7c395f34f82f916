package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMedianInPlace(t *testing.T) {
	assert.True(t, math.IsNaN(MedianInPlace(nil)))
	assert.Equal(t, 3.0, MedianInPlace([]float64{3}))
	assert.Equal(t, 2.0, MedianInPlace([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, MedianInPlace([]float64{4, 1, 3, 2}))

	scratch := []float64{0.1, 0.3}
	assert.InDelta(t, 0.2, MedianInPlace(scratch), 1e-12)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{5, 1, 3, 2, 4})
	assert.Equal(t, 5, s.Count)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.Equal(t, 3.0, s.Mean)
	assert.InDelta(t, math.Sqrt(2.5), s.StdDev, 1e-12)
	assert.LessOrEqual(t, s.Q1, s.Median)
	assert.LessOrEqual(t, s.Median, s.Q3)

	assert.Equal(t, Summary{}, Summarize(nil))
	assert.Equal(t, 0.0, Summarize([]float64{7}).StdDev)
}
