// Package classify turns an index composite into a green/not-green raster.
package classify

import (
	"github.com/jengzang/greenarea-go/internal/composite"
	"github.com/jengzang/greenarea-go/internal/raster"
)

// Result is a binary classification on the composite grid. Pixels without
// an index value stay no data.
type Result struct {
	Sensor    string
	Threshold float64 // Native units
	grid      raster.Grid
	positive  []bool
	valid     []bool
	empty     bool
}

// Threshold marks every valid pixel with index >= native as positive
func Threshold(ix composite.Index, native float64) Result {
	r := Result{Sensor: ix.Sensor, Threshold: native}
	if ix.Empty() {
		r.empty = true
		return r
	}

	b := ix.Band()
	r.grid = ix.Grid()
	r.positive = make([]bool, b.Len())
	r.valid = make([]bool, b.Len())
	for i := 0; i < b.Len(); i++ {
		v, ok := b.At(i)
		if !ok {
			continue
		}
		r.valid[i] = true
		r.positive[i] = v >= native
	}
	return r
}

// Empty reports whether the classified composite had no scenes
func (r Result) Empty() bool {
	return r.empty
}

// Grid returns the classification grid
func (r Result) Grid() raster.Grid {
	return r.grid
}

// Len returns the number of cells
func (r Result) Len() int {
	return len(r.valid)
}

// At returns whether cell i is positive and whether it holds data
func (r Result) At(i int) (positive, valid bool) {
	return r.positive[i], r.valid[i]
}

// Positive returns the number of positive pixels
func (r Result) Positive() int {
	n := 0
	for _, p := range r.positive {
		if p {
			n++
		}
	}
	return n
}

// ValidCount returns the number of pixels holding data
func (r Result) ValidCount() int {
	n := 0
	for _, v := range r.valid {
		if v {
			n++
		}
	}
	return n
}
