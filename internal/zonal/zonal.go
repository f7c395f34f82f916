// Package zonal aggregates classified pixels per administrative region.
package zonal

import (
	"errors"
	"fmt"

	"github.com/jengzang/greenarea-go/internal/classify"
	"github.com/jengzang/greenarea-go/internal/composite"
	"github.com/jengzang/greenarea-go/internal/raster"
	"github.com/jengzang/greenarea-go/internal/region"
	"github.com/jengzang/greenarea-go/internal/spatial"
)

// ErrPixelSize is returned when the raster resolution differs from the
// sensor's nominal pixel size
var ErrPixelSize = errors.New("raster pixel size does not match sensor")

// Stat is the aggregate of one region
type Stat struct {
	Code     string
	Name     string
	Positive int // Green pixels
	Valid    int // Pixels holding an index value
	AreaM2   float64
}

// Observed reports whether the region had any valid pixel
func (s Stat) Observed() bool {
	return s.Valid > 0
}

func checkGrid(g raster.Grid, pixelSize float64, regions *region.Collection) error {
	if g.PixelSize != pixelSize {
		return fmt.Errorf("%w: raster %v m, sensor %v m", ErrPixelSize, g.PixelSize, pixelSize)
	}
	if g.EPSG != 0 && g.EPSG != regions.Projection().EPSG() {
		return fmt.Errorf("raster is EPSG:%d, regions are EPSG:%d", g.EPSG, regions.Projection().EPSG())
	}
	return nil
}

// eachCell calls fn for every cell whose center falls inside the region
func eachCell(g raster.Grid, r region.Region, stride int, fn func(i, col, row int, x, y float64)) {
	b := r.Planar.Bounds()
	if b.IsEmpty() {
		return
	}
	firstCol, lastCol := g.ColRange(b.MinX, b.MaxX)
	firstRow, lastRow := g.RowRange(b.MinY, b.MaxY)
	for row := firstRow; row <= lastRow; row++ {
		if stride > 1 && row%stride != 0 {
			continue
		}
		for col := firstCol; col <= lastCol; col++ {
			if stride > 1 && col%stride != 0 {
				continue
			}
			x, y := g.Center(col, row)
			if r.Contains(x, y) {
				fn(g.Index(col, row), col, row, x, y)
			}
		}
	}
}

// Aggregate counts the positive and valid pixels of every region.
// Area is positive pixels times the square of pixelSize.
func Aggregate(res classify.Result, pixelSize float64, regions *region.Collection) ([]Stat, error) {
	out := make([]Stat, 0, regions.Len())
	if res.Empty() {
		for _, r := range regions.Regions() {
			out = append(out, Stat{Code: r.Code, Name: r.Name})
		}
		return out, nil
	}

	g := res.Grid()
	if err := checkGrid(g, pixelSize, regions); err != nil {
		return nil, err
	}

	cellArea := pixelSize * pixelSize
	for _, r := range regions.Regions() {
		s := Stat{Code: r.Code, Name: r.Name}
		eachCell(g, r, 1, func(i, _, _ int, _, _ float64) {
			positive, valid := res.At(i)
			if !valid {
				return
			}
			s.Valid++
			if positive {
				s.Positive++
			}
		})
		s.AreaM2 = float64(s.Positive) * cellArea
		out = append(out, s)
	}
	return out, nil
}

// Sample is one index value at a pixel center inside a region
type Sample struct {
	Code  string
	Name  string
	Value float64
	X     float64
	Y     float64
	Lon   float64
	Lat   float64
}

// SampleIndex returns the index value of every valid pixel inside each region.
// stride > 1 keeps only cells whose column and row are multiples of it.
func SampleIndex(ix composite.Index, regions *region.Collection, stride int) ([]Sample, error) {
	if ix.Empty() {
		return nil, nil
	}
	if stride < 1 {
		stride = 1
	}

	g := ix.Grid()
	if g.EPSG != 0 && g.EPSG != regions.Projection().EPSG() {
		return nil, fmt.Errorf("raster is EPSG:%d, regions are EPSG:%d", g.EPSG, regions.Projection().EPSG())
	}

	proj := regions.Projection()
	band := ix.Band()
	var out []Sample
	for _, r := range regions.Regions() {
		eachCell(g, r, stride, func(i, _, _ int, x, y float64) {
			v, ok := band.At(i)
			if !ok {
				return
			}
			ll := proj.Inverse(spatial.XY{X: x, Y: y})
			out = append(out, Sample{
				Code:  r.Code,
				Name:  r.Name,
				Value: v,
				X:     x,
				Y:     y,
				Lon:   ll.Lon,
				Lat:   ll.Lat,
			})
		})
	}
	return out, nil
}
