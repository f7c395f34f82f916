// Package raster holds immutable single- and multi-band grids whose samples
// are either a value or explicitly no data.
package raster

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Grid places a raster in a planar coordinate reference system
type Grid struct {
	OriginX   float64 `json:"origin_x"` // Upper-left corner easting
	OriginY   float64 `json:"origin_y"` // Upper-left corner northing
	PixelSize float64 `json:"pixel_size"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	EPSG      int     `json:"epsg"`
}

// Len returns the number of cells
func (g Grid) Len() int {
	return g.Width * g.Height
}

// Center returns the planar coordinates of the center of a cell
func (g Grid) Center(col, row int) (float64, float64) {
	x := g.OriginX + (float64(col)+0.5)*g.PixelSize
	y := g.OriginY - (float64(row)+0.5)*g.PixelSize
	return x, y
}

// Index returns the linear index of a cell
func (g Grid) Index(col, row int) int {
	return row*g.Width + col
}

// ColRange returns the columns whose centers fall inside [minX, maxX]
func (g Grid) ColRange(minX, maxX float64) (int, int) {
	first := int(math.Ceil((minX-g.OriginX)/g.PixelSize - 0.5))
	last := int(math.Floor((maxX-g.OriginX)/g.PixelSize - 0.5))
	return clampRange(first, last, g.Width)
}

// RowRange returns the rows whose centers fall inside [minY, maxY]
func (g Grid) RowRange(minY, maxY float64) (int, int) {
	first := int(math.Ceil((g.OriginY-maxY)/g.PixelSize - 0.5))
	last := int(math.Floor((g.OriginY-minY)/g.PixelSize - 0.5))
	return clampRange(first, last, g.Height)
}

func clampRange(first, last, n int) (int, int) {
	if first < 0 {
		first = 0
	}
	if last > n-1 {
		last = n - 1
	}
	return first, last
}

// Validate checks the grid is usable
func (g Grid) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("invalid grid size %dx%d", g.Width, g.Height)
	}
	if g.PixelSize <= 0 {
		return fmt.Errorf("invalid pixel size %v", g.PixelSize)
	}
	return nil
}

// Band is one immutable layer of samples
type Band struct {
	values []float64
	valid  []bool
}

// NewBand copies values and validity into a new band
func NewBand(values []float64, valid []bool) (Band, error) {
	if len(values) != len(valid) {
		return Band{}, fmt.Errorf("band length mismatch: %d values, %d flags", len(values), len(valid))
	}
	b := Band{
		values: make([]float64, len(values)),
		valid:  make([]bool, len(valid)),
	}
	copy(b.values, values)
	for i, ok := range valid {
		// NaN and Inf never count as data
		b.valid[i] = ok && !math.IsNaN(values[i]) && !math.IsInf(values[i], 0)
	}
	return b, nil
}

// FromValues builds a band where every finite value is valid
func FromValues(values []float64) Band {
	valid := make([]bool, len(values))
	for i := range valid {
		valid[i] = true
	}
	b, _ := NewBand(values, valid)
	return b
}

// Empty builds a band of n no-data samples
func Empty(n int) Band {
	return Band{values: make([]float64, n), valid: make([]bool, n)}
}

// Len returns the number of samples
func (b Band) Len() int {
	return len(b.values)
}

// At returns the sample at i and whether it holds data
func (b Band) At(i int) (float64, bool) {
	if !b.valid[i] {
		return 0, false
	}
	return b.values[i], true
}

// ValidCount returns the number of samples holding data
func (b Band) ValidCount() int {
	n := 0
	for _, ok := range b.valid {
		if ok {
			n++
		}
	}
	return n
}

// Mask returns a band where samples with keep[i] == false become no data
func (b Band) Mask(keep []bool) (Band, error) {
	if len(keep) != len(b.values) {
		return Band{}, fmt.Errorf("mask length %d does not match band length %d", len(keep), len(b.values))
	}
	out := Empty(len(b.values))
	for i, ok := range b.valid {
		if ok && keep[i] {
			out.values[i] = b.values[i]
			out.valid[i] = true
		}
	}
	return out, nil
}

// Map applies fn to every valid sample. fn may turn a sample into no data.
func (b Band) Map(fn func(v float64) (float64, bool)) Band {
	out := Empty(len(b.values))
	for i, ok := range b.valid {
		if !ok {
			continue
		}
		v, keep := fn(b.values[i])
		if keep && !math.IsNaN(v) && !math.IsInf(v, 0) {
			out.values[i] = v
			out.valid[i] = true
		}
	}
	return out
}

// Clip keeps only samples whose cell center satisfies contains
func (b Band) Clip(g Grid, contains func(x, y float64) bool) (Band, error) {
	if g.Len() != len(b.values) {
		return Band{}, fmt.Errorf("grid has %d cells, band has %d", g.Len(), len(b.values))
	}
	out := Empty(len(b.values))
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			i := g.Index(col, row)
			if !b.valid[i] {
				continue
			}
			if contains(g.Center(col, row)) {
				out.values[i] = b.values[i]
				out.valid[i] = true
			}
		}
	}
	return out, nil
}

// NormalizedDifference computes (b - a) / (b + a) where both inputs hold
// data and the denominator is non-zero.
func NormalizedDifference(b, a Band) (Band, error) {
	if b.Len() != a.Len() {
		return Band{}, fmt.Errorf("band length mismatch: %d vs %d", b.Len(), a.Len())
	}
	out := Empty(b.Len())
	for i := range b.values {
		if !b.valid[i] || !a.valid[i] {
			continue
		}
		den := b.values[i] + a.values[i]
		if den == 0 {
			continue
		}
		out.values[i] = (b.values[i] - a.values[i]) / den
		out.valid[i] = true
	}
	return out, nil
}

// ErrNoBand is returned when an image lacks a requested band
var ErrNoBand = errors.New("band not found")

// Image is a multi-band raster on one grid
type Image struct {
	grid  Grid
	bands map[string]Band
}

// NewImage builds an image; every band must cover the grid
func NewImage(g Grid, bands map[string]Band) (Image, error) {
	img := Image{grid: g, bands: make(map[string]Band, len(bands))}
	for name, b := range bands {
		if b.Len() != g.Len() {
			return Image{}, fmt.Errorf("band %s has %d samples, grid has %d cells", name, b.Len(), g.Len())
		}
		img.bands[name] = b
	}
	return img, nil
}

// Grid returns the image grid
func (img Image) Grid() Grid {
	return img.grid
}

// Band returns a named band
func (img Image) Band(name string) (Band, error) {
	b, ok := img.bands[name]
	if !ok {
		return Band{}, fmt.Errorf("%w: %s", ErrNoBand, name)
	}
	return b, nil
}

// HasBand reports whether the image carries a band
func (img Image) HasBand(name string) bool {
	_, ok := img.bands[name]
	return ok
}

// BandNames returns the band names in sorted order
func (img Image) BandNames() []string {
	names := make([]string, 0, len(img.bands))
	for name := range img.bands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns a new image holding only the named bands
func (img Image) Select(names ...string) (Image, error) {
	out := Image{grid: img.grid, bands: make(map[string]Band, len(names))}
	for _, name := range names {
		b, err := img.Band(name)
		if err != nil {
			return Image{}, err
		}
		out.bands[name] = b
	}
	return out, nil
}

// MaskAll applies the same keep mask to every band
func (img Image) MaskAll(keep []bool) (Image, error) {
	out := Image{grid: img.grid, bands: make(map[string]Band, len(img.bands))}
	for name, b := range img.bands {
		masked, err := b.Mask(keep)
		if err != nil {
			return Image{}, fmt.Errorf("failed to mask band %s: %w", name, err)
		}
		out.bands[name] = masked
	}
	return out, nil
}
