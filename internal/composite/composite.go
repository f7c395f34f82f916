// Package composite reduces the scenes of an observation window into one
// vegetation index raster.
package composite

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/golang/geo/s2"

	"github.com/jengzang/greenarea-go/internal/archive"
	"github.com/jengzang/greenarea-go/internal/qa"
	"github.com/jengzang/greenarea-go/internal/raster"
	"github.com/jengzang/greenarea-go/internal/sensor"
	"github.com/jengzang/greenarea-go/internal/stats"
)

// DefaultCloudCeiling is the scene cloud percentage at or above which a
// scene is dropped
const DefaultCloudCeiling = 30.0

// ErrGridMismatch is returned when eligible scenes are not on one grid
var ErrGridMismatch = errors.New("scenes are not on the same grid")

// ROI is the region of interest a composite is clipped to
type ROI interface {
	Bound() s2.Rect
	ContainsXY(x, y float64) bool
}

// Window is a half-open observation period [Start, End) over an ROI
type Window struct {
	Start time.Time
	End   time.Time
	ROI   ROI // Optional
}

// Validate checks the window is non-empty
func (w Window) Validate() error {
	if !w.Start.Before(w.End) {
		return fmt.Errorf("invalid window [%s, %s)", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
	}
	return nil
}

// Index is a single-band vegetation index composite in the sensor's native
// index encoding
type Index struct {
	Sensor string
	grid   raster.Grid
	band   raster.Band
	empty  bool
	scenes []string
}

// EmptyIndex is the composite of a window without eligible scenes
func EmptyIndex(sensorName string) Index {
	return Index{Sensor: sensorName, empty: true}
}

// NewIndex wraps an existing index band on a grid
func NewIndex(sensorName string, g raster.Grid, b raster.Band, scenes []string) (Index, error) {
	if b.Len() != g.Len() {
		return Index{}, fmt.Errorf("index band has %d samples, grid has %d cells", b.Len(), g.Len())
	}
	return Index{Sensor: sensorName, grid: g, band: b, scenes: append([]string(nil), scenes...)}, nil
}

// Empty reports whether no scene contributed; such an index has no grid
func (ix Index) Empty() bool {
	return ix.empty
}

// Grid returns the composite grid
func (ix Index) Grid() raster.Grid {
	return ix.grid
}

// Band returns the index samples
func (ix Index) Band() raster.Band {
	return ix.band
}

// Scenes returns the ids of the scenes that were composited
func (ix Index) Scenes() []string {
	return append([]string(nil), ix.scenes...)
}

// ValidCount returns the number of pixels holding an index value
func (ix Index) ValidCount() int {
	if ix.empty {
		return 0
	}
	return ix.band.ValidCount()
}

// Compositor builds median composites from an archive
type Compositor struct {
	Archive      archive.Archive
	CloudCeiling float64 // Percent; <= 0 means DefaultCloudCeiling
	MaxImages    int     // Keep only the N least cloudy scenes; 0 keeps all
}

func (c Compositor) ceiling() float64 {
	if c.CloudCeiling <= 0 {
		return DefaultCloudCeiling
	}
	return c.CloudCeiling
}

// Composite queries the window, masks and reduces the eligible scenes and
// returns the clipped index
func (c Compositor) Composite(ctx context.Context, p sensor.Profile, w Window) (Index, error) {
	if err := w.Validate(); err != nil {
		return Index{}, err
	}

	q := archive.Query{
		Collection: p.Collection,
		Start:      w.Start,
		End:        w.End,
		Bands:      queryBands(p),
	}
	if w.ROI != nil {
		bound := w.ROI.Bound()
		q.Bound = &bound
	}

	scenes, err := c.Archive.Query(ctx, q)
	if err != nil {
		return Index{}, fmt.Errorf("failed to query %s: %w", p.Collection, err)
	}

	eligible := c.selectScenes(scenes)
	log.Printf("[Compositor] %s %s..%s: %d scenes, %d eligible",
		p.Name, w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"), len(scenes), len(eligible))

	var (
		grid   raster.Grid
		masked []raster.Image
		ids    []string
	)
	for _, s := range eligible {
		if err := ctx.Err(); err != nil {
			return Index{}, err
		}
		if !hasBands(p, s.Image) {
			log.Printf("[Compositor] Skipping scene %s: missing required bands (has %v)", s.ID, s.Image.BandNames())
			continue
		}
		if len(masked) == 0 {
			grid = s.Image.Grid()
		} else if s.Image.Grid() != grid {
			return Index{}, fmt.Errorf("%w: scene %s", ErrGridMismatch, s.ID)
		}

		img, err := maskScene(p, s.Image)
		if err != nil {
			return Index{}, fmt.Errorf("failed to mask scene %s: %w", s.ID, err)
		}
		masked = append(masked, img)
		ids = append(ids, s.ID)
	}

	if len(masked) == 0 {
		return EmptyIndex(p.Name), nil
	}

	composite, err := reduce(p, grid, masked)
	if err != nil {
		return Index{}, err
	}

	index, err := toIndex(p, composite)
	if err != nil {
		return Index{}, err
	}

	if w.ROI != nil {
		index, err = index.Clip(grid, w.ROI.ContainsXY)
		if err != nil {
			return Index{}, fmt.Errorf("failed to clip composite: %w", err)
		}
	}

	return NewIndex(p.Name, grid, index, ids)
}

func queryBands(p sensor.Profile) []string {
	bands := p.Bands()
	if p.QABand != "" {
		bands = append(bands, p.QABand)
	}
	if p.ProbabilityBand != "" {
		bands = append(bands, p.ProbabilityBand)
	}
	return bands
}

func hasBands(p sensor.Profile, img raster.Image) bool {
	for _, b := range p.Bands() {
		if !img.HasBand(b) {
			return false
		}
	}
	// Either mask input is enough; the decoder falls back when probability is absent
	hasQA := p.QABand != "" && img.HasBand(p.QABand)
	hasProb := p.ProbabilityBand != "" && img.HasBand(p.ProbabilityBand)
	return hasQA || hasProb
}

// selectScenes drops cloudy scenes and keeps the best MaxImages
func (c Compositor) selectScenes(scenes []archive.Scene) []archive.Scene {
	ceiling := c.ceiling()
	out := make([]archive.Scene, 0, len(scenes))
	for _, s := range scenes {
		// Scenes without metadata are not dropped
		if s.CloudFraction != nil && *s.CloudFraction >= ceiling {
			continue
		}
		out = append(out, s)
	}

	if c.MaxImages > 0 && len(out) > c.MaxImages {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].CloudFraction, out[j].CloudFraction
			switch {
			case a != nil && b == nil:
				return true
			case a == nil && b != nil:
				return false
			case a != nil && b != nil && *a != *b:
				return *a < *b
			}
			if !out[i].Acquired.Equal(out[j].Acquired) {
				return out[i].Acquired.Before(out[j].Acquired)
			}
			return out[i].ID < out[j].ID
		})
		out = out[:c.MaxImages]
		archive.SortScenes(out)
	}
	return out
}

func maskScene(p sensor.Profile, img raster.Image) (raster.Image, error) {
	n := img.Grid().Len()

	var qaBand, probBand *raster.Band
	if p.QABand != "" && img.HasBand(p.QABand) {
		b, _ := img.Band(p.QABand)
		qaBand = &b
	}
	if p.ProbabilityBand != "" && img.HasBand(p.ProbabilityBand) {
		b, _ := img.Band(p.ProbabilityBand)
		probBand = &b
	}

	// A scene with a probability band is judged on it alone; a pixel with
	// no quality evidence at all is never kept
	keep := make([]bool, n)
	for i := 0; i < n; i++ {
		var px qa.Pixel
		bits, hasQA := qaAt(qaBand, i, p.QABitWidth)
		px.QA = bits

		if probBand != nil {
			v, ok := probBand.At(i)
			if !ok {
				continue
			}
			px.CloudProbability = v
			px.HasProbability = true
		} else if !hasQA {
			continue
		}
		keep[i] = p.Mask.Usable(px)
	}

	sel, err := img.Select(p.Bands()...)
	if err != nil {
		return raster.Image{}, err
	}
	return sel.MaskAll(keep)
}

func qaAt(b *raster.Band, i, bitWidth int) (uint32, bool) {
	if b == nil {
		return 0, false
	}
	v, ok := b.At(i)
	if !ok {
		return 0, false
	}
	return qa.FromSample(v, bitWidth)
}

// reduce takes the per-pixel median of every composited band over the
// scenes that hold data there
func reduce(p sensor.Profile, g raster.Grid, images []raster.Image) (map[string]raster.Band, error) {
	n := g.Len()
	out := make(map[string]raster.Band, len(p.Bands()))
	scratch := make([]float64, 0, len(images))

	for _, name := range p.Bands() {
		bands := make([]raster.Band, len(images))
		for i, img := range images {
			b, err := img.Band(name)
			if err != nil {
				return nil, err
			}
			bands[i] = b
		}

		values := make([]float64, n)
		valid := make([]bool, n)
		for px := 0; px < n; px++ {
			scratch = scratch[:0]
			for _, b := range bands {
				if v, ok := b.At(px); ok {
					scratch = append(scratch, v)
				}
			}
			if len(scratch) == 0 {
				continue
			}
			values[px] = stats.MedianInPlace(scratch)
			valid[px] = true
		}

		b, err := raster.NewBand(values, valid)
		if err != nil {
			return nil, err
		}
		out[name] = b
	}
	return out, nil
}

// toIndex applies scale/offset and computes the normalized difference, or
// passes a precomputed index band through
func toIndex(p sensor.Profile, bands map[string]raster.Band) (raster.Band, error) {
	if p.IndexBand != "" {
		return bands[p.IndexBand], nil
	}

	scale := func(v float64) (float64, bool) { return v*p.Scale + p.Offset, true }
	red := bands[p.RedBand].Map(scale)
	nir := bands[p.NIRBand].Map(scale)

	nd, err := raster.NormalizedDifference(nir, red)
	if err != nil {
		return raster.Band{}, fmt.Errorf("failed to compute index: %w", err)
	}
	return nd, nil
}
