package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/jengzang/greenarea-go/internal/classify"
	"github.com/jengzang/greenarea-go/internal/composite"
	"github.com/jengzang/greenarea-go/internal/region"
	"github.com/jengzang/greenarea-go/internal/sensor"
	"github.com/jengzang/greenarea-go/internal/stats"
	"github.com/jengzang/greenarea-go/internal/zonal"
)

// DefaultSampleImages is the number of least cloudy scenes a sample
// composite keeps
const DefaultSampleImages = 10

// DefaultSweep returns the thresholds 0.3, 0.4 ... 0.8
func DefaultSweep() []float64 {
	return []float64{0.3, 0.4, 0.5, 0.6, 0.7, 0.8}
}

// Sampler extracts per-pixel index samples for inspection
type Sampler struct {
	Compositor composite.Compositor // MaxImages 0 becomes DefaultSampleImages
	Regions    *region.Collection
	Stride     int       // Keep every Stride-th pixel in both directions
	Sweep      []float64 // Thresholds to count green pixels at; nil means DefaultSweep
}

// RegionSummary describes the index distribution of one region
type RegionSummary struct {
	Code string `json:"code"`
	Name string `json:"name_eng"`
	Year int    `json:"year"`
	stats.Summary
}

// SweepPoint is the green pixel count at one threshold
type SweepPoint struct {
	Threshold float64 `json:"threshold"`
	Green     int     `json:"green_pixels"`
	Valid     int     `json:"valid_pixels"`
}

// SampleSet is the sample output of one (sensor, year)
type SampleSet struct {
	Sensor    string
	Year      int
	Scenes    []string
	Samples   []zonal.Sample // Value is fractional NDVI
	Summaries []RegionSummary
	Sweep     []SweepPoint
	Index     composite.Index // Native encoding, for rendering
}

// Sample composites one season and returns its samples, summaries and
// threshold sweep
func (s Sampler) Sample(ctx context.Context, sensorName string, year int, season Season) (SampleSet, error) {
	if s.Regions == nil {
		return SampleSet{}, errors.New("sampler has no regions")
	}
	profile, err := sensor.Lookup(sensorName)
	if err != nil {
		return SampleSet{}, err
	}
	start, end, err := season.Window(year)
	if err != nil {
		return SampleSet{}, err
	}

	c := s.Compositor
	if c.MaxImages == 0 {
		c.MaxImages = DefaultSampleImages
	}
	ix, err := c.Composite(ctx, profile, composite.Window{Start: start, End: end, ROI: s.Regions})
	if err != nil {
		return SampleSet{}, fmt.Errorf("failed to composite %s %d: %w", sensorName, year, err)
	}

	set := SampleSet{Sensor: profile.Name, Year: year, Scenes: ix.Scenes(), Index: ix}

	samples, err := zonal.SampleIndex(ix, s.Regions, s.Stride)
	if err != nil {
		return SampleSet{}, err
	}
	for i := range samples {
		samples[i].Value = fractional(profile, samples[i].Value)
	}
	set.Samples = samples
	set.Summaries = summarize(samples, s.Regions, year)

	sweep := s.Sweep
	if sweep == nil {
		sweep = DefaultSweep()
	}
	for _, th := range sweep {
		native, err := profile.NativeThreshold(th)
		if err != nil {
			return SampleSet{}, err
		}
		r := classify.Threshold(ix, native)
		set.Sweep = append(set.Sweep, SweepPoint{Threshold: th, Green: r.Positive(), Valid: r.ValidCount()})
	}

	log.Printf("[Sampler] %s %d: %d scenes, %d samples", profile.Name, year, len(set.Scenes), len(set.Samples))
	return set, nil
}

func fractional(p sensor.Profile, native float64) float64 {
	if p.Encoding == sensor.ScaledInteger {
		// Round away float noise from the integer scaling
		return math.Round(native*p.IndexScale*1e6) / 1e6
	}
	return native
}

func summarize(samples []zonal.Sample, regions *region.Collection, year int) []RegionSummary {
	byCode := make(map[string][]float64)
	for _, smp := range samples {
		byCode[smp.Code] = append(byCode[smp.Code], smp.Value)
	}

	out := make([]RegionSummary, 0, regions.Len())
	for _, r := range regions.Regions() {
		out = append(out, RegionSummary{
			Code:    r.Code,
			Name:    r.Name,
			Year:    year,
			Summary: stats.Summarize(byCode[r.Code]),
		})
	}
	return out
}
