// Package archive provides imagery scenes for a collection and time window.
package archive

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/golang/geo/s2"

	"github.com/jengzang/greenarea-go/internal/raster"
)

// ErrQueryFailed marks a failed archive query. It is the only error class
// the pipeline retries.
var ErrQueryFailed = errors.New("archive query failed")

// QueryError wraps the cause of a failed query
type QueryError struct {
	Collection string
	Err        error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("archive query failed for %s: %v", e.Collection, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrQueryFailed) match any QueryError
func (e *QueryError) Is(target error) bool {
	return target == ErrQueryFailed
}

// Query selects scenes of one collection
type Query struct {
	Collection string
	Start      time.Time // Inclusive
	End        time.Time // Exclusive
	Bound      *s2.Rect  // Nil means no footprint filter
	Bands      []string  // Nil means every band the archive has
}

// Matches reports whether a scene acquired at t with footprint fp is selected
func (q Query) Matches(t time.Time, fp *s2.Rect) bool {
	if t.Before(q.Start) || !t.Before(q.End) {
		return false
	}
	if q.Bound != nil && fp != nil && !q.Bound.Intersects(*fp) {
		return false
	}
	return true
}

// WantsBand reports whether the query requests a band
func (q Query) WantsBand(name string) bool {
	if len(q.Bands) == 0 {
		return true
	}
	for _, b := range q.Bands {
		if b == name {
			return true
		}
	}
	return false
}

// Scene is one acquisition resampled onto the archive's target grid
type Scene struct {
	ID            string
	Acquired      time.Time
	CloudFraction *float64 // Percent; nil when the metadata lacks it
	Footprint     *s2.Rect
	Image         raster.Image
}

// Archive is the imagery source the compositor reads from
type Archive interface {
	Query(ctx context.Context, q Query) ([]Scene, error)
}

// SortScenes orders scenes by acquisition time, then id
func SortScenes(scenes []Scene) {
	sort.SliceStable(scenes, func(i, j int) bool {
		if !scenes[i].Acquired.Equal(scenes[j].Acquired) {
			return scenes[i].Acquired.Before(scenes[j].Acquired)
		}
		return scenes[i].ID < scenes[j].ID
	})
}

// Fraction returns a pointer to v, for building scenes
func Fraction(v float64) *float64 {
	return &v
}
