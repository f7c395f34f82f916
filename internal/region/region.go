// Package region loads administrative regions and projects them into the
// planar grid of the imagery.
package region

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/jengzang/greenarea-go/internal/spatial"
)

// DefaultCodeProperty is the feature property holding the region code
const DefaultCodeProperty = "ADM_SECT_C"

// ErrDuplicateCode is returned when two features share a code
var ErrDuplicateCode = errors.New("duplicate region code")

// Region is one administrative unit
type Region struct {
	Code     string
	Name     string
	Geometry orb.MultiPolygon     // Lon/lat
	Planar   spatial.MultiPolygon // Projected into the grid CRS
}

// Contains reports whether a planar point lies in the region
func (r Region) Contains(x, y float64) bool {
	return r.Planar.Contains(spatial.XY{X: x, Y: y})
}

// Options controls how features become regions
type Options struct {
	CodeProperty string // Defaults to DefaultCodeProperty
	Names        Names  // Defaults to SeoulDistricts
	EPSG         int    // Planar CRS, a WGS84 UTM zone
}

// Collection is an immutable, code-ordered set of regions
type Collection struct {
	regions []Region
	proj    spatial.UTM
	bounds  spatial.Bounds
	bbox    orb.Bound
}

// LoadGeoJSON reads a FeatureCollection of Polygon/MultiPolygon features
func LoadGeoJSON(r io.Reader, opts Options) (*Collection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read regions: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regions: %w", err)
	}
	return FromFeatures(fc.Features, opts)
}

// FromFeatures builds a collection from already decoded features
func FromFeatures(features []*geojson.Feature, opts Options) (*Collection, error) {
	if opts.CodeProperty == "" {
		opts.CodeProperty = DefaultCodeProperty
	}
	if opts.Names == nil {
		opts.Names = SeoulDistricts()
	}
	proj, err := spatial.UTMFromEPSG(opts.EPSG)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(features))
	regions := make([]Region, 0, len(features))
	for i, f := range features {
		code, err := codeOf(f.Properties[opts.CodeProperty])
		if err != nil {
			return nil, fmt.Errorf("feature %d: %s: %w", i, opts.CodeProperty, err)
		}
		if seen[code] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, code)
		}
		seen[code] = true

		var mp orb.MultiPolygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			mp = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			mp = g
		default:
			return nil, fmt.Errorf("feature %s: unsupported geometry %T", code, f.Geometry)
		}

		regions = append(regions, Region{
			Code:     code,
			Name:     opts.Names.Name(code),
			Geometry: mp,
			Planar:   project(proj, mp),
		})
	}
	return NewCollection(proj, regions), nil
}

// NewCollection sorts regions by code and freezes them
func NewCollection(proj spatial.UTM, regions []Region) *Collection {
	sorted := make([]Region, len(regions))
	copy(sorted, regions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	c := &Collection{regions: sorted, proj: proj, bounds: spatial.EmptyBounds()}
	first := true
	for _, r := range sorted {
		c.bounds = c.bounds.Union(r.Planar.Bounds())
		if len(r.Geometry) == 0 {
			continue
		}
		if first {
			c.bbox = r.Geometry.Bound()
			first = false
		} else {
			c.bbox = c.bbox.Union(r.Geometry.Bound())
		}
	}
	return c
}

func project(proj spatial.UTM, mp orb.MultiPolygon) spatial.MultiPolygon {
	out := make(spatial.MultiPolygon, 0, len(mp))
	for _, poly := range mp {
		if len(poly) == 0 {
			continue
		}
		p := spatial.Polygon{Outer: projectRing(proj, poly[0])}
		for _, hole := range poly[1:] {
			p.Holes = append(p.Holes, projectRing(proj, hole))
		}
		out = append(out, p)
	}
	return out
}

func projectRing(proj spatial.UTM, ring orb.Ring) spatial.Ring {
	out := make(spatial.Ring, len(ring))
	for i, pt := range ring {
		out[i] = proj.Forward(spatial.LonLat{Lon: pt.Lon(), Lat: pt.Lat()})
	}
	return out
}

func codeOf(v interface{}) (string, error) {
	switch c := v.(type) {
	case string:
		if c == "" {
			return "", errors.New("empty code")
		}
		return c, nil
	case float64:
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return "", fmt.Errorf("invalid code %v", c)
		}
		return strconv.FormatFloat(c, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(c), nil
	case int64:
		return strconv.FormatInt(c, 10), nil
	case nil:
		return "", errors.New("missing code")
	default:
		return "", fmt.Errorf("unsupported code type %T", v)
	}
}

// Regions returns the regions in code order
func (c *Collection) Regions() []Region {
	out := make([]Region, len(c.regions))
	copy(out, c.regions)
	return out
}

// Len returns the number of regions
func (c *Collection) Len() int {
	return len(c.regions)
}

// Lookup finds a region by code
func (c *Collection) Lookup(code string) (Region, bool) {
	i := sort.Search(len(c.regions), func(i int) bool { return c.regions[i].Code >= code })
	if i < len(c.regions) && c.regions[i].Code == code {
		return c.regions[i], true
	}
	return Region{}, false
}

// Projection returns the planar CRS of the collection
func (c *Collection) Projection() spatial.UTM {
	return c.proj
}

// PlanarBounds returns the planar bounding box of all regions
func (c *Collection) PlanarBounds() spatial.Bounds {
	return c.bounds
}

// Bound returns the lon/lat bounding rectangle of all regions
func (c *Collection) Bound() s2.Rect {
	if len(c.regions) == 0 {
		return s2.EmptyRect()
	}
	return spatial.RectFromBBox([4]float64{c.bbox.Min.Lon(), c.bbox.Min.Lat(), c.bbox.Max.Lon(), c.bbox.Max.Lat()})
}

// ContainsXY reports whether a planar point lies in any region
func (c *Collection) ContainsXY(x, y float64) bool {
	p := spatial.XY{X: x, Y: y}
	if !c.bounds.Contains(p) {
		return false
	}
	for _, r := range c.regions {
		if r.Planar.Contains(p) {
			return true
		}
	}
	return false
}
