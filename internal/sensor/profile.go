package sensor

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/jengzang/greenarea-go/internal/qa"
)

// Encoding describes how a sensor stores its vegetation index
type Encoding int

const (
	// Fractional indexes are physical values in [-1, 1]
	Fractional Encoding = iota
	// ScaledInteger indexes are integers; physical = native * IndexScale
	ScaledInteger
)

func (e Encoding) String() string {
	switch e {
	case Fractional:
		return "fractional"
	case ScaledInteger:
		return "scaled-integer"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// ErrUnknownProfile is returned by Lookup for names that were never registered
var ErrUnknownProfile = errors.New("unknown sensor profile")

// ErrThresholdRange is returned when a threshold cannot be expressed in a
// sensor's native encoding
var ErrThresholdRange = errors.New("threshold outside sensor encoding range")

// Profile is the static description of one imagery source
type Profile struct {
	Name         string // Registry key, e.g. "landsat8"
	Collection   string // Archive collection id
	ExportPrefix string // File name prefix, e.g. "Landsat"

	// Index inputs: NDVI = (NIR - Red) / (NIR + Red)
	RedBand   string
	NIRBand   string
	IndexBand string // Set when the product ships a precomputed index

	QABand          string
	QABitWidth      int
	ProbabilityBand string // Optional auxiliary cloud probability band
	Mask            qa.Decoder

	// Digital value to physical reflectance
	Scale  float64
	Offset float64

	PixelSize float64 // Nominal ground pixel side length in meters

	Encoding   Encoding
	IndexScale float64    // Only for ScaledInteger
	IndexRange [2]float64 // Native valid index range

	CloudProperty string // Scene metadata attribute holding cloud fraction
}

// Bands returns the reflectance or index bands that get composited
func (p Profile) Bands() []string {
	if p.IndexBand != "" {
		return []string{p.IndexBand}
	}
	return []string{p.RedBand, p.NIRBand}
}

// PixelArea returns the area of one pixel in square meters
func (p Profile) PixelArea() float64 {
	return p.PixelSize * p.PixelSize
}

// NativeThreshold converts a fractional NDVI threshold into the sensor's
// native index units. Scaled integer encodings are rounded to the nearest
// integer so 0.6 at scale 0.0001 resolves to exactly 6000.
func (p Profile) NativeThreshold(fraction float64) (float64, error) {
	if math.IsNaN(fraction) || fraction < -1 || fraction > 1 {
		return 0, fmt.Errorf("%w: %s: %v not in [-1, 1]", ErrThresholdRange, p.Name, fraction)
	}

	native := fraction
	if p.Encoding == ScaledInteger {
		native = math.Round(fraction / p.IndexScale)
	}

	if native < p.IndexRange[0] || native > p.IndexRange[1] {
		return 0, fmt.Errorf("%w: %s: %v (native %v) not in [%v, %v]",
			ErrThresholdRange, p.Name, fraction, native, p.IndexRange[0], p.IndexRange[1])
	}
	return native, nil
}

// Validate checks that the profile is internally consistent
func (p Profile) Validate() error {
	if p.Name == "" {
		return errors.New("profile name is required")
	}
	if p.IndexBand == "" && (p.RedBand == "" || p.NIRBand == "") {
		return fmt.Errorf("profile %s: red and nir bands are required without an index band", p.Name)
	}
	if p.QABand == "" && p.ProbabilityBand == "" {
		return fmt.Errorf("profile %s: a quality or probability band is required", p.Name)
	}
	if p.Mask == nil {
		return fmt.Errorf("profile %s: mask decoder is required", p.Name)
	}
	if p.Scale == 0 {
		return fmt.Errorf("profile %s: scale must be non-zero", p.Name)
	}
	if p.PixelSize <= 0 {
		return fmt.Errorf("profile %s: pixel size must be positive", p.Name)
	}
	if p.Encoding == ScaledInteger && p.IndexScale <= 0 {
		return fmt.Errorf("profile %s: scaled integer encoding needs a positive index scale", p.Name)
	}
	if p.IndexRange[0] >= p.IndexRange[1] {
		return fmt.Errorf("profile %s: invalid index range %v", p.Name, p.IndexRange)
	}
	return nil
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Profile)
)

// Register adds a profile to the registry. Registering the same name twice
// or an invalid profile panics, since profiles are registered from init().
func Register(p Profile) {
	if err := p.Validate(); err != nil {
		panic(err)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[p.Name]; exists {
		panic(fmt.Sprintf("sensor profile %q registered twice", p.Name))
	}
	registry[p.Name] = p.clone()
}

// Lookup returns the registered profile for a name
func Lookup(name string) (Profile, error) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := registry[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p.clone(), nil
}

// MustLookup is like Lookup but panics for unknown names
func MustLookup(name string) Profile {
	p, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return p
}

// clone copies the profile so callers never share the decoder's slices
func (p Profile) clone() Profile {
	p.Mask = qa.Clone(p.Mask)
	return p
}

// Names returns all registered profile names in sorted order
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
