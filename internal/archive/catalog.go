package archive

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"io"
	"time"

	"github.com/golang/geo/s2"
	"golang.org/x/image/tiff"

	"github.com/jengzang/greenarea-go/internal/raster"
	"github.com/jengzang/greenarea-go/internal/spatial"
)

// Catalog lists the scenes of one collection
type Catalog struct {
	Scenes []CatalogScene `json:"scenes"`
}

// CatalogScene is one scene entry of a catalog
type CatalogScene struct {
	ID            string               `json:"id"`
	Acquired      time.Time            `json:"acquired"`
	CloudFraction *float64             `json:"cloud_fraction,omitempty"`
	BBox          *[4]float64          `json:"bbox,omitempty"` // minLon, minLat, maxLon, maxLat
	Grid          raster.Grid          `json:"grid"`
	Bands         map[string]BandEntry `json:"bands"`
}

// BandEntry locates one band raster
type BandEntry struct {
	File   string   `json:"file,omitempty"` // Relative to the collection directory
	URL    string   `json:"url,omitempty"`
	Signed bool     `json:"signed,omitempty"` // 16-bit samples are two's complement
	NoData *float64 `json:"nodata,omitempty"`
}

// Footprint returns the scene's lon/lat footprint, if the catalog has one
func (s CatalogScene) Footprint() *s2.Rect {
	if s.BBox == nil {
		return nil
	}
	r := spatial.RectFromBBox(*s.BBox)
	return &r
}

// ParseCatalog decodes a catalog document
func ParseCatalog(r io.Reader) (Catalog, error) {
	var c Catalog
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return Catalog{}, fmt.Errorf("failed to decode catalog: %w", err)
	}
	for _, s := range c.Scenes {
		if s.ID == "" {
			return Catalog{}, fmt.Errorf("catalog scene without id")
		}
		if err := s.Grid.Validate(); err != nil {
			return Catalog{}, fmt.Errorf("scene %s: %w", s.ID, err)
		}
	}
	return c, nil
}

// DecodeBand reads a single-band TIFF sized to the grid
func DecodeBand(r io.Reader, entry BandEntry, g raster.Grid) (raster.Band, error) {
	img, err := tiff.Decode(r)
	if err != nil {
		return raster.Band{}, fmt.Errorf("failed to decode tiff: %w", err)
	}

	b := img.Bounds()
	if b.Dx() != g.Width || b.Dy() != g.Height {
		return raster.Band{}, fmt.Errorf("raster is %dx%d, grid is %dx%d", b.Dx(), b.Dy(), g.Width, g.Height)
	}

	values := make([]float64, g.Len())
	valid := make([]bool, g.Len())
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			v := sample(img, b.Min.X+col, b.Min.Y+row, entry.Signed)
			i := g.Index(col, row)
			values[i] = v
			valid[i] = entry.NoData == nil || v != *entry.NoData
		}
	}
	return raster.NewBand(values, valid)
}

func sample(img image.Image, x, y int, signed bool) float64 {
	var raw uint16
	switch m := img.(type) {
	case *image.Gray16:
		raw = m.Gray16At(x, y).Y
	case *image.Gray:
		return float64(m.GrayAt(x, y).Y)
	default:
		raw = color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y
	}
	if signed {
		return float64(int16(raw))
	}
	return float64(raw)
}
