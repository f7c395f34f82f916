package report

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/jengzang/greenarea-go/internal/classify"
	"github.com/jengzang/greenarea-go/internal/composite"
)

// Palette colors an overlay from Low to High. No-data cells are transparent.
type Palette struct {
	Low  color.RGBA
	High color.RGBA
}

// GreenPalette runs from bare soil brown to vegetation green
var GreenPalette = Palette{
	Low:  color.RGBA{R: 0xa6, G: 0x61, B: 0x1a, A: 0xff},
	High: color.RGBA{R: 0x1a, G: 0x96, B: 0x41, A: 0xff},
}

// ErrEmptyComposite is returned for composites without a grid
var ErrEmptyComposite = errors.New("composite has no observations")

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// At returns the color of t in [0, 1]
func (p Palette) At(t float64) color.RGBA {
	t = math.Max(0, math.Min(1, t))
	return color.RGBA{
		R: lerp(p.Low.R, p.High.R, t),
		G: lerp(p.Low.G, p.High.G, t),
		B: lerp(p.Low.B, p.High.B, t),
		A: lerp(p.Low.A, p.High.A, t),
	}
}

// IndexImage stretches index values over [lo, hi] in native encoding
func IndexImage(ix composite.Index, lo, hi float64, pal Palette) (*image.RGBA, error) {
	if ix.Empty() {
		return nil, ErrEmptyComposite
	}
	if !(hi > lo) {
		return nil, fmt.Errorf("invalid display range [%g, %g]", lo, hi)
	}
	g := ix.Grid()
	band := ix.Band()
	img := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			v, ok := band.At(g.Index(col, row))
			if !ok {
				continue
			}
			img.SetRGBA(col, row, pal.At((v-lo)/(hi-lo)))
		}
	}
	return img, nil
}

// MaskImage draws positive cells High and the other valid cells Low
func MaskImage(res classify.Result, pal Palette) (*image.RGBA, error) {
	if res.Empty() {
		return nil, ErrEmptyComposite
	}
	g := res.Grid()
	img := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			positive, valid := res.At(g.Index(col, row))
			switch {
			case !valid:
			case positive:
				img.SetRGBA(col, row, pal.High)
			default:
				img.SetRGBA(col, row, pal.Low)
			}
		}
	}
	return img, nil
}

// WritePNG encodes img
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
