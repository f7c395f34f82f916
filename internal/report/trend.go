package report

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/jengzang/greenarea-go/internal/models"
)

// Default trend image size
const (
	TrendWidth  = 14 * vg.Inch
	TrendHeight = 6 * vg.Inch
)

// TrendPNG writes a line per region of green area (km²) over the years
func TrendPNG(w io.Writer, title string, records []models.AreaRecord) error {
	if len(records) == 0 {
		return ErrNoRecords
	}
	s := group(records)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Year"
	p.Y.Label.Text = "Green area (km²)"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	for i, code := range s.codes {
		pts := make(plotter.XYs, 0, len(s.years))
		for _, year := range s.years {
			area, ok := s.area[year][code]
			if !ok {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(year), Y: km2(area)})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("failed to build line for %s: %w", code, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.names[code], line)
	}

	wt, err := p.WriterTo(TrendWidth, TrendHeight, "png")
	if err != nil {
		return fmt.Errorf("failed to render trend: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write trend: %w", err)
	}
	return nil
}
