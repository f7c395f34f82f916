// Package report renders area tables and composites for inspection.
package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/jengzang/greenarea-go/internal/models"
)

// AssetsHost serves the echarts scripts of rendered pages
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// ErrNoRecords is returned when there is nothing to draw
var ErrNoRecords = errors.New("no records to draw")

// series groups area per region and year, regions ordered by code
type series struct {
	codes []string
	names map[string]string
	years []int
	area  map[int]map[string]float64 // year -> code -> m2
}

func group(records []models.AreaRecord) series {
	s := series{names: make(map[string]string), area: make(map[int]map[string]float64)}
	for _, r := range records {
		if _, ok := s.names[r.Code]; !ok {
			s.codes = append(s.codes, r.Code)
			s.names[r.Code] = r.Name
		}
		byCode, ok := s.area[r.Year]
		if !ok {
			byCode = make(map[string]float64)
			s.area[r.Year] = byCode
			s.years = append(s.years, r.Year)
		}
		byCode[r.Code] += r.AreaM2
	}
	sort.Strings(s.codes)
	sort.Ints(s.years)
	return s
}

// AreaChart writes an HTML page with one bar per region and one series per
// year. Areas are drawn in km².
func AreaChart(w io.Writer, title string, records []models.AreaRecord) error {
	if len(records) == 0 {
		return ErrNoRecords
	}
	s := group(records)

	labels := make([]string, len(s.codes))
	for i, code := range s.codes {
		labels[i] = s.names[code]
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "720px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("regions=%d years=%d", len(s.codes), len(s.years))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "km²"}),
	)
	bar.SetXAxis(labels)
	for _, year := range s.years {
		data := make([]opts.BarData, len(s.codes))
		for i, code := range s.codes {
			data[i] = opts.BarData{Value: km2(s.area[year][code])}
		}
		bar.AddSeries(strconv.Itoa(year), data)
	}

	page := components.NewPage()
	page.SetAssetsHost(AssetsHost)
	page.AddCharts(bar)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

func km2(m2 float64) float64 {
	return m2 / 1e6
}
