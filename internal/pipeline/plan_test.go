package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeasonWindow(t *testing.T) {
	start, end, err := DefaultSeason.Window(2022)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2022, 8, 31, 0, 0, 0, 0, time.UTC), end)

	_, _, err = Season{Start: "11-01", End: "02-01"}.Window(2022)
	assert.Error(t, err)
	_, _, err = Season{Start: "05-01", End: "05-01"}.Window(2022)
	assert.Error(t, err)
	_, _, err = Season{Start: "5/1", End: "08-31"}.Window(2022)
	assert.Error(t, err)

	// Feb 29 would silently become Mar 1 in common years
	for _, year := range []int{2020, 2021} {
		_, _, err = Season{Start: "01-01", End: "02-29"}.Window(year)
		assert.Error(t, err, "year %d", year)
	}
}

func TestPlanValidate(t *testing.T) {
	assert.NoError(t, testPlan().Validate())

	cases := map[string]func(p *Plan){
		"reversed years":      func(p *Plan) { p.FirstYear, p.LastYear = 2024, 2020 },
		"no sensors":          func(p *Plan) { p.Sensors = nil },
		"duplicate sensor":    func(p *Plan) { p.Sensors = []string{"modis", "modis"} },
		"unknown sensor":      func(p *Plan) { p.Sensors = []string{"spot"} },
		"no thresholds":       func(p *Plan) { p.Thresholds = nil },
		"threshold too large": func(p *Plan) { p.Thresholds = []float64{1.5} },
		"below modis range":   func(p *Plan) { p.Thresholds = []float64{-0.5} },
		"wrapping season":     func(p *Plan) { p.Season = Season{Start: "12-01", End: "01-31"} },
		"negative workers":    func(p *Plan) { p.Workers = -1 },
		"duplicate threshold": func(p *Plan) { p.Thresholds = []float64{0.6, 0.5, 0.6} },
		"leap day season":     func(p *Plan) { p.Season = Season{Start: "02-29", End: "05-01"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := testPlan()
			mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidPlan)
		})
	}
}

func TestPlanTasks(t *testing.T) {
	p := testPlan()
	assert.Equal(t, []int{2020, 2021}, p.Years())
	assert.Equal(t, []Task{
		{Sensor: "landsat8", Year: 2020},
		{Sensor: "landsat8", Year: 2021},
		{Sensor: "modis", Year: 2020},
		{Sensor: "modis", Year: 2021},
	}, p.Tasks())
	assert.Equal(t, "modis/2021", p.Tasks()[3].String())
}
