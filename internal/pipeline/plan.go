// Package pipeline runs green-area estimation over years, sensors and
// thresholds.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/greenarea-go/internal/sensor"
)

// Season is a yearly observation period given as MM-DD bounds. Start is
// inclusive and End exclusive; the period must not wrap the new year.
type Season struct {
	Start string `json:"start" yaml:"start" mapstructure:"start"`
	End   string `json:"end" yaml:"end" mapstructure:"end"`
}

// DefaultSeason is May 1 up to, but excluding, August 31
var DefaultSeason = Season{Start: "05-01", End: "08-31"}

func parseMonthDay(s string) (time.Month, int, error) {
	t, err := time.Parse("01-02", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month-day %q: %w", s, err)
	}
	// time.Date would roll Feb 29 into Mar 1 in common years
	if t.Month() == time.February && t.Day() == 29 {
		return 0, 0, fmt.Errorf("invalid month-day %q: not every year has it", s)
	}
	return t.Month(), t.Day(), nil
}

// Window returns the season of one year in UTC
func (s Season) Window(year int) (time.Time, time.Time, error) {
	sm, sd, err := parseMonthDay(s.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	em, ed, err := parseMonthDay(s.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(year, sm, sd, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, em, ed, 0, 0, 0, 0, time.UTC)
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("season %s..%s is empty or wraps the year", s.Start, s.End)
	}
	return start, end, nil
}

// RetryPolicy bounds retries of failed archive queries
type RetryPolicy struct {
	MaxAttempts     int           `json:"max_attempts" mapstructure:"max_attempts"`
	InitialInterval time.Duration `json:"initial_interval" mapstructure:"initial_interval"`
	MaxInterval     time.Duration `json:"max_interval" mapstructure:"max_interval"`
}

// DefaultRetry retries a query up to three times in total
var DefaultRetry = RetryPolicy{MaxAttempts: 3, InitialInterval: 2 * time.Second, MaxInterval: 30 * time.Second}

// Plan describes one run
type Plan struct {
	FirstYear   int           `json:"first_year"`
	LastYear    int           `json:"last_year"` // Inclusive
	Season      Season        `json:"season"`
	Sensors     []string      `json:"sensors"`    // Output order of sensors
	Thresholds  []float64     `json:"thresholds"` // Fractional NDVI
	Workers     int           `json:"workers"`
	Retry       RetryPolicy   `json:"retry"`
	TaskTimeout time.Duration `json:"task_timeout"` // Per attempt; 0 disables
}

// ErrInvalidPlan is returned by Validate
var ErrInvalidPlan = errors.New("invalid plan")

// Validate checks the plan against the sensor registry
func (p Plan) Validate() error {
	if p.FirstYear <= 0 || p.LastYear < p.FirstYear {
		return fmt.Errorf("%w: year range %d..%d", ErrInvalidPlan, p.FirstYear, p.LastYear)
	}
	if _, _, err := p.Season.Window(p.FirstYear); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	if len(p.Sensors) == 0 {
		return fmt.Errorf("%w: no sensors", ErrInvalidPlan)
	}
	if len(p.Thresholds) == 0 {
		return fmt.Errorf("%w: no thresholds", ErrInvalidPlan)
	}
	if p.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidPlan)
	}

	thresholds := make(map[float64]bool, len(p.Thresholds))
	for _, th := range p.Thresholds {
		if thresholds[th] {
			return fmt.Errorf("%w: threshold %g listed twice", ErrInvalidPlan, th)
		}
		thresholds[th] = true
	}

	seen := make(map[string]bool, len(p.Sensors))
	for _, name := range p.Sensors {
		if seen[name] {
			return fmt.Errorf("%w: sensor %s listed twice", ErrInvalidPlan, name)
		}
		seen[name] = true

		profile, err := sensor.Lookup(name)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPlan, err)
		}
		for _, th := range p.Thresholds {
			if _, err := profile.NativeThreshold(th); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidPlan, err)
			}
		}
	}
	return nil
}

// Years returns the plan's years in ascending order
func (p Plan) Years() []int {
	years := make([]int, 0, p.LastYear-p.FirstYear+1)
	for y := p.FirstYear; y <= p.LastYear; y++ {
		years = append(years, y)
	}
	return years
}

// Task is the (sensor, year) unit of work; each composites once
type Task struct {
	Sensor string
	Year   int
}

func (t Task) String() string {
	return fmt.Sprintf("%s/%d", t.Sensor, t.Year)
}

// Tasks lists every (sensor, year) pair in sensor order, then year
func (p Plan) Tasks() []Task {
	tasks := make([]Task, 0, len(p.Sensors)*(p.LastYear-p.FirstYear+1))
	for _, s := range p.Sensors {
		for _, y := range p.Years() {
			tasks = append(tasks, Task{Sensor: s, Year: y})
		}
	}
	return tasks
}
