package models

import "time"

// Run is one multi-year green-area estimation request
type Run struct {
	ID string `json:"id" db:"id"` // UUID

	// Plan
	FirstYear   int       `json:"first_year" db:"first_year"`
	LastYear    int       `json:"last_year" db:"last_year"`
	SeasonStart string    `json:"season_start" db:"season_start"` // MM-DD, inclusive
	SeasonEnd   string    `json:"season_end" db:"season_end"`     // MM-DD, exclusive
	Sensors     []string  `json:"sensors" db:"-"`
	Thresholds  []float64 `json:"thresholds" db:"-"`
	PlanJSON    string    `json:"-" db:"plan_json"`

	// Status
	Status          string `json:"status" db:"status"` // pending, running, completed, partial, failed
	ProgressPercent int    `json:"progress_percent" db:"progress_percent"`
	TotalTasks      int    `json:"total_tasks" db:"total_tasks"`
	CompletedTasks  int    `json:"completed_tasks" db:"completed_tasks"`
	FailedTasks     int    `json:"failed_tasks" db:"failed_tasks"`
	StartTime       int64  `json:"start_time,omitempty" db:"start_time"` // Unix timestamp
	EndTime         int64  `json:"end_time,omitempty" db:"end_time"`     // Unix timestamp
	ErrorMessage    string `json:"error_message,omitempty" db:"error_message"`

	// Metadata
	CreatedBy string    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RunTask is the (sensor, year) unit of work of a run
type RunTask struct {
	ID           int64  `json:"id" db:"id"`
	RunID        string `json:"run_id" db:"run_id"`
	Sensor       string `json:"sensor" db:"sensor"`
	Year         int    `json:"year" db:"year"`
	Status       string `json:"status" db:"status"` // pending, running, completed, failed
	Attempts     int    `json:"attempts" db:"attempts"`
	Scenes       int    `json:"scenes" db:"scenes"`
	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`
	StartTime    int64  `json:"start_time,omitempty" db:"start_time"`
	EndTime      int64  `json:"end_time,omitempty" db:"end_time"`
}

// AreaRecord is the green area of one region for one sensor, threshold and year
type AreaRecord struct {
	RunID       string  `json:"run_id,omitempty" db:"run_id"`
	Code        string  `json:"code" db:"code"`
	Name        string  `json:"name_eng" db:"name_eng"`
	AreaM2      float64 `json:"area_m2" db:"area_m2"`
	Year        int     `json:"year" db:"year"`
	Sensor      string  `json:"sensor" db:"sensor"`
	Threshold   float64 `json:"threshold" db:"threshold"` // Fractional NDVI
	GreenPixels int     `json:"green_pixels" db:"green_pixels"`
	ValidPixels int     `json:"valid_pixels" db:"valid_pixels"`
}

// Observed reports whether any valid pixel covered the region
func (r AreaRecord) Observed() bool {
	return r.ValidPixels > 0
}

// Failure records a (sensor, year) task that produced no rows
type Failure struct {
	Sensor   string `json:"sensor"`
	Year     int    `json:"year"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

// RunStatus constants
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusPartial   = "partial" // Completed with failed tasks
	RunStatusFailed    = "failed"
)

// TaskStatus constants
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)
