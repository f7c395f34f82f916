package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/greenarea-go/internal/models"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

// RunRepository handles database operations for runs
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `
	id, first_year, last_year, season_start, season_end, sensors, thresholds,
	plan_json, status, progress_percent, total_tasks, completed_tasks,
	failed_tasks, start_time, end_time, error_message, created_by,
	created_at, updated_at`

// Create inserts a new run
func (r *RunRepository) Create(run *models.Run) error {
	sensors, err := json.Marshal(run.Sensors)
	if err != nil {
		return fmt.Errorf("failed to encode sensors: %w", err)
	}
	thresholds, err := json.Marshal(run.Thresholds)
	if err != nil {
		return fmt.Errorf("failed to encode thresholds: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO runs (
			id, first_year, last_year, season_start, season_end, sensors,
			thresholds, plan_json, status, progress_percent, total_tasks,
			completed_tasks, failed_tasks, start_time, end_time,
			error_message, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query,
		run.ID,
		run.FirstYear,
		run.LastYear,
		run.SeasonStart,
		run.SeasonEnd,
		string(sensors),
		string(thresholds),
		run.PlanJSON,
		run.Status,
		run.ProgressPercent,
		run.TotalTasks,
		run.CompletedTasks,
		run.FailedTasks,
		run.StartTime,
		run.EndTime,
		run.ErrorMessage,
		run.CreatedBy,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	run.CreatedAt = now
	run.UpdatedAt = now
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*models.Run, error) {
	run := &models.Run{}
	var sensors, thresholds string
	err := s.Scan(
		&run.ID,
		&run.FirstYear,
		&run.LastYear,
		&run.SeasonStart,
		&run.SeasonEnd,
		&sensors,
		&thresholds,
		&run.PlanJSON,
		&run.Status,
		&run.ProgressPercent,
		&run.TotalTasks,
		&run.CompletedTasks,
		&run.FailedTasks,
		&run.StartTime,
		&run.EndTime,
		&run.ErrorMessage,
		&run.CreatedBy,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sensors), &run.Sensors); err != nil {
		return nil, fmt.Errorf("failed to decode sensors of run %s: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(thresholds), &run.Thresholds); err != nil {
		return nil, fmt.Errorf("failed to decode thresholds of run %s: %w", run.ID, err)
	}
	return run, nil
}

// GetByID retrieves a run by ID
func (r *RunRepository) GetByID(id string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// List retrieves runs, newest first, optionally filtered by status
func (r *RunRepository) List(status string, limit int, offset int) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`

	args := []interface{}{}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// UpdateProgress stores task counters and the progress percentage
func (r *RunRepository) UpdateProgress(id string, completed, failed, percent int) error {
	query := `
		UPDATE runs
		SET completed_tasks = ?, failed_tasks = ?, progress_percent = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, completed, failed, percent, id); err != nil {
		return fmt.Errorf("failed to update run progress: %w", err)
	}
	return nil
}

// MarkAsRunning marks a run as running
func (r *RunRepository) MarkAsRunning(id string) error {
	query := `
		UPDATE runs
		SET status = ?, start_time = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, models.RunStatusRunning, time.Now().Unix(), id); err != nil {
		return fmt.Errorf("failed to mark run as running: %w", err)
	}
	return nil
}

// MarkAsFinished sets a terminal status (completed, partial or failed)
func (r *RunRepository) MarkAsFinished(id string, status string, errorMessage string) error {
	query := `
		UPDATE runs
		SET status = ?, end_time = ?, error_message = ?,
			progress_percent = CASE WHEN ? = 'failed' THEN progress_percent ELSE 100 END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	if _, err := r.db.Exec(query, status, time.Now().Unix(), errorMessage, status, id); err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// MarkAsFailed marks a run as failed with an error message
func (r *RunRepository) MarkAsFailed(id string, errorMessage string) error {
	return r.MarkAsFinished(id, models.RunStatusFailed, errorMessage)
}
