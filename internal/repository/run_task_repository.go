package repository

import (
	"database/sql"
	"fmt"

	"github.com/jengzang/greenarea-go/internal/database"
	"github.com/jengzang/greenarea-go/internal/models"
)

// RunTaskRepository handles the (sensor, year) tasks of runs
type RunTaskRepository struct {
	db *sql.DB
}

// NewRunTaskRepository creates a new run task repository
func NewRunTaskRepository(db *sql.DB) *RunTaskRepository {
	return &RunTaskRepository{db: db}
}

// CreateBatch inserts pending tasks in one transaction
func (r *RunTaskRepository) CreateBatch(tasks []*models.RunTask) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO run_tasks (run_id, sensor, year, status, attempts, scenes, error_message, start_time, end_time)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, t := range tasks {
			res, err := stmt.Exec(t.RunID, t.Sensor, t.Year, t.Status, t.Attempts, t.Scenes, t.ErrorMessage, t.StartTime, t.EndTime)
			if err != nil {
				return fmt.Errorf("failed to create task %s/%d: %w", t.Sensor, t.Year, err)
			}
			if t.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("failed to get last insert id: %w", err)
			}
		}
		return nil
	})
}

// ListByRun returns the tasks of a run ordered by id
func (r *RunTaskRepository) ListByRun(runID string) ([]*models.RunTask, error) {
	rows, err := r.db.Query(`
		SELECT id, run_id, sensor, year, status, attempts, scenes, error_message, start_time, end_time
		FROM run_tasks
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list run tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.RunTask
	for rows.Next() {
		t := &models.RunTask{}
		if err := rows.Scan(&t.ID, &t.RunID, &t.Sensor, &t.Year, &t.Status, &t.Attempts,
			&t.Scenes, &t.ErrorMessage, &t.StartTime, &t.EndTime); err != nil {
			return nil, fmt.Errorf("failed to scan run task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// MarkAsRunning marks the task of (sensor, year) as running
func (r *RunTaskRepository) MarkAsRunning(runID, sensor string, year int, startTime int64) error {
	query := `
		UPDATE run_tasks SET status = ?, start_time = ?
		WHERE run_id = ? AND sensor = ? AND year = ?
	`
	if _, err := r.db.Exec(query, models.TaskStatusRunning, startTime, runID, sensor, year); err != nil {
		return fmt.Errorf("failed to mark task as running: %w", err)
	}
	return nil
}

// Finish stores the outcome of a task
func (r *RunTaskRepository) Finish(t *models.RunTask) error {
	query := `
		UPDATE run_tasks
		SET status = ?, attempts = ?, scenes = ?, error_message = ?, end_time = ?
		WHERE run_id = ? AND sensor = ? AND year = ?
	`
	if _, err := r.db.Exec(query, t.Status, t.Attempts, t.Scenes, t.ErrorMessage, t.EndTime,
		t.RunID, t.Sensor, t.Year); err != nil {
		return fmt.Errorf("failed to finish task: %w", err)
	}
	return nil
}
