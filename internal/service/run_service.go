package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jengzang/greenarea-go/internal/export"
	"github.com/jengzang/greenarea-go/internal/models"
	"github.com/jengzang/greenarea-go/internal/pipeline"
	"github.com/jengzang/greenarea-go/internal/report"
	"github.com/jengzang/greenarea-go/internal/repository"
)

// RunRequest is the body of a run submission; zero fields take the
// service defaults
type RunRequest struct {
	FirstYear  int              `json:"first_year"`
	LastYear   int              `json:"last_year"`
	Season     *pipeline.Season `json:"season,omitempty"`
	Sensors    []string         `json:"sensors,omitempty"`
	Thresholds []float64        `json:"thresholds,omitempty"`
	Workers    int              `json:"workers,omitempty"`
}

// RunService creates runs and executes them in the background
type RunService struct {
	runs     *repository.RunRepository
	tasks    *repository.RunTaskRepository
	records  *repository.AreaRecordRepository
	runner   pipeline.Runner
	defaults pipeline.Plan

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunService creates a new run service. runner is copied per run; its
// Observer is replaced.
func NewRunService(
	runs *repository.RunRepository,
	tasks *repository.RunTaskRepository,
	records *repository.AreaRecordRepository,
	runner pipeline.Runner,
	defaults pipeline.Plan,
) *RunService {
	ctx, cancel := context.WithCancel(context.Background())
	return &RunService{
		runs:     runs,
		tasks:    tasks,
		records:  records,
		runner:   runner,
		defaults: defaults,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// PlanFor fills a request with the service defaults
func (s *RunService) PlanFor(req RunRequest) pipeline.Plan {
	plan := s.defaults
	if req.FirstYear != 0 {
		plan.FirstYear = req.FirstYear
	}
	if req.LastYear != 0 {
		plan.LastYear = req.LastYear
	}
	if req.Season != nil {
		plan.Season = *req.Season
	}
	if len(req.Sensors) > 0 {
		plan.Sensors = req.Sensors
	}
	if len(req.Thresholds) > 0 {
		plan.Thresholds = req.Thresholds
	}
	if req.Workers != 0 {
		plan.Workers = req.Workers
	}
	return plan
}

// CreateRun stores a run with its pending tasks and starts it
func (s *RunService) CreateRun(req RunRequest, createdBy string) (*models.Run, error) {
	plan := s.PlanFor(req)
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	planJSON, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize plan: %w", err)
	}

	tasks := plan.Tasks()
	run := &models.Run{
		ID:          uuid.NewString(),
		FirstYear:   plan.FirstYear,
		LastYear:    plan.LastYear,
		SeasonStart: plan.Season.Start,
		SeasonEnd:   plan.Season.End,
		Sensors:     plan.Sensors,
		Thresholds:  plan.Thresholds,
		PlanJSON:    string(planJSON),
		Status:      models.RunStatusPending,
		TotalTasks:  len(tasks),
		CreatedBy:   createdBy,
	}
	if err := s.runs.Create(run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	rows := make([]*models.RunTask, len(tasks))
	for i, t := range tasks {
		rows[i] = &models.RunTask{RunID: run.ID, Sensor: t.Sensor, Year: t.Year, Status: models.TaskStatusPending}
	}
	if err := s.tasks.CreateBatch(rows); err != nil {
		s.runs.MarkAsFailed(run.ID, err.Error())
		return nil, fmt.Errorf("failed to create run tasks: %w", err)
	}

	s.wg.Add(1)
	go s.execute(run.ID, plan)

	return run, nil
}

// execute runs the plan and stores its outcome
func (s *RunService) execute(runID string, plan pipeline.Plan) {
	defer s.wg.Done()
	log.Printf("[RunService] Starting run %s", runID)

	if err := s.runs.MarkAsRunning(runID); err != nil {
		log.Printf("[RunService] %v", err)
	}

	runner := s.runner
	runner.Observer = &runObserver{
		runs:  s.runs,
		tasks: s.tasks,
		runID: runID,
		total: len(plan.Tasks()),
	}

	res, err := runner.Run(s.ctx, plan)
	if err != nil {
		log.Printf("[RunService] Run %s failed: %v", runID, err)
		s.runs.MarkAsFailed(runID, fmt.Sprintf("Run failed: %v", err))
		return
	}

	if err := s.records.InsertBatch(runID, res.Records); err != nil {
		log.Printf("[RunService] Run %s: %v", runID, err)
		s.runs.MarkAsFailed(runID, err.Error())
		return
	}

	status, msg := finalStatus(len(plan.Tasks()), len(res.Failures))
	if err := s.runs.MarkAsFinished(runID, status, msg); err != nil {
		log.Printf("[RunService] %v", err)
	}
	log.Printf("[RunService] Run %s %s: %d records, %d failed tasks", runID, status, len(res.Records), len(res.Failures))
}

func finalStatus(total, failed int) (string, string) {
	switch {
	case failed == 0:
		return models.RunStatusCompleted, ""
	case failed == total:
		return models.RunStatusFailed, fmt.Sprintf("all %d tasks failed", total)
	default:
		return models.RunStatusPartial, fmt.Sprintf("%d of %d tasks failed", failed, total)
	}
}

// runObserver mirrors task progress into the store
type runObserver struct {
	runs  *repository.RunRepository
	tasks *repository.RunTaskRepository
	runID string
	total int

	mu        sync.Mutex
	completed int
	failed    int
}

func (o *runObserver) TaskStarted(t pipeline.Task) {
	if err := o.tasks.MarkAsRunning(o.runID, t.Sensor, t.Year, time.Now().Unix()); err != nil {
		log.Printf("[RunService] %v", err)
	}
}

func (o *runObserver) TaskFinished(out pipeline.Outcome) {
	row := &models.RunTask{
		RunID:    o.runID,
		Sensor:   out.Task.Sensor,
		Year:     out.Task.Year,
		Status:   models.TaskStatusCompleted,
		Attempts: out.Attempts,
		Scenes:   out.Scenes,
		EndTime:  time.Now().Unix(),
	}
	if out.Err != nil {
		row.Status = models.TaskStatusFailed
		row.ErrorMessage = out.Err.Error()
	}
	if err := o.tasks.Finish(row); err != nil {
		log.Printf("[RunService] %v", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if out.Err != nil {
		o.failed++
	} else {
		o.completed++
	}
	percent := 100
	if o.total > 0 {
		percent = (o.completed + o.failed) * 100 / o.total
	}
	if err := o.runs.UpdateProgress(o.runID, o.completed, o.failed, percent); err != nil {
		log.Printf("[RunService] %v", err)
	}
}

// GetRun returns one run
func (s *RunService) GetRun(id string) (*models.Run, error) {
	return s.runs.GetByID(id)
}

// ListRuns lists runs, newest first
func (s *RunService) ListRuns(status string, limit, offset int) ([]*models.Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.runs.List(status, limit, offset)
}

// ListTasks returns the tasks of a run
func (s *RunService) ListTasks(runID string) ([]*models.RunTask, error) {
	if _, err := s.runs.GetByID(runID); err != nil {
		return nil, err
	}
	return s.tasks.ListByRun(runID)
}

// Records returns the stored rows of a run
func (s *RunService) Records(runID string, filter repository.RecordFilter) ([]models.AreaRecord, error) {
	if _, err := s.runs.GetByID(runID); err != nil {
		return nil, err
	}
	return s.records.ListByRun(runID, filter)
}

// WriteRecordsCSV writes the rows of a run as an area table
func (s *RunService) WriteRecordsCSV(w io.Writer, runID string, filter repository.RecordFilter, extended bool) error {
	records, err := s.Records(runID, filter)
	if err != nil {
		return err
	}
	return export.WriteRecords(w, records, extended)
}

// ErrNoRecords is returned when a finished chart has no rows to draw
var ErrNoRecords = errors.New("run has no matching records")

// WriteChart renders area per region and year for one sensor and threshold
func (s *RunService) WriteChart(w io.Writer, runID string, filter repository.RecordFilter) error {
	records, err := s.Records(runID, filter)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return ErrNoRecords
	}
	title := fmt.Sprintf("Green area %s", runID)
	if filter.Sensor != "" {
		title += " " + filter.Sensor
	}
	if filter.Threshold != nil {
		title += fmt.Sprintf(" NDVI>=%g", *filter.Threshold)
	}
	return report.AreaChart(w, title, records)
}

// Wait blocks until every started run has finished
func (s *RunService) Wait() {
	s.wg.Wait()
}

// Shutdown cancels running runs and waits for them, up to ctx
func (s *RunService) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
