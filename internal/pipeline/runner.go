package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/jengzang/greenarea-go/internal/archive"
	"github.com/jengzang/greenarea-go/internal/classify"
	"github.com/jengzang/greenarea-go/internal/composite"
	"github.com/jengzang/greenarea-go/internal/metrics"
	"github.com/jengzang/greenarea-go/internal/models"
	"github.com/jengzang/greenarea-go/internal/region"
	"github.com/jengzang/greenarea-go/internal/sensor"
	"github.com/jengzang/greenarea-go/internal/zonal"
)

// Outcome is what one task produced
type Outcome struct {
	Task     Task
	Attempts int
	Scenes   int
	Records  []models.AreaRecord
	Err      error
	Duration time.Duration
}

// Observer is notified as tasks start and finish. Calls may come from
// several goroutines.
type Observer interface {
	TaskStarted(t Task)
	TaskFinished(o Outcome)
}

// Result holds the merged rows and the failed tasks of a run
type Result struct {
	Records  []models.AreaRecord
	Failures []models.Failure
}

// Table is the rows of one (sensor, threshold) export
type Table struct {
	Sensor    string
	Threshold float64
	Records   []models.AreaRecord
}

// Tables splits the records per sensor and threshold, keeping row order
func (r Result) Tables() []Table {
	var tables []Table
	for _, rec := range r.Records {
		n := len(tables)
		if n == 0 || tables[n-1].Sensor != rec.Sensor || tables[n-1].Threshold != rec.Threshold {
			tables = append(tables, Table{Sensor: rec.Sensor, Threshold: rec.Threshold})
			n++
		}
		tables[n-1].Records = append(tables[n-1].Records, rec)
	}
	return tables
}

// Runner executes plans against an archive and a region collection
type Runner struct {
	Compositor composite.Compositor
	Regions    *region.Collection
	Metrics    *metrics.PipelineMetrics // Optional
	Observer   Observer                 // Optional
}

// DefaultWorkers is the pool size when a plan leaves Workers at zero
const DefaultWorkers = 4

// Run executes every task of the plan. Failed tasks are reported in
// Result.Failures; Run itself only fails on an invalid plan or when ctx is
// cancelled.
func (r *Runner) Run(ctx context.Context, plan Plan) (Result, error) {
	if err := plan.Validate(); err != nil {
		return Result{}, err
	}
	if r.Regions == nil {
		return Result{}, errors.New("runner has no regions")
	}

	workers := plan.Workers
	if workers == 0 {
		workers = DefaultWorkers
	}

	if r.Metrics != nil {
		r.Metrics.RunStarted()
		defer r.Metrics.RunFinished()
	}

	tasks := plan.Tasks()
	outcomes := make([]Outcome, len(tasks))

	log.Printf("[Pipeline] Running %d tasks (%d sensors, years %d-%d, %d thresholds) on %d workers",
		len(tasks), len(plan.Sensors), plan.FirstYear, plan.LastYear, len(plan.Thresholds), workers)

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		i, task := i, task
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcomes[i] = r.runTask(ctx, plan, task)
			return nil
		})
	}
	waitErr := g.Wait()

	if err := ctx.Err(); err != nil {
		log.Printf("[Pipeline] Run cancelled: %v", err)
		return Result{}, err
	}
	if waitErr != nil {
		return Result{}, waitErr
	}

	return merge(plan, outcomes), nil
}

// merge orders rows by (sensor order, threshold, year, code)
func merge(plan Plan, outcomes []Outcome) Result {
	order := make(map[string]int, len(plan.Sensors))
	for i, s := range plan.Sensors {
		order[s] = i
	}

	var res Result
	for _, o := range outcomes {
		if o.Err != nil {
			res.Failures = append(res.Failures, models.Failure{
				Sensor:   o.Task.Sensor,
				Year:     o.Task.Year,
				Attempts: o.Attempts,
				Error:    o.Err.Error(),
			})
			continue
		}
		res.Records = append(res.Records, o.Records...)
	}

	sort.SliceStable(res.Records, func(i, j int) bool {
		a, b := res.Records[i], res.Records[j]
		if order[a.Sensor] != order[b.Sensor] {
			return order[a.Sensor] < order[b.Sensor]
		}
		if a.Threshold != b.Threshold {
			return a.Threshold < b.Threshold
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Code < b.Code
	})
	sort.SliceStable(res.Failures, func(i, j int) bool {
		a, b := res.Failures[i], res.Failures[j]
		if order[a.Sensor] != order[b.Sensor] {
			return order[a.Sensor] < order[b.Sensor]
		}
		return a.Year < b.Year
	})
	return res
}

func (r *Runner) runTask(ctx context.Context, plan Plan, task Task) Outcome {
	started := time.Now()
	if r.Observer != nil {
		r.Observer.TaskStarted(task)
	}

	out := r.execute(ctx, plan, task)
	out.Task = task
	out.Duration = time.Since(started)

	if out.Err != nil {
		log.Printf("[Pipeline] Task %s failed after %d attempts: %v", task, out.Attempts, out.Err)
	} else {
		log.Printf("[Pipeline] Task %s completed: %d scenes, %d rows in %v", task, out.Scenes, len(out.Records), out.Duration)
	}

	if r.Metrics != nil {
		r.Metrics.RecordTask(task.Sensor, out.Err == nil, out.Duration)
		if out.Err == nil {
			r.Metrics.RecordScenes(task.Sensor, out.Scenes)
			r.Metrics.RecordRecords(task.Sensor, len(out.Records))
		}
	}
	if r.Observer != nil {
		r.Observer.TaskFinished(out)
	}
	return out
}

func (r *Runner) execute(ctx context.Context, plan Plan, task Task) Outcome {
	var out Outcome

	profile, err := sensor.Lookup(task.Sensor)
	if err != nil {
		out.Err = err
		return out
	}
	start, end, err := plan.Season.Window(task.Year)
	if err != nil {
		out.Err = err
		return out
	}
	window := composite.Window{Start: start, End: end, ROI: r.Regions}

	ix, attempts, err := r.compositeWithRetry(ctx, plan, profile, window)
	out.Attempts = attempts
	if err != nil {
		out.Err = err
		return out
	}
	out.Scenes = len(ix.Scenes())

	for _, th := range plan.Thresholds {
		native, err := profile.NativeThreshold(th)
		if err != nil {
			out.Err = err
			return out
		}
		stats, err := zonal.Aggregate(classify.Threshold(ix, native), profile.PixelSize, r.Regions)
		if err != nil {
			out.Err = fmt.Errorf("failed to aggregate: %w", err)
			return out
		}
		for _, s := range stats {
			out.Records = append(out.Records, models.AreaRecord{
				Code:        s.Code,
				Name:        s.Name,
				AreaM2:      s.AreaM2,
				Year:        task.Year,
				Sensor:      profile.Name,
				Threshold:   th,
				GreenPixels: s.Positive,
				ValidPixels: s.Valid,
			})
		}
	}
	return out
}

// retryable reports whether a composite error is worth another attempt
func retryable(ctx context.Context, err error) bool {
	if errors.Is(err, archive.ErrQueryFailed) {
		return true
	}
	// The attempt timed out while the run itself is still live
	return errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil
}

func (r *Runner) compositeWithRetry(ctx context.Context, plan Plan, p sensor.Profile, w composite.Window) (composite.Index, int, error) {
	policy := plan.Retry
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	exp := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		exp.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		exp.MaxInterval = policy.MaxInterval
	}
	exp.MaxElapsedTime = 0

	var (
		ix       composite.Index
		attempts int
	)
	op := func() error {
		attempts++
		actx := ctx
		if plan.TaskTimeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, plan.TaskTimeout)
			defer cancel()
		}

		result, err := r.Compositor.Composite(actx, p, w)
		if err == nil {
			ix = result
			return nil
		}
		if !retryable(ctx, err) {
			return backoff.Permanent(err)
		}
		if attempts < policy.MaxAttempts {
			log.Printf("[Pipeline] %s %d: attempt %d failed, retrying: %v", p.Name, w.Start.Year(), attempts, err)
			if r.Metrics != nil {
				r.Metrics.RecordRetry(p.Name)
			}
		}
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(policy.MaxAttempts-1)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return composite.Index{}, attempts, err
	}
	return ix, attempts, nil
}
