package denormalize

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ougirez/databaker/internal/domain"
	"github.com/ougirez/databaker/internal/pkg/bakecache"
	"github.com/ougirez/databaker/internal/pkg/countries"
	"github.com/ougirez/databaker/internal/pkg/logger"
	"github.com/ougirez/databaker/internal/pkg/store"
	"github.com/ougirez/databaker/internal/service/indicators"
	"go.uber.org/zap"
)

// DefaultWindow is the year range country profiles read their latest values from.
var DefaultWindow = domain.YearWindow{After: 2010, Before: 2020}

type Result struct {
	VariableIDs      []int64
	RowsWritten      int
	Dropped          indicators.Dropped
	MissingCountries []string
	Duration         time.Duration
}

// Outcome is delivered on the channel returned by Job.Start.
type Outcome struct {
	Result Result
	Err    error
}

// Status describes runs in progress and the most recent finished run.
type Status struct {
	Running    int
	Last       *Outcome
	FinishedAt time.Time
}

// Job materializes country_latest_data.
//
// All runs of one Job are serialized; the store additionally takes an advisory
// transaction lock so jobs in other processes do not interleave with this one.
type Job struct {
	store     store.Store
	countries *countries.List
	window    domain.YearWindow

	runMx sync.Mutex
	wg    sync.WaitGroup

	statusMx   sync.Mutex
	running    int
	last       *Outcome
	finishedAt time.Time
}

type Option func(*Job)

func WithWindow(w domain.YearWindow) Option {
	return func(j *Job) {
		j.window = w
	}
}

func NewJob(store store.Store, countries *countries.List, opts ...Option) *Job {
	j := &Job{
		store:     store,
		countries: countries,
		window:    DefaultWindow,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Materialize replaces the latest values of variableIDs. When variableIDs is nil, the
// variables of every country-profile indicator chart are used.
//
// Old rows are deleted and new ones inserted in one transaction; on failure nothing changes.
func (j *Job) Materialize(ctx context.Context, variableIDs []int64) (res Result, err error) {
	j.statusMx.Lock()
	j.running++
	j.statusMx.Unlock()
	defer func() {
		j.finished(Outcome{Result: res, Err: err})
	}()

	j.runMx.Lock()
	defer j.runMx.Unlock()

	return j.materialize(ctx, variableIDs)
}

func (j *Job) finished(o Outcome) {
	j.statusMx.Lock()
	defer j.statusMx.Unlock()
	j.running--
	j.last = &o
	j.finishedAt = time.Now()
}

// Status reports the most recent finished run, awaited or not.
func (j *Job) Status() Status {
	j.statusMx.Lock()
	defer j.statusMx.Unlock()
	return Status{Running: j.running, Last: j.last, FinishedAt: j.finishedAt}
}

func (j *Job) materialize(ctx context.Context, variableIDs []int64) (Result, error) {
	started := time.Now()

	entities, err := j.store.ListValidatedEntities(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("store.ListValidatedEntities: %w", err)
	}

	lookup, missing := indicators.NewEntityLookup(entities).Restrict(j.countries.Codes())
	if len(missing) > 0 {
		logger.Warnf(ctx, "denormalize: %d reference countries have no validated entity: %v", len(missing), missing)
	}

	if variableIDs == nil {
		// fresh cache per run, chart edits must be picked up by the next run
		variableIDs, err = indicators.NewService(j.store, bakecache.New()).IndicatorVariableIDs(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("indicators.IndicatorVariableIDs: %w", err)
		}
	}

	values, err := j.store.ListDataValues(ctx, store.ListDataValuesOpts{
		VariableIDs: variableIDs,
		EntityIDs:   lookup.IDs(),
		Window:      j.window,
	})
	if err != nil {
		return Result{}, fmt.Errorf("store.ListDataValues: %w", err)
	}

	index, dropped := indicators.BuildLatestValuesIndex(values, j.window, lookup, variableIDs)
	if dropped.Orphans() > 0 {
		logger.Warnf(ctx, "denormalize: dropped orphaned data values (%s)", dropped)
	}

	grouped, unknown := indicators.GroupLatestByEntityCode(index, lookup)
	dropped.UnknownEntity += unknown
	rows := grouped.Rows()
	if err := j.store.ReplaceLatestValues(ctx, variableIDs, rows); err != nil {
		return Result{}, fmt.Errorf("store.ReplaceLatestValues: %w", err)
	}

	res := Result{
		VariableIDs:      variableIDs,
		RowsWritten:      len(rows),
		Dropped:          dropped,
		MissingCountries: missing,
		Duration:         time.Since(started),
	}
	logger.Infof(ctx, "denormalize: wrote %d rows for %d variables in %s", res.RowsWritten, len(variableIDs), res.Duration)
	return res, nil
}

// Start runs Materialize in the background. The channel receives exactly one Outcome
// and is then closed. Wait blocks until every started run has finished.
func (j *Job) Start(ctx context.Context, variableIDs []int64) <-chan Outcome {
	out := make(chan Outcome, 1)
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		defer close(out)

		res, err := j.Materialize(ctx, variableIDs)
		if err != nil {
			logger.Errorf(ctx, "denormalize: background run failed: %s", err)
		}
		out <- Outcome{Result: res, Err: err}
	}()
	return out
}

func (j *Job) Wait() {
	j.wg.Wait()
}

// Runner decides whether callers wait for materialization or let it run in the background.
type Runner struct {
	job   *Job
	await bool
}

func NewRunner(job *Job, await bool) *Runner {
	return &Runner{job: job, await: await}
}

// Run materializes variableIDs. In background mode it returns immediately with a
// zero Result; the outcome is logged and reported by Status once the run ends.
func (r *Runner) Run(ctx context.Context, variableIDs []int64) (Result, error) {
	if r.await {
		return r.job.Materialize(ctx, variableIDs)
	}

	ctx = logger.With(ctx, zap.String("mode", "background"))
	r.job.Start(context.WithoutCancel(ctx), variableIDs)
	return Result{}, nil
}

func (r *Runner) Status() Status {
	return r.job.Status()
}

func (r *Runner) Awaits() bool {
	return r.await
}

// Wait blocks until background runs started by this runner are done.
func (r *Runner) Wait() {
	r.job.Wait()
}
