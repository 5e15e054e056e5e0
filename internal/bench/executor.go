// Package bench is the core of the harness: Counter, Job, Sampler,
// Squeezer, and the Runner Executor that wires them together. It is
// grounded on harness/benchmark_runner.go's RunSuite (build every Job
// before measuring, stop every Job on every exit path) and
// harness/harness.go's Config/Run(cfg) entrypoint shape.
package bench

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/feather-lang/squeeze/internal/runnerspec"
)

// teardownBudget bounds how long Stop is given on every exit path,
// independent of the caller's context, so a cancelled run still gets
// a real chance to run its done hooks: evaluating done and releasing
// the Job happens even if the caller gave up waiting.
const teardownBudget = 30 * time.Second

// RunOptions configures a non-squeeze run.
type RunOptions struct {
	Concurrency int // worker count for non-squeeze runs; default 1
	Sample      Options
	Isolation   Bridge // nil: run locally
	Logger      *slog.Logger
}

// RunResult is one fragment's outcome: either a plain sample Result
// or, when squeeze options were given, a SqueezeResult — never both.
type RunResult struct {
	Name    string
	Sample  *Result
	Squeeze *SqueezeResult
	Faults  []RunnerFault
}

// RuntimeHandle is one fresh runtime instance prepared by a Bridge,
// bound to exactly one code fragment for the run's duration.
type RuntimeHandle interface {
	Run(ctx context.Context, spec *runnerspec.Spec, runOpts RunOptions, sqOpts *SqueezeOptions) (*RunResult, error)
}

// Bridge is the Isolation Bridge contract: prepare n fresh runtimes,
// one per fragment, and guarantee their shutdown regardless of
// outcome. The core requires only deterministic 1:1 mapping,
// guaranteed shutdown, and error surfacing equivalent to a local
// failure — implementation (process, container, remote host) is
// deliberately out of this package's concern.
type Bridge interface {
	Prepare(ctx context.Context, n int) ([]RuntimeHandle, error)
	Shutdown(ctx context.Context, handles []RuntimeHandle) error
}

// Executor is the Runner Executor: it builds one Job per code
// fragment, invokes the Sampler or Squeezer, and tears every Job down
// on every exit path.
type Executor struct {
	Logger *slog.Logger
}

// NewExecutor returns an Executor logging through logger (or
// slog.Default if nil).
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{Logger: logger}
}

// RunOne runs a single fragment: perform_benchmark if sqOpts is nil,
// perform_squeeze otherwise.
func (e *Executor) RunOne(ctx context.Context, spec *runnerspec.Spec, runOpts RunOptions, sqOpts *SqueezeOptions) (*RunResult, error) {
	results, err := e.Run(ctx, []*runnerspec.Spec{spec}, runOpts, sqOpts)
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// Compare runs multiple fragments under one synchronized Sampler
// invocation over the union of their counters. Squeezing a
// comparison is invalid configuration.
func (e *Executor) Compare(ctx context.Context, specs []*runnerspec.Spec, runOpts RunOptions) ([]*RunResult, error) {
	return e.Run(ctx, specs, runOpts, nil)
}

// Run is the shared implementation behind RunOne and Compare. If
// runOpts.Isolation is set, the call is forwarded to the Isolation
// Bridge and the local path is skipped entirely.
func (e *Executor) Run(ctx context.Context, specs []*runnerspec.Spec, runOpts RunOptions, sqOpts *SqueezeOptions) ([]*RunResult, error) {
	if len(specs) == 0 {
		return nil, &InvalidConfiguration{Reason: "no code fragments given"}
	}
	if sqOpts != nil && len(specs) > 1 {
		return nil, &InvalidConfiguration{Reason: "squeeze does not support comparing multiple fragments"}
	}
	if runOpts.Logger == nil {
		runOpts.Logger = e.Logger
	}
	if runOpts.Concurrency <= 0 {
		runOpts.Concurrency = 1
	}

	if runOpts.Isolation != nil {
		return e.runIsolated(ctx, specs, runOpts, sqOpts)
	}
	return e.runLocal(ctx, specs, runOpts, sqOpts)
}

func (e *Executor) runLocal(ctx context.Context, specs []*runnerspec.Spec, runOpts RunOptions, sqOpts *SqueezeOptions) ([]*RunResult, error) {
	jobs := make([]*Job, 0, len(specs))

	// Construct every Job before any measurement begins; construction
	// failure of any Job aborts the whole batch and stops those
	// already started.
	for _, spec := range specs {
		job, err := StartJob(spec, runOpts.Logger)
		if err != nil {
			e.stopAll(jobs)
			return nil, err
		}
		jobs = append(jobs, job)
	}
	defer e.stopAll(jobs)

	if sqOpts != nil {
		result, err := PerformSqueeze(ctx, jobs[0], runOpts.Sample, *sqOpts)
		if err != nil {
			return nil, err
		}
		return []*RunResult{{
			Name:    jobs[0].Name(),
			Squeeze: result,
			Faults:  jobs[0].Faults(),
		}}, nil
	}

	handles := make([]Handle, len(jobs))
	for i, job := range jobs {
		if err := job.SetConcurrency(ctx, runOpts.Concurrency); err != nil {
			return nil, errors.Wrapf(err, "setting concurrency for %q", job.Name())
		}
		handles[i] = job.Counter()
	}

	samples, err := PerformBenchmark(ctx, handles, runOpts.Sample)
	if err != nil {
		return nil, err
	}

	out := make([]*RunResult, len(jobs))
	for i, job := range jobs {
		s := samples[i]
		out[i] = &RunResult{Name: job.Name(), Sample: &s, Faults: job.Faults()}
	}
	return out, nil
}

func (e *Executor) stopAll(jobs []*Job) {
	if len(jobs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), teardownBudget)
	defer cancel()

	var g errgroup.Group
	for _, job := range jobs {
		job := job
		g.Go(func() error { return job.Stop(ctx) })
	}
	if err := g.Wait(); err != nil {
		e.Logger.Warn("error tearing down job", slog.String("error", err.Error()))
	}
}

func (e *Executor) runIsolated(ctx context.Context, specs []*runnerspec.Spec, runOpts RunOptions, sqOpts *SqueezeOptions) ([]*RunResult, error) {
	bridge := runOpts.Isolation

	handles, err := bridge.Prepare(ctx, len(specs))
	if err != nil {
		return nil, &IsolationStartFailed{Cause: err}
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), teardownBudget)
		defer cancel()
		if err := bridge.Shutdown(shutdownCtx, handles); err != nil {
			e.Logger.Warn("error shutting down isolated runtimes", slog.String("error", err.Error()))
		}
	}()

	out := make([]*RunResult, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	for i := range specs {
		i := i
		g.Go(func() error {
			result, err := handles[i].Run(gctx, specs[i], runOpts, sqOpts)
			if err != nil {
				return err
			}
			out[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
