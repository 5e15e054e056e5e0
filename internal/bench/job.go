package bench

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/feather-lang/squeeze/internal/runnerspec"
)

// worker is one live runner goroutine. stop is checked once per
// iteration, after the runner call and counter increment, so a
// stopping worker always finishes the invocation it is mid-way
// through.
type worker struct {
	stop atomic.Bool
	done chan struct{}
}

// Job is the exclusive owner of one runner's Counter, its set of live
// workers, its suite state S, and its configured runner spec. init
// runs exactly once before any init_runner; done runs exactly once,
// after all workers have terminated; the live worker count equals the
// last successfully-set concurrency, less any workers a runner fault
// has terminated (see LiveWorkers).
type Job struct {
	name   string
	spec   *runnerspec.Spec
	logger *slog.Logger

	counter Counter

	mu       sync.Mutex // serializes set_concurrency
	state    any        // S, produced by init
	workers  []*worker  // ordered, addressable by position
	stopped  bool

	live atomic.Int64 // count of workers whose goroutine has not yet exited

	faultsMu sync.Mutex
	faults   []RunnerFault
}

// StartJob constructs a Job for spec and evaluates its init hook
// synchronously. Fails with InitFailed if init raises; no workers are
// started in that case.
func StartJob(spec *runnerspec.Spec, logger *slog.Logger) (*Job, error) {
	if logger == nil {
		logger = slog.Default()
	}
	j := &Job{
		name:   spec.DisplayName(),
		spec:   spec,
		logger: logger,
	}

	state, err := invokeHook(spec.Init, nil)
	if err != nil {
		return nil, &InitFailed{Runner: j.name, Cause: err}
	}
	j.state = state

	j.logger.Debug("job started", slog.String("runner", j.name))
	return j, nil
}

// Counter returns a read-only handle to the Job's atomic counter.
func (j *Job) Counter() Handle { return Handle{c: &j.counter} }

// Name returns the display name this Job was constructed for.
func (j *Job) Name() string { return j.name }

// LiveWorkers returns the number of worker goroutines that have not
// yet exited. Because a runner fault terminates its worker without an
// explicit SetConcurrency call, this can be lower than the last n
// passed to SetConcurrency.
func (j *Job) LiveWorkers() int { return int(j.live.Load()) }

// SetConcurrency transitions the live worker count to exactly n,
// spawning or retiring workers as needed, and returns only once the
// live count equals n. It is serialized: one caller at a time per
// Job.
func (j *Job) SetConcurrency(ctx context.Context, n int) error {
	if n < 0 {
		return errors.Errorf("bench: concurrency must be >= 0, got %d", n)
	}

	j.mu.Lock()
	if j.stopped {
		j.mu.Unlock()
		return errors.Errorf("bench: job %q is stopped", j.name)
	}
	current := len(j.workers)

	var toStop []*worker
	switch {
	case n > current:
		for i := current; i < n; i++ {
			w := &worker{done: make(chan struct{})}
			j.workers = append(j.workers, w)
			j.live.Add(1)
			go j.runWorker(i, w)
		}
	case n < current:
		toStop = append(toStop, j.workers[n:]...)
		j.workers = j.workers[:n]
		for _, w := range toStop {
			w.stop.Store(true)
		}
	}
	j.mu.Unlock()

	for _, w := range toStop {
		select {
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Stop transitions to zero workers, evaluates done once, and releases
// resources. Idempotent: a second call is a no-op.
func (j *Job) Stop(ctx context.Context) error {
	j.mu.Lock()
	if j.stopped {
		j.mu.Unlock()
		return nil
	}
	j.stopped = true
	workers := j.workers
	j.workers = nil
	j.mu.Unlock()

	for _, w := range workers {
		w.stop.Store(true)
	}
	for _, w := range workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if _, err := invokeHook(j.spec.Done, j.state); err != nil {
		return errors.Wrapf(err, "bench: done hook for %q", j.name)
	}
	j.logger.Debug("job stopped", slog.String("runner", j.name))
	return nil
}

// Faults returns every RunnerFault observed so far, oldest first.
func (j *Job) Faults() []RunnerFault {
	j.faultsMu.Lock()
	defer j.faultsMu.Unlock()
	out := make([]RunnerFault, len(j.faults))
	copy(out, j.faults)
	return out
}

func (j *Job) recordFault(workerID int, cause error) {
	f := RunnerFault{Runner: j.name, Worker: workerID, Cause: cause, At: time.Now()}
	j.faultsMu.Lock()
	j.faults = append(j.faults, f)
	j.faultsMu.Unlock()
	j.logger.Warn("runner fault",
		slog.String("runner", j.name),
		slog.Int("worker", workerID),
		slog.String("error", cause.Error()))
}

// runWorker is the per-worker loop: evaluate init_runner once, then
// loop invoking the runner body (or the next recorded trace call),
// incrementing the counter, then checking the stop flag — after each
// iteration, never during one.
func (j *Job) runWorker(id int, w *worker) {
	// Deferred calls run last-in first-out: live is decremented before
	// done is closed, so a caller waiting on done sees the new count.
	defer close(w.done)
	defer j.live.Add(-1)

	wstate, err := invokeHook(j.spec.InitRunner, j.state)
	if err != nil {
		j.logger.Error("init_runner failed",
			slog.String("runner", j.name), slog.Int("worker", id), slog.String("error", err.Error()))
		j.recordFault(id, &WorkerInitFailed{Runner: j.name, Worker: id, Cause: err})
		return
	}

	traceLen := len(j.spec.Trace)
	traceIdx := 0

	for {
		var callErr error
		if traceLen > 0 {
			call := j.spec.Trace[traceIdx%traceLen]
			traceIdx++
			_, callErr = invokeCall(call, wstate)
		} else {
			_, callErr = invokeCall(j.spec.Run.Call, wstate)
		}

		if callErr != nil {
			// The Job does not auto-restart a worker whose runner
			// raised; it simply stops, and the Sampler observes a
			// flatter-than-expected rate. The fault itself is still
			// surfaced to the caller rather than dropped silently.
			j.recordFault(id, callErr)
			return
		}

		j.counter.Add()

		if w.stop.Load() {
			return
		}
	}
}
