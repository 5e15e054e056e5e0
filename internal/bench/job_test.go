package bench

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feather-lang/squeeze/internal/runnerspec"
	"github.com/feather-lang/squeeze/internal/workload"
)

func init() {
	workload.Register("", "bench_test_noop", func(state any, _ []any) (any, error) {
		return state, nil
	})
	workload.Register("", "bench_test_fail", func(_ any, _ []any) (any, error) {
		return nil, errors.New("boom")
	})
	workload.Register("", "bench_test_init", func(_ any, args []any) (any, error) {
		if len(args) > 0 {
			return args[0], nil
		}
		return "initialized", nil
	})
}

func callOf(fn string) runnerspec.Call { return runnerspec.Call{Function: fn} }

func TestStartJobEvaluatesInitOnce(t *testing.T) {
	spec := &runnerspec.Spec{
		Name: "init-once",
		Init: runnerspec.Hook{Kind: runnerspec.HookKindCall, Call: callOf("bench_test_init")},
		Run:  runnerspec.Hook{Kind: runnerspec.HookKindCall, Call: callOf("bench_test_noop")},
	}
	job, err := StartJob(spec, nil)
	require.NoError(t, err)
	assert.Equal(t, "initialized", job.state)
	assert.Equal(t, "init-once", job.Name())
}

func TestStartJobInitFailure(t *testing.T) {
	spec := &runnerspec.Spec{
		Name: "bad-init",
		Init: runnerspec.Hook{Kind: runnerspec.HookKindCall, Call: callOf("bench_test_fail")},
		Run:  runnerspec.Hook{Kind: runnerspec.HookKindCall, Call: callOf("bench_test_noop")},
	}
	_, err := StartJob(spec, nil)
	require.Error(t, err)
	var initErr *InitFailed
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "bad-init", initErr.Runner)
}

func TestSetConcurrencyScalesUpAndDown(t *testing.T) {
	spec := &runnerspec.Spec{
		Name: "scale",
		Run:  runnerspec.Hook{Kind: runnerspec.HookKindCall, Call: callOf("bench_test_noop")},
	}
	job, err := StartJob(spec, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, job.SetConcurrency(ctx, 4))
	assert.Eventually(t, func() bool { return job.LiveWorkers() == 4 }, time.Second, time.Millisecond)

	require.NoError(t, job.SetConcurrency(ctx, 1))
	assert.Equal(t, 1, job.LiveWorkers())

	require.NoError(t, job.Stop(ctx))
	assert.Equal(t, 0, job.LiveWorkers())
}

func TestSetConcurrencyRejectsNegative(t *testing.T) {
	spec := &runnerspec.Spec{Run: runnerspec.Hook{Kind: runnerspec.HookKindCall, Call: callOf("bench_test_noop")}}
	job, err := StartJob(spec, nil)
	require.NoError(t, err)
	defer job.Stop(context.Background())

	err = job.SetConcurrency(context.Background(), -1)
	assert.Error(t, err)
}

func TestRunnerFaultStopsWorkerAndIsRecorded(t *testing.T) {
	spec := &runnerspec.Spec{
		Name: "faulty",
		Run:  runnerspec.Hook{Kind: runnerspec.HookKindCall, Call: callOf("bench_test_fail")},
	}
	job, err := StartJob(spec, nil)
	require.NoError(t, err)
	defer job.Stop(context.Background())

	require.NoError(t, job.SetConcurrency(context.Background(), 2))

	assert.Eventually(t, func() bool { return job.LiveWorkers() == 0 }, time.Second, time.Millisecond)
	faults := job.Faults()
	assert.Len(t, faults, 2)
	for _, f := range faults {
		assert.Equal(t, "faulty", f.Runner)
		assert.ErrorContains(t, f.Cause, "boom")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	spec := &runnerspec.Spec{Run: runnerspec.Hook{Kind: runnerspec.HookKindCall, Call: callOf("bench_test_noop")}}
	job, err := StartJob(spec, nil)
	require.NoError(t, err)

	require.NoError(t, job.Stop(context.Background()))
	require.NoError(t, job.Stop(context.Background()))
}

func TestJobCounterIncrementsPerIteration(t *testing.T) {
	spec := &runnerspec.Spec{Run: runnerspec.Hook{Kind: runnerspec.HookKindCall, Call: callOf("bench_test_noop")}}
	job, err := StartJob(spec, nil)
	require.NoError(t, err)
	defer job.Stop(context.Background())

	require.NoError(t, job.SetConcurrency(context.Background(), 2))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, job.SetConcurrency(context.Background(), 0))

	assert.Greater(t, job.Counter().Load(), uint64(0))
}
