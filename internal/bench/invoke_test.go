package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feather-lang/squeeze/internal/runnerspec"
	"github.com/feather-lang/squeeze/internal/workload"
)

func TestInvokeHookNoopWhenUnset(t *testing.T) {
	result, err := invokeHook(runnerspec.Hook{}, "unchanged")
	require.NoError(t, err)
	assert.Equal(t, "unchanged", result)
}

func TestInvokeHookCallsRegisteredWorkload(t *testing.T) {
	hook := runnerspec.Hook{Kind: runnerspec.HookKindCall, Call: callOf("bench_test_init")}
	result, err := invokeHook(hook, nil)
	require.NoError(t, err)
	assert.Equal(t, "initialized", result)
}

func TestInvokeCallUnknownWorkload(t *testing.T) {
	_, err := invokeCall(runnerspec.Call{Function: "does_not_exist"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, workload.ErrUnknown)
}
