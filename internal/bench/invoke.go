package bench

import (
	"github.com/pkg/errors"

	"github.com/feather-lang/squeeze/internal/runnerspec"
	"github.com/feather-lang/squeeze/internal/workload"
)

// invokeHook resolves and calls a single optional lifecycle hook. A
// hook that was never set is a no-op returning the state unchanged.
func invokeHook(h runnerspec.Hook, state any) (any, error) {
	if !h.IsSet() {
		return state, nil
	}
	return invokeCall(h.Call, state)
}

// invokeCall resolves one Call against the closed workload registry
// and invokes it.
func invokeCall(c runnerspec.Call, state any) (any, error) {
	fn, ok := workload.Lookup(c.Module, c.Function)
	if !ok {
		name := c.Function
		if c.Module != "" {
			name = c.Module + "." + c.Function
		}
		return nil, errors.Wrapf(workload.ErrUnknown, "%q", name)
	}
	return fn(state, c.Args)
}
