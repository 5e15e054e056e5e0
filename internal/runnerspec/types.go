// Package runnerspec models a benchmark runner's code: the required
// runner body plus its three optional lifecycle hooks, and the three
// textual shapes a CLI argument can take (structured triple, inline
// call expression, or a path to a recorded trace file).
package runnerspec

// HookKind tags whether a Hook is absent or carries a call; both
// textual shapes a hook can be written in yield the same kind.
type HookKind int

const (
	// HookKindNone marks an absent, optional hook.
	HookKindNone HookKind = iota
	// HookKindCall marks a hook resolved to a single workload call,
	// whether it arrived as an inline expression ("sleep(1).") or a
	// structured triple ("{'', sleep, [1]}").
	HookKindCall
)

// Call addresses one entry in the built-in workload registry and the
// literal arguments to pass it: the systems-native analogue of
// erlperf's {Module, Function, Args} triple.
type Call struct {
	Module   string
	Function string
	Args     []any
}

// Hook is one optional lifecycle slot (init, init_runner, done) or the
// mandatory runner body.
type Hook struct {
	Kind HookKind
	Call Call
}

// IsSet reports whether the hook carries a call to invoke.
func (h Hook) IsSet() bool {
	return h.Kind != HookKindNone
}

// Spec is a fully-resolved runner: the three optional hooks plus the
// mandatory runner body, or a recorded Trace played back in its place.
type Spec struct {
	Name       string
	Init       Hook
	InitRunner Hook
	Run        Hook
	Done       Hook

	// Trace, when non-empty, replaces Run: each worker iteration
	// invokes the next triple in the sequence, wrapping around.
	Trace []Call
}

// DisplayName returns the configured name, or the runner call's
// textual form if none was given.
func (s Spec) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	if len(s.Trace) > 0 {
		return "<trace>"
	}
	return formatCall(s.Run.Call)
}

func formatCall(c Call) string {
	if c.Module != "" {
		return c.Module + "." + c.Function
	}
	return c.Function
}
