package runnerspec

import (
	"strings"

	"github.com/pkg/errors"
)

// ParseHook recognizes one of the two textual shapes valid for a
// lifecycle hook's code argument and returns the resulting Hook. A
// hook (init/init_runner/done) may only be an expression or a
// structured triple — a recorded trace only makes sense as the
// runner body, not a one-shot lifecycle call.
func ParseHook(raw string) (Hook, error) {
	trimmed := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}"):
		call, err := parseTriple(trimmed)
		if err != nil {
			return Hook{}, err
		}
		return Hook{Kind: HookKindCall, Call: call}, nil
	case strings.HasSuffix(trimmed, "."):
		call, err := parseExpr(trimmed)
		if err != nil {
			return Hook{}, err
		}
		return Hook{Kind: HookKindCall, Call: call}, nil
	default:
		return Hook{}, errors.Errorf("runnerspec: %q is not a valid hook (expected a call expression or structured triple)", raw)
	}
}

// ParseFragment recognizes a positional CODE argument (the runner
// body): a structured triple, an inline expression, or a path to a
// recorded trace file, in that order of precedence.
func ParseFragment(raw string) (*Spec, error) {
	trimmed := strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}"):
		call, err := parseTriple(trimmed)
		if err != nil {
			return nil, err
		}
		return &Spec{Run: Hook{Kind: HookKindCall, Call: call}}, nil

	case strings.HasSuffix(trimmed, "."):
		call, err := parseExpr(trimmed)
		if err != nil {
			return nil, err
		}
		return &Spec{Run: Hook{Kind: HookKindCall, Call: call}}, nil

	case looksLikeTraceFile(trimmed):
		trace, err := LoadTrace(trimmed)
		if err != nil {
			return nil, err
		}
		return &Spec{Trace: trace}, nil

	default:
		return nil, errors.Errorf("runnerspec: %q did not match any recognized code shape", raw)
	}
}
