package runnerspec

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// traceCall is the on-disk JSON shape for one recorded triple. Traces
// are the systems-native equivalent of a pre-recorded MFA call log:
// the corpus's own wire format for structured call data
// (harness/benchmark_runner.go's prepareBenchmarkData) is JSON, so a
// recorded trace follows the same convention rather than inventing a
// bespoke text format.
type traceCall struct {
	Module   string `json:"module"`
	Function string `json:"function"`
	Args     []any  `json:"args"`
}

// LoadTrace reads a recorded sequence of triples from path. An empty
// file, or one containing zero entries, is an error: a trace with no
// calls cannot drive a runner loop.
func LoadTrace(path string) ([]Call, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "runnerspec: reading trace file %q", path)
	}

	var raw []traceCall
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "runnerspec: parsing trace file %q", path)
	}
	if len(raw) == 0 {
		return nil, errors.Errorf("runnerspec: trace file %q contains no calls", path)
	}

	calls := make([]Call, 0, len(raw))
	for _, c := range raw {
		if c.Function == "" {
			return nil, errors.Errorf("runnerspec: trace file %q has an entry with no function", path)
		}
		calls = append(calls, Call{Module: c.Module, Function: c.Function, Args: c.Args})
	}
	return calls, nil
}

// looksLikeTraceFile reports whether raw should be treated as a file
// path to a recorded trace rather than an inline expression or
// structured triple: it is the fallback case, applying whenever raw
// is neither of the other two shapes.
func looksLikeTraceFile(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return false
	}
	if strings.HasSuffix(trimmed, ".") {
		return false
	}
	return true
}
