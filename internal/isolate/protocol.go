// Package isolate implements the Isolation Bridge as a subprocess per
// code fragment: a fresh instance of this same binary, re-exec'd in a
// hidden worker mode, talking back over a
// pipe on fd 3. The transport is grounded on
// harness/benchmark_runner.go and harness/runner.go's fd-3
// harness-channel protocol (os.Pipe, cmd.ExtraFiles, line-delimited
// JSON); the pooled-handle shape is grounded on
// p-arndt-sandkasten/internal/pool's notion of a set of reusable,
// lifecycle-managed runtime handles.
package isolate

import (
	"encoding/json"
	"time"

	"github.com/feather-lang/squeeze/internal/bench"
	"github.com/feather-lang/squeeze/internal/runnerspec"
)

// WorkerEnv names the environment variable that tells a re-exec'd
// child it is running as an isolated worker, not the CLI entrypoint
// (mirrors FEATHER_IN_HARNESS / TCLC_IN_HARNESS in the teacher).
const WorkerEnv = "SQUEEZE_ISOLATED_WORKER"

// request is sent once, as a single JSON line, on the child's stdin.
type request struct {
	Spec          *runnerspec.Spec    `json:"spec"`
	Concurrency   int                 `json:"concurrency"`
	Sample        sampleOptionsWire   `json:"sample"`
	Squeeze       *squeezeOptionsWire `json:"squeeze,omitempty"`
}

type sampleOptionsWire struct {
	SampleDurationMs int64   `json:"sample_duration_ms"`
	Warmup           int     `json:"warmup"`
	Samples          int     `json:"samples"`
	CV               float64 `json:"cv"`
	Extended         bool    `json:"extended"`
}

func toWireSample(o bench.Options) sampleOptionsWire {
	return sampleOptionsWire{
		SampleDurationMs: o.SampleDuration.Milliseconds(),
		Warmup:           o.Warmup,
		Samples:          o.Samples,
		CV:               o.CV,
		Extended:         o.Report == bench.ReportExtended,
	}
}

func (w sampleOptionsWire) toOptions() bench.Options {
	report := bench.ReportMean
	if w.Extended {
		report = bench.ReportExtended
	}
	return bench.Options{
		SampleDuration: time.Duration(w.SampleDurationMs) * time.Millisecond,
		Warmup:         w.Warmup,
		Samples:        w.Samples,
		CV:             w.CV,
		Report:         report,
	}
}

type squeezeOptionsWire struct {
	Min       int `json:"min"`
	Max       int `json:"max"`
	Threshold int `json:"threshold"`
}

func toWireSqueeze(o *bench.SqueezeOptions) *squeezeOptionsWire {
	if o == nil {
		return nil
	}
	return &squeezeOptionsWire{Min: o.Min, Max: o.Max, Threshold: o.Threshold}
}

func (w *squeezeOptionsWire) toOptions() *bench.SqueezeOptions {
	if w == nil {
		return nil
	}
	return &bench.SqueezeOptions{Min: w.Min, Max: w.Max, Threshold: w.Threshold}
}

// response is sent once, as a single JSON line, on fd 3.
type response struct {
	Result *bench.RunResult `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func encodeRequest(r request) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func encodeResponse(r response) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
