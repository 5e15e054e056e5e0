package bench

import (
	"context"
	"math"
	"time"
)

// defaultMaxConcurrency stands in for "process/thread limit minus a
// safety margin of ~1000": Go's runtime does not expose an OS thread
// ceiling the way the source runtime's VM does, so this is a
// conservative stand-in a single host can usually accommodate
// comfortably below its actual limits.
const defaultMaxConcurrency = 9000

// SqueezeOptions configures one saturation search.
type SqueezeOptions struct {
	Min       int
	Max       int
	Threshold int
}

func (o SqueezeOptions) withDefaults() SqueezeOptions {
	if o.Min <= 0 {
		o.Min = 1
	}
	if o.Max <= 0 {
		o.Max = defaultMaxConcurrency
	}
	if o.Threshold <= 0 {
		o.Threshold = 3
	}
	return o
}

// SqueezeStep is one point on the saturation curve.
type SqueezeStep struct {
	QPS         float64
	Concurrency int
	Elapsed     time.Duration
	Improved    bool
}

// SqueezeResult is the outcome of a saturation search: the best
// throughput found, the worker count that achieved it, and — newest
// first — every step taken to find it.
type SqueezeResult struct {
	BestQPS         float64
	BestConcurrency int
	History         []SqueezeStep
}

// PerformSqueeze drives job through ascending worker counts,
// re-benchmarking at each step, and terminates once throughput has
// failed to improve for Threshold consecutive increments past the
// current best. Equal-to-best QPS never updates the best, so the
// first concurrency to reach a given maximum is reported — a
// deliberate lower-bound-knee tie-break.
func PerformSqueeze(ctx context.Context, job *Job, sampleOpts Options, sqOpts SqueezeOptions) (*SqueezeResult, error) {
	sqOpts = sqOpts.withDefaults()

	current := sqOpts.Min
	bestQPS := math.Inf(-1)
	bestConcurrency := sqOpts.Min
	var history []SqueezeStep

	for {
		start := time.Now()
		if err := job.SetConcurrency(ctx, current); err != nil {
			return nil, err
		}

		results, err := PerformBenchmark(ctx, []Handle{job.Counter()}, sampleOpts)
		if err != nil {
			return nil, err
		}
		qps := results[0].Mean

		step := SqueezeStep{QPS: qps, Concurrency: current, Elapsed: time.Since(start)}

		terminate := false
		if qps > bestQPS {
			bestQPS, bestConcurrency = qps, current
			step.Improved = true
		} else if current-bestConcurrency > sqOpts.Threshold {
			terminate = true
		}

		history = append([]SqueezeStep{step}, history...)

		if terminate {
			break
		}
		current++
		if current > sqOpts.Max {
			break
		}
	}

	return &SqueezeResult{BestQPS: bestQPS, BestConcurrency: bestConcurrency, History: history}, nil
}
