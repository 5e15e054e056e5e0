package bench

import (
	"context"
	"math"
	"time"
)

// ReportKind selects whether PerformBenchmark returns one mean rate
// per job or the full retained sample vector.
type ReportKind int

const (
	ReportMean ReportKind = iota
	ReportExtended
)

// Options configures one sampling run. Zero-value fields take the
// documented defaults via withDefaults.
type Options struct {
	SampleDuration time.Duration
	Warmup         int
	Samples        int
	CV             float64 // 0 means unset
	Report         ReportKind
}

func (o Options) withDefaults() Options {
	if o.SampleDuration <= 0 {
		o.SampleDuration = 1000 * time.Millisecond
	}
	if o.Samples <= 0 {
		o.Samples = 3
	}
	// CV is undefined for a window of one sample; treat as unset
	// rather than spin forever trying to satisfy an undefined bound.
	if o.Samples <= 1 {
		o.CV = 0
	}
	return o
}

// Result is one job's sampling outcome: its mean rate, and — when the
// caller asked for ReportExtended — the full retained per-interval
// rate vector, oldest first.
type Result struct {
	Mean    float64
	Samples []float64
}

type reading struct {
	value uint64
	at    time.Time
}

// PerformBenchmark reads every counter at fixed wall-clock intervals
// and returns one Result per counter, in the order given. All jobs in
// a comparison are sampled on one shared clock rather than
// independently, so a Rel% comparison between them is measuring the
// same wall-clock window for every fragment.
func PerformBenchmark(ctx context.Context, counters []Handle, opts Options) ([]Result, error) {
	opts = opts.withDefaults()

	if err := sleepCtx(ctx, time.Duration(opts.Warmup)*opts.SampleDuration); err != nil {
		return nil, err
	}

	readings := make([][]reading, len(counters))
	baseline := time.Now()
	for i, c := range counters {
		readings[i] = []reading{{value: c.Load(), at: baseline}}
	}

	for {
		if err := sleepCtx(ctx, opts.SampleDuration); err != nil {
			return nil, err
		}
		now := time.Now()
		for i, c := range counters {
			readings[i] = append(readings[i], reading{value: c.Load(), at: now})
			if len(readings[i]) > opts.Samples+1 {
				readings[i] = readings[i][1:]
			}
		}

		if len(readings[0])-1 < opts.Samples {
			continue
		}

		rates := make([][]float64, len(counters))
		for i := range counters {
			rates[i] = intervalRates(readings[i])
		}

		if opts.CV <= 0 || satisfiesCV(rates, opts.CV) {
			return buildResults(rates, opts.Report), nil
		}

		// Slide the window: drop the oldest reading from every job
		// in lockstep and take one more sample.
		for i := range readings {
			readings[i] = readings[i][1:]
		}
	}
}

func intervalRates(rs []reading) []float64 {
	out := make([]float64, 0, len(rs)-1)
	for i := 1; i < len(rs); i++ {
		elapsed := rs[i].at.Sub(rs[i-1].at).Seconds()
		if elapsed <= 0 {
			out = append(out, 0)
			continue
		}
		delta := float64(rs[i].value - rs[i-1].value)
		out = append(out, delta/elapsed)
	}
	return out
}

func satisfiesCV(rates [][]float64, bound float64) bool {
	for _, r := range rates {
		if coefficientOfVariation(r) > bound {
			return false
		}
	}
	return true
}

func coefficientOfVariation(samples []float64) float64 {
	mean := meanOf(samples)
	if mean == 0 {
		for _, s := range samples {
			if s != 0 {
				return math.Inf(1)
			}
		}
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		d := s - mean
		sumSq += d * d
	}
	stddev := math.Sqrt(sumSq / float64(len(samples)))
	return stddev / mean
}

func meanOf(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}

func buildResults(rates [][]float64, report ReportKind) []Result {
	out := make([]Result, len(rates))
	for i, r := range rates {
		res := Result{Mean: meanOf(r)}
		if report == ReportExtended {
			res.Samples = append([]float64(nil), r...)
		}
		out[i] = res
	}
	return out
}

// sleepCtx sleeps for d or returns ctx.Err() if ctx is cancelled
// first. A non-positive d returns immediately.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
