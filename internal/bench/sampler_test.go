package bench

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsWithDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, 1000*time.Millisecond, o.SampleDuration)
	assert.Equal(t, 3, o.Samples)

	single := Options{Samples: 1, CV: 0.1}.withDefaults()
	assert.Zero(t, single.CV, "CV is undefined for a window of one sample")
}

func TestPerformBenchmarkMeasuresRate(t *testing.T) {
	var c Counter
	stop := make(chan struct{})
	go func() {
		t := time.NewTicker(2 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				c.Add()
			case <-stop:
				return
			}
		}
	}()
	defer close(stop)

	opts := Options{SampleDuration: 30 * time.Millisecond, Samples: 2, Report: ReportExtended}
	results, err := PerformBenchmark(context.Background(), []Handle{{c: &c}}, opts)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Greater(t, results[0].Mean, 0.0)
	assert.Len(t, results[0].Samples, 2)
}

func TestPerformBenchmarkReportMeanOmitsSamples(t *testing.T) {
	var c Counter
	opts := Options{SampleDuration: 5 * time.Millisecond, Samples: 1, Report: ReportMean}
	results, err := PerformBenchmark(context.Background(), []Handle{{c: &c}}, opts)
	require.NoError(t, err)
	assert.Nil(t, results[0].Samples)
}

func TestPerformBenchmarkHonoursWarmup(t *testing.T) {
	var c Counter
	start := time.Now()
	opts := Options{SampleDuration: 10 * time.Millisecond, Warmup: 2, Samples: 1}
	_, err := PerformBenchmark(context.Background(), []Handle{{c: &c}}, opts)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestPerformBenchmarkCancelledContext(t *testing.T) {
	var c Counter
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := PerformBenchmark(ctx, []Handle{{c: &c}}, Options{SampleDuration: time.Second})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCoefficientOfVariation(t *testing.T) {
	assert.Zero(t, coefficientOfVariation([]float64{0, 0, 0}))
	assert.InDelta(t, 0, coefficientOfVariation([]float64{5, 5, 5}), 1e-9)
	assert.Greater(t, coefficientOfVariation([]float64{1, 100}), 0.5)
}

func TestIntervalRates(t *testing.T) {
	base := time.Now()
	readings := []reading{
		{value: 0, at: base},
		{value: 10, at: base.Add(time.Second)},
		{value: 30, at: base.Add(2 * time.Second)},
	}
	rates := intervalRates(readings)
	require.Len(t, rates, 2)
	assert.InDelta(t, 10, rates[0], 0.01)
	assert.InDelta(t, 20, rates[1], 0.01)
}

func TestMeanOf(t *testing.T) {
	assert.Zero(t, meanOf(nil))
	assert.InDelta(t, 2.5, meanOf([]float64{1, 2, 3, 4}), 1e-9)
}
