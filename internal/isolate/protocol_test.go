package isolate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feather-lang/squeeze/internal/bench"
)

func TestSampleOptionsWireRoundTrip(t *testing.T) {
	opts := bench.Options{
		SampleDuration: 250 * time.Millisecond,
		Warmup:         2,
		Samples:        5,
		CV:             0.1,
		Report:         bench.ReportExtended,
	}
	wire := toWireSample(opts)
	back := wire.toOptions()

	assert.Equal(t, opts.SampleDuration, back.SampleDuration)
	assert.Equal(t, opts.Warmup, back.Warmup)
	assert.Equal(t, opts.Samples, back.Samples)
	assert.InDelta(t, opts.CV, back.CV, 1e-9)
	assert.Equal(t, opts.Report, back.Report)
}

func TestSqueezeOptionsWireRoundTripAndNil(t *testing.T) {
	assert.Nil(t, toWireSqueeze(nil))
	assert.Nil(t, (*squeezeOptionsWire)(nil).toOptions())

	opts := &bench.SqueezeOptions{Min: 1, Max: 10, Threshold: 2}
	wire := toWireSqueeze(opts)
	require.NotNil(t, wire)
	back := wire.toOptions()
	assert.Equal(t, opts, back)
}

func TestEncodeRequestAndResponseAreLineDelimited(t *testing.T) {
	data, err := encodeRequest(request{Concurrency: 3})
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), data[len(data)-1])

	var decoded request
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &decoded))
	assert.Equal(t, 3, decoded.Concurrency)

	respData, err := encodeResponse(response{Error: "boom"})
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), respData[len(respData)-1])
}
