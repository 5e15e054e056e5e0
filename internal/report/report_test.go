package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feather-lang/squeeze/internal/bench"
)

func TestBuildRowsSortsDescendingByQPS(t *testing.T) {
	results := []*bench.RunResult{
		{Name: "slow", Sample: &bench.Result{Mean: 10}},
		{Name: "fast", Sample: &bench.Result{Mean: 100}},
	}
	rows := BuildRows(results, 4)
	require.Len(t, rows, 2)
	assert.Equal(t, "fast", rows[0].Name)
	assert.Equal(t, "slow", rows[1].Name)
	assert.InDelta(t, 100, rows[0].RelPercent, 0.01)
	assert.InDelta(t, 10, rows[1].RelPercent, 0.01)
}

func TestBuildRowsSqueezeUsesBestConcurrency(t *testing.T) {
	results := []*bench.RunResult{
		{Name: "sq", Squeeze: &bench.SqueezeResult{BestQPS: 50, BestConcurrency: 7}},
	}
	rows := BuildRows(results, 1)
	require.Len(t, rows, 1)
	assert.Equal(t, 7, rows[0].Concurrency)
	assert.InDelta(t, 50, rows[0].QPS, 0.01)
}

func TestBuildRowsSingleRowHasNoRelPercent(t *testing.T) {
	results := []*bench.RunResult{{Name: "only", Sample: &bench.Result{Mean: 5}}}
	rows := BuildRows(results, 1)
	assert.Zero(t, rows[0].RelPercent)
}

func TestWriteTableComparisonHeader(t *testing.T) {
	results := []*bench.RunResult{
		{Name: "a", Sample: &bench.Result{Mean: 100}},
		{Name: "b", Sample: &bench.Result{Mean: 50}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, results, 1, false))
	out := buf.String()
	assert.Contains(t, out, "REL%")
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "b")
}

func TestWriteTableSingleHasNoRelColumn(t *testing.T) {
	results := []*bench.RunResult{{Name: "only", Sample: &bench.Result{Mean: 100}}}
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, results, 1, false))
	assert.NotContains(t, buf.String(), "REL%")
}

func TestWriteTableQuietOmitsHeader(t *testing.T) {
	results := []*bench.RunResult{{Name: "only", Sample: &bench.Result{Mean: 100}}}
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, results, 1, true))
	assert.NotContains(t, buf.String(), "CODE")
}

func TestWriteTableReportsFaultCount(t *testing.T) {
	results := []*bench.RunResult{{
		Name:   "flaky",
		Sample: &bench.Result{Mean: 1},
		Faults: []bench.RunnerFault{{Runner: "flaky", Worker: 0}},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, results, 1, false))
	assert.Contains(t, buf.String(), "fault")
}

func TestWriteJSONRoundTrips(t *testing.T) {
	results := []*bench.RunResult{{Name: "a", Sample: &bench.Result{Mean: 1.5, Samples: []float64{1, 2}}}}
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, results))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "a", decoded[0]["name"])
}

func TestWriteJSONOmitsEmptyFaults(t *testing.T) {
	results := []*bench.RunResult{{Name: "a", Sample: &bench.Result{Mean: 1}}}
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, results))
	assert.False(t, strings.Contains(buf.String(), `"faults"`))
}
