// Package report formats Executor results for display: a sorted
// table with SI-scaled QPS and a Rel% column in comparison mode, or a
// JSON document for scripting. Grounded on
// harness/benchmark_reporter.go's formatDuration tiered-unit
// formatter and its PASS/FAIL-table-then-summary shape, generalized
// to QPS/Rel%/squeeze history.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/feather-lang/squeeze/internal/bench"
)

const nameTruncateWidth = 62

// Row is one printable line of the results table.
type Row struct {
	Name        string
	Concurrency int
	QPS         float64
	RelPercent  float64
	Faults      int
}

// BuildRows flattens Executor results (plain samples or squeeze
// results) into rows ready for sorting and printing.
func BuildRows(results []*bench.RunResult, concurrency int) []Row {
	rows := make([]Row, 0, len(results))
	for _, r := range results {
		row := Row{Name: r.Name, Faults: len(r.Faults)}
		switch {
		case r.Squeeze != nil:
			row.QPS = r.Squeeze.BestQPS
			row.Concurrency = r.Squeeze.BestConcurrency
		case r.Sample != nil:
			row.QPS = r.Sample.Mean
			row.Concurrency = concurrency
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].QPS > rows[j].QPS })

	if len(rows) > 1 {
		peak := rows[0].QPS
		for i := range rows {
			if peak > 0 {
				rows[i].RelPercent = rows[i].QPS / peak * 100
			}
		}
	}
	return rows
}

// WriteTable prints the results table: code, concurrency, QPS, and —
// when there is more than one row — a Rel% column normalized to the
// peak, sorted descending by QPS.
func WriteTable(w io.Writer, results []*bench.RunResult, concurrency int, quiet bool) error {
	rows := BuildRows(results, concurrency)
	comparison := len(rows) > 1

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if !quiet {
		if comparison {
			fmt.Fprintln(tw, "CODE\t||\tQPS\tREL%")
		} else {
			fmt.Fprintln(tw, "CODE\t||\tQPS")
		}
	}
	for _, row := range rows {
		name := truncate(row.Name, nameTruncateWidth)
		if comparison {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%.1f\n", name, row.Concurrency, formatQPS(row.QPS), row.RelPercent)
		} else {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", name, row.Concurrency, formatQPS(row.QPS))
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	totalFaults := 0
	for _, row := range rows {
		totalFaults += row.Faults
	}
	if totalFaults > 0 {
		fmt.Fprintf(w, "%s runner fault(s) observed; see --verbose for detail\n", humanize.Comma(int64(totalFaults)))
	}
	return nil
}

// jsonResult is the --format json wire shape.
type jsonResult struct {
	Name    string              `json:"name"`
	Sample  *bench.Result       `json:"sample,omitempty"`
	Squeeze *bench.SqueezeResult `json:"squeeze,omitempty"`
	Faults  []bench.RunnerFault `json:"faults,omitempty"`
}

// WriteJSON prints the raw Executor results as a JSON array, for
// scripting squeeze/sample output into CI rather than parsing the
// table.
func WriteJSON(w io.Writer, results []*bench.RunResult) error {
	out := make([]jsonResult, len(results))
	for i, r := range results {
		out[i] = jsonResult{Name: r.Name, Sample: r.Sample, Squeeze: r.Squeeze, Faults: r.Faults}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
