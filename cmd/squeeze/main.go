// squeeze runs micro-benchmarks and concurrency-saturation searches
// against named built-in workloads and recorded call traces. Grounded
// on harness/cmd/harness/main.go's cobra Command shape and
// harness/cmd/bench/main.go's single-exit-path error handling.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/feather-lang/squeeze/internal/bench"
	"github.com/feather-lang/squeeze/internal/isolate"
	"github.com/feather-lang/squeeze/internal/report"
	"github.com/feather-lang/squeeze/internal/runnerspec"
)

func main() {
	if isolate.InWorkerMode() {
		os.Exit(isolate.RunWorker(context.Background()))
	}
	os.Exit(newRootCmd().Execute2())
}

// rootCmd wraps cobra's Execute to translate "ran but failed" into a
// process exit code without cobra itself calling os.Exit, so this
// stays testable.
type rootCmd struct {
	*cobra.Command
}

func (r rootCmd) Execute2() int {
	if err := r.Execute(); err != nil {
		return 1
	}
	return 0
}

type cliOptions struct {
	concurrency    int
	sampleDuration int
	samples        int
	warmup         int
	cv             float64
	verbose        bool
	isolated       bool
	squeeze        bool
	min            int
	max            int
	threshold      int
	profile        bool
	format         string
	quiet          bool
	initFlags      []string
	doneFlags      []string
	initRunnerFlag []string
}

func newRootCmd() rootCmd {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:   "squeeze [flags] CODE1 [CODE2 ...]",
		Short: "Micro-benchmark and concurrency-saturation harness",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				err := &bench.InvalidConfiguration{Reason: "at least one CODE argument is required"}
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
				return err
			}
			return runBenchmark(cmd.OutOrStdout(), cmd.ErrOrStderr(), args, opts)
		},
		// RunE reports its own single stderr line; cobra's default
		// "Error: ..." plus usage dump would duplicate it.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.Flags()
	f.IntVarP(&opts.concurrency, "concurrency", "c", 1, "worker count for non-squeeze runs")
	f.IntVarP(&opts.sampleDuration, "sample_duration", "d", 1000, "interval between counter reads, in milliseconds")
	f.IntVarP(&opts.samples, "samples", "s", 3, "retained samples")
	f.IntVarP(&opts.warmup, "warmup", "w", 0, "warmup samples")
	f.Float64Var(&opts.cv, "cv", 0, "coefficient-of-variation gate (0 disables)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "enable progress logging to stderr")
	f.BoolVarP(&opts.isolated, "isolated", "i", false, "run each fragment in a fresh runtime")
	f.BoolVarP(&opts.squeeze, "squeeze", "q", false, "enable concurrency-saturation squeeze mode")
	f.IntVar(&opts.min, "min", 1, "squeeze start concurrency")
	f.IntVar(&opts.max, "max", 0, "squeeze max concurrency (0: harness default)")
	f.IntVarP(&opts.threshold, "threshold", "t", 3, "squeeze knee threshold")
	f.BoolVarP(&opts.profile, "profile", "p", false, "run the profiler instead of the benchmark (out of core)")
	f.StringVar(&opts.format, "format", "table", "output format: table|json")
	f.BoolVar(&opts.quiet, "quiet", false, "suppress the table header/footer")
	// --init/--done/--init_runner each attach a lifecycle hook to one
	// positional fragment by position. A single colon-joined
	// "INDEX:CODE" value keeps each occurrence a single, repeatable
	// pflag.StringArray entry rather than needing a two-flag pair.
	f.StringArrayVar(&opts.initFlags, "init", nil, "INDEX:CODE — attach an init hook to the INDEX-th fragment")
	f.StringArrayVar(&opts.doneFlags, "done", nil, "INDEX:CODE — attach a done hook to the INDEX-th fragment")
	f.StringArrayVar(&opts.initRunnerFlag, "init_runner", nil, "INDEX:CODE — attach an init_runner hook to the INDEX-th fragment")

	return rootCmd{cmd}
}

func runBenchmark(stdout, stderr interface {
	Write([]byte) (int, error)
}, args []string, opts *cliOptions) error {
	logger := newLogger(stderr, opts.verbose)

	if opts.profile {
		fmt.Fprintln(stderr, "error: --profile: profiling is not implemented by this tool")
		return &bench.InvalidConfiguration{Reason: "--profile: profiling is not implemented by this tool"}
	}

	specs, err := buildSpecs(args, opts)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return err
	}

	var sqOpts *bench.SqueezeOptions
	if opts.squeeze {
		if len(specs) > 1 {
			err := &bench.InvalidConfiguration{Reason: "squeeze does not support comparing multiple fragments"}
			fmt.Fprintf(stderr, "error: %v\n", err)
			return err
		}
		sqOpts = &bench.SqueezeOptions{Min: opts.min, Max: opts.max, Threshold: opts.threshold}
	}

	runOpts := bench.RunOptions{
		Concurrency: opts.concurrency,
		Sample: bench.Options{
			SampleDuration: time.Duration(opts.sampleDuration) * time.Millisecond,
			Warmup:         opts.warmup,
			Samples:        opts.samples,
			CV:             opts.cv,
			Report:         bench.ReportExtended,
		},
		Logger: logger,
	}
	if opts.isolated {
		runOpts.Isolation = &isolate.ProcessBridge{}
	}

	executor := bench.NewExecutor(logger)
	ctx := context.Background()

	results, err := executor.Run(ctx, specs, runOpts, sqOpts)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return err
	}

	if opts.format == "json" {
		return report.WriteJSON(stdout, results)
	}
	return report.WriteTable(stdout, results, opts.concurrency, opts.quiet)
}

func buildSpecs(args []string, opts *cliOptions) ([]*runnerspec.Spec, error) {
	initHooks, err := parseHookFlags(opts.initFlags)
	if err != nil {
		return nil, fmt.Errorf("--init: %w", err)
	}
	doneHooks, err := parseHookFlags(opts.doneFlags)
	if err != nil {
		return nil, fmt.Errorf("--done: %w", err)
	}
	initRunnerHooks, err := parseHookFlags(opts.initRunnerFlag)
	if err != nil {
		return nil, fmt.Errorf("--init_runner: %w", err)
	}

	specs := make([]*runnerspec.Spec, 0, len(args))
	for i, raw := range args {
		spec, err := runnerspec.ParseFragment(raw)
		if err != nil {
			return nil, &bench.ArgParseError{Cause: fmt.Errorf("fragment %d: %w", i, err)}
		}
		if h, ok := initHooks[i]; ok {
			spec.Init = h
		}
		if h, ok := doneHooks[i]; ok {
			spec.Done = h
		}
		if h, ok := initRunnerHooks[i]; ok {
			spec.InitRunner = h
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// parseHookFlags turns repeated "INDEX:CODE" flag values into a
// per-fragment-index hook map.
func parseHookFlags(values []string) (map[int]runnerspec.Hook, error) {
	out := make(map[int]runnerspec.Hook, len(values))
	for _, v := range values {
		idxStr, code, found := strings.Cut(v, ":")
		if !found {
			return nil, &bench.ArgParseError{Cause: fmt.Errorf("%q is not in INDEX:CODE form", v)}
		}
		idx, err := strconv.Atoi(strings.TrimSpace(idxStr))
		if err != nil {
			return nil, &bench.ArgParseError{Cause: fmt.Errorf("%q has a non-integer index: %w", v, err)}
		}
		hook, err := runnerspec.ParseHook(code)
		if err != nil {
			return nil, &bench.ArgParseError{Cause: err}
		}
		out[idx] = hook
	}
	return out, nil
}

func newLogger(w interface{ Write([]byte) (int, error) }, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
