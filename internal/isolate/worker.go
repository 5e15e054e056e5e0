package isolate

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/feather-lang/squeeze/internal/bench"
)

// InWorkerMode reports whether this process was re-exec'd by a
// ProcessBridge to act as an isolated runtime (mirrors
// FEATHER_IN_HARNESS / TCLC_IN_HARNESS env-flag checks in the
// teacher).
func InWorkerMode() bool {
	return os.Getenv(WorkerEnv) != ""
}

// RunWorker is the isolated-worker main loop: read one job request
// from stdin, execute it against the local bench core exactly the way
// the non-isolated CLI path would, and write the single JSON result
// line to fd 3. It returns the process exit code.
func RunWorker(ctx context.Context) int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	req, err := readRequest(os.Stdin)
	if err != nil {
		return fail(logger, errors.Wrap(err, "isolate: reading job request"))
	}

	executor := bench.NewExecutor(logger)
	runOpts := bench.RunOptions{
		Concurrency: req.Concurrency,
		Sample:      req.Sample.toOptions(),
		Logger:      logger,
	}
	result, err := executor.RunOne(ctx, req.Spec, runOpts, req.Squeeze.toOptions())

	var resp response
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.Result = result
	}
	return writeResponse(logger, resp)
}

func readRequest(r io.Reader) (request, error) {
	scanner := newLineReader(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return request{}, err
		}
		return request{}, io.EOF
	}
	var req request
	if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
		return request{}, err
	}
	return req, nil
}

func writeResponse(logger *slog.Logger, resp response) int {
	fd3 := os.NewFile(3, "squeeze-isolation-channel")
	if fd3 == nil {
		logger.Error("isolate: fd 3 is not open; cannot report result")
		return 1
	}
	defer fd3.Close()

	data, err := encodeResponse(resp)
	if err != nil {
		logger.Error("isolate: encoding response", slog.String("error", err.Error()))
		return 1
	}
	if _, err := fd3.Write(data); err != nil {
		logger.Error("isolate: writing response", slog.String("error", err.Error()))
		return 1
	}
	if resp.Error != "" {
		return 1
	}
	return 0
}

func fail(logger *slog.Logger, err error) int {
	writeResponse(logger, response{Error: err.Error()})
	return 1
}
