package isolate

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/feather-lang/squeeze/internal/bench"
	"github.com/feather-lang/squeeze/internal/runnerspec"
)

// DefaultControlTimeout is the bound on one control-plane call to an
// isolated runtime (request handoff, and shutdown of runtimes already
// started when a Prepare fails). Spawning itself is not bounded by it,
// nor is the wait for the result. It does not
// bound the benchmark itself, which may legitimately run far longer
// than 10 seconds.
const DefaultControlTimeout = 10 * time.Second

// ProcessBridge is the Isolation Bridge implementation: one
// subprocess per code fragment, each a fresh re-exec of this same
// binary, discarded after use. It satisfies bench.Bridge.
type ProcessBridge struct {
	// Exe is the path to re-exec. Defaults to os.Executable().
	Exe string
	// ControlTimeout bounds the request handoff and the cleanup of a
	// partial Prepare. Defaults to DefaultControlTimeout.
	ControlTimeout time.Duration
}

// Prepare spawns n fresh subprocess runtimes, one per fragment — a
// deterministic 1:1 mapping of fragments to runtimes.
func (b *ProcessBridge) Prepare(ctx context.Context, n int) ([]bench.RuntimeHandle, error) {
	exe := b.Exe
	if exe == "" {
		var err error
		exe, err = os.Executable()
		if err != nil {
			return nil, errors.Wrap(err, "isolate: resolving executable path")
		}
	}
	timeout := b.ControlTimeout
	if timeout <= 0 {
		timeout = DefaultControlTimeout
	}

	handles := make([]bench.RuntimeHandle, 0, n)
	for i := 0; i < n; i++ {
		h, err := spawnWorker(exe, timeout)
		if err != nil {
			// Undo any runtimes already started before surfacing the
			// failure: guaranteed shutdown even on a partial Prepare.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
			for _, started := range handles {
				_ = started.(*processHandle).close(shutdownCtx)
			}
			cancel()
			return nil, &bench.IsolationStartFailed{Cause: err}
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// Shutdown terminates every runtime, regardless of whether it ever
// ran a job.
func (b *ProcessBridge) Shutdown(ctx context.Context, handles []bench.RuntimeHandle) error {
	var firstErr error
	for _, h := range handles {
		ph, ok := h.(*processHandle)
		if !ok {
			continue
		}
		if err := ph.close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// processHandle wraps one live subprocess runtime: stdin carries the
// single job request, fd 3 carries the single JSON result line back
// — the harness channel convention from harness/runner.go.
type processHandle struct {
	cmd            *exec.Cmd
	stdin          io.WriteCloser
	respReader     io.ReadCloser
	controlTimeout time.Duration

	mu   sync.Mutex
	used bool
}

func spawnWorker(exe string, controlTimeout time.Duration) (*processHandle, error) {
	respR, respW, err := os.Pipe()
	if err != nil {
		return nil, errors.Wrap(err, "isolate: creating response pipe")
	}

	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), WorkerEnv+"=1")
	cmd.ExtraFiles = []*os.File{respW}
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		respR.Close()
		respW.Close()
		return nil, errors.Wrap(err, "isolate: creating stdin pipe")
	}

	if err := cmd.Start(); err != nil {
		respR.Close()
		respW.Close()
		return nil, err
	}
	// The parent's copy of the write end must close so the reader
	// observes EOF once the child exits (harness/runner.go's pattern).
	respW.Close()

	return &processHandle{cmd: cmd, stdin: stdin, respReader: respR, controlTimeout: controlTimeout}, nil
}

// Run sends one job to the subprocess and waits for its result. Each
// handle accepts exactly one Run call; no runtime is reused across
// benchmarks.
func (h *processHandle) Run(ctx context.Context, spec *runnerspec.Spec, runOpts bench.RunOptions, sqOpts *bench.SqueezeOptions) (*bench.RunResult, error) {
	h.mu.Lock()
	if h.used {
		h.mu.Unlock()
		return nil, errors.New("isolate: runtime handle already used")
	}
	h.used = true
	h.mu.Unlock()

	req := request{
		Spec:        spec,
		Concurrency: runOpts.Concurrency,
		Sample:      toWireSample(runOpts.Sample),
		Squeeze:     toWireSqueeze(sqOpts),
	}
	data, err := encodeRequest(req)
	if err != nil {
		return nil, errors.Wrap(err, "isolate: encoding request")
	}

	handoff, cancel := context.WithTimeout(ctx, h.controlTimeout)
	defer cancel()
	if err := writeWithContext(handoff, h.stdin, data); err != nil {
		return nil, &bench.IsolationTimeout{Budget: h.controlTimeout}
	}
	_ = h.stdin.Close()

	scanner := newLineReader(h.respReader)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, errors.Wrap(err, "isolate: reading response")
		}
		return nil, errors.New("isolate: worker produced no response")
	}

	var resp response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, errors.Wrap(err, "isolate: decoding response")
	}
	if resp.Error != "" {
		return nil, errors.Errorf("isolate: worker error: %s", resp.Error)
	}
	return resp.Result, nil
}

func (h *processHandle) close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	_ = h.stdin.Close()
	_ = h.respReader.Close()

	done := make(chan error, 1)
	go func() { done <- h.cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil && err.Error() != "signal: killed" {
			return errors.Wrap(err, "isolate: worker exit")
		}
		return nil
	case <-ctx.Done():
		if h.cmd.Process != nil {
			_ = h.cmd.Process.Kill()
		}
		<-done
		return ctx.Err()
	}
}

// writeWithContext writes data, giving up if ctx is done first. A
// pipe write to a live, reading child is effectively non-blocking at
// these message sizes, so this mostly guards against a child that
// never got far enough to read.
func writeWithContext(ctx context.Context, w io.Writer, data []byte) error {
	done := make(chan error, 1)
	go func() { _, err := w.Write(data); done <- err }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newLineReader(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return s
}
