package runnerspec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempTrace(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadTraceParsesCalls(t *testing.T) {
	path := writeTempTrace(t, `[{"module":"","function":"sleep","args":[1]},{"module":"rand","function":"uniform","args":[10]}]`)

	calls, err := LoadTrace(path)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, "sleep", calls[0].Function)
	assert.Equal(t, "rand", calls[1].Module)
}

func TestLoadTraceRejectsEmpty(t *testing.T) {
	path := writeTempTrace(t, `[]`)
	_, err := LoadTrace(path)
	assert.Error(t, err)
}

func TestLoadTraceRejectsMissingFunction(t *testing.T) {
	path := writeTempTrace(t, `[{"module":"m","function":"","args":[]}]`)
	_, err := LoadTrace(path)
	assert.Error(t, err)
}

func TestLoadTraceMissingFile(t *testing.T) {
	_, err := LoadTrace(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLooksLikeTraceFile(t *testing.T) {
	assert.True(t, looksLikeTraceFile("./trace.json"))
	assert.False(t, looksLikeTraceFile("sleep(1)."))
	assert.False(t, looksLikeTraceFile("{'', sleep, [1]}"))
	assert.False(t, looksLikeTraceFile("  "))
}
