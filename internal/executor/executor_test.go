package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ashutoshrp06/steploop/internal/tools"
	"github.com/ashutoshrp06/steploop/internal/types"
)

func newTestExecutor(t *testing.T) (*Executor, string, *observer.ObservedLogs) {
	t.Helper()
	dir := t.TempDir()
	registry, err := tools.NewDefaultRegistry(tools.HostConfig{WorkDir: dir})
	require.NoError(t, err)

	core, logs := observer.New(zapcore.InfoLevel)
	return NewExecutor(registry, zap.New(core)), dir, logs
}

func TestExecutor_WriteInFile(t *testing.T) {
	exec, dir, logs := newTestExecutor(t)

	action := types.Action("writeInFile", types.ToolArgs{"fileName": "notes.txt", "data": "Hello"})
	observe, result := exec.Observe(context.Background(), action)

	assert.True(t, result.Success)
	assert.Equal(t, types.Observe("Data written into notes.txt"), observe)
	assert.Equal(t, "writeInFile", result.Tool)

	content, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(content))

	assert.Equal(t, 1, logs.FilterMessage("Tool finished").Len())
}

func TestExecutor_UnknownToolBecomesObservation(t *testing.T) {
	exec, _, logs := newTestExecutor(t)

	action := types.Action("deleteEverything", types.ToolArgs{"input": "/"})
	observe, result := exec.Observe(context.Background(), action)

	assert.False(t, result.Success)
	assert.Equal(t, types.StepObserve, observe.Kind)
	assert.Equal(t, "error: unknown tool: deleteEverything", observe.Content)

	failed := logs.FilterMessage("Tool failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "unknown_tool", failed[0].ContextMap()["kind"])
}

func TestExecutor_IOErrorBecomesObservation(t *testing.T) {
	exec, _, logs := newTestExecutor(t)

	action := types.Action("writeInFile", types.ToolArgs{"fileName": "missing/notes.txt", "data": "x"})
	observe, result := exec.Observe(context.Background(), action)

	assert.False(t, result.Success)
	assert.True(t, strings.HasPrefix(observe.Content, "error: writeInFile: write \"missing/notes.txt\""), observe.Content)

	failed := logs.FilterMessage("Tool failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "io", failed[0].ContextMap()["kind"])
}

func TestExecutor_NonActionStep(t *testing.T) {
	exec, _, _ := newTestExecutor(t)

	result := exec.Execute(context.Background(), types.Think("hmm"))
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not an action step")
}

func TestExecutor_NilLoggerDefaultsToNop(t *testing.T) {
	registry := tools.MustNewRegistry()
	exec := NewExecutor(registry, nil)

	result := exec.Execute(context.Background(), types.Action("nothing", types.ToolArgs{"input": "x"}))
	assert.False(t, result.Success)
}

func TestRedact(t *testing.T) {
	long := strings.Repeat("a", 100)
	got := redact(types.ToolArgs{"fileName": "a.txt", "data": long, "input": long})

	assert.Equal(t, "a.txt", got["fileName"])
	assert.Equal(t, long, got["input"])
	assert.Len(t, got["data"], 67)
}

func TestRedact_KeepsRunesWhole(t *testing.T) {
	data := strings.Repeat("é", 100)
	got := redact(types.ToolArgs{"data": data})

	assert.True(t, utf8.ValidString(got["data"]))
	assert.Equal(t, strings.Repeat("é", 64)+"...", got["data"])
}
