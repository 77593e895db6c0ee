package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/process"
	"github.com/aretw0/arbor/pkg/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("process tests use sh")
	}
}

func TestBackend_Send(t *testing.T) {
	skipOnWindows(t)
	ctx := context.Background()

	b := process.NewBackend(process.WithCommands(
		process.Command{Name: "greet", Command: "sh", Args: []string{"-c", `echo "hello $ARBOR_TARGET from $ARBOR_INVOKER"`}},
		process.Command{Name: "json", Command: "sh", Args: []string{"-c", `echo '{"open": true, "n": 2}'`}},
		process.Command{Name: "args", Command: "sh", Args: []string{"-c", `echo "$ARBOR_ARG_KEY=$ARBOR_ARG_VALUE $GREETING"`},
			Environment: map[string]string{"GREETING": "hi"}},
		process.Command{Name: "scalar", Command: "sh", Args: []string{"-c", `echo "$ARBOR_ARG"`}},
		process.Command{Name: "broken", Command: "sh", Args: []string{"-c", `echo oops >&2; exit 3`}},
	))
	assert.Equal(t, []string{"args", "broken", "greet", "json", "scalar"}, b.Names())

	t.Run("Text Output", func(t *testing.T) {
		res, err := b.Send(ctx, env.Operation{Invoker: "agent-1", Target: "door", Command: "greet"})
		require.NoError(t, err)
		assert.Equal(t, "hello door from agent-1", res)
	})

	t.Run("JSON Output", func(t *testing.T) {
		res, err := b.Send(ctx, env.Operation{Command: "json"})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"open": true, "n": float64(2)}, res)
	})

	t.Run("Arguments Via Env Vars", func(t *testing.T) {
		res, err := b.Send(ctx, env.Operation{Command: "args", Arg: map[string]any{"key": "door", "value": 42}})
		require.NoError(t, err)
		assert.Equal(t, "door=42 hi", res)

		res, err = b.Send(ctx, env.Operation{Command: "scalar", Arg: []int{1, 2}})
		require.NoError(t, err)
		assert.Equal(t, []any{float64(1), float64(2)}, res)
	})

	t.Run("Fails For Unregistered Command", func(t *testing.T) {
		_, err := b.Send(ctx, env.Operation{Command: "hacker_script"})
		assert.ErrorIs(t, err, process.ErrNotRegistered)
	})

	t.Run("Non Zero Exit", func(t *testing.T) {
		_, err := b.Send(ctx, env.Operation{Command: "broken"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "oops")
	})
}

func TestBackend_RefreshAndReset(t *testing.T) {
	skipOnWindows(t)
	ctx := context.Background()
	dir := t.TempDir()

	b := process.NewBackend(
		process.WithBaseDir(dir),
		process.WithCommands(
			process.Command{Name: "tick", Command: "sh", Args: []string{"-c", `echo x >> ticks`}},
			process.Command{Name: "wipe", Command: "sh", Args: []string{"-c", `rm -f ticks`}},
		),
		process.WithRefresh("tick"),
		process.WithReset("wipe"),
	)

	e := env.New(b)
	require.NoError(t, e.Refresh(ctx))
	require.NoError(t, e.Refresh(ctx))
	data, err := os.ReadFile(filepath.Join(dir, "ticks"))
	require.NoError(t, err)
	assert.Equal(t, "x\nx\n", string(data))

	require.NoError(t, e.Reset(ctx))
	assert.NoFileExists(t, filepath.Join(dir, "ticks"))

	// Without refresh or reset commands both are no-ops.
	plain := process.NewBackend()
	assert.NoError(t, plain.Refresh(ctx))
	assert.NoError(t, plain.Reset(ctx))
}

func TestLoadCommands(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "commands.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
commands:
  - name: push
    command: ./push.sh
    args: [--hard]
  - command: nameless
`), 0o644))
	cmds, err := process.LoadCommands(yamlPath)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, "push", cmds[0].Name)
	assert.Equal(t, []string{"--hard"}, cmds[0].Args)

	jsonPath := filepath.Join(dir, "commands.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"commands":[{"name":"pull","command":"pull"}]}`), 0o644))
	cmds, err = process.LoadCommands(jsonPath)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, "pull", cmds[0].Command)

	cmds, err = process.LoadCommands(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cmds)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o644))
	_, err = process.LoadCommands(bad)
	assert.Error(t, err)
}
