package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/aretw0/arbor/pkg/env"
)

// ErrNotRegistered is returned for commands outside the allow-list.
var ErrNotRegistered = errors.New("process command not registered")

// Backend implements env.Backend by executing local processes.
// It follows a Strict Registry pattern for security (Allow-Listing): an operation names a
// registered command and never the executable itself.
//
// Operation fields reach the process as environment variables, not as flags:
//
//	ARBOR_INVOKER, ARBOR_TARGET, ARBOR_COMMAND
//	ARBOR_ARG            the argument, when it is not a map
//	ARBOR_ARG_<KEY>      one per key, when the argument is a map[string]any
//
// Stdout is the result: parsed as JSON when it looks like an object or array, the
// trimmed text otherwise.
type Backend struct {
	registry map[string]Command
	refresh  string
	reset    string
	baseDir  string
}

// Option configures the backend.
type Option func(*Backend)

// WithCommands populates the allow-list.
func WithCommands(cmds ...Command) Option {
	return func(b *Backend) {
		for _, c := range cmds {
			b.registry[c.Name] = c
		}
	}
}

// WithRefresh runs the named command on every env.Environment refresh.
func WithRefresh(name string) Option {
	return func(b *Backend) {
		b.refresh = name
	}
}

// WithReset runs the named command when the environment is reset.
func WithReset(name string) Option {
	return func(b *Backend) {
		b.reset = name
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) Option {
	return func(b *Backend) {
		b.baseDir = dir
	}
}

// NewBackend creates a new process backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		registry: make(map[string]Command),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register adds a trusted script/command to the allow-list.
func (b *Backend) Register(name string, command string, args ...string) {
	b.registry[name] = Command{Name: name, Command: command, Args: args}
}

// Names lists the registered commands, sorted.
func (b *Backend) Names() []string {
	names := make([]string, 0, len(b.registry))
	for n := range b.registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Refresh runs the refresh command, if any. Its output is discarded.
func (b *Backend) Refresh(ctx context.Context) error {
	if b.refresh == "" {
		return nil
	}
	_, err := b.Send(ctx, env.Operation{Invoker: env.EnvInvoker, Command: b.refresh})
	return err
}

// Reset runs the reset command, if any.
func (b *Backend) Reset(ctx context.Context) error {
	if b.reset == "" {
		return nil
	}
	_, err := b.Send(ctx, env.Operation{Invoker: env.EnvInvoker, Command: b.reset})
	return err
}

// Send runs the command named by op.Command.
func (b *Backend) Send(ctx context.Context, op env.Operation) (any, error) {
	proc, ok := b.registry[op.Command]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, op.Command)
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = b.baseDir
	cmd.Env = append(cmd.Environ(), environ(proc, op)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w. Stderr: %s", op.Command, err, strings.TrimSpace(stderr.String()))
	}
	return parseOutput(stdout.String()), nil
}

func environ(proc Command, op env.Operation) []string {
	vars := make([]string, 0, len(proc.Environment)+4)
	for k, v := range proc.Environment {
		vars = append(vars, k+"="+v)
	}
	vars = append(vars,
		"ARBOR_INVOKER="+op.Invoker,
		"ARBOR_TARGET="+op.Target,
		"ARBOR_COMMAND="+op.Command,
	)
	switch arg := op.Arg.(type) {
	case nil:
	case map[string]any:
		for k, v := range arg {
			vars = append(vars, fmt.Sprintf("ARBOR_ARG_%s=%s", strings.ToUpper(k), format(v)))
		}
	default:
		vars = append(vars, "ARBOR_ARG="+format(arg))
	}
	return vars
}

// format renders primitives with %v and everything else as JSON.
func format(v any) string {
	switch v.(type) {
	case string, int, int64, float64, bool:
		return fmt.Sprintf("%v", v)
	case nil:
		return ""
	}
	if data, err := json.Marshal(v); err == nil {
		return string(data)
	}
	return fmt.Sprintf("%v", v)
}

func parseOutput(output string) any {
	trimmed := strings.TrimSpace(output)
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return trimmed
}
