package env

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/ports"
)

// ErrUnexpectedResult is returned when a command result does not have the declared type.
var ErrUnexpectedResult = errors.New("unexpected command result type")

// Backend is the system an Environment talks to. Implementations must be synchronous and
// report failures as errors rather than corrupted results.
type Backend interface {
	// Refresh pulls the latest external state into the local snapshot.
	Refresh(ctx context.Context) error
	// Reset restores the external system to its initial state.
	Reset(ctx context.Context) error
	// Send dispatches one command and returns its result.
	Send(ctx context.Context, op Operation) (any, error)
}

// Operation describes one refresh or command dispatched through an Environment.
type Operation struct {
	Invoker string    `json:"invoker"`
	Target  string    `json:"target,omitempty"`
	Command string    `json:"command"`
	Arg     any       `json:"arg,omitempty"`
	Result  any       `json:"result,omitempty"`
	Err     error     `json:"-"`
	Time    time.Time `json:"time"`
}

// IsRefresh reports whether the operation is a refresh.
func (o Operation) IsRefresh() bool { return o.Command == RefreshCommand && o.Invoker == EnvInvoker }

const (
	// EnvInvoker is the invoker of operations the environment issues itself.
	EnvInvoker = "ENV"
	// RefreshCommand is the command name recorded for refreshes.
	RefreshCommand = "refresh"
)

// Instrumenter observes the operations of an Environment in debug mode.
// It is advisory only and never affects scheduling.
type Instrumenter interface {
	Update(op Operation)
	Reset()
}

// CommandError wraps a backend failure with the command that caused it.
type CommandError struct {
	Op  Operation
	Err error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q from %q to %q failed: %v", e.Op.Command, e.Op.Invoker, e.Op.Target, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Environment is the façade agents use to reach the outside world. Refreshes and commands
// are serialized through a ports.Locker so that agents sharing one Environment never
// interleave the effects of a single command.
type Environment struct {
	backend Backend
	locker  ports.Locker
	lockKey string
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu            sync.Mutex
	debug         bool
	instrumenters []Instrumenter
	last          *Operation
}

// Option configures an Environment.
type Option func(*Environment)

// WithLocker replaces the in-process locker, e.g. with a redis.Locker shared by replicas.
func WithLocker(l ports.Locker) Option {
	return func(e *Environment) {
		e.locker = l
	}
}

// WithLockKey sets the key used with the locker (default "environment").
func WithLockKey(key string) Option {
	return func(e *Environment) {
		e.lockKey = key
	}
}

// WithLockTTL bounds how long a crashed holder can keep a distributed lock.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Environment) {
		e.lockTTL = ttl
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Environment) {
		e.logger = logger
	}
}

// WithDebug turns debug instrumentation on.
func WithDebug(on bool) Option {
	return func(e *Environment) {
		e.debug = on
	}
}

// WithInstrumenter registers instrumenters.
func WithInstrumenter(is ...Instrumenter) Option {
	return func(e *Environment) {
		e.instrumenters = append(e.instrumenters, is...)
	}
}

// New wraps a backend.
func New(b Backend, opts ...Option) *Environment {
	e := &Environment{
		backend: b,
		locker:  memory.NewLocker(),
		lockKey: "environment",
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Refresh pulls the latest external state.
func (e *Environment) Refresh(ctx context.Context) error {
	op := Operation{Invoker: EnvInvoker, Command: RefreshCommand}
	err := e.locked(ctx, func(ctx context.Context) error {
		return e.backend.Refresh(ctx)
	})
	op.Err = err
	e.instrument(op)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	return nil
}

// Reset restores the external system to its initial state. Instrumenters are reset and
// the last operation is forgotten.
func (e *Environment) Reset(ctx context.Context) error {
	e.logger.Info("environment reset")
	err := e.locked(ctx, e.backend.Reset)

	e.mu.Lock()
	e.last = nil
	instrumenters := slices.Clone(e.instrumenters)
	e.mu.Unlock()
	for _, i := range instrumenters {
		i.Reset()
	}
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// SendCommand dispatches one command from invoker to target. Failures come back as
// *CommandError.
func (e *Environment) SendCommand(ctx context.Context, invoker, target, command string, arg any) (any, error) {
	op := Operation{Invoker: invoker, Target: target, Command: command, Arg: arg}
	err := e.locked(ctx, func(ctx context.Context) error {
		var err error
		op.Result, err = e.backend.Send(ctx, op)
		return err
	})
	op.Err = err
	e.instrument(op)
	if err != nil {
		e.logger.Warn("command failed", "command", command, "invoker", invoker, "target", target, "err", err)
		return nil, &CommandError{Op: op, Err: err}
	}
	return op.Result, nil
}

func (e *Environment) locked(ctx context.Context, fn func(context.Context) error) error {
	unlock, err := e.locker.Lock(ctx, e.lockKey, e.lockTTL)
	if err != nil {
		return fmt.Errorf("acquire environment lock: %w", err)
	}
	defer func() {
		// Release even when ctx was canceled during fn.
		if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
			e.logger.Error("failed to release environment lock", "err", uerr)
		}
	}()
	return fn(ctx)
}

func (e *Environment) instrument(op Operation) {
	op.Time = e.now()

	e.mu.Lock()
	if !e.debug {
		e.mu.Unlock()
		return
	}
	e.last = &op
	instrumenters := slices.Clone(e.instrumenters)
	e.mu.Unlock()

	for _, i := range instrumenters {
		i.Update(op)
	}
}

// SetDebug turns debug instrumentation on or off.
func (e *Environment) SetDebug(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.debug = on
}

// Register adds an instrumenter.
func (e *Environment) Register(i Instrumenter) error {
	if i == nil {
		return errors.New("nil instrumenter")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.instrumenters = append(e.instrumenters, i)
	return nil
}

// Remove unregisters an instrumenter.
func (e *Environment) Remove(i Instrumenter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.instrumenters = slices.DeleteFunc(e.instrumenters, func(x Instrumenter) bool { return x == i })
}

// LastOperation returns the most recent operation seen in debug mode.
func (e *Environment) LastOperation() (Operation, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return Operation{}, false
	}
	return *e.last, true
}

// LastWasRefresh reports whether the most recent operation seen in debug mode was a refresh.
func (e *Environment) LastWasRefresh() bool {
	op, ok := e.LastOperation()
	return ok && op.IsRefresh()
}
