package runner

import (
	"log/slog"
	"time"

	"github.com/aretw0/arbor/pkg/observability"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithMaxTicks aborts an agent that is still busy after n ticks. Zero means no limit.
func WithMaxTicks(n uint64) Option {
	return func(r *Runner) {
		r.MaxTicks = n
	}
}

// WithInterval waits d between ticks of the same agent.
func WithInterval(d time.Duration) Option {
	return func(r *Runner) {
		r.Interval = d
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithBoard publishes a snapshot of every agent after each tick.
func WithBoard(b *observability.Board) Option {
	return func(r *Runner) {
		r.Board = b
	}
}

// WithStopOnError makes action errors end the run instead of being logged.
func WithStopOnError(stop bool) Option {
	return func(r *Runner) {
		r.StopOnError = stop
	}
}
