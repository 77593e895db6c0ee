package runtime

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tactic"
	"github.com/google/uuid"
)

// Refresher pulls the latest external state before an action is chosen.
// env.Environment implements it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type config struct {
	id      string
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	cost    CostPolicy
	chooser tactic.Chooser
	env     Refresher
	budget  float64
	now     func() time.Time
}

func defaultConfig() config {
	return config{
		id:     uuid.NewString(),
		logger: logging.NewNop(),
		cost:   UnitCost,
		budget: math.Inf(1),
		now:    time.Now,
	}
}

// Option configures an Agent.
type Option func(*config)

// WithID sets the agent ID. By default a random UUID is used.
func WithID(id string) Option {
	return func(c *config) {
		if id != "" {
			c.id = id
		}
	}
}

// WithLogger sets a custom structured logger for the agent.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *config) {
		c.hooks = c.hooks.Merge(hooks)
	}
}

// WithCostPolicy sets how much budget a tick costs. Default is UnitCost.
func WithCostPolicy(p CostPolicy) Option {
	return func(c *config) {
		if p != nil {
			c.cost = p
		}
	}
}

// WithChooser sets how ANYOF tactics pick among enabled actions. Default is the first.
func WithChooser(pick tactic.Chooser) Option {
	return func(c *config) {
		c.chooser = pick
	}
}

// WithEnvironment makes the agent refresh env at the start of every tick.
func WithEnvironment(env Refresher) Option {
	return func(c *config) {
		c.env = env
	}
}

// WithBudget sets the budget the root of every goal tree starts with (default: unbounded).
func WithBudget(b float64) Option {
	return func(c *config) {
		c.budget = b
	}
}

// WithClock replaces time.Now, for deterministic elapsed-time accounting.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}
