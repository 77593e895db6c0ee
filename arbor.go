package arbor

import (
	"context"
	_ "embed"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/goal"
	"github.com/aretw0/arbor/pkg/runner"
	"github.com/aretw0/arbor/pkg/tactic"
)

// Version is the released version of arbor.
//
//go:embed VERSION
var Version string

// Agent pursues a goal tree over a state of type S. See runtime.Agent for the tick
// semantics.
type Agent[S any] = runtime.Agent[S]

// ActionError reports a failure inside a tick that left the goal tree in progress.
type ActionError = runtime.ActionError

// CostPolicy decides how much budget one tick consumes.
type CostPolicy = runtime.CostPolicy

// Option configures an Agent.
type Option = runtime.Option

// New creates an idle agent over state. Call SetGoal to give it something to do.
func New[S any](state S, opts ...Option) *Agent[S] {
	return runtime.New(state, opts...)
}

// WithID sets the agent ID. By default a random UUID is used.
func WithID(id string) Option { return runtime.WithID(id) }

// WithLogger sets a custom structured logger for the agent.
func WithLogger(logger *slog.Logger) Option { return runtime.WithLogger(logger) }

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return runtime.WithLifecycleHooks(hooks)
}

// WithBudget sets the budget given to the root of every goal tree (default unlimited).
func WithBudget(b float64) Option { return runtime.WithBudget(b) }

// WithCostPolicy replaces the default of one budget unit per tick.
func WithCostPolicy(p CostPolicy) Option { return runtime.WithCostPolicy(p) }

// WithTimeCost charges every tick its wall-clock duration in seconds.
func WithTimeCost() Option { return runtime.WithCostPolicy(runtime.TimeCost) }

// WithChooser sets how ANYOF tactics pick among enabled actions (default the first).
func WithChooser(pick tactic.Chooser) Option { return runtime.WithChooser(pick) }

// WithEnvironment refreshes env at the start of every tick.
func WithEnvironment(env runtime.Refresher) Option { return runtime.WithEnvironment(env) }

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option { return runtime.WithClock(now) }

// Solve gives agent the goal root and ticks it until the tree closes.
// It is a shorthand for SetGoal followed by a runner.Runner.
func Solve[S any](ctx context.Context, agent *Agent[S], root *goal.Structure[S], opts ...runner.Option) (runner.Result, error) {
	if _, err := agent.SetGoal(ctx, root); err != nil {
		return runner.Result{AgentID: agent.ID()}, err
	}
	return runner.NewRunner(opts...).Run(ctx, agent)
}
