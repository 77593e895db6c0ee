package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"golang.org/x/sync/errgroup"
)

const (
	// ReasonCanceled is the abort reason recorded when the run context ends.
	ReasonCanceled = "run canceled"
	// ReasonTickLimit is the abort reason recorded when WithMaxTicks is reached.
	ReasonTickLimit = "tick limit reached"
)

// Agent is what a Runner drives. runtime.Agent implements it for every state type.
type Agent interface {
	ID() string
	Idle() bool
	Ticks() uint64
	Update(ctx context.Context) error
	Abort(ctx context.Context, reason string)
	Snapshot() domain.TreeSnapshot
}

// Result summarizes one finished run.
type Result struct {
	AgentID string            `json:"agent_id"`
	Ticks   uint64            `json:"ticks"`
	Status  domain.StatusKind `json:"status"`
	Reason  string            `json:"reason,omitempty"`
	Errors  int               `json:"errors"`
}

// Runner ticks agents until their goal trees close.
type Runner struct {
	MaxTicks    uint64
	Interval    time.Duration
	Logger      *slog.Logger
	Board       *observability.Board
	StopOnError bool
}

// NewRunner creates a Runner with no tick limit.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run ticks agent until it is idle. When ctx ends first, the goal tree is aborted and
// the context error returned together with the partial result.
func (r *Runner) Run(ctx context.Context, agent Agent) (Result, error) {
	res := Result{AgentID: agent.ID()}
	logger := r.Logger.With("agent", agent.ID())
	logger.Info("run started")

	start := agent.Ticks()
	for !agent.Idle() {
		if err := ctx.Err(); err != nil {
			agent.Abort(context.WithoutCancel(ctx), ReasonCanceled)
			r.publish(agent)
			return r.finish(agent, res), err
		}
		if r.MaxTicks > 0 && agent.Ticks()-start >= r.MaxTicks {
			logger.Warn("tick limit reached", "max_ticks", r.MaxTicks)
			agent.Abort(ctx, ReasonTickLimit)
			r.publish(agent)
			break
		}

		err := agent.Update(ctx)
		r.publish(agent)
		if err != nil {
			var actionErr *runtime.ActionError
			if !errors.As(err, &actionErr) {
				agent.Abort(context.WithoutCancel(ctx), err.Error())
				r.publish(agent)
				return r.finish(agent, res), fmt.Errorf("agent %s: %w", agent.ID(), err)
			}
			res.Errors++
			logger.Warn("action failed", "goal", actionErr.Goal, "action", actionErr.Action, "err", actionErr.Err)
			if r.StopOnError {
				agent.Abort(context.WithoutCancel(ctx), err.Error())
				r.publish(agent)
				return r.finish(agent, res), err
			}
		}

		if r.Interval > 0 && !agent.Idle() {
			select {
			case <-ctx.Done():
			case <-time.After(r.Interval):
			}
		}
	}

	res = r.finish(agent, res)
	logger.Info("run finished", "status", res.Status, "reason", res.Reason, "ticks", res.Ticks)
	return res, nil
}

// RunAll runs every agent in its own goroutine. The first hard error cancels the others;
// results are returned in the order of agents.
func (r *Runner) RunAll(ctx context.Context, agents ...Agent) ([]Result, error) {
	results := make([]Result, len(agents))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range agents {
		g.Go(func() error {
			res, err := r.Run(gctx, a)
			results[i] = res
			return err
		})
	}
	err := g.Wait()
	return results, err
}

func (r *Runner) finish(agent Agent, res Result) Result {
	res.Ticks = agent.Ticks()
	snap := agent.Snapshot()
	for _, n := range snap.Nodes {
		if n.ID == snap.Root {
			res.Status, res.Reason = n.Status, n.Reason
		}
	}
	return res
}

func (r *Runner) publish(agent Agent) {
	if r.Board == nil {
		return
	}
	if err := r.Board.Update(agent.Snapshot()); err != nil {
		r.Logger.Error("failed to publish snapshot", "agent", agent.ID(), "err", err)
	}
}
