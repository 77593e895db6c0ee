package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/goal"
)

// Agent drives one goal tree over one state, one tick per Update call.
// It is single-threaded: Update, SetGoal and Abort must not be called concurrently.
type Agent[S any] struct {
	cfg    config
	logger *slog.Logger

	state   S
	tree    *goal.Tree[S] // nil when idle
	last    *goal.Tree[S] // most recent tree, kept after it closes for reporting
	current goal.NodeID
	ticks   uint64

	pending []pendingEvent
}

type pendingEvent struct {
	kind domain.EventType
	id   goal.NodeID
}

// New creates an idle agent holding state.
func New[S any](state S, opts ...Option) *Agent[S] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Agent[S]{
		cfg:     cfg,
		logger:  cfg.logger.With("agent", cfg.id),
		state:   state,
		current: goal.NoNode,
	}
}

func (a *Agent[S]) ID() string { return a.cfg.id }

// State returns the state the agent's actions work on.
func (a *Agent[S]) State() S { return a.state }

// Idle reports whether the agent has no active goal tree.
func (a *Agent[S]) Idle() bool { return a.tree == nil }

// Current returns the leaf being worked on, or goal.NoNode when idle.
func (a *Agent[S]) Current() goal.NodeID { return a.current }

// Tree returns the active goal tree, or nil when idle.
func (a *Agent[S]) Tree() *goal.Tree[S] { return a.tree }

// Ticks returns the number of ticks executed so far.
func (a *Agent[S]) Ticks() uint64 { return a.ticks }

// SetGoal builds root into a tree, allocates the initial budget and descends to the first
// leaf. An active tree is aborted and replaced. The returned tree stays readable after the
// agent is done with it.
func (a *Agent[S]) SetGoal(ctx context.Context, root *goal.Structure[S]) (*goal.Tree[S], error) {
	tree, err := goal.Build(root)
	if err != nil {
		return nil, err
	}
	if !a.Idle() {
		a.Abort(ctx, "replaced by a new goal")
	}

	tree.Observe(goal.Observer{
		OnEnter: func(id goal.NodeID) { a.pending = append(a.pending, pendingEvent{domain.EventGoalEnter, id}) },
		OnClose: func(id goal.NodeID) { a.pending = append(a.pending, pendingEvent{domain.EventGoalClose, id}) },
	})
	a.last = tree
	a.logger.Info("goal set", "goal", tree.Name(tree.Root()), "nodes", tree.Len(), "budget", a.cfg.budget)

	cur, err := tree.Start(a.cfg.budget)
	a.flush(ctx, tree)
	if err != nil {
		return nil, err
	}
	if cur == goal.NoNode {
		a.logger.Info("goal tree closed on start", "status", tree.Status(tree.Root()))
		return tree, nil
	}
	a.tree, a.current = tree, cur
	return tree, nil
}

// Update executes one tick: refresh the environment, let the current leaf select and run
// an action, charge the tick's cost and move on to the next leaf if the current one
// closed. An idle agent does nothing.
//
// Failures inside the tick (action body, refresh, proposal evaluation) are returned as
// *ActionError after the tick has completed; the goal stays in progress. Configuration
// errors abort the tick immediately.
func (a *Agent[S]) Update(ctx context.Context) error {
	if a.Idle() {
		return nil
	}
	tree, leafID := a.tree, a.current
	leaf := tree.Leaf(leafID)
	a.ticks++
	start := a.cfg.now()

	var (
		at      goal.Attempt
		tickErr error
	)
	if a.cfg.env != nil {
		if err := a.cfg.env.Refresh(ctx); err != nil {
			tickErr = &ActionError{Goal: leaf.Name(), Err: fmt.Errorf("refresh environment: %w", err)}
		}
	}
	if tickErr == nil {
		var err error
		at, err = leaf.Step(ctx, a.state, a.cfg.chooser)
		switch {
		case err != nil:
			tickErr = &ActionError{Goal: leaf.Name(), Action: at.Action, Err: err}
		case at.Err != nil:
			tickErr = &ActionError{Goal: leaf.Name(), Action: at.Action, Err: at.Err}
		}
	}

	switch {
	case at.Aborted:
		tree.MarkFailed(leafID, ReasonAbortAction)
	case at.Solved:
		tree.MarkSuccess(leafID, "solved")
	}
	if at.Verdict != nil {
		a.emitVerdict(ctx, leaf.Name(), *at.Verdict)
	}

	elapsed := a.cfg.now().Sub(start)
	cost := a.cfg.cost(elapsed, at)
	if err := tree.ConsumeBudget(leafID, cost); err != nil {
		a.flush(ctx, tree)
		return err
	}
	tree.ConsumeTime(leafID, elapsed)
	if tree.Status(leafID).InProgress() && tree.Remaining(leafID) <= 0 {
		tree.MarkBudgetExhausted(leafID)
	}

	a.logger.Debug("tick",
		"tick", a.ticks,
		"goal", leaf.Name(),
		"action", at.Action,
		"proposed", at.Proposed,
		"solved", at.Solved,
		"cost", cost,
		"remaining", tree.Remaining(leafID),
	)
	a.emitTick(ctx, leaf.Name(), at, cost, elapsed, tickErr != nil)

	if tree.Status(leafID).Terminal() {
		next, err := tree.NextLeaf(leafID)
		if err != nil {
			a.flush(ctx, tree)
			return err
		}
		if next == goal.NoNode {
			a.logger.Info("goal tree closed", "status", tree.Status(tree.Root()), "ticks", a.ticks)
			a.idle()
		} else {
			a.current = next
		}
	}
	a.flush(ctx, tree)
	return tickErr
}

// Abort fails the current leaf and all its ancestors, regardless of combinators, and
// leaves the agent idle. It is the cancellation path for external shutdown.
func (a *Agent[S]) Abort(ctx context.Context, reason string) {
	if a.Idle() {
		return
	}
	tree := a.tree
	a.logger.Info("aborting goal tree", "reason", reason, "goal", tree.Name(a.current))
	tree.Abort(a.current, reason)
	a.idle()
	a.flush(ctx, tree)
}

// Snapshot copies the most recent goal tree, with the agent's position in it.
func (a *Agent[S]) Snapshot() domain.TreeSnapshot {
	if a.last == nil {
		return domain.TreeSnapshot{AgentID: a.cfg.id, Root: int(goal.NoNode), Current: int(goal.NoNode), Tick: a.ticks}
	}
	snap := a.last.Snapshot()
	snap.AgentID = a.cfg.id
	snap.Current = int(a.current)
	snap.Tick = a.ticks
	return snap
}

// Report formats the status of the most recent goal tree.
func (a *Agent[S]) Report() string {
	if a.last == nil {
		return ""
	}
	return a.last.Report()
}

func (a *Agent[S]) idle() {
	a.tree = nil
	a.current = goal.NoNode
}
