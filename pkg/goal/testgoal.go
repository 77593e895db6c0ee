package goal

import (
	"context"
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/tactic"
)

// TestGoal is a goal whose accepted proposal is judged by an oracle. The verdict is
// forwarded to the owning VerdictSink. Scheduling is unaffected by the verdict.
type TestGoal[S, P any] struct {
	*Goal[S, P]
	oracle func(P) domain.Verdict
	sink   ports.VerdictSink
}

// Test decorates g with an oracle. Oracle must be called before the goal is proposed to.
func Test[S, P any](g *Goal[S, P]) *TestGoal[S, P] {
	return &TestGoal[S, P]{Goal: g}
}

// Oracle sets the verdict function and the sink that owns the verdicts.
func (t *TestGoal[S, P]) Oracle(sink ports.VerdictSink, oracle func(P) domain.Verdict) *TestGoal[S, P] {
	t.sink, t.oracle = sink, oracle
	return t
}

// Propose evaluates the candidate; when it solves the goal the oracle is invoked once and
// its verdict registered once with the sink.
func (t *TestGoal[S, P]) Propose(ctx context.Context, candidate P) (bool, error) {
	ok, _, err := t.propose(ctx, candidate)
	return ok, err
}

func (t *TestGoal[S, P]) propose(ctx context.Context, candidate P) (bool, *domain.Verdict, error) {
	if err := t.checkOracle(); err != nil {
		return false, nil, err
	}
	if !t.Goal.Propose(candidate) {
		return false, nil, nil
	}
	v := t.oracle(candidate)
	if err := t.sink.RegisterVerdict(ctx, t.Name(), v); err != nil {
		return true, &v, fmt.Errorf("register verdict of %q: %w", t.Name(), err)
	}
	return true, &v, nil
}

// Step runs one tick of the test goal.
func (t *TestGoal[S, P]) Step(ctx context.Context, state S, pick tactic.Chooser) (Attempt, error) {
	return step(ctx, t.Goal, state, pick, t.propose)
}

// Lift wraps the test goal into a primitive goal structure.
func (t *TestGoal[S, P]) Lift() *Structure[S] {
	return Lift[S](t)
}

func (t *TestGoal[S, P]) validate() error {
	if err := t.Goal.validate(); err != nil {
		return err
	}
	return t.checkOracle()
}

func (t *TestGoal[S, P]) checkOracle() error {
	if t.oracle == nil {
		return &ConfigurationError{Node: t.Name(), Reason: "test goal has no oracle"}
	}
	if t.sink == nil {
		return &ConfigurationError{Node: t.Name(), Reason: "test goal has no owning verdict sink"}
	}
	return nil
}
