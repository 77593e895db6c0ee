package goal

import (
	"context"
	"errors"
	"math"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tactic"
)

// DefaultEpsilon is the tolerance used by objective-function goals.
const DefaultEpsilon = 0.005

// Goal is a named objective over proposals of type P, with the tactic that produces them
// from agent states of type S.
//
// A goal is solved either by a predicate (ToSolve) or by an objective function whose
// absolute value drops below epsilon (ToSolveF). Setting one clears the other.
type Goal[S, P any] struct {
	name      string
	solving   func(P) bool
	objective func(P) float64
	epsilon   float64
	tactic    *tactic.Tactic[S, P]

	solution P
	solved   bool
}

// New creates a goal with the given name. It still needs a solving test and a tactic.
func New[S, P any](name string) *Goal[S, P] {
	return &Goal[S, P]{name: name, epsilon: DefaultEpsilon}
}

// ToSolve sets the solving predicate.
func (g *Goal[S, P]) ToSolve(pred func(P) bool) *Goal[S, P] {
	g.solving, g.objective = pred, nil
	return g
}

// ToSolveF sets a numeric objective: the goal is solved when |f(p)| < epsilon.
func (g *Goal[S, P]) ToSolveF(f func(P) float64) *Goal[S, P] {
	g.objective, g.solving = f, nil
	return g
}

// WithEpsilon changes the objective tolerance.
func (g *Goal[S, P]) WithEpsilon(eps float64) *Goal[S, P] {
	g.epsilon = eps
	return g
}

// WithTactic binds the tactic that proposes candidate solutions.
func (g *Goal[S, P]) WithTactic(t *tactic.Tactic[S, P]) *Goal[S, P] {
	g.tactic = t
	return g
}

func (g *Goal[S, P]) Name() string                 { return g.name }
func (g *Goal[S, P]) Tactic() *tactic.Tactic[S, P] { return g.tactic }

// Propose evaluates a candidate. On success the candidate is recorded as the solution.
// A goal never fails itself; failure comes from budget exhaustion or an abort action.
func (g *Goal[S, P]) Propose(candidate P) bool {
	var ok bool
	switch {
	case g.solving != nil:
		ok = g.solving(candidate)
	case g.objective != nil:
		ok = math.Abs(g.objective(candidate)) < g.epsilon
	}
	if ok {
		g.solution, g.solved = candidate, true
	}
	return ok
}

// Solution returns the accepted proposal, if any.
func (g *Goal[S, P]) Solution() (P, bool) { return g.solution, g.solved }

// Lift wraps the goal into a primitive goal structure.
func (g *Goal[S, P]) Lift() *Structure[S] {
	return Lift[S](g)
}

func (g *Goal[S, P]) validate() error {
	if g.tactic == nil {
		return &ConfigurationError{Node: g.name, Reason: "goal has no tactic"}
	}
	if g.solving == nil && g.objective == nil {
		return &ConfigurationError{Node: g.name, Reason: "goal has no solving predicate or objective"}
	}
	if g.objective != nil && !(g.epsilon > 0) {
		return &ConfigurationError{Node: g.name, Reason: "objective epsilon must be positive"}
	}
	return nil
}

// Attempt is the outcome of one tick spent on a leaf goal.
type Attempt struct {
	Action   string // empty when no action was enabled
	Aborted  bool   // the Abort action was selected
	Proposed bool   // the action produced a proposal
	Solved   bool
	Verdict  *domain.Verdict // set by test goals when solved
	Err      error           // the action body failed; the goal stays in progress
}

// Leaf is what a primitive node of a goal tree holds. It hides the proposal type so that
// one tree can mix goals with different proposal types over the same state.
type Leaf[S any] interface {
	Name() string
	Step(ctx context.Context, state S, pick tactic.Chooser) (Attempt, error)
	validate() error
}

// Step runs one tick of the goal: select an action, execute it and propose its result.
// Action failures are reported in Attempt.Err. The returned error comes from proposal
// evaluation itself (configuration problems, a failing verdict sink); Attempt is still
// filled in as far as the step got.
func (g *Goal[S, P]) Step(ctx context.Context, state S, pick tactic.Chooser) (Attempt, error) {
	return step(ctx, g, state, pick, func(_ context.Context, p P) (bool, *domain.Verdict, error) {
		return g.Propose(p), nil, nil
	})
}

type proposeFunc[P any] func(ctx context.Context, p P) (bool, *domain.Verdict, error)

func step[S, P any](ctx context.Context, g *Goal[S, P], state S, pick tactic.Chooser, propose proposeFunc[P]) (Attempt, error) {
	var at Attempt
	if g.tactic == nil {
		return at, &ConfigurationError{Node: g.name, Reason: "goal has no tactic"}
	}

	action, ok := g.tactic.Select(state, pick)
	if !ok {
		return at, nil
	}
	at.Action = action.Name()

	proposal, err := action.Execute(ctx, state)
	if errors.Is(err, tactic.ErrAbort) {
		at.Aborted = true
		return at, nil
	}
	if err != nil {
		at.Err = err
		return at, nil
	}

	at.Proposed = true
	solved, verdict, err := propose(ctx, proposal)
	at.Solved, at.Verdict = solved, verdict
	return at, err
}
