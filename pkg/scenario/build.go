package scenario

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/env"
	"github.com/aretw0/arbor/pkg/goal"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/tactic"
)

type builder struct {
	registry *registry.Registry
	sink     ports.VerdictSink
	logger   *slog.Logger
	env      *env.Environment
	invoker  string
	declared *EnvironmentSpec
}

// BuildOption configures Build.
type BuildOption func(*builder)

// WithRegistry resolves action names against r instead of registry.Builtins().
func WithRegistry(r *registry.Registry) BuildOption {
	return func(b *builder) {
		b.registry = r
	}
}

// WithVerdictSink sets the sink that owns the verdicts of oracle goals.
func WithVerdictSink(s ports.VerdictSink) BuildOption {
	return func(b *builder) {
		b.sink = s
	}
}

// WithLogger reports expression evaluation failures to logger.
func WithLogger(logger *slog.Logger) BuildOption {
	return func(b *builder) {
		b.logger = logger
	}
}

// WithEnvironment lets send actions run commands on e on behalf of invoker, usually the
// ID of the agent that will own the tree.
func WithEnvironment(e *env.Environment, invoker string) BuildOption {
	return func(b *builder) {
		b.env = e
		b.invoker = invoker
	}
}

// Build turns the scenario into a goal structure. Each call returns fresh structures, so
// one Spec can drive several agents.
func (s *Spec) Build(opts ...BuildOption) (*goal.Structure[*State], error) {
	b := &builder{
		registry: registry.Builtins(),
		logger:   logging.NewNop(),
		declared: s.Environment,
	}
	for _, opt := range opts {
		opt(b)
	}
	root, err := b.node("goal", &s.Goal)
	if err != nil {
		return nil, err
	}
	if s.Goal.Name == "" && s.Name != "" {
		root.Named(s.Name)
	}
	return root, nil
}

func (b *builder) node(path string, n *NodeSpec) (*goal.Structure[*State], error) {
	st, err := b.kind(path, n)
	if err != nil {
		return nil, err
	}
	if n.Name != "" {
		st.Named(n.Name)
	}
	if n.Budget != nil {
		st.WithMaxBudget(*n.Budget)
	}
	return st, nil
}

func (b *builder) kind(path string, n *NodeSpec) (*goal.Structure[*State], error) {
	switch {
	case len(n.Seq) > 0:
		children, err := b.nodes(path+".seq", n.Seq)
		if err != nil {
			return nil, err
		}
		return goal.Seq(children...), nil

	case len(n.FirstOf) > 0:
		children, err := b.nodes(path+".first_of", n.FirstOf)
		if err != nil {
			return nil, err
		}
		return goal.FirstOf(children...), nil

	case n.Repeat != nil:
		body, err := b.node(path+".repeat", n.Repeat)
		if err != nil {
			return nil, err
		}
		return goal.Repeat(body), nil

	case n.While != "":
		p, err := compile(path+".while", n.While, b.logger)
		if err != nil {
			return nil, err
		}
		body, err := b.node(path+".do", n.Do)
		if err != nil {
			return nil, err
		}
		return dsl.While(p.onState, body), nil

	case n.If != "":
		p, err := compile(path+".if", n.If, b.logger)
		if err != nil {
			return nil, err
		}
		then, err := b.node(path+".then", n.Then)
		if err != nil {
			return nil, err
		}
		otherwise := dsl.Succeed[*State]()
		if n.Else != nil {
			if otherwise, err = b.node(path+".else", n.Else); err != nil {
				return nil, err
			}
		}
		return dsl.IfElse(p.onState, then, otherwise), nil

	case n.Check != "":
		p, err := compile(path+".check", n.Check, b.logger)
		if err != nil {
			return nil, err
		}
		return dsl.Lift(p.onState).Named(n.Check), nil

	case n.Succeed:
		return dsl.Succeed[*State](), nil

	case n.Fail:
		return dsl.Fail[*State](), nil

	case n.Goal != "":
		return b.goal(path, n)
	}
	return nil, &ValidationError{Path: path, Reason: "node has no kind"}
}

func (b *builder) nodes(path string, specs []NodeSpec) ([]*goal.Structure[*State], error) {
	out := make([]*goal.Structure[*State], 0, len(specs))
	for i := range specs {
		st, err := b.node(fmt.Sprintf("%s[%d]", path, i), &specs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (b *builder) goal(path string, n *NodeSpec) (*goal.Structure[*State], error) {
	solve, err := compile(path+".solve", n.Solve, b.logger)
	if err != nil {
		return nil, err
	}
	t, err := b.tactic(path+".tactic", n.Tactic)
	if err != nil {
		return nil, err
	}
	g := goal.New[*State, Outcome](n.Goal).ToSolve(solve.onOutcome).WithTactic(t)
	if n.Oracle == nil {
		return g.Lift(), nil
	}

	if b.sink == nil {
		return nil, &ValidationError{Path: path + ".oracle", Reason: "oracle goals need a verdict sink"}
	}
	pass, err := compile(path+".oracle.pass", n.Oracle.Pass, b.logger)
	if err != nil {
		return nil, err
	}
	info := n.Oracle.Info
	oracle := func(o Outcome) domain.Verdict {
		if pass.onOutcome(o) {
			return domain.Pass(info)
		}
		return domain.Fail(info)
	}
	return goal.Test(g).Oracle(b.sink, oracle).Lift(), nil
}

func (b *builder) tactic(path string, t *TacticSpec) (*tactic.Tactic[*State, Outcome], error) {
	switch {
	case t.Abort:
		return tactic.Abort[*State, Outcome]().Lift(), nil

	case t.Action != "":
		fn, err := b.registry.Lookup(t.Action)
		if err != nil {
			return nil, &ValidationError{Path: path, Reason: err.Error()}
		}
		args := t.Args
		act := tactic.NewAction(t.Action, func(ctx context.Context, s *State) (Outcome, error) {
			res, err := fn(ctx, s.Vars, args)
			return Outcome{Result: res, Vars: s.Vars}, err
		})
		if t.Guard != "" {
			guard, err := compile(path+".guard", t.Guard, b.logger)
			if err != nil {
				return nil, err
			}
			act.On(guard.onState)
		}
		return act.Lift(), nil

	case t.Send != "":
		return b.send(path, t)
	}

	var (
		children []TacticSpec
		kind     string
		combine  func(...*tactic.Tactic[*State, Outcome]) *tactic.Tactic[*State, Outcome]
	)
	switch {
	case len(t.Seq) > 0:
		children, kind, combine = t.Seq, "seq", tactic.Seq[*State, Outcome]
	case len(t.FirstOf) > 0:
		children, kind, combine = t.FirstOf, "first_of", tactic.FirstOf[*State, Outcome]
	case len(t.AnyOf) > 0:
		children, kind, combine = t.AnyOf, "any_of", tactic.AnyOf[*State, Outcome]
	default:
		return nil, &ValidationError{Path: path, Reason: "tactic has no kind"}
	}
	subs := make([]*tactic.Tactic[*State, Outcome], 0, len(children))
	for i := range children {
		sub, err := b.tactic(fmt.Sprintf("%s.%s[%d]", path, kind, i), &children[i])
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return combine(subs...), nil
}

func (b *builder) send(path string, t *TacticSpec) (*tactic.Tactic[*State, Outcome], error) {
	if _, ok := b.declared.Command(t.Send); !ok {
		return nil, &ValidationError{Path: path, Reason: "undeclared environment command " + t.Send}
	}
	if b.env == nil {
		return nil, &ValidationError{Path: path, Reason: "send actions need an environment"}
	}
	e, invoker, command, target, save := b.env, b.invoker, t.Send, t.Target, t.Save
	var arg any
	if len(t.Args) > 0 {
		arg = t.Args
	}
	act := tactic.NewAction("send:"+command, func(ctx context.Context, s *State) (Outcome, error) {
		res, err := e.SendCommand(ctx, invoker, target, command, arg)
		if err != nil {
			return Outcome{Vars: s.Vars}, err
		}
		if save != "" {
			s.Vars[save] = res
		}
		return Outcome{Result: res, Vars: s.Vars}, nil
	})
	if t.Guard != "" {
		guard, err := compile(path+".guard", t.Guard, b.logger)
		if err != nil {
			return nil, err
		}
		act.On(guard.onState)
	}
	return act.Lift(), nil
}
