package scenario

import (
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// predicate is a compiled boolean expression over the scenario state.
type predicate struct {
	source  string
	program *vm.Program
	logger  *slog.Logger
}

func compile(path, source string, logger *slog.Logger) (*predicate, error) {
	program, err := expr.Compile(source,
		expr.Env(map[string]any{}),
		expr.AsBool(),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, &ValidationError{Path: path, Reason: fmt.Sprintf("bad expression %q: %v", source, err)}
	}
	return &predicate{source: source, program: program, logger: logger}, nil
}

// eval runs the expression. Evaluation errors count as false.
func (p *predicate) eval(env map[string]any) bool {
	out, err := expr.Run(p.program, env)
	if err != nil {
		p.logger.Warn("expression evaluation failed", "expression", p.source, "err", err)
		return false
	}
	ok, _ := out.(bool)
	return ok
}

// onState adapts the predicate to the signature goal and tactic guards expect.
func (p *predicate) onState(s *State) bool {
	return p.eval(exprEnv(s.Vars, nil))
}

// onOutcome evaluates the predicate with the action result bound to "result".
func (p *predicate) onOutcome(o Outcome) bool {
	return p.eval(exprEnv(o.Vars, map[string]any{"result": o.Result}))
}
