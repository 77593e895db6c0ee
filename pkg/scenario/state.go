package scenario

import "maps"

// State is the blackboard of a scenario agent. Actions read and write Vars; predicates
// see every variable by name.
type State struct {
	Vars map[string]any
}

// Outcome is the proposal of a scenario goal: what the action returned, next to the
// variables it ran against.
type Outcome struct {
	Result any
	Vars   map[string]any
}

// exprEnv builds the expression environment: every variable by name, the whole map as
// "vars", and extra bindings such as "result".
func exprEnv(vars map[string]any, extra map[string]any) map[string]any {
	env := maps.Clone(vars)
	if env == nil {
		env = make(map[string]any, len(extra)+1)
	}
	env["vars"] = vars
	maps.Copy(env, extra)
	return env
}
