package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrActionNotFound is returned when a name has no registered action.
var ErrActionNotFound = errors.New("action not found")

// ActionFunc defines the signature for an action implementation usable from declarative
// scenarios. It receives the agent's variables, which it may modify, and the arguments
// written next to the action in the scenario. The result becomes the goal's proposal.
type ActionFunc func(ctx context.Context, vars map[string]any, args map[string]any) (any, error)

// Registry manages the available actions.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]ActionFunc
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]ActionFunc),
	}
}

// Register adds an action to the registry.
// If an action with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn ActionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = fn
}

// Lookup returns the action registered under name.
func (r *Registry) Lookup(name string) (ActionFunc, error) {
	r.mu.RLock()
	fn, ok := r.actions[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActionNotFound, name)
	}
	return fn, nil
}

// Execute looks up an action by name and executes it.
func (r *Registry) Execute(ctx context.Context, name string, vars, args map[string]any) (any, error) {
	fn, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return fn(ctx, vars, args)
}

// Names lists the registered actions, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.actions))
	for n := range r.actions {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Builtins returns a registry preloaded with the generic actions every scenario can use:
//
//	set        args {key, value}   sets vars[key] = value, returns value
//	incr       args {key, by?}     adds by (default 1) to the numeric vars[key], returns it
//	get        args {key}          returns vars[key]
//	noop                           returns nil
func Builtins() *Registry {
	r := NewRegistry()
	r.Register("set", func(_ context.Context, vars, args map[string]any) (any, error) {
		key, err := keyArg(args)
		if err != nil {
			return nil, err
		}
		vars[key] = args["value"]
		return args["value"], nil
	})
	r.Register("incr", func(_ context.Context, vars, args map[string]any) (any, error) {
		key, err := keyArg(args)
		if err != nil {
			return nil, err
		}
		by := 1.0
		if v, ok := args["by"]; ok {
			if by, ok = toFloat(v); !ok {
				return nil, fmt.Errorf("incr: by must be numeric, got %T", v)
			}
		}
		cur := 0.0
		if v, ok := vars[key]; ok && v != nil {
			if cur, ok = toFloat(v); !ok {
				return nil, fmt.Errorf("incr: %s is not numeric (%T)", key, v)
			}
		}
		vars[key] = cur + by
		return vars[key], nil
	})
	r.Register("get", func(_ context.Context, vars, args map[string]any) (any, error) {
		key, err := keyArg(args)
		if err != nil {
			return nil, err
		}
		return vars[key], nil
	})
	r.Register("noop", func(context.Context, map[string]any, map[string]any) (any, error) {
		return nil, nil
	})
	return r
}

func keyArg(args map[string]any) (string, error) {
	key, ok := args["key"].(string)
	if !ok || key == "" {
		return "", errors.New("missing string argument \"key\"")
	}
	return key, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
