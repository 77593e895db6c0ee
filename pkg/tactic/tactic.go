package tactic

import (
	bt "github.com/joeycumines/go-behaviortree"
)

// Kind identifies the combinator of a tactic node.
type Kind int

const (
	KindPrimitive Kind = iota
	KindSeq
	KindFirstOf
	KindAnyOf
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "PRIMITIVE"
	case KindSeq:
		return "SEQ"
	case KindFirstOf:
		return "FIRSTOF"
	case KindAnyOf:
		return "ANYOF"
	}
	return "UNKNOWN"
}

// Chooser picks one of n enabled candidates (0 <= result < n).
type Chooser func(n int) int

// Tactic is a tree over actions. It holds no progress of its own: every tick it is
// searched from scratch against the current state to select one executable action.
type Tactic[S, P any] struct {
	kind     Kind
	action   *Action[S, P]
	children []*Tactic[S, P]
}

// Lift wraps a single action.
func Lift[S, P any](a *Action[S, P]) *Tactic[S, P] {
	return &Tactic[S, P]{kind: KindPrimitive, action: a}
}

// Seq composes tactics in sequence. Within a single tick only the first child is
// eligible, so it must be executable now.
func Seq[S, P any](children ...*Tactic[S, P]) *Tactic[S, P] {
	return &Tactic[S, P]{kind: KindSeq, children: children}
}

// FirstOf selects from the first child, left to right, that has an enabled action.
func FirstOf[S, P any](children ...*Tactic[S, P]) *Tactic[S, P] {
	return &Tactic[S, P]{kind: KindFirstOf, children: children}
}

// AnyOf collects the enabled actions of all children and lets the Chooser pick one.
func AnyOf[S, P any](children ...*Tactic[S, P]) *Tactic[S, P] {
	return &Tactic[S, P]{kind: KindAnyOf, children: children}
}

// Kind returns the combinator of this node.
func (t *Tactic[S, P]) Kind() Kind { return t.kind }

// Actions returns every action of the tree in depth-first order.
func (t *Tactic[S, P]) Actions() []*Action[S, P] {
	if t.kind == KindPrimitive {
		return []*Action[S, P]{t.action}
	}
	var out []*Action[S, P]
	for _, c := range t.children {
		out = append(out, c.Actions()...)
	}
	return out
}

// Select searches the tree against state and returns the action to execute this tick.
// It returns false when no guard holds. A nil Chooser picks the first candidate.
func (t *Tactic[S, P]) Select(state S, pick Chooser) (*Action[S, P], bool) {
	var enabled []*Action[S, P]
	status, err := t.compile(state, &enabled).Tick()
	if err != nil || status != bt.Success || len(enabled) == 0 {
		return nil, false
	}
	if pick == nil || len(enabled) == 1 {
		return enabled[0], true
	}
	i := pick(len(enabled))
	if i < 0 || i >= len(enabled) {
		i = 0
	}
	return enabled[i], true
}

// compile turns the tactic into a behaviour tree whose leaves succeed when their guard
// holds, recording the enabled action into out.
func (t *Tactic[S, P]) compile(state S, out *[]*Action[S, P]) bt.Node {
	children := make([]bt.Node, 0, len(t.children))
	for _, c := range t.children {
		children = append(children, c.compile(state, out))
	}

	switch t.kind {
	case KindPrimitive:
		a := t.action
		return bt.New(func([]bt.Node) (bt.Status, error) {
			if a == nil || !a.Enabled(state) {
				return bt.Failure, nil
			}
			*out = append(*out, a)
			return bt.Success, nil
		})
	case KindFirstOf:
		return bt.New(bt.Selector, children...)
	case KindSeq:
		return bt.New(firstChild, children...)
	case KindAnyOf:
		return bt.New(anyChild, children...)
	}
	return bt.New(func([]bt.Node) (bt.Status, error) { return bt.Failure, nil })
}

func firstChild(children []bt.Node) (bt.Status, error) {
	if len(children) == 0 {
		return bt.Failure, nil
	}
	return children[0].Tick()
}

// anyChild ticks every child and succeeds if at least one did.
func anyChild(children []bt.Node) (bt.Status, error) {
	result := bt.Failure
	for _, c := range children {
		status, err := c.Tick()
		if err != nil {
			return bt.Failure, err
		}
		if status == bt.Success {
			result = bt.Success
		}
	}
	return result, nil
}
