package goal

import (
	"fmt"
	"math"
)

// Combinator is the kind of a goal-structure node.
type Combinator int

const (
	Primitive Combinator = iota
	SeqCombinator
	FirstOfCombinator
	RepeatCombinator
)

func (c Combinator) String() string {
	switch c {
	case Primitive:
		return "PRIMITIVE"
	case SeqCombinator:
		return "SEQ"
	case FirstOfCombinator:
		return "FIRSTOF"
	case RepeatCombinator:
		return "REPEAT"
	}
	return "UNKNOWN"
}

// Structure describes a goal tree before it is attached to an agent. It is built
// bottom-up with Lift, Seq, FirstOf and Repeat, then turned into a Tree by Build.
// Each Structure may appear only once in a tree.
type Structure[S any] struct {
	combinator Combinator
	name       string
	leaf       Leaf[S]
	children   []*Structure[S]
	maxBudget  float64
	err        error
}

// Lift wraps a leaf goal (a *Goal or *TestGoal) into a primitive structure.
func Lift[S any](leaf Leaf[S]) *Structure[S] {
	s := &Structure[S]{combinator: Primitive, leaf: leaf, maxBudget: math.Inf(1)}
	if leaf != nil {
		s.name = leaf.Name()
	}
	return s
}

// Seq succeeds when all children succeed, in order, and fails on the first failure.
func Seq[S any](children ...*Structure[S]) *Structure[S] {
	return combine(SeqCombinator, children)
}

// FirstOf succeeds on the first child that succeeds and fails when all of them fail.
func FirstOf[S any](children ...*Structure[S]) *Structure[S] {
	return combine(FirstOfCombinator, children)
}

// Repeat retries child until it succeeds. Only budget exhaustion makes it fail.
func Repeat[S any](child *Structure[S]) *Structure[S] {
	return combine(RepeatCombinator, []*Structure[S]{child})
}

func combine[S any](c Combinator, children []*Structure[S]) *Structure[S] {
	return &Structure[S]{combinator: c, children: children, maxBudget: math.Inf(1)}
}

// WithMaxBudget caps the budget the node may use each time it becomes current.
// b must be positive and finite; otherwise Build reports a configuration error.
func (s *Structure[S]) WithMaxBudget(b float64) *Structure[S] {
	if !(b > 0) || math.IsInf(b, 0) {
		s.err = &ConfigurationError{Node: s.Name(), Reason: fmt.Sprintf("invalid max budget %v: must be positive and finite", b)}
		return s
	}
	s.maxBudget = b
	return s
}

// Named sets the display name of the node. Primitive nodes default to their goal name,
// combinators to the combinator name.
func (s *Structure[S]) Named(name string) *Structure[S] {
	s.name = name
	return s
}

func (s *Structure[S]) Name() string {
	if s.name != "" {
		return s.name
	}
	return s.combinator.String()
}

func (s *Structure[S]) Combinator() Combinator     { return s.combinator }
func (s *Structure[S]) Children() []*Structure[S] { return s.children }
func (s *Structure[S]) MaxBudget() float64        { return s.maxBudget }
