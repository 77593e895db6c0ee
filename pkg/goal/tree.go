package goal

import (
	"fmt"
	"math"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

// NodeID addresses a node of a Tree. The root is always 0.
type NodeID int

// NoNode is the parent of the root, and the answer of NextLeaf once the tree has closed.
const NoNode NodeID = -1

type node[S any] struct {
	parent     NodeID
	children   []NodeID
	index      int // position among the parent's children
	combinator Combinator
	name       string
	leaf       Leaf[S]

	status    domain.ProgressStatus
	maxBudget float64
	remaining float64
	consumed  float64
	elapsed   time.Duration
}

// Observer receives scheduling notifications from a Tree. Both fields are optional.
type Observer struct {
	// OnEnter is called when a primitive node becomes the current leaf.
	OnEnter func(id NodeID)
	// OnClose is called when a node turns SUCCESS or FAILED.
	OnClose func(id NodeID)
}

// Tree is a live goal tree: an arena of nodes addressed by NodeID, holding status and
// budget bookkeeping. It is owned by a single agent and is not safe for concurrent use.
type Tree[S any] struct {
	nodes   []node[S]
	lookup  map[*Structure[S]]NodeID
	obs     Observer
	started bool
}

// Build validates a goal structure and lays it out into a Tree. The structure must be
// a true tree: a *Structure appearing twice is a configuration error.
func Build[S any](root *Structure[S]) (*Tree[S], error) {
	t := &Tree[S]{lookup: make(map[*Structure[S]]NodeID)}
	if _, err := t.add(root, NoNode, 0); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree[S]) add(s *Structure[S], parent NodeID, index int) (NodeID, error) {
	if s == nil {
		where := ""
		if parent != NoNode {
			where = t.nodes[parent].name
		}
		return NoNode, &ConfigurationError{Node: where, Reason: "nil goal structure"}
	}
	if s.err != nil {
		return NoNode, s.err
	}
	if _, dup := t.lookup[s]; dup {
		return NoNode, &ConfigurationError{Node: s.Name(), Reason: "goal structure used more than once"}
	}

	switch s.combinator {
	case Primitive:
		if s.leaf == nil {
			return NoNode, &ConfigurationError{Node: s.Name(), Reason: "primitive structure without goal"}
		}
		if err := s.leaf.validate(); err != nil {
			return NoNode, err
		}
	case SeqCombinator, FirstOfCombinator:
		if len(s.children) == 0 {
			return NoNode, &ConfigurationError{Node: s.Name(), Reason: "combinator without subgoals"}
		}
	case RepeatCombinator:
		if len(s.children) != 1 {
			return NoNode, &ConfigurationError{Node: s.Name(), Reason: "REPEAT takes exactly one subgoal"}
		}
	default:
		return NoNode, &ConfigurationError{Node: s.Name(), Reason: fmt.Sprintf("unknown combinator %d", s.combinator)}
	}

	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, node[S]{
		parent:     parent,
		index:      index,
		combinator: s.combinator,
		name:       s.Name(),
		leaf:       s.leaf,
		maxBudget:  s.maxBudget,
		remaining:  math.Inf(1),
	})
	t.lookup[s] = id

	for i, c := range s.children {
		cid, err := t.add(c, id, i)
		if err != nil {
			return NoNode, err
		}
		t.nodes[id].children = append(t.nodes[id].children, cid)
	}
	return id, nil
}

// Observe installs the scheduling observer.
func (t *Tree[S]) Observe(o Observer) { t.obs = o }

// Start gives the root the initial budget (math.Inf(1) for none) and descends to the
// first leaf. A root started without budget is exhausted at once and Start returns
// NoNode. A tree can be started once.
func (t *Tree[S]) Start(budget float64) (NodeID, error) {
	if t.started {
		return NoNode, &InvariantError{Node: 0, Op: "start", Status: t.nodes[0].status.Kind()}
	}
	if math.IsNaN(budget) {
		return NoNode, &ConfigurationError{Node: t.nodes[0].name, Reason: "initial budget is NaN"}
	}
	t.started = true
	t.nodes[0].remaining = budget
	leaf := t.AllocateAndDescend(0)
	if t.nodes[0].remaining <= 0 {
		t.MarkBudgetExhausted(leaf)
		return t.NextLeaf(leaf)
	}
	t.entered(leaf)
	return leaf, nil
}

// AllocateAndDescend allocates budget to id and to every first child below it, down to a
// primitive node, which it returns. The root keeps min(remaining, max); any other node
// gets min(max, parent remaining).
func (t *Tree[S]) AllocateAndDescend(id NodeID) NodeID {
	for {
		n := &t.nodes[id]
		if n.parent == NoNode {
			n.remaining = math.Min(n.remaining, n.maxBudget)
		} else {
			n.remaining = math.Min(n.maxBudget, t.nodes[n.parent].remaining)
		}
		switch n.combinator {
		case Primitive:
			return id
		case SeqCombinator, FirstOfCombinator, RepeatCombinator:
			id = n.children[0]
		}
	}
}

// enter makes the first leaf below id current. A leaf allocated no budget still gets
// its tick: exhaustion is checked after the tick is charged.
func (t *Tree[S]) enter(id NodeID) (NodeID, error) {
	leaf := t.AllocateAndDescend(id)
	t.entered(leaf)
	return leaf, nil
}

func (t *Tree[S]) entered(leaf NodeID) {
	if t.obs.OnEnter != nil {
		t.obs.OnEnter(leaf)
	}
}

// ConsumeBudget charges delta to id and every ancestor: the budget is a shared pool.
func (t *Tree[S]) ConsumeBudget(id NodeID, delta float64) error {
	if math.IsNaN(delta) || delta < 0 {
		return &ConfigurationError{Node: t.nodes[id].name, Reason: fmt.Sprintf("invalid budget charge %v", delta)}
	}
	for ; id != NoNode; id = t.nodes[id].parent {
		t.nodes[id].remaining -= delta
		t.nodes[id].consumed += delta
	}
	return nil
}

// ConsumeTime records wall-clock time spent on id and every ancestor.
func (t *Tree[S]) ConsumeTime(id NodeID, d time.Duration) {
	for ; id != NoNode; id = t.nodes[id].parent {
		t.nodes[id].elapsed += d
	}
}

// MarkSuccess closes id as SUCCESS and propagates: a FIRSTOF or REPEAT parent succeeds
// with it, a SEQ parent only when id is its last child.
func (t *Tree[S]) MarkSuccess(id NodeID, reason string) {
	for {
		n := &t.nodes[id]
		if !n.status.MarkSuccess(reason) {
			return
		}
		t.closed(id)
		if n.parent == NoNode {
			return
		}
		p := &t.nodes[n.parent]
		switch p.combinator {
		case FirstOfCombinator, RepeatCombinator:
		case SeqCombinator:
			if n.index != len(p.children)-1 {
				return
			}
		case Primitive:
			return
		}
		id = n.parent
	}
}

// MarkFailed closes id as FAILED and propagates: a SEQ parent fails with it, a FIRSTOF
// parent only when id is its last alternative. A REPEAT parent is unaffected and will
// retry.
func (t *Tree[S]) MarkFailed(id NodeID, reason string) {
	for {
		n := &t.nodes[id]
		if !n.status.MarkFailed(reason) {
			return
		}
		t.closed(id)
		if n.parent == NoNode {
			return
		}
		p := &t.nodes[n.parent]
		switch p.combinator {
		case SeqCombinator:
		case FirstOfCombinator:
			if n.index != len(p.children)-1 {
				return
			}
		case RepeatCombinator, Primitive:
			return
		}
		id = n.parent
	}
}

// MarkBudgetExhausted fails id because its budget ran out. Every ancestor whose own
// budget is also spent is exhausted with it, regardless of combinator; the first
// ancestor that still has budget applies the ordinary failure rule instead.
func (t *Tree[S]) MarkBudgetExhausted(id NodeID) {
	for {
		n := &t.nodes[id]
		if !n.status.MarkBudgetExhausted() {
			return
		}
		t.closed(id)
		if n.parent == NoNode {
			return
		}
		p := &t.nodes[n.parent]
		if p.remaining <= 0 {
			id = n.parent
			continue
		}
		switch p.combinator {
		case SeqCombinator:
			t.MarkFailed(n.parent, domain.ReasonBudgetExhausted)
		case FirstOfCombinator:
			if n.index == len(p.children)-1 {
				t.MarkFailed(n.parent, domain.ReasonBudgetExhausted)
			}
		case RepeatCombinator, Primitive:
		}
		return
	}
}

// Abort fails id and all its ancestors, ignoring combinator rules. Nodes that are already
// terminal keep their status.
func (t *Tree[S]) Abort(id NodeID, reason string) {
	for ; id != NoNode; id = t.nodes[id].parent {
		if t.nodes[id].status.MarkFailed(reason) {
			t.closed(id)
		}
	}
}

// NextLeaf finds the leaf to work on after closed has become terminal, allocating budget
// on the way down. It returns NoNode when the whole tree has closed.
func (t *Tree[S]) NextLeaf(closed NodeID) (NodeID, error) {
	for {
		n := &t.nodes[closed]
		if n.status.InProgress() {
			return NoNode, &InvariantError{Node: closed, Op: "next leaf", Status: n.status.Kind()}
		}
		if n.parent == NoNode {
			return NoNode, nil
		}
		p := &t.nodes[n.parent]
		if p.status.Terminal() {
			closed = n.parent
			continue
		}

		last := n.index == len(p.children)-1
		switch p.combinator {
		case SeqCombinator:
			if n.status.Succeeded() && !last {
				return t.enter(p.children[n.index+1])
			}
		case FirstOfCombinator:
			if n.status.Failed() && !last {
				return t.enter(p.children[n.index+1])
			}
		case RepeatCombinator:
			if n.status.Failed() && p.remaining <= 0 {
				// A spent loop is not retried.
				t.MarkBudgetExhausted(n.parent)
				closed = n.parent
				continue
			}
			if n.status.Failed() {
				t.reopen(closed)
				return t.enter(closed)
			}
		case Primitive:
		}
		// The propagation rules leave no other open-parent case.
		return NoNode, &InvariantError{Node: n.parent, Op: "next leaf", Status: p.status.Kind()}
	}
}

// reopen puts a subtree back in progress for another REPEAT iteration. Consumed budget
// and time are kept.
func (t *Tree[S]) reopen(id NodeID) {
	t.nodes[id].status.Reopen()
	for _, c := range t.nodes[id].children {
		t.reopen(c)
	}
}

func (t *Tree[S]) closed(id NodeID) {
	if t.obs.OnClose != nil {
		t.obs.OnClose(id)
	}
}

// Lookup returns the node built from s.
func (t *Tree[S]) Lookup(s *Structure[S]) (NodeID, bool) {
	id, ok := t.lookup[s]
	return id, ok
}

func (t *Tree[S]) Root() NodeID { return 0 }
func (t *Tree[S]) Len() int     { return len(t.nodes) }

// Closed reports whether the root is terminal.
func (t *Tree[S]) Closed() bool { return t.nodes[0].status.Terminal() }

func (t *Tree[S]) Status(id NodeID) domain.ProgressStatus { return t.nodes[id].status }
func (t *Tree[S]) Name(id NodeID) string                  { return t.nodes[id].name }
func (t *Tree[S]) Combinator(id NodeID) Combinator        { return t.nodes[id].combinator }
func (t *Tree[S]) Parent(id NodeID) NodeID                { return t.nodes[id].parent }
func (t *Tree[S]) Leaf(id NodeID) Leaf[S]                 { return t.nodes[id].leaf }
func (t *Tree[S]) MaxBudget(id NodeID) float64            { return t.nodes[id].maxBudget }
func (t *Tree[S]) Remaining(id NodeID) float64            { return t.nodes[id].remaining }
func (t *Tree[S]) Consumed(id NodeID) float64             { return t.nodes[id].consumed }
func (t *Tree[S]) ConsumedTime(id NodeID) time.Duration   { return t.nodes[id].elapsed }

// Children returns a copy of the child IDs of id.
func (t *Tree[S]) Children(id NodeID) []NodeID {
	return append([]NodeID(nil), t.nodes[id].children...)
}
