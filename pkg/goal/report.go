package goal

import (
	"fmt"
	"math"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Report formats the status of every node as an indented text block.
func (t *Tree[S]) Report() string {
	var b strings.Builder
	t.report(&b, 0, 0)
	return b.String()
}

func (t *Tree[S]) report(b *strings.Builder, id NodeID, level int) {
	n := &t.nodes[id]
	indent := strings.Repeat(" ", 3*(level+1))

	fmt.Fprintf(b, "%s%s: %s\n", indent, n.name, n.status)
	if !math.IsInf(n.maxBudget, 1) {
		fmt.Fprintf(b, "%sMax. budget: %g\n", indent, n.maxBudget)
	}
	fmt.Fprintf(b, "%sConsumed budget: %g\n", indent, n.consumed)
	for _, c := range n.children {
		t.report(b, c, level+1)
	}
}

// Snapshot copies the tree into its serializable form. The caller fills in agent-level
// fields such as the current leaf.
func (t *Tree[S]) Snapshot() domain.TreeSnapshot {
	nodes := make([]domain.NodeSnapshot, len(t.nodes))
	for i := range t.nodes {
		n := &t.nodes[i]
		nodes[i] = domain.NodeSnapshot{
			ID:         i,
			Parent:     int(n.parent),
			Name:       n.name,
			Combinator: n.combinator.String(),
			Status:     n.status.Kind(),
			Reason:     n.status.Reason(),
			MaxBudget:  finite(n.maxBudget),
			Remaining:  finite(n.remaining),
			Consumed:   n.consumed,
			ElapsedMS:  n.elapsed.Milliseconds(),
		}
		for _, c := range n.children {
			nodes[i].Children = append(nodes[i].Children, int(c))
		}
	}
	return domain.TreeSnapshot{Root: 0, Current: int(NoNode), Closed: t.Closed(), Nodes: nodes}
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}
