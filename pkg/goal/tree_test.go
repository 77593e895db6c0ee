package goal_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/goal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(name string) *goal.Structure[int] {
	return goal.New[int, int](name).ToSolve(func(int) bool { return true }).WithTactic(identity()).Lift()
}

func leaves(n int) []*goal.Structure[int] {
	out := make([]*goal.Structure[int], n)
	for i := range out {
		out[i] = leaf(fmt.Sprintf("g%d", i))
	}
	return out
}

// started builds and starts a tree, recording which leaves were entered.
func started(t *testing.T, root *goal.Structure[int], budget float64) (*goal.Tree[int], goal.NodeID, *[]string) {
	t.Helper()
	tree, err := goal.Build(root)
	require.NoError(t, err)
	var entered []string
	tree.Observe(goal.Observer{OnEnter: func(id goal.NodeID) { entered = append(entered, tree.Name(id)) }})
	cur, err := tree.Start(budget)
	require.NoError(t, err)
	return tree, cur, &entered
}

func TestBuild_ConfigurationErrors(t *testing.T) {
	shared := leaf("shared")
	noTactic := goal.New[int, int]("no-tactic").ToSolve(func(int) bool { return true }).Lift()
	noPredicate := goal.New[int, int]("no-predicate").WithTactic(identity()).Lift()

	tests := []struct {
		name string
		root *goal.Structure[int]
	}{
		{"shared structure", goal.Seq(shared, goal.FirstOf(shared))},
		{"empty seq", goal.Seq[int]()},
		{"empty firstof", goal.Seq(leaf("a"), goal.FirstOf[int]())},
		{"nil child", goal.Seq(leaf("a"), nil)},
		{"nil root", nil},
		{"zero budget", leaf("a").WithMaxBudget(0)},
		{"negative budget", leaf("a").WithMaxBudget(-1)},
		{"infinite budget", leaf("a").WithMaxBudget(math.Inf(1))},
		{"NaN budget", leaf("a").WithMaxBudget(math.NaN())},
		{"leaf without tactic", noTactic},
		{"leaf without predicate", noPredicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := goal.Build(tt.root)
			var cfg *goal.ConfigurationError
			require.ErrorAs(t, err, &cfg)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestSeq_SucceedsWhenAllSucceed(t *testing.T) {
	for n := 1; n <= 4; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			tree, cur, entered := started(t, goal.Seq(leaves(n)...), math.Inf(1))

			for i := 0; i < n; i++ {
				require.NotEqual(t, goal.NoNode, cur)
				assert.Equal(t, fmt.Sprintf("g%d", i), tree.Name(cur))
				assert.True(t, tree.Status(tree.Root()).InProgress())
				tree.MarkSuccess(cur, "ok")

				var err error
				cur, err = tree.NextLeaf(cur)
				require.NoError(t, err)
			}
			assert.Equal(t, goal.NoNode, cur)
			assert.True(t, tree.Status(tree.Root()).Succeeded())
			assert.Len(t, *entered, n)
		})
	}
}

func TestSeq_FailsOnFirstFailure(t *testing.T) {
	for k := 0; k < 4; k++ {
		t.Run(fmt.Sprintf("fail at %d", k), func(t *testing.T) {
			tree, cur, entered := started(t, goal.Seq(leaves(4)...), math.Inf(1))

			for i := 0; i < k; i++ {
				tree.MarkSuccess(cur, "ok")
				var err error
				cur, err = tree.NextLeaf(cur)
				require.NoError(t, err)
			}
			tree.MarkFailed(cur, "nope")
			next, err := tree.NextLeaf(cur)
			require.NoError(t, err)

			assert.Equal(t, goal.NoNode, next)
			assert.True(t, tree.Status(tree.Root()).Failed())
			assert.Len(t, *entered, k+1, "leaves after the failure are never visited")
		})
	}
}

func TestFirstOf_SucceedsOnFirstSuccess(t *testing.T) {
	for k := 0; k < 4; k++ {
		t.Run(fmt.Sprintf("succeed at %d", k), func(t *testing.T) {
			tree, cur, entered := started(t, goal.FirstOf(leaves(4)...), math.Inf(1))

			for i := 0; i < k; i++ {
				tree.MarkFailed(cur, "nope")
				require.True(t, tree.Status(tree.Root()).InProgress())
				var err error
				cur, err = tree.NextLeaf(cur)
				require.NoError(t, err)
			}
			tree.MarkSuccess(cur, "ok")
			next, err := tree.NextLeaf(cur)
			require.NoError(t, err)

			assert.Equal(t, goal.NoNode, next)
			assert.True(t, tree.Status(tree.Root()).Succeeded())
			assert.Len(t, *entered, k+1, "later alternatives are never visited")
		})
	}
}

func TestFirstOf_FailsWhenAllFail(t *testing.T) {
	tree, cur, entered := started(t, goal.FirstOf(leaves(3)...), math.Inf(1))
	for cur != goal.NoNode {
		tree.MarkFailed(cur, "nope")
		var err error
		cur, err = tree.NextLeaf(cur)
		require.NoError(t, err)
	}
	assert.True(t, tree.Status(tree.Root()).Failed())
	assert.Equal(t, []string{"g0", "g1", "g2"}, *entered)
}

func TestRepeat_RetriesUntilSuccess(t *testing.T) {
	body := goal.Seq(leaf("a"), leaf("b"))
	tree, cur, entered := started(t, goal.Repeat(body), math.Inf(1))
	bodyID, ok := tree.Lookup(body)
	require.True(t, ok)

	for round := 0; round < 3; round++ {
		require.Equal(t, "a", tree.Name(cur))
		tree.MarkSuccess(cur, "ok")
		var err error
		cur, err = tree.NextLeaf(cur)
		require.NoError(t, err)
		require.Equal(t, "b", tree.Name(cur))

		tree.MarkFailed(cur, "nope")
		assert.True(t, tree.Status(bodyID).Failed())
		assert.True(t, tree.Status(tree.Root()).InProgress(), "REPEAT never fails from its child's failure")

		cur, err = tree.NextLeaf(cur)
		require.NoError(t, err)
		assert.True(t, tree.Status(bodyID).InProgress(), "the body is reopened")
		assert.True(t, tree.Status(cur).InProgress())
	}

	tree.MarkSuccess(cur, "ok")
	cur, err := tree.NextLeaf(cur)
	require.NoError(t, err)
	tree.MarkSuccess(cur, "ok")
	cur, err = tree.NextLeaf(cur)
	require.NoError(t, err)

	assert.Equal(t, goal.NoNode, cur)
	assert.True(t, tree.Status(tree.Root()).Succeeded())
	assert.Len(t, *entered, 8)
}

func TestRepeat_EndsOnBudgetExhaustion(t *testing.T) {
	tree, cur, _ := started(t, goal.Repeat(leaf("try")).WithMaxBudget(3), math.Inf(1))

	for i := 0; i < 3; i++ {
		require.NotEqual(t, goal.NoNode, cur)
		require.NoError(t, tree.ConsumeBudget(cur, 1))
		if i < 2 {
			tree.MarkFailed(cur, "nope")
			var err error
			cur, err = tree.NextLeaf(cur)
			require.NoError(t, err)
		}
	}
	require.LessOrEqual(t, tree.Remaining(cur), 0.0)
	tree.MarkBudgetExhausted(cur)

	root := tree.Status(tree.Root())
	assert.True(t, root.Failed())
	assert.True(t, root.Exhausted())
	next, err := tree.NextLeaf(cur)
	require.NoError(t, err)
	assert.Equal(t, goal.NoNode, next)
}

func TestRepeat_SpentLoopIsNotRetried(t *testing.T) {
	body := goal.Seq(leaf("a"), leaf("b"))
	tree, cur, entered := started(t, goal.Repeat(body).WithMaxBudget(1), math.Inf(1))

	require.NoError(t, tree.ConsumeBudget(cur, 1))
	tree.MarkSuccess(cur, "ok")
	cur, err := tree.NextLeaf(cur)
	require.NoError(t, err)
	require.Equal(t, "b", tree.Name(cur), "b is entered with no budget left")
	assert.Equal(t, 0.0, tree.Remaining(cur))

	require.NoError(t, tree.ConsumeBudget(cur, 1))
	tree.MarkFailed(cur, "nope")
	next, err := tree.NextLeaf(cur)
	require.NoError(t, err)

	assert.Equal(t, goal.NoNode, next)
	assert.True(t, tree.Status(tree.Root()).Exhausted())
	assert.Equal(t, []string{"a", "b"}, *entered)
}

func TestRepeat_RetriesChildWithOwnBudget(t *testing.T) {
	child := leaf("try").WithMaxBudget(2)
	tree, cur, _ := started(t, goal.Repeat(child).WithMaxBudget(10), math.Inf(1))

	require.NoError(t, tree.ConsumeBudget(cur, 2))
	tree.MarkBudgetExhausted(cur)
	assert.True(t, tree.Status(tree.Root()).InProgress(), "the loop still has budget")

	next, err := tree.NextLeaf(cur)
	require.NoError(t, err)
	assert.Equal(t, cur, next)
	assert.Equal(t, 2.0, tree.Remaining(next), "fresh allocation for the retry")
	assert.Equal(t, 2.0, tree.Consumed(next), "consumed budget survives the retry")
	assert.Equal(t, 8.0, tree.Remaining(tree.Root()))
}

func TestBudget_AllocationOnDescent(t *testing.T) {
	g1 := leaf("g1").WithMaxBudget(2)
	g2 := leaf("g2")
	tree, cur, _ := started(t, goal.FirstOf(g1, g2).WithMaxBudget(10), math.Inf(1))

	assert.Equal(t, 10.0, tree.Remaining(tree.Root()))
	assert.Equal(t, "g1", tree.Name(cur))
	assert.Equal(t, 2.0, tree.Remaining(cur))

	require.NoError(t, tree.ConsumeBudget(cur, 1))
	require.NoError(t, tree.ConsumeBudget(cur, 1))
	assert.Equal(t, 0.0, tree.Remaining(cur))
	assert.Equal(t, 8.0, tree.Remaining(tree.Root()))

	tree.MarkBudgetExhausted(cur)
	assert.True(t, tree.Status(cur).Exhausted())
	assert.True(t, tree.Status(tree.Root()).InProgress())

	next, err := tree.NextLeaf(cur)
	require.NoError(t, err)
	assert.Equal(t, "g2", tree.Name(next))
	assert.Equal(t, 8.0, tree.Remaining(next), "g2 gets a fresh allocation from its parent")
	assert.Equal(t, 2.0, tree.Consumed(tree.Root()))
}

func TestBudget_SharedPoolInvariant(t *testing.T) {
	a, b := leaf("a"), leaf("b")
	inner := goal.Seq(a, b).WithMaxBudget(6)
	tree, cur, _ := started(t, goal.Seq(inner, leaf("c")).WithMaxBudget(20), math.Inf(1))
	innerID, _ := tree.Lookup(inner)

	charges := []float64{1, 0.5, 2}
	var total float64
	for _, c := range charges {
		require.NoError(t, tree.ConsumeBudget(cur, c))
		total += c
	}
	tree.MarkSuccess(cur, "ok")
	cur, err := tree.NextLeaf(cur)
	require.NoError(t, err)
	require.NoError(t, tree.ConsumeBudget(cur, 1))
	total++

	assert.Equal(t, total, tree.Consumed(innerID))
	assert.Equal(t, total, tree.Consumed(tree.Root()))
	assert.Equal(t, 3.5, tree.Consumed(tree.Children(innerID)[0]))
	assert.Equal(t, 20-tree.Consumed(tree.Root()), tree.Remaining(tree.Root()))
	assert.Equal(t, 6-tree.Consumed(innerID), tree.Remaining(innerID))
	assert.Equal(t, 1.5, tree.Remaining(cur), "b was allocated what its parent had left, then charged")
}

func TestBudget_ExhaustionShortCircuitsSeq(t *testing.T) {
	c := leaf("c")
	tree, cur, entered := started(t, goal.Seq(leaf("a"), leaf("b"), c).WithMaxBudget(2), math.Inf(1))
	cID, _ := tree.Lookup(c)

	require.NoError(t, tree.ConsumeBudget(cur, 1))
	tree.MarkSuccess(cur, "ok")
	cur, err := tree.NextLeaf(cur)
	require.NoError(t, err)
	require.Equal(t, "b", tree.Name(cur))

	require.NoError(t, tree.ConsumeBudget(cur, 1))
	tree.MarkBudgetExhausted(cur)

	root := tree.Status(tree.Root())
	assert.True(t, root.Exhausted(), "the SEQ is exhausted, not failed by combinator rule")
	next, err := tree.NextLeaf(cur)
	require.NoError(t, err)
	assert.Equal(t, goal.NoNode, next)
	assert.True(t, tree.Status(cID).InProgress(), "c is never visited")
	assert.Equal(t, []string{"a", "b"}, *entered)
}

func TestBudget_ChildExhaustionFailsSeqByRule(t *testing.T) {
	tree, cur, entered := started(t, goal.Seq(leaf("a").WithMaxBudget(1), leaf("b")).WithMaxBudget(10), math.Inf(1))

	require.NoError(t, tree.ConsumeBudget(cur, 1))
	tree.MarkBudgetExhausted(cur)

	root := tree.Status(tree.Root())
	assert.True(t, root.Failed())
	assert.False(t, root.Exhausted(), "the parent still had budget")
	assert.Equal(t, domain.ReasonBudgetExhausted, root.Reason())
	assert.Equal(t, []string{"a"}, *entered)
}

func TestBudget_CascadesThroughSpentAncestors(t *testing.T) {
	inner := goal.Seq(leaf("a")).WithMaxBudget(5)
	mid := goal.FirstOf(inner, leaf("alt")).WithMaxBudget(5)
	tree, cur, _ := started(t, goal.Seq(mid, leaf("after")).WithMaxBudget(100), math.Inf(1))
	innerID, _ := tree.Lookup(inner)
	midID, _ := tree.Lookup(mid)

	require.NoError(t, tree.ConsumeBudget(cur, 5))
	tree.MarkBudgetExhausted(cur)

	assert.True(t, tree.Status(innerID).Exhausted())
	assert.True(t, tree.Status(midID).Exhausted(), "FIRSTOF with no budget left cannot try its alternative")
	assert.True(t, tree.Status(tree.Root()).Failed())
	assert.False(t, tree.Status(tree.Root()).Exhausted())
}

func TestStart_WithoutBudget(t *testing.T) {
	tree, cur, entered := started(t, goal.Seq(leaves(2)...), 0)
	assert.Equal(t, goal.NoNode, cur)
	assert.True(t, tree.Status(tree.Root()).Exhausted())
	assert.Empty(t, *entered)

	_, err := tree.Start(10)
	var inv *goal.InvariantError
	assert.ErrorAs(t, err, &inv, "a tree is started once")
}

func TestNextLeaf_OnOpenNode(t *testing.T) {
	tree, cur, _ := started(t, goal.Seq(leaves(2)...), math.Inf(1))

	_, err := tree.NextLeaf(cur)
	var inv *goal.InvariantError
	require.ErrorAs(t, err, &inv)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Equal(t, cur, inv.Node)
}

func TestConsumeBudget_RejectsInvalidCharge(t *testing.T) {
	tree, cur, _ := started(t, leaf("a"), math.Inf(1))
	assert.ErrorIs(t, tree.ConsumeBudget(cur, -1), domain.ErrConfiguration)
	assert.ErrorIs(t, tree.ConsumeBudget(cur, math.NaN()), domain.ErrConfiguration)
	assert.Zero(t, tree.Consumed(cur))
}

func TestTerminalStatusIsFinal(t *testing.T) {
	tree, cur, _ := started(t, goal.FirstOf(leaves(2)...), math.Inf(1))

	tree.MarkSuccess(cur, "ok")
	tree.MarkFailed(cur, "late")
	tree.MarkBudgetExhausted(cur)

	assert.True(t, tree.Status(cur).Succeeded())
	assert.Equal(t, "ok", tree.Status(cur).Reason())
	assert.True(t, tree.Status(tree.Root()).Succeeded())
}

func TestAbort_FailsAncestorsOnly(t *testing.T) {
	first := leaf("first")
	tree, cur, _ := started(t, goal.Seq(first, goal.FirstOf(leaf("x"), leaf("y")), leaf("z")), math.Inf(1))
	firstID, _ := tree.Lookup(first)

	var closed []string
	tree.Observe(goal.Observer{OnClose: func(id goal.NodeID) { closed = append(closed, tree.Name(id)) }})

	tree.MarkSuccess(cur, "ok")
	cur, err := tree.NextLeaf(cur)
	require.NoError(t, err)
	require.Equal(t, "x", tree.Name(cur))

	tree.Abort(cur, "shutdown")

	assert.Equal(t, "shutdown", tree.Status(cur).Reason())
	assert.True(t, tree.Status(tree.Parent(cur)).Failed(), "FIRSTOF fails although y was never tried")
	assert.True(t, tree.Status(tree.Root()).Failed())
	assert.True(t, tree.Status(firstID).Succeeded(), "already closed nodes keep their status")
	assert.Equal(t, []string{"first", "x", "FIRSTOF", "SEQ"}, closed)

	next, err := tree.NextLeaf(cur)
	require.NoError(t, err)
	assert.Equal(t, goal.NoNode, next)
}

func TestReportAndSnapshot(t *testing.T) {
	g1 := leaf("g1").WithMaxBudget(2)
	tree, cur, _ := started(t, goal.FirstOf(g1, leaf("g2")).Named("either"), math.Inf(1))
	require.NoError(t, tree.ConsumeBudget(cur, 2))
	tree.MarkBudgetExhausted(cur)

	report := tree.Report()
	assert.Contains(t, report, "   either: in_progress\n")
	assert.Contains(t, report, "      g1: failed (budget exhausted)\n")
	assert.Contains(t, report, "      Max. budget: 2\n")
	assert.Contains(t, report, "   Consumed budget: 2\n")

	snap := tree.Snapshot()
	require.Len(t, snap.Nodes, 3)
	assert.Equal(t, -1, snap.Current)
	assert.False(t, snap.Closed)
	assert.Equal(t, []int{1, 2}, snap.Nodes[0].Children)
	assert.Equal(t, "FIRSTOF", snap.Nodes[0].Combinator)
	assert.Nil(t, snap.Nodes[0].MaxBudget)
	require.NotNil(t, snap.Nodes[1].MaxBudget)
	assert.Equal(t, 2.0, *snap.Nodes[1].MaxBudget)
	assert.Equal(t, domain.StatusFailed, snap.Nodes[1].Status)
	assert.Equal(t, 0, snap.Nodes[1].Parent)
	assert.Equal(t, -1, snap.Nodes[0].Parent)
}
