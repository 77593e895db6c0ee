package domain

// NodeSnapshot is a read-only copy of one goal-tree node.
type NodeSnapshot struct {
	ID         int        `json:"id"`
	Parent     int        `json:"parent"`
	Children   []int      `json:"children,omitempty"`
	Name       string     `json:"name"`
	Combinator string     `json:"combinator"`
	Status     StatusKind `json:"status"`
	Reason     string     `json:"reason,omitempty"`
	MaxBudget  *float64   `json:"max_budget,omitempty"` // nil when unbounded
	Remaining  *float64   `json:"remaining,omitempty"`  // nil when unbounded
	Consumed   float64    `json:"consumed"`
	ElapsedMS  int64      `json:"elapsed_ms"`
}

// TreeSnapshot is a read-only copy of a whole goal tree, safe to hand to other goroutines.
type TreeSnapshot struct {
	AgentID string         `json:"agent_id,omitempty"`
	Root    int            `json:"root"`
	Current int            `json:"current"` // -1 when no leaf is current
	Closed  bool           `json:"closed"`
	Tick    uint64         `json:"tick"`
	Nodes   []NodeSnapshot `json:"nodes"`
}
