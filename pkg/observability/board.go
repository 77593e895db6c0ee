package observability

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Board keeps the latest tree snapshot of each agent.
// Safe for concurrent use.
type Board struct {
	mu        sync.RWMutex
	snapshots map[string]domain.TreeSnapshot
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{snapshots: make(map[string]domain.TreeSnapshot)}
}

// Update stores snap under its AgentID, replacing any previous one.
func (b *Board) Update(snap domain.TreeSnapshot) error {
	if snap.AgentID == "" {
		return fmt.Errorf("%w: snapshot without agent id", domain.ErrConfiguration)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots[snap.AgentID] = snap
	return nil
}

// Get returns the snapshot of one agent.
func (b *Board) Get(agentID string) (domain.TreeSnapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snap, ok := b.snapshots[agentID]
	if !ok {
		return domain.TreeSnapshot{}, fmt.Errorf("%w: %s", domain.ErrAgentNotFound, agentID)
	}
	return snap, nil
}

// List returns every snapshot sorted by agent ID.
func (b *Board) List() []domain.TreeSnapshot {
	b.mu.RLock()
	out := make([]domain.TreeSnapshot, 0, len(b.snapshots))
	for _, s := range b.snapshots {
		out = append(out, s)
	}
	b.mu.RUnlock()

	slices.SortFunc(out, func(x, y domain.TreeSnapshot) int { return strings.Compare(x.AgentID, y.AgentID) })
	return out
}

// Remove forgets an agent.
func (b *Board) Remove(agentID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.snapshots, agentID)
}
