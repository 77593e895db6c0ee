package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

// VerdictLog implements ports.VerdictLog in memory.
// Safe for concurrent use.
type VerdictLog struct {
	records []domain.VerdictRecord
	mu      sync.RWMutex
	now     func() time.Time
}

// NewVerdictLog creates an empty in-memory verdict log.
func NewVerdictLog() *VerdictLog {
	return &VerdictLog{now: time.Now}
}

// RegisterVerdict appends a verdict.
func (l *VerdictLog) RegisterVerdict(ctx context.Context, goal string, v domain.Verdict) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, domain.VerdictRecord{Goal: goal, Verdict: v, Timestamp: l.now()})
	return nil
}

// List returns a copy of the recorded verdicts, oldest first.
func (l *VerdictLog) List(ctx context.Context) ([]domain.VerdictRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.VerdictRecord, len(l.records))
	copy(out, l.records)
	return out, nil
}

// Clear drops every record.
func (l *VerdictLog) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
	return nil
}

// Count returns verdict totals per kind.
func (l *VerdictLog) Count() map[domain.VerdictKind]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counts := make(map[domain.VerdictKind]int)
	for _, r := range l.records {
		counts[r.Verdict.Kind]++
	}
	return counts
}
