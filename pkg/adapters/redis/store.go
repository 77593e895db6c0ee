package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// VerdictLog implements ports.VerdictLog on a redis list, so that verdicts survive the
// agent process and can be collected from several runners.
type VerdictLog struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a VerdictLog.
type Option func(*VerdictLog)

// WithPrefix sets the key prefix (default "arbor:").
func WithPrefix(prefix string) Option {
	return func(l *VerdictLog) {
		l.prefix = prefix
	}
}

// WithTTL expires the whole log after ttl of inactivity. Zero keeps it forever.
func WithTTL(ttl time.Duration) Option {
	return func(l *VerdictLog) {
		l.ttl = ttl
	}
}

// New connects to the redis server at addr.
func New(addr string, opts ...Option) *VerdictLog {
	return NewFromClient(backend.NewClient(&backend.Options{Addr: addr}), opts...)
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *VerdictLog {
	l := &VerdictLog{
		client: client,
		prefix: "arbor:",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Client returns the underlying client, e.g. to share it with a Locker.
func (l *VerdictLog) Client() *backend.Client {
	return l.client
}

func (l *VerdictLog) key() string {
	return l.prefix + "verdicts"
}

// RegisterVerdict appends a verdict to the list.
func (l *VerdictLog) RegisterVerdict(ctx context.Context, goal string, v domain.Verdict) error {
	data, err := json.Marshal(domain.VerdictRecord{Goal: goal, Verdict: v, Timestamp: l.now()})
	if err != nil {
		return fmt.Errorf("failed to marshal verdict: %w", err)
	}

	pipe := l.client.TxPipeline()
	pipe.RPush(ctx, l.key(), data)
	if l.ttl > 0 {
		pipe.Expire(ctx, l.key(), l.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to register verdict: %w", err)
	}
	return nil
}

// List returns every verdict, oldest first.
func (l *VerdictLog) List(ctx context.Context) ([]domain.VerdictRecord, error) {
	raw, err := l.client.LRange(ctx, l.key(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list verdicts: %w", err)
	}

	records := make([]domain.VerdictRecord, 0, len(raw))
	for _, item := range raw {
		var r domain.VerdictRecord
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal verdict: %w", err)
		}
		records = append(records, r)
	}
	return records, nil
}

// Clear deletes the list.
func (l *VerdictLog) Clear(ctx context.Context) error {
	if err := l.client.Del(ctx, l.key()).Err(); err != nil {
		return fmt.Errorf("failed to clear verdicts: %w", err)
	}
	return nil
}
