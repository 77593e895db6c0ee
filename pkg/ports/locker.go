package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a lock.
type UnlockFunc func(ctx context.Context) error

// Locker provides mutual exclusion for command dispatch to a shared environment.
// Agents sharing one environment never interleave the effects of a single command.
type Locker interface {
	// Lock acquires the lock for key. It blocks until the lock is acquired or the
	// context is canceled. The ttl bounds how long a crashed holder can keep the lock
	// (implementation specific; in-process lockers ignore it).
	// Returns an UnlockFunc that MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
