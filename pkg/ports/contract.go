package ports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunVerdictLogContract runs a suite of tests to verify that a VerdictLog implementation
// adheres to the defined interface contract. The log must start empty.
func RunVerdictLogContract(t *testing.T, log VerdictLog) {
	ctx := context.Background()

	t.Run("Register and List", func(t *testing.T) {
		require.NoError(t, log.Clear(ctx))

		require.NoError(t, log.RegisterVerdict(ctx, "open-door", domain.Pass("door is open")))
		require.NoError(t, log.RegisterVerdict(ctx, "light-on", domain.Fail("lamp still off")))

		records, err := log.List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)

		assert.Equal(t, "open-door", records[0].Goal)
		assert.Equal(t, domain.VerdictPass, records[0].Verdict.Kind)
		assert.Equal(t, "door is open", records[0].Verdict.Info)
		assert.False(t, records[0].Timestamp.IsZero(), "records must be timestamped")

		assert.Equal(t, "light-on", records[1].Goal)
		assert.Equal(t, domain.VerdictFail, records[1].Verdict.Kind)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, log.RegisterVerdict(ctx, "x", domain.Undecided("")))
		require.NoError(t, log.Clear(ctx))

		records, err := log.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

// RunLockerContract verifies that a Locker grants a key to one holder at a time and
// honours context cancellation while waiting.
func RunLockerContract(t *testing.T, locker Locker) {
	ctx := context.Background()
	key := "contract-lock-" + time.Now().Format("20060102150405.000")

	t.Run("Lock and Unlock", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, time.Second)
		require.NoError(t, err)
		require.NotNil(t, unlock)
		require.NoError(t, unlock(ctx))

		// Re-acquirable after release
		unlock, err = locker.Lock(ctx, key, time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
	})

	t.Run("Blocked Until Canceled", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err)
		defer func() { _ = unlock(ctx) }()

		waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(waitCtx, key, time.Second)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("Mutual Exclusion", func(t *testing.T) {
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			holders int
			overlap bool
		)
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := locker.Lock(ctx, key, 5*time.Second)
				if err != nil {
					return
				}
				mu.Lock()
				holders++
				if holders > 1 {
					overlap = true
				}
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				holders--
				mu.Unlock()
				_ = unlock(ctx)
			}()
		}
		wg.Wait()
		assert.False(t, overlap, "two holders owned the same key at once")
	})
}
