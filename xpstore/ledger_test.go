package xpstore

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ledgerContract runs the behaviour every Ledger must share.
func ledgerContract(t *testing.T, newLedger func(t *testing.T) Ledger) {
	ctx := context.Background()

	t.Run("unknown player has zero balance", func(t *testing.T) {
		l := newLedger(t)

		xp, err := l.Balance(ctx, "season1", "nobody")
		require.NoError(t, err)
		assert.Zero(t, xp)
	})

	t.Run("awards accumulate per season", func(t *testing.T) {
		l := newLedger(t)

		total, err := l.Award(ctx, "season1", "alice", 50)
		require.NoError(t, err)
		assert.Equal(t, 50, total)

		total, err = l.Award(ctx, "season1", "alice", 20)
		require.NoError(t, err)
		assert.Equal(t, 70, total)

		_, err = l.Award(ctx, "season2", "alice", 10)
		require.NoError(t, err)

		xp, err := l.Balance(ctx, "season1", "alice")
		require.NoError(t, err)
		assert.Equal(t, 70, xp)

		xp, err = l.Balance(ctx, "season2", "alice")
		require.NoError(t, err)
		assert.Equal(t, 10, xp)
	})

	t.Run("zero award creates the balance", func(t *testing.T) {
		l := newLedger(t)

		total, err := l.Award(ctx, "season1", "bob", 0)
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("invalid awards are rejected", func(t *testing.T) {
		l := newLedger(t)

		_, err := l.Award(ctx, "season1", "alice", -5)
		assert.ErrorIs(t, err, ErrNegativeAmount)

		_, err = l.Award(ctx, "season1", " ", 5)
		assert.ErrorIs(t, err, ErrInvalidPlayer)

		_, err = l.Balance(ctx, "season1", "")
		assert.ErrorIs(t, err, ErrInvalidPlayer)
	})

	t.Run("concurrent awards are not lost", func(t *testing.T) {
		l := newLedger(t)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := l.Award(ctx, "season1", "carol", 2)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		xp, err := l.Balance(ctx, "season1", "carol")
		require.NoError(t, err)
		assert.Equal(t, 100, xp)
	})

	t.Run("reset season removes only that season", func(t *testing.T) {
		l := newLedger(t)

		_, _ = l.Award(ctx, "season1", "alice", 5)
		_, _ = l.Award(ctx, "season1", "bob", 5)
		_, _ = l.Award(ctx, "season2", "alice", 5)

		n, err := l.ResetSeason(ctx, "season1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		xp, _ := l.Balance(ctx, "season1", "alice")
		assert.Zero(t, xp)
		xp, _ = l.Balance(ctx, "season2", "alice")
		assert.Equal(t, 5, xp)
	})
}

func TestMemoryLedger(t *testing.T) {
	ledgerContract(t, func(t *testing.T) Ledger { return NewMemoryLedger() })

	t.Run("cancelled context", func(t *testing.T) {
		l := NewMemoryLedger()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := l.Award(ctx, "season1", "alice", 1)
		assert.ErrorIs(t, err, context.Canceled)

		_, err = l.Balance(ctx, "season1", "alice")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRedisLedger(t *testing.T) {
	addr := os.Getenv("TTT_REDIS_ADDR")
	if addr == "" {
		t.Skip("TTT_REDIS_ADDR not set")
	}

	ledgerContract(t, func(t *testing.T) Ledger {
		client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
		l := NewRedisLedger(client)
		require.NoError(t, l.Ping(context.Background()))
		require.NoError(t, client.FlushDB(context.Background()).Err())

		t.Cleanup(func() {
			_ = client.FlushDB(context.Background()).Err()
			_ = l.Close()
		})

		return l
	})
}
