package xpstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryLedger is an in-process Ledger backed by go-cache. Balances never
// expire and are lost when the process exits.
type MemoryLedger struct {
	cache *cache.Cache
}

// NewMemoryLedger creates an empty in-memory ledger.
//
// Returns:
//   - A new MemoryLedger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		cache: cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

// Balance returns the stored balance, zero for unknown players.
func (l *MemoryLedger) Balance(ctx context.Context, season, username string) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	if err := validate(username, 0); err != nil {
		return 0, err
	}

	val, found := l.cache.Get(balanceKey(season, username))
	if !found {
		return 0, nil
	}

	xp, ok := val.(int)
	if !ok {
		return 0, fmt.Errorf("unexpected type %T in ledger for %s", val, username)
	}

	return xp, nil
}

// Award adds amount to the player's balance, creating it on first use.
func (l *MemoryLedger) Award(ctx context.Context, season, username string, amount int) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	if err := validate(username, amount); err != nil {
		return 0, err
	}

	key := balanceKey(season, username)

	// Add fails only when the key already exists.
	if err := l.cache.Add(key, amount, cache.NoExpiration); err == nil {
		return amount, nil
	}

	total, err := l.cache.IncrementInt(key, amount)
	if err != nil {
		return 0, fmt.Errorf("failed to award xp: %w", err)
	}

	return total, nil
}

// ResetSeason deletes every balance of season.
func (l *MemoryLedger) ResetSeason(ctx context.Context, season string) (int, error) {
	prefix := seasonPrefix(season)
	deleted := 0

	for key := range l.cache.Items() {
		select {
		case <-ctx.Done():
			return deleted, ctx.Err()
		default:
		}

		if strings.HasPrefix(key, prefix) {
			l.cache.Delete(key)
			deleted++
		}
	}

	return deleted, nil
}
