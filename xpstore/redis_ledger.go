package xpstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLedger is a Ledger stored in Redis, one integer key per player and
// season. It lets several server processes share balances.
type RedisLedger struct {
	client *redis.Client
}

// NewRedisLedger creates a ledger over an existing client.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	ledger := NewRedisLedger(client)
func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

// Ping checks that Redis is reachable.
func (l *RedisLedger) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping error: %w", err)
	}
	return nil
}

// Balance reads the player's balance; a missing key is zero.
func (l *RedisLedger) Balance(ctx context.Context, season, username string) (int, error) {
	if err := validate(username, 0); err != nil {
		return 0, err
	}

	xp, err := l.client.Get(ctx, balanceKey(season, username)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get error: %w", err)
	}

	return xp, nil
}

// Award increments the player's balance atomically with INCRBY.
func (l *RedisLedger) Award(ctx context.Context, season, username string, amount int) (int, error) {
	if err := validate(username, amount); err != nil {
		return 0, err
	}

	total, err := l.client.IncrBy(ctx, balanceKey(season, username), int64(amount)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to award xp: %w", err)
	}

	return int(total), nil
}

// ResetSeason deletes every balance of season using SCAN, never KEYS.
func (l *RedisLedger) ResetSeason(ctx context.Context, season string) (int, error) {
	iter := l.client.Scan(ctx, 0, seasonPrefix(season)+"*", 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan keys: %w", err)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	deleted, err := l.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete keys: %w", err)
	}

	return int(deleted), nil
}

// Close releases the underlying client.
func (l *RedisLedger) Close() error {
	return l.client.Close()
}
