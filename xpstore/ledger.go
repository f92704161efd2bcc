// Package xpstore keeps battle-pass XP balances for the development server.
package xpstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPlayer  = errors.New("player username must not be empty")
	ErrNegativeAmount = errors.New("xp award must not be negative")
)

// Ledger stores one XP balance per player and season. Implementations must be
// safe for concurrent use.
type Ledger interface {
	// Balance returns the player's XP for the season, zero if unknown.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - season: Season name
	//   - username: Player name
	//
	// Returns:
	//   - The current balance
	//   - An error if the store could not be read
	Balance(ctx context.Context, season, username string) (int, error)

	// Award adds amount to the player's balance.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - season: Season name
	//   - username: Player name
	//   - amount: XP to add; must not be negative
	//
	// Returns:
	//   - The new balance
	//   - ErrNegativeAmount, ErrInvalidPlayer or a store error
	Award(ctx context.Context, season, username string, amount int) (int, error)

	// ResetSeason removes every balance of a season.
	//
	// Returns:
	//   - The number of balances removed
	//   - An error if the operation fails
	ResetSeason(ctx context.Context, season string) (int, error)
}

func balanceKey(season, username string) string {
	return fmt.Sprintf("%s%s", seasonPrefix(season), username)
}

func seasonPrefix(season string) string {
	return fmt.Sprintf("xp:%s:", season)
}

func validate(username string, amount int) error {
	if strings.TrimSpace(username) == "" {
		return ErrInvalidPlayer
	}
	if amount < 0 {
		return ErrNegativeAmount
	}
	return nil
}
