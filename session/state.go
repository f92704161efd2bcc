package session

import (
	"fmt"
	"strings"

	"github.com/rafaellugassy/tictactoe-client/protocol"
)

// State is the client's position in the session lifecycle.
type State int

const (
	StateDisconnected State = iota // No connection
	StateConnecting                // Connected, join sent, awaiting "joined"
	StateIdle                      // Joined, not queued
	StateQueued                    // Waiting for an opponent
	StateInMatch                   // Playing a match
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateIdle:
		return "Idle"
	case StateQueued:
		return "Queued"
	case StateInMatch:
		return "InMatch"
	default:
		return "Unknown"
	}
}

// Connected reports whether the state holds an open connection.
func (s State) Connected() bool {
	return s != StateDisconnected
}

// Season selects the battle-pass season the player joins under.
type Season string

const (
	Season1 Season = "season1"
	Season2 Season = "season2"
)

// Seasons lists every selectable season in display order.
func Seasons() []Season {
	return []Season{Season1, Season2}
}

// ParseSeason validates a season name.
//
// Parameters:
//   - name: The season name, e.g. "season1"
//
// Returns:
//   - The season, or ErrUnknownSeason
func ParseSeason(name string) (Season, error) {
	s := Season(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Seasons() {
		if s == known {
			return s, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownSeason, name)
}

// Identity is who the player is for the lifetime of one connection.
type Identity struct {
	Username string
	Season   Season
}

// Turn says who moves next in the running match.
type Turn int

const (
	TurnOpponent Turn = iota
	TurnMine
)

func (t Turn) String() string {
	if t == TurnMine {
		return "mine"
	}

	return "opponent"
}

// Match is the client's view of a running match. Board only ever holds the
// last authoritative board received from the server.
type Match struct {
	Board    protocol.Board
	MySymbol protocol.Symbol
	Opponent string
	Turn     Turn
}

// DisconnectReason says why a session ended.
type DisconnectReason int

const (
	// ReasonRemote means the stream ended or failed.
	ReasonRemote DisconnectReason = iota
	// ReasonLocal means the user asked to disconnect.
	ReasonLocal
)

func (r DisconnectReason) String() string {
	if r == ReasonLocal {
		return "local"
	}

	return "remote"
}
