// Package protocol defines the line-delimited JSON message vocabulary spoken
// between the game client and the matchmaking server, and the codec that
// turns messages into frames and frames back into messages.
package protocol

import "fmt"

// Type is the value of the mandatory "type" discriminator field.
type Type string

const (
	TypeJoin         Type = "join"
	TypeQueue        Type = "queue"
	TypeMove         Type = "move"
	TypeLeave        Type = "leave"
	TypeJoined       Type = "joined"
	TypeQueued       Type = "queued"
	TypeMatched      Type = "matched"
	TypeBoardUpdate  Type = "board_update"
	TypeXPAward      Type = "xp_award"
	TypeXPSync       Type = "xp"
	TypeOpponentLeft Type = "opponent_left"
	TypeDisconnected Type = "disconnected"
	TypeError        Type = "error"
)

// Message is one decoded frame. The set of implementations is closed: every
// message kind is one of the structs in this package.
type Message interface {
	// Type returns the wire discriminator for the message.
	Type() Type
	isMessage()
}

// ---- Client -> Server ----

// Join authenticates the session with a display name and season.
type Join struct {
	Username string `json:"username"`
	Season   string `json:"season"`
}

// Queue asks the server to enter the matchmaking queue.
type Queue struct{}

// Move proposes placing the sender's symbol at Index (0-8).
type Move struct {
	Index int `json:"index"`
}

// Leave voluntarily ends the session and any running match.
type Leave struct{}

// ---- Server -> Client ----

// Joined accepts a Join and carries the player's current battle-pass XP.
type Joined struct {
	Username string `json:"username"`
	XP       int    `json:"xp"`
}

// Queued acknowledges a Queue request.
type Queued struct{}

// Matched announces a match. You is the symbol assigned to the receiver.
type Matched struct {
	You      Symbol `json:"you"`
	Opponent string `json:"opponent"`
}

// BoardUpdate is the authoritative board after a move. Winner is empty while
// the match is running; Combo holds the winning line when there is one.
// NextTurn names the player expected to move next.
type BoardUpdate struct {
	Board    Board   `json:"board"`
	Winner   Outcome `json:"winner,omitempty"`
	Combo    []int   `json:"combo,omitempty"`
	NextTurn string  `json:"next_turn,omitempty"`
}

// XPAward is a one-off XP grant with a human readable reason.
type XPAward struct {
	Amount int    `json:"amount"`
	Total  int    `json:"total"`
	Reason string `json:"reason"`
}

// XPSync carries the player's XP total without narrative.
type XPSync struct {
	XP int `json:"xp"`
}

// OpponentLeft reports that the opponent disconnected mid-match.
type OpponentLeft struct{}

// Disconnected is produced locally by the transport when the stream ends.
// It is never accepted from the wire.
type Disconnected struct{}

// Error is a server-reported, non-fatal error.
type Error struct {
	Message string `json:"message"`
}

func (Join) Type() Type         { return TypeJoin }
func (Queue) Type() Type        { return TypeQueue }
func (Move) Type() Type         { return TypeMove }
func (Leave) Type() Type        { return TypeLeave }
func (Joined) Type() Type       { return TypeJoined }
func (Queued) Type() Type       { return TypeQueued }
func (Matched) Type() Type      { return TypeMatched }
func (BoardUpdate) Type() Type  { return TypeBoardUpdate }
func (XPAward) Type() Type      { return TypeXPAward }
func (XPSync) Type() Type       { return TypeXPSync }
func (OpponentLeft) Type() Type { return TypeOpponentLeft }
func (Disconnected) Type() Type { return TypeDisconnected }
func (Error) Type() Type        { return TypeError }

func (Join) isMessage()         {}
func (Queue) isMessage()        {}
func (Move) isMessage()         {}
func (Leave) isMessage()        {}
func (Joined) isMessage()       {}
func (Queued) isMessage()       {}
func (Matched) isMessage()      {}
func (BoardUpdate) isMessage()  {}
func (XPAward) isMessage()      {}
func (XPSync) isMessage()       {}
func (OpponentLeft) isMessage() {}
func (Disconnected) isMessage() {}
func (Error) isMessage()        {}

// validate checks field invariants that JSON decoding alone cannot express.
func (m Join) validate() error {
	if m.Username == "" {
		return fmt.Errorf("join: empty username")
	}

	return nil
}

func (m Move) validate() error {
	if m.Index < 0 || m.Index >= BoardSize {
		return fmt.Errorf("move: index %d out of range", m.Index)
	}

	return nil
}

func (m Joined) validate() error {
	if m.XP < 0 {
		return fmt.Errorf("joined: negative xp %d", m.XP)
	}

	return nil
}

func (m Matched) validate() error {
	if !m.You.Valid() {
		return fmt.Errorf("matched: invalid symbol %q", string(m.You))
	}

	return nil
}

func (m BoardUpdate) validate() error {
	if err := m.Board.Validate(); err != nil {
		return fmt.Errorf("board_update: %w", err)
	}

	if !m.Winner.Valid() {
		return fmt.Errorf("board_update: invalid winner %q", string(m.Winner))
	}

	for _, i := range m.Combo {
		if i < 0 || i >= BoardSize {
			return fmt.Errorf("board_update: combo index %d out of range", i)
		}
	}

	return nil
}

func (m XPAward) validate() error {
	if m.Total < 0 {
		return fmt.Errorf("xp_award: negative total %d", m.Total)
	}

	return nil
}

func (m XPSync) validate() error {
	if m.XP < 0 {
		return fmt.Errorf("xp: negative xp %d", m.XP)
	}

	return nil
}
