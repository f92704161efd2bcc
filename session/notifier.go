package session

import "github.com/rafaellugassy/tictactoe-client/protocol"

// Notifier is implemented by the presentation layer. Every method is called
// from the goroutine that owns the Session, never concurrently.
type Notifier interface {
	// StatusChanged carries a one-line status text for display.
	StatusChanged(text string)
	// MatchStarted announces the assigned symbol and opponent name.
	MatchStarted(symbol protocol.Symbol, opponent string)
	// BoardChanged carries the latest authoritative board.
	BoardChanged(board protocol.Board)
	// MatchEnded reports the server-declared outcome and the winning line,
	// which is empty for a tie.
	MatchEnded(outcome protocol.Outcome, line []int)
	// OpponentLeft reports that the match ended because the opponent left.
	OpponentLeft()
	// XPChanged carries the new battle-pass XP total.
	XPChanged(total int)
	// XPAwarded reports a one-off XP grant.
	XPAwarded(amount int, reason string, total int)
	// ErrorRaised carries a non-fatal error for display.
	ErrorRaised(message string)
	// Disconnected is called exactly once when a session ends. No XPChanged
	// follows; the last XP total stays valid until the next join.
	Disconnected(reason DisconnectReason)
}

// NopNotifier ignores every notification. Embed it to implement only the
// methods of interest.
type NopNotifier struct{}

func (NopNotifier) StatusChanged(string)                 {}
func (NopNotifier) MatchStarted(protocol.Symbol, string) {}
func (NopNotifier) BoardChanged(protocol.Board)          {}
func (NopNotifier) MatchEnded(protocol.Outcome, []int)   {}
func (NopNotifier) OpponentLeft()                        {}
func (NopNotifier) XPChanged(int)                        {}
func (NopNotifier) XPAwarded(int, string, int)           {}
func (NopNotifier) ErrorRaised(string)                   {}
func (NopNotifier) Disconnected(DisconnectReason)        {}

// Observer receives state transitions and ignored intents, for metrics.
type Observer interface {
	StateChanged(from, to State)
	IntentIgnored(intent string)
}

type nopObserver struct{}

func (nopObserver) StateChanged(State, State) {}
func (nopObserver) IntentIgnored(string)      {}
