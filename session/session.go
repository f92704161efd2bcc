// Package session is the client-side state machine for one online game
// session. It reconciles user intents (connect, find a match, move,
// disconnect) against messages from the authoritative server and reports
// every visible change to a Notifier.
//
// A Session is not safe for concurrent use. Exactly one goroutine owns it and
// calls its methods; Loop provides that goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/rafaellugassy/tictactoe-client/logger"
	"github.com/rafaellugassy/tictactoe-client/protocol"
	"github.com/rafaellugassy/tictactoe-client/transport"
)

var (
	ErrAlreadyConnected = errors.New("session already connected")
	ErrInvalidIdentity  = errors.New("username must not be empty")
	ErrInvalidAddress   = errors.New("server address must not be empty")
	ErrUnknownSeason    = errors.New("unknown season")
)

// Config wires a Session to its collaborators.
type Config struct {
	// Dialer opens connections; required.
	Dialer Dialer
	// Notifier receives presentation updates; nil selects NopNotifier.
	Notifier Notifier
	// Logger records transitions and ignored input; nil discards.
	Logger logger.Logger
	// Observer receives transitions for metrics; may be nil.
	Observer Observer
}

// Session is the authoritative client-side view of connection status,
// identity, queue status, the running match and battle-pass XP.
type Session struct {
	dialer   Dialer
	notify   Notifier
	log      logger.Logger
	observer Observer

	state    State
	conn     Connection
	identity Identity
	match    *Match
	xp       int
}

// New creates a disconnected Session.
//
// Parameters:
//   - config: Collaborators; Dialer must be set
//
// Returns:
//   - A new Session in StateDisconnected
func New(config Config) *Session {
	s := &Session{
		dialer:   config.Dialer,
		notify:   config.Notifier,
		log:      config.Logger,
		observer: config.Observer,
		state:    StateDisconnected,
	}

	if s.notify == nil {
		s.notify = NopNotifier{}
	}
	if s.log == nil {
		s.log = logger.NewNopLogger()
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}

	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Identity returns who the session joined as; zero when disconnected.
func (s *Session) Identity() Identity { return s.identity }

// XP returns the last battle-pass XP total reported by the server. It
// survives a disconnect until the next joined.
func (s *Session) XP() int { return s.xp }

// Match returns a copy of the running match.
//
// Returns:
//   - The match and true while in StateInMatch, otherwise a zero Match and false
func (s *Session) Match() (Match, bool) {
	if s.match == nil {
		return Match{}, false
	}

	return *s.match, true
}

// Connect opens a connection and sends join. On failure the session stays
// disconnected and the error is returned to the caller; nothing is notified.
//
// Parameters:
//   - ctx: Bounds the dial
//   - address: "host" or "host:port"; the default port is used when omitted
//   - username: Display name; surrounding spaces are trimmed
//   - season: Season name, one of Seasons()
//
// Returns:
//   - ErrAlreadyConnected, ErrInvalidAddress, ErrInvalidIdentity,
//     ErrUnknownSeason, or a *transport.ConnectError from the dialer
func (s *Session) Connect(ctx context.Context, address, username, season string) error {
	if s.state != StateDisconnected {
		return ErrAlreadyConnected
	}

	address = normalizeAddress(address)
	if address == "" {
		return ErrInvalidAddress
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return ErrInvalidIdentity
	}

	sea, err := ParseSeason(season)
	if err != nil {
		return err
	}

	conn, err := s.dialer.Dial(ctx, address)
	if err != nil {
		s.log.Warn("connect failed", logger.F("address", address), logger.Err(err))
		return err
	}

	s.conn = conn
	s.identity = Identity{Username: username, Season: sea}
	s.setState(StateConnecting)

	s.conn.Send(protocol.Join{Username: username, Season: string(sea)})
	s.notify.StatusChanged("Connected (awaiting server)...")
	s.log.Info("connected", logger.F("address", address), logger.F("username", username), logger.F("season", sea))

	return nil
}

// FindMatch asks the server for a match. It is ignored unless the session
// is idle.
//
// Returns:
//   - true if a queue request was sent
func (s *Session) FindMatch() bool {
	if s.state != StateIdle {
		s.ignore("find_match", logger.F("state", s.state.String()))
		return false
	}

	s.conn.Send(protocol.Queue{})
	s.setState(StateQueued)
	s.notify.StatusChanged("Queued for match...")

	return true
}

// AttemptMove proposes a move at cell index. The move is sent only while in
// a match, on the player's turn, at a cell that is empty on the last
// authoritative board. The local board is never changed; it waits for the
// server's board_update.
//
// Parameters:
//   - index: Cell index, 0-8
//
// Returns:
//   - true if a move was sent
func (s *Session) AttemptMove(index int) bool {
	switch {
	case s.state != StateInMatch || s.match == nil:
		s.ignore("move", logger.F("state", s.state.String()), logger.F("index", index))
		return false
	case s.match.Turn != TurnMine:
		s.ignore("move", logger.F("reason", "not your turn"), logger.F("index", index))
		return false
	case !s.match.Board.IsEmptyAt(index):
		s.ignore("move", logger.F("reason", "cell unavailable"), logger.F("index", index))
		return false
	}

	s.conn.Send(protocol.Move{Index: index})
	return true
}

// Disconnect sends a best-effort leave and closes the connection. It is a
// no-op when already disconnected.
func (s *Session) Disconnect() {
	if s.state == StateDisconnected {
		return
	}

	s.conn.Send(protocol.Leave{})
	s.teardown(ReasonLocal)
}

// Poll handles every inbound message that is already waiting, without
// blocking.
//
// Returns:
//   - The number of messages handled
func (s *Session) Poll() int {
	handled := 0
	for s.conn != nil {
		select {
		case msg, ok := <-s.conn.Inbound():
			if !ok {
				msg = protocol.Disconnected{}
			}
			s.handle(msg)
			handled++
		default:
			return handled
		}
	}

	return handled
}

func (s *Session) handle(msg protocol.Message) {
	if s.state == StateDisconnected {
		return
	}

	switch m := msg.(type) {
	case protocol.Disconnected:
		s.teardown(ReasonRemote)
	case protocol.Error:
		s.log.Warn("server error", logger.F("message", m.Message))
		s.notify.ErrorRaised(m.Message)
	case protocol.Joined:
		s.onJoined(m)
	case protocol.Queued:
		s.onQueued()
	case protocol.Matched:
		s.onMatched(m)
	case protocol.BoardUpdate:
		s.onBoardUpdate(m)
	case protocol.OpponentLeft:
		s.onOpponentLeft()
	case protocol.XPAward:
		s.xp = m.Total
		s.notify.XPAwarded(m.Amount, m.Reason, m.Total)
		s.notify.XPChanged(m.Total)
	case protocol.XPSync:
		s.xp = m.XP
		s.notify.XPChanged(m.XP)
	default:
		s.unexpected(msg)
	}
}

func (s *Session) onJoined(m protocol.Joined) {
	if s.state != StateConnecting {
		s.unexpected(m)
		return
	}

	name := m.Username
	if name == "" {
		name = s.identity.Username
	}

	s.xp = m.XP
	s.setState(StateIdle)
	s.notify.StatusChanged(fmt.Sprintf("Joined as %s (XP %d)", name, m.XP))
	s.notify.XPChanged(m.XP)
}

func (s *Session) onQueued() {
	if s.state != StateIdle && s.state != StateQueued {
		s.unexpected(protocol.Queued{})
		return
	}

	s.setState(StateQueued)
	s.notify.StatusChanged("Queued for match...")
}

func (s *Session) onMatched(m protocol.Matched) {
	if s.state != StateIdle && s.state != StateQueued {
		s.unexpected(m)
		return
	}

	turn := TurnOpponent
	if m.You == protocol.SymbolX {
		turn = TurnMine
	}

	s.match = &Match{
		Board:    protocol.NewBoard(),
		MySymbol: m.You,
		Opponent: m.Opponent,
		Turn:     turn,
	}
	s.setState(StateInMatch)

	s.notify.MatchStarted(m.You, m.Opponent)
	s.notify.BoardChanged(s.match.Board)
	s.notify.StatusChanged(fmt.Sprintf("Matched vs %s. You are %s", m.Opponent, m.You))
}

func (s *Session) onBoardUpdate(m protocol.BoardUpdate) {
	if s.state != StateInMatch || s.match == nil {
		s.unexpected(m)
		return
	}

	s.match.Board = m.Board
	s.notify.BoardChanged(m.Board)

	if m.Winner.Terminal() {
		line := m.Combo
		if m.Winner == protocol.OutcomeTie {
			line = nil
		}

		s.log.Info("match ended", logger.F("outcome", m.Winner), logger.F("opponent", s.match.Opponent))
		s.match = nil
		s.setState(StateIdle)
		s.notify.MatchEnded(m.Winner, line)
		return
	}

	if m.NextTurn == s.identity.Username {
		s.match.Turn = TurnMine
		s.notify.StatusChanged("Your turn (online)")
	} else {
		s.match.Turn = TurnOpponent
		s.notify.StatusChanged(fmt.Sprintf("%s's turn", m.NextTurn))
	}
}

func (s *Session) onOpponentLeft() {
	if s.state != StateInMatch {
		s.unexpected(protocol.OpponentLeft{})
		return
	}

	s.match = nil
	s.setState(StateIdle)
	s.notify.OpponentLeft()
}

// teardown releases the connection and the match, then notifies once. XP is
// kept so XP() matches what was last shown; the next joined replaces it.
func (s *Session) teardown(reason DisconnectReason) {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}

	s.match = nil
	s.identity = Identity{}
	s.setState(StateDisconnected)

	s.log.Info("disconnected", logger.F("reason", reason.String()))
	s.notify.Disconnected(reason)
}

func (s *Session) setState(to State) {
	from := s.state
	if from == to {
		return
	}

	s.state = to
	s.observer.StateChanged(from, to)
	s.log.Debug("state changed", logger.F("from", from.String()), logger.F("to", to.String()))
}

func (s *Session) ignore(intent string, fields ...logger.Field) {
	s.observer.IntentIgnored(intent)
	s.log.Debug("intent ignored", append(fields, logger.F("intent", intent))...)
}

func (s *Session) unexpected(msg protocol.Message) {
	s.log.Debug("message ignored in current state", logger.F("type", msg.Type()), logger.F("state", s.state.String()))
}

// normalizeAddress appends the default port to a bare host.
func normalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}

	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}

	return transport.JoinHostPort(strings.Trim(address, "[]"), 0)
}
