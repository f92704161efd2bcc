package devserver

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/rafaellugassy/tictactoe-client/logger"
	"github.com/rafaellugassy/tictactoe-client/offline"
	"github.com/rafaellugassy/tictactoe-client/protocol"
	"github.com/rafaellugassy/tictactoe-client/transport"
)

type event struct {
	player *player
	msg    protocol.Message
}

// player is one accepted connection. Fields below conn are owned by the
// lobby goroutine.
type player struct {
	id   uint32
	conn *transport.Conn
	log  logger.Logger

	username string
	season   string
	queued   bool
	match    *match
	symbol   protocol.Symbol
}

func (p *player) joined() bool { return p.username != "" }

func (p *player) fail(format string, args ...any) {
	p.conn.Send(protocol.Error{Message: fmt.Sprintf(format, args...)})
}

type match struct {
	id   string
	game *offline.Game
	x, o *player
}

func (m *match) bySymbol(s protocol.Symbol) *player {
	if s == protocol.SymbolX {
		return m.x
	}
	return m.o
}

func (m *match) peer(p *player) *player {
	if p == m.x {
		return m.o
	}
	return m.x
}

func (m *match) broadcast(msg protocol.Message) {
	m.x.conn.Send(msg)
	m.o.conn.Send(msg)
}

// lobby serialises every game decision on one goroutine: joins, the FIFO
// queue, pairing, move judgement and XP awards.
type lobby struct {
	server *Server
	queue  []*player
}

func newLobby(s *Server) *lobby {
	return &lobby{server: s}
}

func (l *lobby) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-l.server.events:
			l.handle(ctx, ev)
		}
	}
}

func (l *lobby) handle(ctx context.Context, ev event) {
	p := ev.player

	switch m := ev.msg.(type) {
	case protocol.Join:
		l.join(ctx, p, m)
	case protocol.Queue:
		l.enqueue(p)
	case protocol.Move:
		l.move(ctx, p, m)
	case protocol.Leave, protocol.Disconnected:
		l.leave(p)
	default:
		p.fail("unexpected message %q", m.Type())
	}
}

func (l *lobby) join(ctx context.Context, p *player, m protocol.Join) {
	if p.joined() {
		p.fail("already joined as %s", p.username)
		return
	}

	name := strings.TrimSpace(m.Username)
	if name == "" {
		p.fail("username must not be empty")
		return
	}
	if l.nameTaken(name) {
		p.fail("username %s is already in use", name)
		return
	}

	season := m.Season
	if season == "" {
		season = l.server.config.DefaultSeason
	}

	xp, err := l.server.ledger.Balance(ctx, season, name)
	if err != nil {
		p.log.Warn("failed to read xp balance", logger.F("username", name), logger.Err(err))
	}

	p.username = name
	p.season = season
	p.log = p.log.With(logger.F("username", name))
	p.conn.Send(protocol.Joined{Username: name, XP: xp})
	p.log.Info("player joined", logger.F("season", season), logger.F("xp", xp))
}

func (l *lobby) nameTaken(name string) bool {
	taken := false
	l.server.players.Range(func(_ uint32, other *player) bool {
		taken = other.username == name && other.conn.Running()
		return !taken
	})

	return taken
}

func (l *lobby) enqueue(p *player) {
	switch {
	case !p.joined():
		p.fail("join before queueing")
		return
	case p.match != nil:
		p.fail("already in a match")
		return
	}

	if !p.queued {
		p.queued = true
		l.queue = append(l.queue, p)
		l.server.observer.PlayerQueued()
	}

	p.conn.Send(protocol.Queued{})
	l.pair()
}

// pair matches queued players in arrival order; the earlier one plays X.
func (l *lobby) pair() {
	for len(l.queue) >= 2 {
		x, o := l.queue[0], l.queue[1]
		l.queue = l.queue[2:]

		m := &match{id: uuid.NewString(), game: offline.NewGame(), x: x, o: o}
		for _, p := range []*player{x, o} {
			p.queued = false
			p.match = m
			l.server.observer.PlayerDequeued()
		}
		x.symbol = protocol.SymbolX
		o.symbol = protocol.SymbolO

		l.server.observer.MatchStarted()
		x.conn.Send(protocol.Matched{You: protocol.SymbolX, Opponent: o.username})
		o.conn.Send(protocol.Matched{You: protocol.SymbolO, Opponent: x.username})

		l.server.log.Info("match started",
			logger.F("match", m.id), logger.F("x", x.username), logger.F("o", o.username))
	}
}

func (l *lobby) move(ctx context.Context, p *player, mv protocol.Move) {
	m := p.match
	switch {
	case m == nil:
		p.fail("not in a match")
		return
	case m.game.Current() != p.symbol:
		p.fail("not your turn")
		return
	}

	outcome, err := m.game.Play(mv.Index)
	if err != nil {
		p.fail("%v", err)
		return
	}

	update := protocol.BoardUpdate{Board: m.game.Board()}
	if outcome.Terminal() {
		_, line := m.game.Outcome()
		update.Winner = outcome
		update.Combo = line
	} else {
		update.NextTurn = m.bySymbol(m.game.Current()).username
	}
	m.broadcast(update)

	if outcome.Terminal() {
		l.finish(ctx, m, outcome)
	}
}

func (l *lobby) finish(ctx context.Context, m *match, outcome protocol.Outcome) {
	m.x.match = nil
	m.o.match = nil
	l.server.observer.MatchFinished(outcome)
	l.server.log.Info("match finished", logger.F("match", m.id), logger.F("outcome", string(outcome)))

	rewards := l.server.config.Rewards
	if outcome == protocol.OutcomeTie {
		l.award(ctx, m.x, rewards.Tie, "tie")
		l.award(ctx, m.o, rewards.Tie, "tie")
		return
	}

	winner := m.bySymbol(protocol.Symbol(outcome))
	l.award(ctx, winner, rewards.Win, "win")
	l.award(ctx, m.peer(winner), rewards.Loss, "loss")
}

func (l *lobby) award(ctx context.Context, p *player, amount int, reason string) {
	if amount <= 0 {
		return
	}

	total, err := l.server.ledger.Award(ctx, p.season, p.username, amount)
	if err != nil {
		p.log.Warn("failed to award xp", logger.F("amount", amount), logger.Err(err))
		return
	}

	p.conn.Send(protocol.XPAward{Amount: amount, Total: total, Reason: reason})
}

// leave drops p from the queue or its match. The opponent is told and the
// match counts as abandoned.
func (l *lobby) leave(p *player) {
	if p.queued {
		p.queued = false
		l.queue = slices.DeleteFunc(l.queue, func(q *player) bool { return q == p })
		l.server.observer.PlayerDequeued()
	}

	m := p.match
	if m == nil {
		return
	}

	peer := m.peer(p)
	p.match = nil
	peer.match = nil
	peer.conn.Send(protocol.OpponentLeft{})

	l.server.observer.MatchFinished(protocol.OutcomeNone)
	l.server.log.Info("match abandoned", logger.F("match", m.id), logger.F("by", p.username))
}
