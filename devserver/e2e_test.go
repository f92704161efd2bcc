package devserver

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaellugassy/tictactoe-client/protocol"
	"github.com/rafaellugassy/tictactoe-client/session"
	"github.com/rafaellugassy/tictactoe-client/transport"
)

type endNotifier struct {
	session.NopNotifier
	outcomes []protocol.Outcome
	lines    [][]int
	awards   []string
	left     int
}

func (n *endNotifier) MatchEnded(outcome protocol.Outcome, line []int) {
	n.outcomes = append(n.outcomes, outcome)
	n.lines = append(n.lines, line)
}

func (n *endNotifier) XPAwarded(_ int, reason string, _ int) {
	n.awards = append(n.awards, reason)
}

func (n *endNotifier) OpponentLeft() { n.left++ }

// queueCounter counts the players the lobby has queued.
type queueCounter struct {
	nopObserver
	queued atomic.Int32
}

func (c *queueCounter) PlayerQueued() { c.queued.Add(1) }

func (c *queueCounter) waitFor(t *testing.T, n int32) {
	t.Helper()

	require.Eventually(t, func() bool { return c.queued.Load() >= n }, 2*time.Second, 5*time.Millisecond)
}

func newClientSession(t *testing.T, n session.Notifier) *session.Session {
	t.Helper()

	s := session.New(session.Config{
		Dialer:   session.NewTCPDialer(transport.DefaultConfig(""), nil, nil),
		Notifier: n,
	})
	t.Cleanup(s.Disconnect)

	return s
}

func pollUntil(t *testing.T, s *session.Session, cond func(s *session.Session) bool) {
	t.Helper()

	require.Eventually(t, func() bool {
		s.Poll()
		return cond(s)
	}, 2*time.Second, 5*time.Millisecond)
}

func inState(want session.State) func(*session.Session) bool {
	return func(s *session.Session) bool { return s.State() == want }
}

func myTurn(s *session.Session) bool {
	m, ok := s.Match()
	return ok && m.Turn == session.TurnMine
}

func TestEndToEnd(t *testing.T) {
	queue := &queueCounter{}
	srv := startServer(t, nil, func(cfg *Config) { cfg.Observer = queue })
	addr := srv.Addr().String()
	ctx := context.Background()

	aliceN, bobN := &endNotifier{}, &endNotifier{}
	alice := newClientSession(t, aliceN)
	bob := newClientSession(t, bobN)

	require.NoError(t, alice.Connect(ctx, addr, "alice", "season1"))
	require.NoError(t, bob.Connect(ctx, addr, "bob", "season1"))
	pollUntil(t, alice, inState(session.StateIdle))
	pollUntil(t, bob, inState(session.StateIdle))

	// The first player the lobby queues plays X.
	require.True(t, alice.FindMatch())
	queue.waitFor(t, 1)
	require.True(t, bob.FindMatch())

	pollUntil(t, alice, inState(session.StateInMatch))
	pollUntil(t, bob, inState(session.StateInMatch))

	am, _ := alice.Match()
	bm, _ := bob.Match()
	assert.Equal(t, protocol.SymbolX, am.MySymbol)
	assert.Equal(t, "bob", am.Opponent)
	assert.Equal(t, protocol.SymbolO, bm.MySymbol)
	assert.Equal(t, session.TurnMine, am.Turn)
	assert.False(t, bob.AttemptMove(4), "O must wait for X")

	turns := []struct {
		s     *session.Session
		index int
	}{
		{alice, 0}, {bob, 3}, {alice, 1}, {bob, 4}, {alice, 2},
	}
	for i, turn := range turns {
		pollUntil(t, turn.s, myTurn)
		require.True(t, turn.s.AttemptMove(turn.index), "move %d", i)

		if i < len(turns)-1 {
			other := turns[i+1].s
			pollUntil(t, other, func(s *session.Session) bool {
				m, ok := s.Match()
				return ok && m.Board[turn.index] != protocol.Empty
			})
		}
	}

	pollUntil(t, alice, func(s *session.Session) bool { return s.XP() == 50 })
	pollUntil(t, bob, func(s *session.Session) bool { return s.XP() == 10 })

	assert.Equal(t, session.StateIdle, alice.State())
	assert.Equal(t, session.StateIdle, bob.State())
	assert.Equal(t, []protocol.Outcome{protocol.OutcomeX}, aliceN.outcomes)
	assert.Equal(t, [][]int{{0, 1, 2}}, aliceN.lines)
	assert.Equal(t, []string{"win"}, aliceN.awards)
	assert.Equal(t, []string{"loss"}, bobN.awards)

	t.Run("rematch and abandon", func(t *testing.T) {
		require.True(t, alice.FindMatch())
		queue.waitFor(t, 3)
		require.True(t, bob.FindMatch())
		pollUntil(t, bob, inState(session.StateInMatch))
		pollUntil(t, alice, inState(session.StateInMatch))

		alice.Disconnect()
		assert.Equal(t, session.StateDisconnected, alice.State())

		pollUntil(t, bob, inState(session.StateIdle))
		assert.Equal(t, 1, bobN.left)
	})

	t.Run("xp survives reconnecting", func(t *testing.T) {
		require.Eventually(t, func() bool { return srv.Players() == 1 }, 2*time.Second, 10*time.Millisecond)

		require.NoError(t, alice.Connect(ctx, addr, "alice", "season1"))
		pollUntil(t, alice, inState(session.StateIdle))
		assert.Equal(t, 50, alice.XP())
	})
}
