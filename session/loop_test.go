package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaellugassy/tictactoe-client/protocol"
)

func startLoop(t *testing.T, s *Session) (*Loop, context.CancelFunc, chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	loop := NewLoop(s, LoopConfig{PollInterval: 5 * time.Millisecond})

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return loop, cancel, done
}

func stateOf(t *testing.T, loop *Loop) State {
	t.Helper()

	var st State
	require.NoError(t, loop.Inspect(context.Background(), func(s *Session) { st = s.State() }))

	return st
}

func TestLoop(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		d := DefaultLoopConfig()
		assert.Equal(t, 100*time.Millisecond, d.PollInterval)
		assert.Equal(t, 16, d.IntentQueueSize)

		l := NewLoop(New(Config{}), LoopConfig{})
		assert.Equal(t, d.PollInterval, l.interval)
		assert.Equal(t, d.IntentQueueSize, cap(l.intents))
	})

	t.Run("intents and inbound messages drive the session", func(t *testing.T) {
		h := newHarness(t)
		loop, _, _ := startLoop(t, h.session)
		ctx := context.Background()

		require.NoError(t, loop.Submit(ctx, ConnectIntent{Address: "127.0.0.1", Username: "alice", Season: "season1"}))
		assert.Equal(t, StateConnecting, stateOf(t, loop))

		h.conn.inbound <- protocol.Joined{Username: "alice", XP: 10}
		assert.Eventually(t, func() bool { return stateOf(t, loop) == StateIdle }, time.Second, 5*time.Millisecond)

		require.NoError(t, loop.Submit(ctx, FindMatchIntent{}))
		h.conn.inbound <- protocol.Matched{You: protocol.SymbolX, Opponent: "bob"}
		assert.Eventually(t, func() bool { return stateOf(t, loop) == StateInMatch }, time.Second, 5*time.Millisecond)

		require.NoError(t, loop.Submit(ctx, MoveIntent{Index: 4}))
		require.NoError(t, loop.Submit(ctx, DisconnectIntent{}))
		assert.Equal(t, StateDisconnected, stateOf(t, loop))

		sent := h.conn.Sent()
		assert.Equal(t, []protocol.Message{
			protocol.Join{Username: "alice", Season: "season1"},
			protocol.Queue{},
			protocol.Move{Index: 4},
			protocol.Leave{},
		}, sent)
		assert.Equal(t, 1, h.notifier.Count("disconnected:local"))
	})

	t.Run("connect failure is reported as an error", func(t *testing.T) {
		notifier := &recordingNotifier{}
		s := New(Config{
			Dialer: DialerFunc(func(context.Context, string) (Connection, error) {
				return nil, errors.New("connection refused")
			}),
			Notifier: notifier,
		})
		loop, _, _ := startLoop(t, s)

		require.NoError(t, loop.Submit(context.Background(), ConnectIntent{Address: "127.0.0.1", Username: "alice", Season: "season1"}))
		assert.Equal(t, StateDisconnected, stateOf(t, loop))
		assert.Equal(t, []string{"error:Connect failed: connection refused"}, notifier.Events())
	})

	t.Run("cancel disconnects and stops", func(t *testing.T) {
		h := newHarness(t)
		loop, cancel, done := startLoop(t, h.session)

		require.NoError(t, loop.Submit(context.Background(), ConnectIntent{Address: "127.0.0.1", Username: "alice", Season: "season1"}))
		assert.Equal(t, StateConnecting, stateOf(t, loop))

		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
			done <- err
		case <-time.After(time.Second):
			t.Fatal("loop did not stop")
		}

		assert.Equal(t, protocol.Leave{}, h.conn.Sent()[1])
		assert.Equal(t, 1, h.conn.Closes())
		assert.ErrorIs(t, loop.Submit(context.Background(), FindMatchIntent{}), ErrLoopStopped)
		assert.ErrorIs(t, loop.Inspect(context.Background(), func(*Session) {}), ErrLoopStopped)
	})

	t.Run("submit honours the caller context when the queue is full", func(t *testing.T) {
		loop := NewLoop(New(Config{}), LoopConfig{IntentQueueSize: 1})
		require.NoError(t, loop.Submit(context.Background(), FindMatchIntent{}))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, loop.Submit(ctx, FindMatchIntent{}), context.DeadlineExceeded)
	})
}
