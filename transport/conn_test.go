package transport

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaellugassy/tictactoe-client/logger"
	"github.com/rafaellugassy/tictactoe-client/protocol"
)

type recordingObserver struct {
	mu      sync.Mutex
	dropped []error
	failed  []error
	closed  []error
}

func (o *recordingObserver) FrameDropped(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropped = append(o.dropped, err)
}

func (o *recordingObserver) SendFailed(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, err)
}

func (o *recordingObserver) ConnectionClosed(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = append(o.closed, err)
}

func (o *recordingObserver) counts() (int, int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.dropped), len(o.failed), len(o.closed)
}

// serve starts a loopback listener and returns its address plus a channel
// yielding the server side of the first accepted connection.
func serve(t *testing.T) (string, <-chan net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()

	return ln.Addr().String(), accepted
}

func dialTest(t *testing.T, addr string, obs Observer, mutate ...func(*Config)) *Conn {
	t.Helper()

	cfg := DefaultConfig(addr)
	for _, m := range mutate {
		m(&cfg)
	}

	c, err := Dial(context.Background(), cfg, logger.NewNopLogger(), obs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func acceptPeer(t *testing.T, accepted <-chan net.Conn) net.Conn {
	t.Helper()

	select {
	case peer := <-accepted:
		t.Cleanup(func() { _ = peer.Close() })
		return peer
	case <-time.After(2 * time.Second):
		t.Fatal("no connection accepted")
		return nil
	}
}

func next(t *testing.T, c *Conn) protocol.Message {
	t.Helper()

	select {
	case msg, ok := <-c.Inbound():
		require.True(t, ok, "inbound channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound message")
		return nil
	}
}

func TestDial(t *testing.T) {
	t.Run("unreachable endpoint returns ConnectError", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := ln.Addr().String()
		require.NoError(t, ln.Close())

		c, err := Dial(context.Background(), DefaultConfig(addr), logger.NewNopLogger(), nil)
		assert.Nil(t, c)

		var connectErr *ConnectError
		require.ErrorAs(t, err, &connectErr)
		assert.Equal(t, addr, connectErr.Address)
	})

	t.Run("cancelled context aborts the dial", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := Dial(ctx, DefaultConfig("127.0.0.1:1"), logger.NewNopLogger(), nil)
		var connectErr *ConnectError
		assert.ErrorAs(t, err, &connectErr)
	})

	t.Run("success starts running", func(t *testing.T) {
		addr, accepted := serve(t)
		c := dialTest(t, addr, nil)
		acceptPeer(t, accepted)

		assert.True(t, c.Running())
		assert.NotEmpty(t, c.ID())
	})
}

func TestConn_Receive(t *testing.T) {
	t.Run("delivers frames in arrival order across partial writes", func(t *testing.T) {
		addr, accepted := serve(t)
		c := dialTest(t, addr, nil)
		peer := acceptPeer(t, accepted)

		_, err := peer.Write([]byte("{\"type\":\"joined\",\"username\":\"alice\",\"xp\":120}\n{\"type\":\"que"))
		require.NoError(t, err)
		_, err = peer.Write([]byte("ued\"}\n{\"type\":\"xp\",\"xp\":5}\n"))
		require.NoError(t, err)

		assert.Equal(t, protocol.Joined{Username: "alice", XP: 120}, next(t, c))
		assert.Equal(t, protocol.Queued{}, next(t, c))
		assert.Equal(t, protocol.XPSync{XP: 5}, next(t, c))
	})

	t.Run("malformed frames are dropped without blocking later frames", func(t *testing.T) {
		obs := &recordingObserver{}
		addr, accepted := serve(t)
		c := dialTest(t, addr, obs)
		peer := acceptPeer(t, accepted)

		_, err := peer.Write([]byte("garbage\n{\"type\":\"queued\"}\n{\"type\":\"nope\"}\n\n{\"type\":\"opponent_left\"}\n"))
		require.NoError(t, err)

		assert.Equal(t, protocol.Queued{}, next(t, c))
		assert.Equal(t, protocol.OpponentLeft{}, next(t, c))

		dropped, _, _ := obs.counts()
		assert.Equal(t, 2, dropped)
	})

	t.Run("peer close yields a final disconnected and closes the channel", func(t *testing.T) {
		obs := &recordingObserver{}
		addr, accepted := serve(t)
		c := dialTest(t, addr, obs)
		peer := acceptPeer(t, accepted)

		_, err := peer.Write([]byte("{\"type\":\"queued\"}\n"))
		require.NoError(t, err)
		require.NoError(t, peer.Close())

		assert.Equal(t, protocol.Queued{}, next(t, c))
		assert.Equal(t, protocol.Disconnected{}, next(t, c))

		_, ok := <-c.Inbound()
		assert.False(t, ok)
		assert.False(t, c.Running())

		_, _, closed := obs.counts()
		assert.Equal(t, 1, closed)
		assert.Nil(t, obs.closed[0])
	})

	t.Run("idle timeout ends the connection", func(t *testing.T) {
		obs := &recordingObserver{}
		addr, accepted := serve(t)
		c := dialTest(t, addr, obs, func(cfg *Config) { cfg.IdleTimeout = 50 * time.Millisecond })
		acceptPeer(t, accepted)

		assert.Equal(t, protocol.Disconnected{}, next(t, c))

		obs.mu.Lock()
		defer obs.mu.Unlock()
		require.Len(t, obs.closed, 1)
		var netErr net.Error
		require.True(t, errors.As(obs.closed[0], &netErr))
		assert.True(t, netErr.Timeout())
	})
}

func TestConn_Send(t *testing.T) {
	t.Run("writes one newline-terminated frame per message", func(t *testing.T) {
		addr, accepted := serve(t)
		c := dialTest(t, addr, nil)
		peer := acceptPeer(t, accepted)

		c.Send(protocol.Join{Username: "alice", Season: "season1"})
		c.Send(protocol.Move{Index: 4})

		r := bufio.NewReader(peer)
		_ = peer.SetReadDeadline(time.Now().Add(2 * time.Second))

		line, err := r.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "{\"type\":\"join\",\"username\":\"alice\",\"season\":\"season1\"}\n", line)

		line, err = r.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "{\"type\":\"move\",\"index\":4}\n", line)
	})

	t.Run("send after close is swallowed and observed", func(t *testing.T) {
		obs := &recordingObserver{}
		addr, accepted := serve(t)
		c := dialTest(t, addr, obs)
		acceptPeer(t, accepted)

		require.NoError(t, c.Close())
		assert.NotPanics(t, func() { c.Send(protocol.Leave{}) })

		_, failed, _ := obs.counts()
		assert.Equal(t, 1, failed)
		assert.ErrorIs(t, obs.failed[0], ErrClosed)
	})
}

func TestConn_Close(t *testing.T) {
	t.Run("close is idempotent and reports termination once", func(t *testing.T) {
		obs := &recordingObserver{}
		addr, accepted := serve(t)
		c := dialTest(t, addr, obs)
		acceptPeer(t, accepted)

		require.NoError(t, c.Close())
		require.NoError(t, c.Close())
		assert.False(t, c.Running())

		var msgs []protocol.Message
		for msg := range c.Inbound() {
			msgs = append(msgs, msg)
		}
		assert.Equal(t, []protocol.Message{protocol.Disconnected{}}, msgs)

		_, _, closed := obs.counts()
		assert.Equal(t, 1, closed)
		assert.Nil(t, obs.closed[0])
	})

	t.Run("close from another goroutine unblocks a full queue", func(t *testing.T) {
		addr, accepted := serve(t)
		c := dialTest(t, addr, nil, func(cfg *Config) { cfg.InboundQueueSize = 1 })
		peer := acceptPeer(t, accepted)

		for i := 0; i < 5; i++ {
			_, err := peer.Write([]byte("{\"type\":\"queued\"}\n"))
			require.NoError(t, err)
		}
		time.Sleep(50 * time.Millisecond)

		done := make(chan struct{})
		go func() {
			_ = c.Close()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("close did not return")
		}
	})
}

func TestJoinHostPort(t *testing.T) {
	assert.Equal(t, "127.0.0.1:7777", JoinHostPort("127.0.0.1", 0))
	assert.Equal(t, "example.com:9000", JoinHostPort("example.com", 9000))
}
