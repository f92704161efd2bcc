// Package transport owns the TCP stream to the game server. A Conn frames
// outbound messages, runs one receive goroutine that decodes inbound frames,
// and hands decoded messages to a single consumer through an ordered channel.
// Stream termination is always reported through that same channel as a final
// protocol.Disconnected message.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rafaellugassy/tictactoe-client/logger"
	"github.com/rafaellugassy/tictactoe-client/protocol"
)

// ErrClosed is reported to the Observer for sends on a closed connection.
var ErrClosed = errors.New("connection closed")

// ConnectError is returned by Dial when the endpoint is unreachable or the
// setup timeout elapses.
type ConnectError struct {
	Address string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Address, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Conn is one live connection. Send and Close are safe for concurrent use;
// Inbound must be drained by a single consumer.
type Conn struct {
	id       string
	config   Config
	conn     net.Conn
	log      logger.Logger
	observer Observer

	inbound chan protocol.Message
	done    chan struct{}
	running atomic.Bool

	closeOnce sync.Once
	writeMu   sync.Mutex
	wg        sync.WaitGroup
}

// Dial opens a TCP connection to config.Address and starts its receive
// goroutine. ConnectTimeout bounds the setup only; the steady-state read has
// no deadline unless IdleTimeout is set.
//
// Parameters:
//   - ctx: Cancels the dial; it has no effect once the connection is up
//   - config: Connection settings (e.g. from DefaultConfig)
//   - log: Logger for connection lifecycle events
//   - observer: Receives swallowed faults; nil selects NopObserver
//
// Returns:
//   - The running connection, or a *ConnectError
func Dial(ctx context.Context, config Config, log logger.Logger, observer Observer) (*Conn, error) {
	config = config.withDefaults()

	dialer := net.Dialer{Timeout: config.ConnectTimeout}
	nc, err := dialer.DialContext(ctx, "tcp", config.Address)
	if err != nil {
		return nil, &ConnectError{Address: config.Address, Err: err}
	}

	return NewConn(nc, config, log, observer), nil
}

// NewConn wraps an established stream, such as one accepted by a listener,
// and starts its receive goroutine.
//
// Parameters:
//   - nc: The stream; the Conn takes ownership and closes it
//   - config: Connection settings; Address and ConnectTimeout are unused
//   - log: Logger for connection lifecycle events
//   - observer: Receives swallowed faults; nil selects NopObserver
//
// Returns:
//   - The running connection
func NewConn(nc net.Conn, config Config, log logger.Logger, observer Observer) *Conn {
	config = config.withDefaults()
	if observer == nil {
		observer = NopObserver{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	id := uuid.NewString()
	c := &Conn{
		id:       id,
		config:   config,
		conn:     nc,
		log:      log.With(logger.F("conn", id), logger.F("remote", nc.RemoteAddr().String())),
		observer: observer,
		inbound:  make(chan protocol.Message, config.InboundQueueSize),
		done:     make(chan struct{}),
	}
	c.running.Store(true)

	c.wg.Add(1)
	go c.readLoop()

	c.log.Debug("connection established")
	return c
}

// ID returns the connection's unique identifier, used in logs.
func (c *Conn) ID() string {
	return c.id
}

// Inbound returns the channel of decoded messages in arrival order. The last
// message is always protocol.Disconnected, after which the channel is closed.
func (c *Conn) Inbound() <-chan protocol.Message {
	return c.inbound
}

// Running reports whether the connection is still open.
func (c *Conn) Running() bool {
	return c.running.Load()
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Send frames and writes msg as one write. It never returns an error: write
// failures are logged and reported to the Observer, and a broken stream
// surfaces through the receive loop as protocol.Disconnected.
//
// Parameters:
//   - msg: The message to send
func (c *Conn) Send(msg protocol.Message) {
	if !c.running.Load() {
		c.observer.SendFailed(ErrClosed)
		c.log.Debug("send on closed connection dropped", logger.F("type", typeOf(msg)))
		return
	}

	frame, err := protocol.AppendFrame(msg)
	if err != nil {
		c.observer.SendFailed(err)
		c.log.Warn("failed to encode message", logger.Err(err))
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.config.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
			c.observer.SendFailed(err)
			return
		}

		defer func() {
			_ = c.conn.SetWriteDeadline(time.Time{}) // Best effort to clear deadline
		}()
	}

	if _, err := c.conn.Write(frame); err != nil {
		c.observer.SendFailed(err)
		c.log.Debug("write failed", logger.F("type", typeOf(msg)), logger.Err(err))
	}
}

// Close shuts the stream down and waits for the receive goroutine to exit.
// Idempotent and safe to call from any goroutine other than a consumer that
// has stopped draining Inbound while holding the only reference.
//
// Returns:
//   - nil
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.running.Store(false)
		close(c.done)

		if tcp, ok := c.conn.(*net.TCPConn); ok {
			_ = tcp.CloseWrite()
		}
		_ = c.conn.Close()
	})

	c.wg.Wait()
	return nil
}

func (c *Conn) readLoop() {
	defer c.wg.Done()

	buffer := make([]byte, c.config.ReadBufferSize)
	frames := protocol.NewFrameBuffer(c.config.MaxFrameSize)

	var cause error
	for cause == nil {
		if c.config.IdleTimeout > 0 {
			if err := c.conn.SetReadDeadline(time.Now().Add(c.config.IdleTimeout)); err != nil {
				cause = err
				break
			}
		}

		n, err := c.conn.Read(buffer)
		if n > 0 {
			if ferr := frames.Write(buffer[:n]); ferr != nil {
				c.dropFrame(ferr)
			}

			if !c.dispatch(frames) {
				break
			}
		}

		if err != nil {
			cause = err
		}
	}

	c.running.Store(false)
	_ = c.conn.Close()

	if errors.Is(cause, io.EOF) || c.isClosing() {
		cause = nil
	}

	c.observer.ConnectionClosed(cause)
	if cause != nil {
		c.log.Warn("connection lost", logger.Err(cause))
	} else {
		c.log.Debug("connection closed")
	}

	c.deliver(protocol.Disconnected{})
	close(c.inbound)
}

// dispatch decodes every complete frame and delivers it. It returns false
// when the connection was closed locally while waiting for queue space.
func (c *Conn) dispatch(frames *protocol.FrameBuffer) bool {
	for {
		frame, ok := frames.Next()
		if !ok {
			return true
		}

		msg, err := protocol.Decode(frame)
		if err != nil {
			if !errors.Is(err, protocol.ErrEmptyFrame) {
				c.dropFrame(err)
			}
			continue
		}

		if !c.deliver(msg) {
			return false
		}
	}
}

// deliver pushes msg onto the inbound channel, blocking while it is full
// unless the connection is closed locally.
func (c *Conn) deliver(msg protocol.Message) bool {
	select {
	case c.inbound <- msg:
		return true
	default:
	}

	select {
	case c.inbound <- msg:
		return true
	case <-c.done:
		return false
	}
}

func (c *Conn) dropFrame(err error) {
	c.observer.FrameDropped(err)
	c.log.Debug("dropped malformed frame", logger.Err(err))
}

func (c *Conn) isClosing() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func typeOf(msg protocol.Message) string {
	if msg == nil {
		return ""
	}

	return string(msg.Type())
}
