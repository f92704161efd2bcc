package session

import (
	"context"

	"github.com/rafaellugassy/tictactoe-client/logger"
	"github.com/rafaellugassy/tictactoe-client/protocol"
	"github.com/rafaellugassy/tictactoe-client/transport"
)

// Connection is the part of a transport the Session depends on.
// *transport.Conn implements it.
type Connection interface {
	Send(msg protocol.Message)
	Inbound() <-chan protocol.Message
	Close() error
}

// Dialer opens a Connection to a "host:port" address.
type Dialer interface {
	Dial(ctx context.Context, address string) (Connection, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, address string) (Connection, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context, address string) (Connection, error) {
	return f(ctx, address)
}

// NewTCPDialer returns a Dialer backed by transport.Dial. base supplies the
// timeouts and buffer sizes; its Address is replaced on every dial.
//
// Parameters:
//   - base: Transport settings (e.g. from transport.DefaultConfig)
//   - log: Logger passed to each connection
//   - observer: Transport fault observer; may be nil
//
// Returns:
//   - A Dialer producing *transport.Conn connections
func NewTCPDialer(base transport.Config, log logger.Logger, observer transport.Observer) Dialer {
	return DialerFunc(func(ctx context.Context, address string) (Connection, error) {
		cfg := base
		cfg.Address = address

		conn, err := transport.Dial(ctx, cfg, log, observer)
		if err != nil {
			return nil, err
		}

		return conn, nil
	})
}
