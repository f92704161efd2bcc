package transport

import (
	"net"
	"strconv"
	"time"

	"github.com/rafaellugassy/tictactoe-client/protocol"
)

// DefaultPort is the game server's well-known TCP port.
const DefaultPort = 7777

// Config holds configuration for a game connection.
type Config struct {
	// Address is the "host:port" to connect to (e.g. "127.0.0.1:7777").
	Address string
	// ConnectTimeout bounds connection setup; it does not apply to reads.
	ConnectTimeout time.Duration
	// WriteTimeout is the max duration for a single frame write; 0 means no timeout.
	WriteTimeout time.Duration
	// IdleTimeout closes the connection when nothing is read for this long;
	// 0 means reads block until the peer closes or the network resets.
	IdleTimeout time.Duration
	// ReadBufferSize is the size of each raw read from the stream.
	ReadBufferSize int
	// InboundQueueSize is the capacity of the inbound message channel. The
	// receive goroutine blocks when it is full.
	InboundQueueSize int
	// MaxFrameSize bounds a single frame; longer frames are dropped.
	MaxFrameSize int
}

// DefaultConfig returns a Config with default values for the given address.
//
// Parameters:
//   - address: The "host:port" to connect to
//
// Returns:
//   - A Config with defaults: ConnectTimeout 10s, WriteTimeout 10s,
//     IdleTimeout 0, ReadBufferSize 4096, InboundQueueSize 64,
//     MaxFrameSize protocol.MaxFrameSize.
func DefaultConfig(address string) Config {
	return Config{
		Address:          address,
		ConnectTimeout:   10 * time.Second,
		WriteTimeout:     10 * time.Second,
		IdleTimeout:      0,
		ReadBufferSize:   4096,
		InboundQueueSize: 64,
		MaxFrameSize:     protocol.MaxFrameSize,
	}
}

// JoinHostPort builds a dial address, using DefaultPort when port is 0.
func JoinHostPort(host string, port int) string {
	if port == 0 {
		port = DefaultPort
	}

	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (c Config) withDefaults() Config {
	d := DefaultConfig(c.Address)
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.InboundQueueSize <= 0 {
		c.InboundQueueSize = d.InboundQueueSize
	}
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = d.MaxFrameSize
	}

	return c
}
