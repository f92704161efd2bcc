// Package config holds the client and development server settings, with
// defaults and environment overrides.
package config

import (
	"fmt"
	"math/rand/v2"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/rafaellugassy/tictactoe-client/transport"
)

// Client configures `ttt play`.
type Client struct {
	// Host is the server host name or IP.
	Host string
	// Port is the server TCP port.
	Port int
	// Username is the display name sent in join.
	Username string
	// Season is the battle-pass season to join.
	Season string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogDir enables a daily log file in that directory when set.
	LogDir string
	// PollInterval is how often the session drains inbound messages.
	PollInterval time.Duration
	// IdleTimeout closes a connection that received nothing for this long.
	// Zero disables it.
	IdleTimeout time.Duration
}

// XPRewards is the XP granted per match result.
type XPRewards struct {
	Win  int
	Tie  int
	Loss int
}

// Server configures `ttt serve`.
type Server struct {
	// Listen is the TCP listen address.
	Listen string
	// RedisAddr selects the Redis XP ledger when set; otherwise XP is kept in
	// memory.
	RedisAddr string
	// MetricsAddr serves Prometheus metrics over HTTP when set.
	MetricsAddr string
	// XP is the reward table.
	XP XPRewards
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogDir enables a daily log file in that directory when set.
	LogDir string
}

// DefaultClient returns settings for a local server and a random username.
func DefaultClient() Client {
	return Client{
		Host:         "127.0.0.1",
		Port:         transport.DefaultPort,
		Username:     RandomUsername(),
		Season:       "season1",
		LogLevel:     "warn",
		PollInterval: 100 * time.Millisecond,
	}
}

// DefaultServer returns settings for a server on the default port with an
// in-memory ledger.
func DefaultServer() Server {
	return Server{
		Listen:   fmt.Sprintf(":%d", transport.DefaultPort),
		XP:       XPRewards{Win: 50, Tie: 20, Loss: 10},
		LogLevel: "info",
	}
}

// LoadClient returns DefaultClient overridden by TTT_* environment
// variables. Unparseable values are ignored.
func LoadClient() Client {
	d := DefaultClient()

	return Client{
		Host:         getEnv("TTT_ADDRESS", d.Host),
		Port:         getEnvAsInt("TTT_PORT", d.Port),
		Username:     getEnv("TTT_USERNAME", d.Username),
		Season:       getEnv("TTT_SEASON", d.Season),
		LogLevel:     getEnv("TTT_LOG_LEVEL", d.LogLevel),
		LogDir:       getEnv("TTT_LOG_DIR", d.LogDir),
		PollInterval: getEnvAsDuration("TTT_POLL_INTERVAL", d.PollInterval),
		IdleTimeout:  getEnvAsDuration("TTT_IDLE_TIMEOUT", d.IdleTimeout),
	}
}

// LoadServer returns DefaultServer overridden by TTT_* environment
// variables. Unparseable values are ignored.
func LoadServer() Server {
	d := DefaultServer()

	return Server{
		Listen:      getEnv("TTT_LISTEN", d.Listen),
		RedisAddr:   getEnv("TTT_REDIS_ADDR", d.RedisAddr),
		MetricsAddr: getEnv("TTT_METRICS_ADDR", d.MetricsAddr),
		XP: XPRewards{
			Win:  getEnvAsInt("TTT_XP_WIN", d.XP.Win),
			Tie:  getEnvAsInt("TTT_XP_TIE", d.XP.Tie),
			Loss: getEnvAsInt("TTT_XP_LOSS", d.XP.Loss),
		},
		LogLevel: getEnv("TTT_LOG_LEVEL", d.LogLevel),
		LogDir:   getEnv("TTT_LOG_DIR", d.LogDir),
	}
}

// ServerAddress returns Host and Port joined for dialing. A Host that
// already carries a port is returned unchanged.
func (c Client) ServerAddress() string {
	if _, _, err := net.SplitHostPort(c.Host); err == nil {
		return c.Host
	}

	return transport.JoinHostPort(c.Host, c.Port)
}

// TransportConfig returns the transport settings for this client.
func (c Client) TransportConfig() transport.Config {
	cfg := transport.DefaultConfig(c.ServerAddress())
	cfg.IdleTimeout = c.IdleTimeout

	return cfg
}

// RandomUsername returns a name of the form user1000 to user9999.
func RandomUsername() string {
	return fmt.Sprintf("user%d", 1000+rand.IntN(9000))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
