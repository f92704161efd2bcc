package session

import (
	"context"
	"errors"
	"time"
)

// ErrLoopStopped is returned when submitting to a Loop that has exited.
var ErrLoopStopped = errors.New("session loop stopped")

// Intent is a user action forwarded by the presentation layer.
type Intent interface {
	apply(ctx context.Context, s *Session)
}

// ConnectIntent asks to connect and join. A failure is reported through
// Notifier.ErrorRaised.
type ConnectIntent struct {
	Address  string
	Username string
	Season   string
}

// FindMatchIntent asks to enter the matchmaking queue.
type FindMatchIntent struct{}

// MoveIntent asks to place the player's symbol at Index.
type MoveIntent struct {
	Index int
}

// DisconnectIntent asks to leave and close the connection.
type DisconnectIntent struct{}

func (i ConnectIntent) apply(ctx context.Context, s *Session) {
	if err := s.Connect(ctx, i.Address, i.Username, i.Season); err != nil {
		s.notify.ErrorRaised("Connect failed: " + err.Error())
	}
}

func (FindMatchIntent) apply(_ context.Context, s *Session) { s.FindMatch() }

func (i MoveIntent) apply(_ context.Context, s *Session) { s.AttemptMove(i.Index) }

func (DisconnectIntent) apply(_ context.Context, s *Session) { s.Disconnect() }

type inspectIntent struct {
	fn   func(*Session)
	done chan struct{}
}

func (i inspectIntent) apply(_ context.Context, s *Session) {
	defer close(i.done)
	i.fn(s)
}

// LoopConfig tunes a Loop.
type LoopConfig struct {
	// PollInterval is how often inbound messages are drained.
	PollInterval time.Duration
	// IntentQueueSize is the capacity of the pending intent channel.
	IntentQueueSize int
}

// DefaultLoopConfig returns a 100ms poll interval and room for 16 intents.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{PollInterval: 100 * time.Millisecond, IntentQueueSize: 16}
}

// Loop is the single consumer that owns a Session. Run drains inbound
// messages on a fixed interval and applies submitted intents; nothing else
// touches the Session while Run is active.
type Loop struct {
	session  *Session
	interval time.Duration
	intents  chan Intent
	stopped  chan struct{}
}

// NewLoop creates a Loop around s. Zero config fields take their defaults.
func NewLoop(s *Session, config LoopConfig) *Loop {
	d := DefaultLoopConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = d.PollInterval
	}
	if config.IntentQueueSize <= 0 {
		config.IntentQueueSize = d.IntentQueueSize
	}

	return &Loop{
		session:  s,
		interval: config.PollInterval,
		intents:  make(chan Intent, config.IntentQueueSize),
		stopped:  make(chan struct{}),
	}
}

// Run owns the Session until ctx is cancelled, then disconnects it.
//
// Parameters:
//   - ctx: Controls the loop lifetime; also bounds connection setup
//
// Returns:
//   - ctx.Err() once the loop has stopped
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.stopped)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.session.Disconnect()
			return ctx.Err()
		case intent := <-l.intents:
			intent.apply(ctx, l.session)
		case <-ticker.C:
			l.session.Poll()
		}
	}
}

// Submit queues an intent for the loop goroutine. Safe for concurrent use.
//
// Parameters:
//   - ctx: Bounds the wait when the intent queue is full
//   - intent: The intent to apply
//
// Returns:
//   - nil once queued, ErrLoopStopped if Run has exited, or ctx.Err()
func (l *Loop) Submit(ctx context.Context, intent Intent) error {
	select {
	case <-l.stopped:
		return ErrLoopStopped
	default:
	}

	select {
	case l.intents <- intent:
		return nil
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inspect runs fn on the loop goroutine and waits for it to return, giving
// callers a consistent read of the Session. fn must not retain s.
//
// Returns:
//   - nil after fn ran, ErrLoopStopped, or ctx.Err()
func (l *Loop) Inspect(ctx context.Context, fn func(s *Session)) error {
	in := inspectIntent{fn: fn, done: make(chan struct{})}
	if err := l.Submit(ctx, in); err != nil {
		return err
	}

	select {
	case <-in.done:
		return nil
	case <-l.stopped:
		// Run may have picked the intent up right before exiting.
		select {
		case <-in.done:
			return nil
		default:
			return ErrLoopStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}
