// Package devserver is a loopback game server that speaks the client
// protocol. It pairs queued players, judges moves with the offline rules and
// keeps battle-pass XP in an xpstore.Ledger. It backs `ttt serve` and the
// end-to-end tests; it is not a production matchmaker.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/rafaellugassy/tictactoe-client/idgenerator"
	"github.com/rafaellugassy/tictactoe-client/logger"
	"github.com/rafaellugassy/tictactoe-client/protocol"
	"github.com/rafaellugassy/tictactoe-client/safemap"
	"github.com/rafaellugassy/tictactoe-client/transport"
	"github.com/rafaellugassy/tictactoe-client/xpstore"
)

var (
	ErrAlreadyListening = errors.New("server already listening")
	ErrNotListening     = errors.New("server not listening")
)

// Rewards is the XP granted to each player when a match finishes.
type Rewards struct {
	Win  int
	Tie  int
	Loss int
}

// Config configures a Server.
type Config struct {
	// Addr is the TCP listen address, e.g. ":7777" or "127.0.0.1:0".
	Addr string
	// Rewards is the XP table.
	Rewards Rewards
	// DefaultSeason is used when a join names no season.
	DefaultSeason string
	// Transport tunes accepted connections; Address is ignored.
	Transport transport.Config
	// Observer receives lobby events; may be nil.
	Observer Observer
	// TransportObserver receives transport faults; may be nil.
	TransportObserver transport.Observer
}

// DefaultConfig returns a server on addr with 50/20/10 XP rewards.
func DefaultConfig(addr string) Config {
	return Config{
		Addr:          addr,
		Rewards:       Rewards{Win: 50, Tie: 20, Loss: 10},
		DefaultSeason: "season1",
		Transport:     transport.DefaultConfig(""),
	}
}

// Observer receives lobby events, for metrics. Calls come from the lobby
// goroutine and the per-connection goroutines.
type Observer interface {
	PlayerConnected()
	PlayerDisconnected()
	PlayerQueued()
	PlayerDequeued()
	MatchStarted()
	MatchFinished(outcome protocol.Outcome)
}

type nopObserver struct{}

func (nopObserver) PlayerConnected()               {}
func (nopObserver) PlayerDisconnected()            {}
func (nopObserver) PlayerQueued()                  {}
func (nopObserver) PlayerDequeued()                {}
func (nopObserver) MatchStarted()                  {}
func (nopObserver) MatchFinished(protocol.Outcome) {}

// Server accepts players and runs the lobby. Every accepted stream is wrapped
// in a transport.Conn, so the server frames and decodes exactly like the
// client does.
type Server struct {
	config   Config
	log      logger.Logger
	ledger   xpstore.Ledger
	observer Observer

	listener net.Listener
	running  atomic.Bool
	players  *safemap.SafeMap[uint32, *player]
	ids      *idgenerator.IdGenerator
	events   chan event
}

// New creates a Server. Call Listen, then Serve; or ListenAndServe.
//
// Parameters:
//   - config: Server settings (e.g. from DefaultConfig)
//   - ledger: XP store; nil selects an xpstore.MemoryLedger
//   - log: Logger for server and player events
//
// Returns:
//   - A new Server that is not yet listening
func New(config Config, ledger xpstore.Ledger, log logger.Logger) *Server {
	if ledger == nil {
		ledger = xpstore.NewMemoryLedger()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	if config.Observer == nil {
		config.Observer = nopObserver{}
	}
	if config.TransportObserver == nil {
		config.TransportObserver = transport.NopObserver{}
	}
	if config.DefaultSeason == "" {
		config.DefaultSeason = "season1"
	}

	return &Server{
		config:   config,
		log:      log,
		ledger:   ledger,
		observer: config.Observer,
		players:  safemap.New[uint32, *player](),
		ids:      idgenerator.NewIdGenerator(0),
		events:   make(chan event, 64),
	}
}

// Listen binds the listen address so Addr is known before Serve runs.
//
// Returns:
//   - ErrAlreadyListening, or an error if binding fails
func (s *Server) Listen() error {
	if s.listener != nil {
		return ErrAlreadyListening
	}

	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		s.log.Error("server failed to start", logger.Err(err))
		return fmt.Errorf("devserver failed to listen on %s: %w", s.config.Addr, err)
	}

	s.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Players returns the number of connected players.
func (s *Server) Players() int {
	return s.players.Len()
}

// Serve accepts players until ctx is cancelled, then closes the listener and
// every connection.
//
// Parameters:
//   - ctx: Controls the server lifetime
//
// Returns:
//   - nil after a shutdown through ctx, ErrNotListening, or the first fatal error
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return ErrNotListening
	}

	s.running.Store(true)
	s.log.Info("devserver started", logger.F("addr", s.listener.Addr().String()))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		newLobby(s).run(gctx)
		return nil
	})

	g.Go(func() error {
		return s.acceptLoop(gctx, g)
	})

	g.Go(func() error {
		<-gctx.Done()
		s.stop()
		return nil
	})

	err := g.Wait()
	s.log.Info("devserver stopped")

	return err
}

// ListenAndServe is Listen followed by Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	return s.Serve(ctx)
}

func (s *Server) stop() {
	s.running.Store(false)
	_ = s.listener.Close()

	s.players.Range(func(_ uint32, p *player) bool {
		_ = p.conn.Close()
		return true
	})
}

func (s *Server) acceptLoop(ctx context.Context, g *errgroup.Group) error {
	for s.running.Load() {
		nc, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}

			s.log.Error("devserver accept error", logger.Err(err))
			continue
		}

		p := s.accept(nc)
		g.Go(func() error {
			s.pump(ctx, p)
			return nil
		})
	}

	return nil
}

func (s *Server) accept(nc net.Conn) *player {
	id := s.ids.Next()
	p := &player{id: id, log: s.log.With(logger.F("player", id))}

	replier := &errorReplier{next: s.config.TransportObserver}
	p.conn = transport.NewConn(nc, s.config.Transport, p.log, replier)
	replier.conn.Store(p.conn)

	s.players.Store(id, p)
	s.observer.PlayerConnected()
	p.log.Debug("player connected", logger.F("remote", nc.RemoteAddr().String()))

	return p
}

// pump forwards a player's inbound messages to the lobby. It ends after the
// final protocol.Disconnected or on shutdown.
func (s *Server) pump(ctx context.Context, p *player) {
	defer func() {
		s.players.Delete(p.id)
		s.observer.PlayerDisconnected()
		_ = p.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-p.conn.Inbound():
			if !ok {
				return
			}

			select {
			case s.events <- event{player: p, msg: msg}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// errorReplier answers every undecodable frame with an error message and
// passes the fault on.
type errorReplier struct {
	next transport.Observer
	conn atomic.Pointer[transport.Conn]
}

func (r *errorReplier) FrameDropped(err error) {
	r.next.FrameDropped(err)
	if c := r.conn.Load(); c != nil {
		c.Send(protocol.Error{Message: "invalid message: " + err.Error()})
	}
}

func (r *errorReplier) SendFailed(err error)       { r.next.SendFailed(err) }
func (r *errorReplier) ConnectionClosed(err error) { r.next.ConnectionClosed(err) }
