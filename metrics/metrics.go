// Package metrics exports Prometheus counters for the transport, the client
// session and the development server.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rafaellugassy/tictactoe-client/protocol"
	"github.com/rafaellugassy/tictactoe-client/session"
)

// Config configures a Collector.
type Config struct {
	// Namespace prefixes every metric name (default: "ttt").
	Namespace string

	// Registry receives the collectors (default: prometheus.DefaultRegisterer).
	Registry prometheus.Registerer
}

// DefaultConfig returns the "ttt" namespace on the default registerer.
func DefaultConfig() Config {
	return Config{
		Namespace: "ttt",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector implements transport.Observer, session.Observer and
// devserver.Observer on top of Prometheus metrics. It is safe for concurrent
// use.
type Collector struct {
	framesDropped     *prometheus.CounterVec
	sendFailures      prometheus.Counter
	connectionsClosed *prometheus.CounterVec

	stateTransitions *prometheus.CounterVec
	sessionState     *prometheus.GaugeVec
	intentsIgnored   *prometheus.CounterVec

	playersConnected prometheus.Gauge
	playersQueued    prometheus.Gauge
	matchesStarted   prometheus.Counter
	matchesFinished  *prometheus.CounterVec
}

// New registers the collector's metrics.
//
// Parameters:
//   - config: Namespace and registry; zero fields take DefaultConfig values
//
// Returns:
//   - A Collector; registration panics on duplicate names, as promauto does
func New(config Config) *Collector {
	d := DefaultConfig()
	if config.Namespace == "" {
		config.Namespace = d.Namespace
	}
	if config.Registry == nil {
		config.Registry = d.Registry
	}

	factory := promauto.With(config.Registry)
	ns := config.Namespace

	c := &Collector{
		framesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "transport",
			Name:      "frames_dropped_total",
			Help:      "Inbound frames dropped because they could not be decoded",
		}, []string{"reason"}),

		sendFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "transport",
			Name:      "send_failures_total",
			Help:      "Outbound messages that could not be written",
		}),

		connectionsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "transport",
			Name:      "connections_closed_total",
			Help:      "Connections whose receive loop ended, by cause",
		}, []string{"cause"}),

		stateTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "session",
			Name:      "state_transitions_total",
			Help:      "Session state transitions",
		}, []string{"from", "to"}),

		sessionState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "session",
			Name:      "state",
			Help:      "1 for the session's current state, 0 otherwise",
		}, []string{"state"}),

		intentsIgnored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "session",
			Name:      "intents_ignored_total",
			Help:      "User intents ignored because they were not valid in the current state",
		}, []string{"intent"}),

		playersConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "server",
			Name:      "players_connected",
			Help:      "Players currently connected to the development server",
		}),

		playersQueued: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "server",
			Name:      "players_queued",
			Help:      "Players waiting for an opponent",
		}),

		matchesStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "server",
			Name:      "matches_started_total",
			Help:      "Matches paired by the development server",
		}),

		matchesFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "server",
			Name:      "matches_finished_total",
			Help:      "Finished matches by result",
		}, []string{"result"}),
	}

	c.sessionState.WithLabelValues(session.StateDisconnected.String()).Set(1)

	return c
}

// Handler serves the metrics of gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// FrameDropped counts a decode failure by reason.
func (c *Collector) FrameDropped(err error) {
	c.framesDropped.WithLabelValues(dropReason(err)).Inc()
}

// SendFailed counts a failed write.
func (c *Collector) SendFailed(error) {
	c.sendFailures.Inc()
}

// ConnectionClosed counts a finished receive loop as "clean" or "error".
func (c *Collector) ConnectionClosed(err error) {
	cause := "clean"
	if err != nil {
		cause = "error"
	}
	c.connectionsClosed.WithLabelValues(cause).Inc()
}

// StateChanged counts the transition and moves the state gauge.
func (c *Collector) StateChanged(from, to session.State) {
	c.stateTransitions.WithLabelValues(from.String(), to.String()).Inc()
	c.sessionState.WithLabelValues(from.String()).Set(0)
	c.sessionState.WithLabelValues(to.String()).Set(1)
}

// IntentIgnored counts an intent the session refused.
func (c *Collector) IntentIgnored(intent string) {
	c.intentsIgnored.WithLabelValues(intent).Inc()
}

func (c *Collector) PlayerConnected()    { c.playersConnected.Inc() }
func (c *Collector) PlayerDisconnected() { c.playersConnected.Dec() }
func (c *Collector) PlayerQueued()       { c.playersQueued.Inc() }
func (c *Collector) PlayerDequeued()     { c.playersQueued.Dec() }
func (c *Collector) MatchStarted()       { c.matchesStarted.Inc() }

// MatchFinished counts a finished match. An empty outcome means it was
// abandoned.
func (c *Collector) MatchFinished(outcome protocol.Outcome) {
	result := "abandoned"
	switch outcome {
	case protocol.OutcomeTie:
		result = "tie"
	case protocol.OutcomeX, protocol.OutcomeO:
		result = "win"
	}
	c.matchesFinished.WithLabelValues(result).Inc()
}

func dropReason(err error) string {
	var unknown *protocol.UnknownTypeError
	switch {
	case errors.Is(err, protocol.ErrFrameTooLarge):
		return "oversize"
	case errors.As(err, &unknown):
		return "unknown_type"
	case errors.Is(err, protocol.ErrMissingType), errors.Is(err, protocol.ErrReservedType):
		return "bad_type"
	case errors.Is(err, protocol.ErrEmptyFrame):
		return "empty"
	default:
		return "invalid"
	}
}
