package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/rafaellugassy/tictactoe-client/logger"
	"github.com/rafaellugassy/tictactoe-client/metrics"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ttt",
		Short: "Online tic-tac-toe with a battle pass",
		Long: `ttt plays tic-tac-toe against other players through a game server.

Use "ttt play" to join a server, "ttt play --offline" for a local game
on one keyboard, and "ttt serve" to run a development server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		playCmd(),
		serveCmd(),
		versionCmd(),
	)

	return rootCmd
}

// newLogger returns a file logger when dir is set, otherwise a console
// logger on w.
func newLogger(service, level, dir string, w io.Writer) (logger.Logger, error) {
	lvl, err := logger.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	if dir != "" {
		return logger.NewZerologFileLogger(nil, service, dir, lvl)
	}

	return logger.NewConsoleLogger(w, service, lvl), nil
}

// newRegistry returns a registry with the process and Go runtime collectors
// plus a metrics.Collector.
func newRegistry() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg, metrics.New(metrics.Config{Registry: reg})
}

// serveMetrics exposes reg on addr under /metrics until ctx is cancelled.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics endpoint listening", logger.F("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics endpoint: %w", err)
	}

	return nil
}
