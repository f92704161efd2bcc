package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rafaellugassy/tictactoe-client/config"
	"github.com/rafaellugassy/tictactoe-client/console"
	"github.com/rafaellugassy/tictactoe-client/session"
)

// errQuit stops the errgroup when the player quits.
var errQuit = errors.New("quit")

func playCmd() *cobra.Command {
	var (
		cfg         = config.LoadClient()
		offline     bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join a game server and play",
		Long: `Connect to a game server, join the battle-pass season and play from
the terminal. Settings default to the TTT_* environment variables; flags
override them.

Examples:
  ttt play
  ttt play --host 192.168.1.20 --username alice
  ttt play --offline`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if offline {
				return console.RunOffline(ctx, os.Stdin, os.Stdout)
			}

			return runPlay(ctx, cfg, metricsAddr)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfg.Host, "host", "H", cfg.Host, "Server host, optionally with :port")
	f.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Server port")
	f.StringVarP(&cfg.Username, "username", "u", cfg.Username, "Display name")
	f.StringVarP(&cfg.Season, "season", "s", cfg.Season, "Battle-pass season (season1, season2)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	f.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Write daily log files to this directory instead of stderr")
	f.DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "How often inbound messages are handled")
	f.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "Drop the connection after this long without data (0 disables)")
	f.BoolVar(&offline, "offline", false, "Play a local game on one keyboard")
	f.StringVar(&metricsAddr, "metrics", "", "Serve Prometheus metrics on this address")

	return cmd
}

func runPlay(ctx context.Context, cfg config.Client, metricsAddr string) error {
	log, err := newLogger("ttt-client", cfg.LogLevel, cfg.LogDir, os.Stderr)
	if err != nil {
		return err
	}
	defer log.Close()

	reg, collector := newRegistry()
	out := console.New(os.Stdout)

	s := session.New(session.Config{
		Dialer:   session.NewTCPDialer(cfg.TransportConfig(), log, collector),
		Notifier: out,
		Logger:   log,
		Observer: collector,
	})
	loop := session.NewLoop(s, session.LoopConfig{PollInterval: cfg.PollInterval})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return loop.Run(gctx)
	})

	connect := session.ConnectIntent{
		Address:  cfg.ServerAddress(),
		Username: cfg.Username,
		Season:   cfg.Season,
	}

	g.Go(func() error {
		if err := loop.Submit(gctx, connect); err != nil {
			return err
		}

		if err := console.Run(gctx, os.Stdin, out, loop, connect); err != nil {
			return err
		}

		return errQuit
	})

	if metricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, metricsAddr, reg, log)
		})
	}

	err = g.Wait()
	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}
