package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rafaellugassy/tictactoe-client/config"
	"github.com/rafaellugassy/tictactoe-client/devserver"
	"github.com/rafaellugassy/tictactoe-client/logger"
	"github.com/rafaellugassy/tictactoe-client/xpstore"
)

func serveCmd() *cobra.Command {
	cfg := config.LoadServer()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a development game server",
		Long: `Run a game server that pairs queued players, judges moves and awards
battle-pass XP. XP is kept in memory unless --redis is given.

Examples:
  ttt serve
  ttt serve --listen :9000 --redis localhost:6379 --metrics :9100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&cfg.Listen, "listen", "l", cfg.Listen, "TCP listen address")
	f.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for the XP ledger")
	f.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Serve Prometheus metrics on this address")
	f.IntVar(&cfg.XP.Win, "xp-win", cfg.XP.Win, "XP for a win")
	f.IntVar(&cfg.XP.Tie, "xp-tie", cfg.XP.Tie, "XP for a tie")
	f.IntVar(&cfg.XP.Loss, "xp-loss", cfg.XP.Loss, "XP for a loss")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	f.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Also write daily log files to this directory")

	return cmd
}

func runServe(ctx context.Context, cfg config.Server) error {
	log, err := newServerLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	ledger, closeLedger, err := openLedger(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer closeLedger()

	reg, collector := newRegistry()

	dcfg := devserver.DefaultConfig(cfg.Listen)
	dcfg.Rewards = devserver.Rewards(cfg.XP)
	dcfg.Observer = collector
	dcfg.TransportObserver = collector

	srv := devserver.New(dcfg, ledger, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.MetricsAddr, reg, log)
		})
	}

	return g.Wait()
}

func newServerLogger(cfg config.Server) (logger.Logger, error) {
	if cfg.LogDir == "" {
		return newLogger("ttt-server", cfg.LogLevel, "", os.Stdout)
	}

	lvl, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return logger.NewZerologFileLogger(os.Stdout, "ttt-server", cfg.LogDir, lvl)
}

func openLedger(ctx context.Context, redisAddr string) (xpstore.Ledger, func(), error) {
	if redisAddr == "" {
		return xpstore.NewMemoryLedger(), func() {}, nil
	}

	ledger := xpstore.NewRedisLedger(redis.NewClient(&redis.Options{Addr: redisAddr}))
	if err := ledger.Ping(ctx); err != nil {
		_ = ledger.Close()
		return nil, nil, err
	}

	return ledger, func() { _ = ledger.Close() }, nil
}
