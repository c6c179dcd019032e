package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/broshop/broshop/internal/app"
	"github.com/broshop/broshop/internal/bot"
	"github.com/broshop/broshop/internal/bot/session"
	"github.com/broshop/broshop/internal/bot/shopapi"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadBotConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	sessions := session.NewStore(logger)
	shop := shopapi.New(cfg.BackendURL, cfg.APITimeout)

	b, err := bot.New(cfg, logger, sessions, shop)
	if err != nil {
		logger.Error("init bot", slog.Any("error", err))
		os.Exit(1)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Run(ctx)
	})
	g.Go(func() error {
		return sessions.Janitor(ctx, time.Minute, cfg.SessionMaxIdle)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bot stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("shutting down")
}
