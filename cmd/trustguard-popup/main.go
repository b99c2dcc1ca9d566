package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/jwulff/trustguard/internal/app"
	"github.com/jwulff/trustguard/internal/config"
	"github.com/jwulff/trustguard/internal/controller"
	"github.com/jwulff/trustguard/internal/debugsrv"
	"github.com/jwulff/trustguard/internal/host"
	"github.com/jwulff/trustguard/internal/logging"
	"github.com/jwulff/trustguard/internal/storage"
	"github.com/jwulff/trustguard/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "trustguard-popup:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	kv, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer kv.Close()

	// The bridge may come and go; requests redial and the feed resubscribes.
	client := host.NewClient(cfg.Host.Socket, cfg.Host.Timeout)
	defer client.Close()

	go client.KeepListening(ctx, cfg.Sync.PollInterval, func(err error) {
		logger.Warn("push feed down", zap.Error(err))
	})

	live := store.NewLiveSession()
	settings := store.NewSettings()
	prefs := store.NewPreferences(lipgloss.HasDarkBackground)

	reg := prometheus.NewRegistry()
	ctrl := controller.New(client, live, settings, prefs, kv,
		controller.WithLogger(logger),
		controller.WithMetrics(controller.NewMetrics(reg)),
		controller.WithPollInterval(cfg.Sync.PollInterval),
	)
	defer ctrl.Close()

	if cfg.Debug.Addr != "" {
		srv := debugsrv.New(live, ctrl, reg, logger)
		go func() {
			if err := srv.Serve(ctx, cfg.Debug.Addr); err != nil {
				logger.Error("debug server", zap.Error(err))
			}
		}()
	}

	m := app.New(ctx, ctrl, live, settings, prefs)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	stop := app.Watch(p.Send, live, settings, prefs)
	defer stop()

	ctrl.Start(ctx)

	logger.Info("popup started",
		zap.String("socket", cfg.Host.Socket),
		zap.String("storage", cfg.Storage.Path),
		zap.Duration("poll_interval", cfg.Sync.PollInterval))

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
