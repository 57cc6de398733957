package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wheelhouse/quote-relay/internal/config"
	"github.com/wheelhouse/quote-relay/internal/hub"
	"github.com/wheelhouse/quote-relay/internal/schwab"
	"github.com/wheelhouse/quote-relay/internal/session"
	"github.com/wheelhouse/quote-relay/internal/subscription"
	"github.com/wheelhouse/quote-relay/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "configs/relay.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting quote relay",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"server", cfg.Server.Host,
		"port", cfg.Server.Port,
		"reconnect_interval", cfg.Stream.ReconnectInterval,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Upstream REST client and session supervisor
	client := schwab.NewClient(
		cfg.Schwab.AppKey,
		cfg.Schwab.AppSecret,
		cfg.Schwab.CallbackURL,
		cfg.Schwab.TokenPath,
		schwab.WithLogger(logger),
		schwab.WithTimeout(cfg.Schwab.Timeout),
	)

	subs := subscription.NewManager(logger)

	supCfg := session.Config{
		PollInterval: cfg.Stream.ReconnectInterval,
		EventBuffer:  cfg.Stream.EventBuffer,
	}
	sup := session.NewSupervisor(supCfg, session.NewConnector(client), subs, logger)

	// Downstream broadcast hub
	hubCfg := hub.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		HeartbeatInterval: cfg.Stream.HeartbeatInterval,
		WriteTimeout:      cfg.Stream.WriteTimeout,
	}
	h := hub.New(hubCfg, subs, logger)

	// Failing to bind the consumer port is fatal; everything upstream
	// retries on its own.
	if err := h.Start(ctx); err != nil {
		logger.Error("failed to start broadcast hub", "error", err)
		os.Exit(1)
	}

	if err := sup.Start(ctx); err != nil {
		logger.Error("failed to start session supervisor", "error", err)
		os.Exit(1)
	}

	// Bridge normalized events into the hub until the supervisor stops.
	bridgeDone := make(chan struct{})
	go func() {
		defer close(bridgeDone)
		for ev := range sup.Events() {
			h.Broadcast(ev.Type, ev.Data)
		}
	}()

	logger.Info("quote relay running")

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := sup.Stop(shutdownCtx); err != nil {
		logger.Warn("supervisor shutdown", "error", err)
	}
	<-bridgeDone
	if err := h.Stop(shutdownCtx); err != nil {
		logger.Warn("hub shutdown", "error", err)
	}

	logger.Info("quote relay stopped")
}
