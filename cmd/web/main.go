package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"align-bot/internal/api"
	"align-bot/internal/app"
	"align-bot/internal/config"
	"align-bot/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stages, err := app.Stages(ctx, cfg, app.NewHTTPClient(cfg, logger), logger)
	if err != nil {
		logger.Error("gemini init failed", "err", err)
		os.Exit(1)
	}

	campaigns := session.NewStore()
	defer campaigns.CloseAll()

	handler := api.New(api.Options{
		Campaigns: campaigns,
		Stages:    stages,
		Context:   ctx,
		Logger:    logger,
	}).Routes()

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       90 * time.Second,
	}

	go sweep(ctx, campaigns, cfg.CampaignTTL, func(n int) {
		logger.Info("idle campaigns dropped", "count", n)
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("web started", "addr", cfg.WebAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

func sweep(ctx context.Context, campaigns *session.Store, ttl time.Duration, report func(int)) {
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := campaigns.Sweep(ttl); n > 0 {
				report(n)
			}
		}
	}
}
