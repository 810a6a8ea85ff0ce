// Package app wires configuration into the pieces every front-end shares: the
// logger, the outbound HTTP client and the three pipeline stages.
package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"

	"align-bot/internal/campaign"
	"align-bot/internal/config"
	"align-bot/internal/gemini"
	"align-bot/internal/httpclient"
	"align-bot/internal/pipeline"
)

func NewLogger(cfg config.Config) *slog.Logger {
	return NewLoggerTo(os.Stdout, cfg.LogLevel)
}

// NewLoggerTo returns a JSON logger on w. Unknown levels mean info.
func NewLoggerTo(w io.Writer, level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
	}))
}

func NewHTTPClient(cfg config.Config, logger *slog.Logger) *http.Client {
	opts := httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	}
	if cfg.Debug {
		opts.Logger = logger
	}
	return httpclient.New(opts)
}

// Stages builds the strategist, executor and synthesizer on one Gemini client.
// It returns campaign.ErrConfiguration when the API key is missing.
func Stages(ctx context.Context, cfg config.Config, httpClient *http.Client, logger *slog.Logger) (pipeline.Options, error) {
	gem, err := gemini.New(ctx, gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
		TextModel:  cfg.StrategyModel,
		ImageModel: cfg.ImageModel,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return pipeline.Options{}, err
	}

	return pipeline.Options{
		Strategist: campaign.NewStrategist(campaign.StrategistOptions{
			Generator:   gem,
			Model:       cfg.StrategyModel,
			Temperature: cfg.StrategyTemperature,
			Logger:      logger,
		}),
		Executor: campaign.NewExecutor(campaign.ExecutorOptions{
			Generator:   gem,
			Model:       cfg.ExecutionModel,
			Temperature: cfg.ExecutionTemperature,
			Logger:      logger,
		}),
		Synthesizer: campaign.NewSynthesizer(campaign.SynthesizerOptions{
			Generator:       gem,
			PlaceholderBase: cfg.PlaceholderBaseURL,
			Logger:          logger,
		}),
		StageTimeout: cfg.StageTimeout,
		Logger:       logger,
	}, nil
}
