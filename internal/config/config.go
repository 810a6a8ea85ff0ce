package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"align-bot/internal/campaign"
)

type Config struct {
	TelegramToken string
	GeminiAPIKey  string

	LogLevel string
	Debug    bool

	PreferIPv4 bool

	MaxConcurrent    int
	RequestTimeout   time.Duration
	HTTPTimeout      time.Duration
	GeminiBaseURL    string
	GeminiAPIVersion string

	StrategyModel        string
	ExecutionModel       string
	ImageModel           string
	StrategyTemperature  float32
	ExecutionTemperature float32
	StageTimeout         time.Duration

	PlaceholderBaseURL string
	WebAddr            string
	CampaignTTL        time.Duration
}

var defaults = map[string]any{
	"log_level":               "info",
	"debug":                   false,
	"prefer_ipv4":             true,
	"max_concurrent":          4,
	"request_timeout_seconds": 180,
	"http_timeout_seconds":    180,
	"gemini_base_url":         "https://generativelanguage.googleapis.com",
	"gemini_api_version":      "v1beta",
	"strategy_model":          "gemini-2.5-flash",
	"execution_model":         "gemini-2.5-flash",
	"image_model":             "imagen-3.0-generate-001",
	"strategy_temperature":    0.2,
	"execution_temperature":   0.7,
	"stage_timeout_seconds":   90,
	"placeholder_base_url":    campaign.DefaultPlaceholderBase,
	"web_addr":                ":8080",
	"campaign_ttl_minutes":    60,
}

// Load reads configuration from the environment. A missing Gemini key is a
// campaign.ErrConfiguration; the Telegram token is checked by RequireTelegram.
func Load() (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	_ = v.BindEnv("gemini_api_key", "GEMINI_API_KEY", "API_KEY")
	_ = v.BindEnv("telegram_bot_token", "TELEGRAM_BOT_TOKEN")

	cfg := Config{
		TelegramToken:        strings.TrimSpace(v.GetString("telegram_bot_token")),
		GeminiAPIKey:         strings.TrimSpace(v.GetString("gemini_api_key")),
		LogLevel:             strings.ToLower(strings.TrimSpace(v.GetString("log_level"))),
		Debug:                v.GetBool("debug"),
		PreferIPv4:           v.GetBool("prefer_ipv4"),
		MaxConcurrent:        v.GetInt("max_concurrent"),
		RequestTimeout:       time.Duration(v.GetInt("request_timeout_seconds")) * time.Second,
		HTTPTimeout:          time.Duration(v.GetInt("http_timeout_seconds")) * time.Second,
		GeminiBaseURL:        strings.TrimSpace(v.GetString("gemini_base_url")),
		GeminiAPIVersion:     strings.TrimSpace(v.GetString("gemini_api_version")),
		StrategyModel:        strings.TrimSpace(v.GetString("strategy_model")),
		ExecutionModel:       strings.TrimSpace(v.GetString("execution_model")),
		ImageModel:           strings.TrimSpace(v.GetString("image_model")),
		StrategyTemperature:  float32(v.GetFloat64("strategy_temperature")),
		ExecutionTemperature: float32(v.GetFloat64("execution_temperature")),
		StageTimeout:         time.Duration(v.GetInt("stage_timeout_seconds")) * time.Second,
		PlaceholderBaseURL:   strings.TrimSpace(v.GetString("placeholder_base_url")),
		WebAddr:              strings.TrimSpace(v.GetString("web_addr")),
		CampaignTTL:          time.Duration(v.GetInt("campaign_ttl_minutes")) * time.Minute,
	}

	if cfg.GeminiAPIKey == "" {
		return Config{}, fmt.Errorf("%w: GEMINI_API_KEY is required", campaign.ErrConfiguration)
	}

	switch {
	case cfg.StrategyTemperature <= 0 || cfg.StrategyTemperature > 2:
		return Config{}, fmt.Errorf("STRATEGY_TEMPERATURE must be in (0, 2], got %v", cfg.StrategyTemperature)
	case cfg.ExecutionTemperature <= 0 || cfg.ExecutionTemperature > 2:
		return Config{}, fmt.Errorf("EXECUTION_TEMPERATURE must be in (0, 2], got %v", cfg.ExecutionTemperature)
	case cfg.StrategyTemperature >= cfg.ExecutionTemperature:
		return Config{}, errors.New("STRATEGY_TEMPERATURE must be lower than EXECUTION_TEMPERATURE")
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 180 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = 90 * time.Second
	}
	if cfg.CampaignTTL <= 0 {
		cfg.CampaignTTL = time.Hour
	}
	if cfg.WebAddr == "" {
		cfg.WebAddr = ":8080"
	}

	return cfg, nil
}

// RequireTelegram reports whether the bot front-end can start.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}
