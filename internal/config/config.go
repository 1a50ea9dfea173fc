package config

import (
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/Morwran/yagpt"
	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type Config struct {
	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// Compared model pair; PrimaryModel is also the single-prompt default.
	// A model's provider defaults to LLMProvider.
	PrimaryModel      string      `env:"PRIMARY_MODEL" envDefault:"gpt-3.5-turbo"`
	SecondaryModel    string      `env:"SECONDARY_MODEL" envDefault:"gpt-4"`
	PrimaryProvider   LLMProvider `env:"PRIMARY_PROVIDER"`
	SecondaryProvider LLMProvider `env:"SECONDARY_PROVIDER"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// History
	HistoryCapacity int `env:"HISTORY_CAPACITY" envDefault:"100"`
	HistoryViewSize int `env:"HISTORY_VIEW_SIZE" envDefault:"5"`

	// Storage
	LogFilePath string `env:"LOG_FILE_PATH" envDefault:"logs/interactions.jsonl"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Front ends
	HTTPAddr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	TelegramBotToken    string        `env:"TELEGRAM_BOT_TOKEN"`
	UsageReportSchedule string        `env:"USAGE_REPORT_SCHEDULE" envDefault:"0 21 * * *"`
}

func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func New() *Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

func (c *Config) validate() error {
	if !knownProvider(c.LLMProvider) {
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.PrimaryModel == "" || c.SecondaryModel == "" {
		return fmt.Errorf("PRIMARY_MODEL and SECONDARY_MODEL must be set")
	}
	if c.PrimaryModel == c.SecondaryModel {
		return fmt.Errorf("PRIMARY_MODEL and SECONDARY_MODEL must differ, both are %q", c.PrimaryModel)
	}
	for model, p := range c.ModelProviders() {
		if !knownProvider(p) {
			return fmt.Errorf("unknown provider %q for model %q", p, model)
		}
		// yagpt always calls the lite model, whatever name is configured
		if p == ProviderYandex && model != yagpt.YaModelLite {
			return fmt.Errorf("model %q: the yandex provider only serves %q", model, yagpt.YaModelLite)
		}
	}
	if c.HistoryCapacity < 0 {
		return fmt.Errorf("HISTORY_CAPACITY must not be negative")
	}
	if c.HistoryViewSize <= 0 {
		return fmt.Errorf("HISTORY_VIEW_SIZE must be positive")
	}
	return nil
}

// ModelProviders maps each compared model to the provider that serves it.
func (c *Config) ModelProviders() map[string]LLMProvider {
	return map[string]LLMProvider{
		c.PrimaryModel:   c.providerOr(c.PrimaryProvider),
		c.SecondaryModel: c.providerOr(c.SecondaryProvider),
	}
}

func (c *Config) providerOr(p LLMProvider) LLMProvider {
	if p == "" {
		p = c.LLMProvider
	}
	return LLMProvider(strings.ToLower(string(p)))
}

func knownProvider(p LLMProvider) bool {
	switch LLMProvider(strings.ToLower(string(p))) {
	case ProviderOpenAI, ProviderYandex:
		return true
	}
	return false
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
