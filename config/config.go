package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"sprachbot/internal/domain"
)

const (
	SourcePolling = "polling"
	SourceWebhook = "webhook"

	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

type Config struct {
	Telegram   TelegramConfig   `yaml:"telegram"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Generation GenerationConfig `yaml:"generation"`
	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Bot        BotConfig        `yaml:"bot"`
	HTTP       HTTPConfig       `yaml:"http"`
	Pushover   PushoverConfig   `yaml:"pushover"`
	Log        LogConfig        `yaml:"log"`
}

type TelegramConfig struct {
	Token        string        `yaml:"token"`
	Source       string        `yaml:"source"`
	PollTimeout  string        `yaml:"poll_timeout"`
	Webhook      WebhookConfig `yaml:"webhook"`
	APIEndpoint  string        `yaml:"api_endpoint"`
	FileEndpoint string        `yaml:"file_endpoint"`
}

type WebhookConfig struct {
	Addr   string `yaml:"addr"`
	URL    string `yaml:"url"`
	Secret string `yaml:"secret"`
}

type OpenAIConfig struct {
	APIKey             string `yaml:"api_key"`
	BaseURL            string `yaml:"base_url"`
	TranscriptionModel string `yaml:"transcription_model"`
	Language           string `yaml:"language"`
	SpeechModel        string `yaml:"speech_model"`
	Voice              string `yaml:"voice"`
	ChatModel          string `yaml:"chat_model"`
}

// GenerationConfig selects the backend for answers and vocabulary digests.
type GenerationConfig struct {
	Provider string `yaml:"provider"`
}

type AnthropicConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type BotConfig struct {
	MaxConcurrency    int    `yaml:"max_concurrency"`
	WorkerIdleTimeout string `yaml:"worker_idle_timeout"`
}

type HTTPConfig struct {
	Timeout     string `yaml:"timeout"`
	SOCKS5Proxy string `yaml:"socks5_proxy"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads .env from the working directory and then the YAML file at path.
// A missing YAML file is not an error: every setting has a default or an
// environment fallback.
func Load(path string) (*Config, error) {
	return LoadFiles(path, ".env")
}

func LoadFiles(path, envFile string) (*Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	fallback := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	fallback(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	fallback(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	fallback(&c.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	fallback(&c.Gemini.APIKey, "GEMINI_API_KEY")
	fallback(&c.Pushover.Token, "PUSHOVER_TOKEN")
	fallback(&c.Pushover.UserKey, "PUSHOVER_USER_KEY")
}

func (c *Config) setDefaults() {
	if c.Telegram.Source == "" {
		c.Telegram.Source = SourcePolling
	}
	if c.Telegram.PollTimeout == "" {
		c.Telegram.PollTimeout = "30s"
	}
	if c.Telegram.Webhook.Addr == "" {
		c.Telegram.Webhook.Addr = ":8080"
	}
	if c.OpenAI.TranscriptionModel == "" {
		c.OpenAI.TranscriptionModel = "whisper-1"
	}
	if c.OpenAI.Language == "" {
		c.OpenAI.Language = "de"
	}
	if c.OpenAI.SpeechModel == "" {
		c.OpenAI.SpeechModel = "tts-1"
	}
	if c.OpenAI.Voice == "" {
		c.OpenAI.Voice = "nova"
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = ProviderOpenAI
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = "claude-sonnet-4-20250514"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Bot.MaxConcurrency == 0 {
		c.Bot.MaxConcurrency = 4
	}
	if c.Bot.WorkerIdleTimeout == "" {
		c.Bot.WorkerIdleTimeout = "5m"
	}
	if c.HTTP.Timeout == "" {
		c.HTTP.Timeout = "90s"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate reports the first invalid setting as a *domain.ConfigurationError.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return &domain.ConfigurationError{Field: "telegram.token", Reason: "is required (or set TELEGRAM_BOT_TOKEN)"}
	}
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		return &domain.ConfigurationError{Field: "openai.api_key", Reason: "is required (or set OPENAI_API_KEY)"}
	}

	switch c.Telegram.Source {
	case SourcePolling:
	case SourceWebhook:
		if c.Telegram.Webhook.URL == "" {
			return &domain.ConfigurationError{Field: "telegram.webhook.url", Reason: "is required for the webhook source"}
		}
	default:
		return &domain.ConfigurationError{Field: "telegram.source", Reason: fmt.Sprintf("must be %q or %q, got %q", SourcePolling, SourceWebhook, c.Telegram.Source)}
	}

	switch c.Generation.Provider {
	case ProviderOpenAI:
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return &domain.ConfigurationError{Field: "anthropic.api_key", Reason: "is required for the anthropic provider"}
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return &domain.ConfigurationError{Field: "gemini.api_key", Reason: "is required for the gemini provider"}
		}
	default:
		return &domain.ConfigurationError{Field: "generation.provider", Reason: fmt.Sprintf("unknown provider %q", c.Generation.Provider)}
	}

	if c.Bot.MaxConcurrency < 0 {
		return &domain.ConfigurationError{Field: "bot.max_concurrency", Reason: "must be positive"}
	}

	durations := []struct {
		field string
		value string
	}{
		{"telegram.poll_timeout", c.Telegram.PollTimeout},
		{"http.timeout", c.HTTP.Timeout},
		{"bot.worker_idle_timeout", c.Bot.WorkerIdleTimeout},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.value)
		if err != nil || parsed <= 0 {
			return &domain.ConfigurationError{Field: d.field, Reason: fmt.Sprintf("must be a positive duration, got %q", d.value)}
		}
	}
	// A long poll must return before the HTTP client gives up on it.
	if c.PollTimeoutDuration() >= c.HTTPTimeoutDuration() {
		return &domain.ConfigurationError{Field: "telegram.poll_timeout", Reason: "must be shorter than http.timeout"}
	}

	if c.Pushover.Enabled && (c.Pushover.Token == "" || c.Pushover.UserKey == "") {
		return &domain.ConfigurationError{Field: "pushover", Reason: "token and user_key are required when enabled"}
	}

	return nil
}

// PollTimeoutDuration and HTTPTimeoutDuration are valid after Validate.
func (c *Config) PollTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Telegram.PollTimeout)
	return d
}

func (c *Config) HTTPTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.HTTP.Timeout)
	return d
}

func (c *Config) WorkerIdleTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Bot.WorkerIdleTimeout)
	return d
}
