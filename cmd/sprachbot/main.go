package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	oai "github.com/openai/openai-go/v3"

	"sprachbot/config"
	"sprachbot/internal/application"
	"sprachbot/internal/domain"
	"sprachbot/internal/infra/anthropic"
	"sprachbot/internal/infra/gemini"
	"sprachbot/internal/infra/openai"
	"sprachbot/internal/infra/proxy"
	"sprachbot/internal/infra/pushover"
	"sprachbot/internal/infra/telegram"
)

const configEnv = "SPRACHBOT_CONFIG"

func main() {
	configPath := os.Getenv(configEnv)
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			slog.Error("invalid configuration", "field", cfgErr.Field, "reason", cfgErr.Reason)
		} else {
			slog.Error("loading config", "error", err)
		}
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("sprachbot stopped", "error", err)
		os.Exit(1)
	}
}

// run wires all components from cfg and blocks until ctx is cancelled or the
// update source fails.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	httpClient, err := proxy.NewHTTPClient(cfg.HTTP.SOCKS5Proxy, cfg.HTTPTimeoutDuration())
	if err != nil {
		return fmt.Errorf("creating http client: %w", err)
	}

	platform, err := telegram.NewClient(cfg.Telegram.Token, telegram.Options{
		APIEndpoint:  cfg.Telegram.APIEndpoint,
		FileEndpoint: cfg.Telegram.FileEndpoint,
		HTTPClient:   httpClient,
	}, logger)
	if err != nil {
		return err
	}

	openaiClient := openai.NewClient(openai.ClientConfig{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		HTTPClient: httpClient,
	})

	completer := createCompleter(cfg, openaiClient, httpClient)

	relay := application.NewRelay(
		openai.NewTranscriber(openaiClient, cfg.OpenAI.TranscriptionModel, cfg.OpenAI.Language),
		application.NewPersonaGenerator(completer),
		application.NewVocabularyExtractor(completer),
		openai.NewSynthesizer(openaiClient, cfg.OpenAI.SpeechModel, cfg.OpenAI.Voice),
		logger,
	)

	var notifier application.Notifier
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey, httpClient)
	} else {
		notifier = &application.NoopNotifier{}
	}

	dispatcher := application.NewDispatcher(
		createUpdateSource(cfg, platform, logger),
		platform,
		relay,
		application.NewSessionStore(),
		notifier,
		logger,
		application.DispatcherConfig{
			MaxConcurrency:    cfg.Bot.MaxConcurrency,
			WorkerIdleTimeout: cfg.WorkerIdleTimeoutDuration(),
		},
	)

	logger.Info("starting sprachbot",
		"bot", platform.Username(),
		"source", cfg.Telegram.Source,
		"generation_provider", cfg.Generation.Provider,
		"max_concurrency", cfg.Bot.MaxConcurrency,
	)

	return dispatcher.Run(ctx)
}

func createUpdateSource(cfg *config.Config, platform *telegram.Client, logger *slog.Logger) application.UpdateSource {
	switch cfg.Telegram.Source {
	case config.SourceWebhook:
		return telegram.NewWebhookSource(telegram.WebhookConfig{
			Addr:   cfg.Telegram.Webhook.Addr,
			URL:    cfg.Telegram.Webhook.URL,
			Secret: cfg.Telegram.Webhook.Secret,
		}, platform, logger)
	default:
		return telegram.NewPoller(platform, cfg.PollTimeoutDuration(), logger)
	}
}

func createCompleter(cfg *config.Config, openaiClient oai.Client, httpClient *http.Client) application.TextCompleter {
	switch cfg.Generation.Provider {
	case config.ProviderAnthropic:
		if cfg.Anthropic.BaseURL != "" {
			return anthropic.NewClaudeClientWithURL(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Anthropic.BaseURL, httpClient)
		}
		return anthropic.NewClaudeClient(cfg.Anthropic.APIKey, cfg.Anthropic.Model, httpClient)
	case config.ProviderGemini:
		if cfg.Gemini.BaseURL != "" {
			return gemini.NewClientWithURL(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.BaseURL, httpClient)
		}
		return gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model, httpClient)
	default:
		return openai.NewCompleter(openaiClient, cfg.OpenAI.ChatModel)
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: level})
	}

	return slog.New(handler)
}
