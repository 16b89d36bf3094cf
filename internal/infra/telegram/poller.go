package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sprachbot/internal/domain"
	"sprachbot/internal/infra"
)

// Poller is an update source that long-polls getUpdates.
type Poller struct {
	client  *Client
	timeout int
	retry   infra.RetryConfig
	logger  *slog.Logger
	events  chan domain.Event

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

func NewPoller(client *Client, pollTimeout time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		client:  client,
		timeout: int(pollTimeout.Seconds()),
		retry: infra.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
		logger: logger,
		events: make(chan domain.Event, 100),
	}
}

func (p *Poller) Name() string {
	return "polling"
}

// Start removes any registered webhook, which would make getUpdates fail,
// and begins polling in the background.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	err := infra.WithRetry(ctx, p.retry, func() error {
		return p.client.SetWebhook("")
	})
	if err != nil {
		return fmt.Errorf("removing webhook: %w", err)
	}

	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	go p.poll(pollCtx)

	p.logger.Info("polling for updates", "timeout_seconds", p.timeout)
	return nil
}

// Stop ends polling. A getUpdates request in flight is abandoned.
func (p *Poller) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}

	p.cancel()
	p.running = false
	return nil
}

func (p *Poller) Next(ctx context.Context) (domain.Event, error) {
	select {
	case <-ctx.Done():
		return domain.Event{}, ctx.Err()
	case ev := <-p.events:
		return ev, nil
	}
}

func (p *Poller) poll(ctx context.Context) {
	backoff := infra.NewBackoff(p.retry)
	offset := 0

	for ctx.Err() == nil {
		cfg := tgbotapi.NewUpdate(offset)
		cfg.Timeout = p.timeout
		cfg.AllowedUpdates = []string{"message"}

		updates, err := p.client.bot.GetUpdates(cfg)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			delay := backoff.Next()
			p.logger.Warn("polling updates failed",
				"error", redactToken(err, p.client.bot.Token),
				"retry_in", delay,
			)
			if infra.Sleep(ctx, delay) != nil {
				return
			}
			continue
		}
		backoff.Reset()

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}

			ev, ok := EventFromUpdate(update)
			if !ok {
				p.logger.Debug("ignoring update", "update_id", update.UpdateID)
				continue
			}

			select {
			case p.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}
