package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sprachbot/internal/domain"
	"sprachbot/internal/infra"
)

const (
	WebhookPath    = "/telegram"
	secretHeader   = "X-Telegram-Bot-Api-Secret-Token"
	maxUpdateBytes = 1024 * 1024
)

// WebhookRegistrar tells Telegram where to deliver updates.
type WebhookRegistrar interface {
	SetWebhook(link string) error
}

type WebhookConfig struct {
	// Addr is the local listen address, URL the public address Telegram
	// posts to. URL must route to WebhookPath.
	Addr   string
	URL    string
	Secret string
}

// WebhookSource is an update source fed by Telegram posting updates to an
// HTTP endpoint. It also serves GET /health.
type WebhookSource struct {
	cfg       WebhookConfig
	registrar WebhookRegistrar
	server    *http.Server
	events    chan domain.Event
	logger    *slog.Logger
	mu        sync.Mutex
	running   bool
	closed    bool
	mux       *http.ServeMux
	retry     infra.RetryConfig
}

func NewWebhookSource(cfg WebhookConfig, registrar WebhookRegistrar, logger *slog.Logger) *WebhookSource {
	w := &WebhookSource{
		cfg:       cfg,
		registrar: registrar,
		events:    make(chan domain.Event, 100),
		logger:    logger,
		mux:       http.NewServeMux(),
		retry:     infra.DefaultRetryConfig(),
	}
	w.mux.HandleFunc("POST "+WebhookPath, w.handleUpdate)
	w.mux.HandleFunc("GET /health", w.handleHealth)
	return w
}

func (w *WebhookSource) Name() string {
	return "webhook"
}

func (w *WebhookSource) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.server = &http.Server{
		Addr:         w.cfg.Addr,
		Handler:      w.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		w.logger.Info("webhook server starting", "addr", w.cfg.Addr)
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			w.logger.Error("webhook server error", "error", err)
		}
	}()

	if w.registrar != nil && w.cfg.URL != "" {
		if err := w.register(ctx); err != nil {
			w.server.Close()
			return err
		}
		w.logger.Info("webhook registered", "url", w.cfg.URL)
	}

	w.running = true
	return nil
}

// Stop shuts the server down and closes the source. Handlers that are
// still running after a forced close answer 503.
func (w *WebhookSource) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	server := w.server
	w.mu.Unlock()

	var stopErr error
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			w.logger.Warn("graceful shutdown failed, forcing close", "error", err)
			if err := server.Close(); err != nil {
				stopErr = fmt.Errorf("closing server: %w", err)
			}
		}
	}

	w.closeEvents()
	return stopErr
}

func (w *WebhookSource) closeEvents() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.events)
	}
}

func (w *WebhookSource) Next(ctx context.Context) (domain.Event, error) {
	select {
	case <-ctx.Done():
		return domain.Event{}, ctx.Err()
	case ev, ok := <-w.events:
		if !ok {
			return domain.Event{}, fmt.Errorf("webhook source closed")
		}
		return ev, nil
	}
}

func (w *WebhookSource) Handler() http.Handler {
	return w.mux
}

func (w *WebhookSource) handleUpdate(rw http.ResponseWriter, r *http.Request) {
	if w.cfg.Secret != "" {
		token := r.Header.Get(secretHeader)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(w.cfg.Secret)) != 1 {
			w.logger.Warn("unauthorized webhook request", "remote_addr", r.RemoteAddr)
			http.Error(rw, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBytes))
	if err != nil {
		http.Error(rw, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var update tgbotapi.Update
	if err := json.Unmarshal(data, &update); err != nil {
		http.Error(rw, "invalid update", http.StatusBadRequest)
		return
	}

	ev, ok := EventFromUpdate(update)
	if !ok {
		w.logger.Debug("ignoring update", "update_id", update.UpdateID)
		rw.WriteHeader(http.StatusOK)
		return
	}

	if !w.deliver(ev) {
		http.Error(rw, "queue full, try again", http.StatusServiceUnavailable)
		return
	}
	w.logger.Debug("received update via webhook", "update_id", update.UpdateID, "kind", ev.Kind)
	rw.WriteHeader(http.StatusOK)
}

// deliver queues ev without blocking. It reports false when the queue is
// full or the source has been stopped.
func (w *WebhookSource) deliver(ev domain.Event) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	select {
	case w.events <- ev:
		return true
	default:
		return false
	}
}

func (w *WebhookSource) handleHealth(rw http.ResponseWriter, r *http.Request) {
	w.mu.Lock()
	running := w.running
	queueSize := len(w.events)
	w.mu.Unlock()

	status := "ok"
	statusCode := http.StatusOK

	if !running {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(statusCode)
	fmt.Fprintf(rw, `{"status":"%s","running":%t,"queue_size":%d}`, status, running, queueSize)
}

func (w *WebhookSource) register(ctx context.Context) error {
	link, err := registrationURL(w.cfg.URL, w.cfg.Secret)
	if err != nil {
		return err
	}
	err = infra.WithRetry(ctx, w.retry, func() error {
		return w.registrar.SetWebhook(link)
	})
	if err != nil {
		return fmt.Errorf("registering webhook: %w", err)
	}
	return nil
}

// registrationURL appends the secret as token query parameter, which is
// echoed back on every delivery.
func registrationURL(link, secret string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parsing webhook url: %w", err)
	}
	if secret != "" {
		q := u.Query()
		q.Set("token", secret)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
