package telegram_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sprachbot/internal/domain"
	"sprachbot/internal/infra/telegram"
)

const updateBody = `{"update_id":10,"message":{"message_id":5,"date":0,"chat":{"id":7,"type":"private"},"from":{"id":9,"is_bot":false,"first_name":"Anna"},"text":"hallo"}}`

type recordingRegistrar struct {
	links []string
}

func (r *recordingRegistrar) SetWebhook(link string) error {
	r.links = append(r.links, link)
	return nil
}

func newWebhookSource(secret string, registrar telegram.WebhookRegistrar) *telegram.WebhookSource {
	return telegram.NewWebhookSource(telegram.WebhookConfig{
		Addr:   "127.0.0.1:0",
		URL:    "https://bot.example.com/telegram",
		Secret: secret,
	}, registrar, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestWebhookSource_ReceivesUpdate(t *testing.T) {
	registrar := &recordingRegistrar{}
	source := newWebhookSource("s3cret", registrar)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, source.Start(ctx))
	defer source.Stop()

	require.Equal(t, []string{"https://bot.example.com/telegram?token=s3cret"}, registrar.links)

	req := httptest.NewRequest(http.MethodPost, telegram.WebhookPath+"?token=s3cret", strings.NewReader(updateBody))
	rec := httptest.NewRecorder()
	source.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	ev, err := source.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Event{Kind: domain.EventText, ChatID: 7, MessageID: 5, From: "Anna", Text: "hallo"}, ev)
}

func TestWebhookSource_SecretToken(t *testing.T) {
	source := newWebhookSource("s3cret", nil)
	handler := source.Handler()

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
	}{
		{name: "valid token in header", header: "s3cret", wantStatus: http.StatusOK},
		{name: "valid token in query", query: "?token=s3cret", wantStatus: http.StatusOK},
		{name: "wrong token", header: "nope", wantStatus: http.StatusUnauthorized},
		{name: "missing token", wantStatus: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, telegram.WebhookPath+tc.query, strings.NewReader(updateBody))
			if tc.header != "" {
				req.Header.Set("X-Telegram-Bot-Api-Secret-Token", tc.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			require.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestWebhookSource_BadAndIgnoredUpdates(t *testing.T) {
	source := newWebhookSource("", nil)
	handler := source.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, telegram.WebhookPath, strings.NewReader("{not json")))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, telegram.WebhookPath, strings.NewReader(`{"update_id":11,"channel_post":{"message_id":1,"date":0,"chat":{"id":-100,"type":"channel"},"text":"x"}}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := source.Next(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWebhookSource_Health(t *testing.T) {
	source := newWebhookSource("", nil)

	rec := httptest.NewRecorder()
	source.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"not_ready"`)

	require.NoError(t, source.Start(context.Background()))
	defer source.Stop()

	rec = httptest.NewRecorder()
	source.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"running":true`)
}

func TestWebhookSource_StopClosesSource(t *testing.T) {
	source := newWebhookSource("", nil)
	require.NoError(t, source.Start(context.Background()))
	require.NoError(t, source.Stop())

	_, err := source.Next(context.Background())
	require.ErrorContains(t, err, "closed")
}

func TestWebhookSource_UpdateAfterStopIsRejected(t *testing.T) {
	source := newWebhookSource("", nil)
	require.NoError(t, source.Start(context.Background()))
	require.NoError(t, source.Stop())

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		source.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, telegram.WebhookPath, strings.NewReader(updateBody)))
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
