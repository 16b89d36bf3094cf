package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	// Telegram bots can download files of up to 20 MB.
	maxFileBytes = 20 * 1024 * 1024
	voiceName    = "antwort.ogg"
)

type Options struct {
	// APIEndpoint and FileEndpoint are format strings taking the token and
	// the method or file path. Empty values use api.telegram.org.
	APIEndpoint  string
	FileEndpoint string
	HTTPClient   *http.Client
}

// Client implements application.ChatPlatform on the Telegram Bot API.
type Client struct {
	bot          *tgbotapi.BotAPI
	httpClient   *http.Client
	fileEndpoint string
	logger       *slog.Logger
}

// NewClient authenticates the token with getMe.
func NewClient(token string, opts Options, logger *slog.Logger) (*Client, error) {
	if opts.APIEndpoint == "" {
		opts.APIEndpoint = tgbotapi.APIEndpoint
	}
	if opts.FileEndpoint == "" {
		opts.FileEndpoint = tgbotapi.FileEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 90 * time.Second}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, opts.APIEndpoint, opts.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", redactToken(err, token))
	}

	logger.Info("authorized on telegram", "username", bot.Self.UserName)

	return &Client{
		bot:          bot,
		httpClient:   opts.HTTPClient,
		fileEndpoint: opts.FileEndpoint,
		logger:       logger,
	}, nil
}

func (c *Client) Username() string {
	return c.bot.Self.UserName
}

func (c *Client) SendText(_ context.Context, chatID int64, text string) (int, error) {
	msg, err := c.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, c.wrap("sending message", err)
	}
	return msg.MessageID, nil
}

func (c *Client) SendVoice(_ context.Context, chatID int64, audio []byte) error {
	voice := tgbotapi.NewVoice(chatID, tgbotapi.FileBytes{Name: voiceName, Bytes: audio})
	if _, err := c.bot.Send(voice); err != nil {
		return c.wrap("sending voice", err)
	}
	return nil
}

func (c *Client) SendChatAction(_ context.Context, chatID int64, action string) error {
	if _, err := c.bot.Request(tgbotapi.NewChatAction(chatID, action)); err != nil {
		return c.wrap("sending chat action", err)
	}
	return nil
}

func (c *Client) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	if _, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return c.wrap("deleting message", err)
	}
	return nil
}

// DownloadFile resolves a file id with getFile and fetches its content.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, c.wrap("getting file", err)
	}
	if file.FilePath == "" {
		return nil, fmt.Errorf("file %s has no download path", fileID)
	}

	link := fmt.Sprintf(c.fileEndpoint, c.bot.Token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.wrap("downloading file", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading file: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	if len(data) > maxFileBytes {
		return nil, fmt.Errorf("file %s exceeds %d bytes", fileID, maxFileBytes)
	}

	return data, nil
}

// SetWebhook registers url as the webhook. An empty url removes it.
func (c *Client) SetWebhook(link string) error {
	if link == "" {
		if _, err := c.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			return c.wrap("deleting webhook", err)
		}
		return nil
	}

	cfg, err := tgbotapi.NewWebhook(link)
	if err != nil {
		return fmt.Errorf("parsing webhook url: %w", err)
	}
	if _, err := c.bot.Request(cfg); err != nil {
		return c.wrap("setting webhook", err)
	}
	return nil
}

func (c *Client) wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, redactToken(err, c.bot.Token))
}

// redactToken removes the bot token from URLs embedded in transport errors.
func redactToken(err error, token string) error {
	var urlErr *url.Error
	if token == "" || !errors.As(err, &urlErr) {
		return err
	}
	return &url.Error{Op: urlErr.Op, URL: strings.ReplaceAll(urlErr.URL, token, "<token>"), Err: urlErr.Err}
}
