package openai

import (
	"net/http"

	oai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"sprachbot/internal/domain"
)

const providerName = "openai"

type ClientConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient builds the SDK client shared by the transcriber, completer and
// synthesizer. SDK retries are disabled: one failed call ends the cycle.
func NewClient(cfg ClientConfig) oai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	return oai.NewClient(opts...)
}

func providerError(op string, err error) error {
	return &domain.ProviderError{Provider: providerName, Op: op, Err: err}
}
