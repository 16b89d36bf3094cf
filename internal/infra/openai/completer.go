package openai

import (
	"context"
	"errors"
	"strings"

	oai "github.com/openai/openai-go/v3"
)

type Completer struct {
	client oai.Client
	model  string
}

func NewCompleter(client oai.Client, model string) *Completer {
	if model == "" {
		model = oai.ChatModelGPT4oMini
	}
	return &Completer{client: client, model: model}
}

func (c *Completer) Complete(ctx context.Context, instruction, input string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(instruction),
			oai.UserMessage(input),
		},
		Model: c.model,
	})
	if err != nil {
		return "", providerError("complete", err)
	}

	if len(resp.Choices) == 0 {
		return "", providerError("complete", errors.New("no choices in response"))
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", providerError("complete", errors.New("empty message content"))
	}

	return content, nil
}
