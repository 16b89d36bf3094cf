package openai

import (
	"bytes"
	"context"
	"errors"
	"strings"

	oai "github.com/openai/openai-go/v3"
)

type Transcriber struct {
	client   oai.Client
	model    string
	language string
}

func NewTranscriber(client oai.Client, model, language string) *Transcriber {
	if model == "" {
		model = "whisper-1"
	}
	if language == "" {
		language = "de"
	}
	return &Transcriber{
		client:   client,
		model:    model,
		language: language,
	}
}

// Transcribe sends an OGG/Opus voice message and returns the recognized text.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", providerError("transcribe", errors.New("empty audio"))
	}

	resp, err := t.client.Audio.Transcriptions.New(ctx, oai.AudioTranscriptionNewParams{
		File:     oai.File(bytes.NewReader(audio), "voice.ogg", "audio/ogg"),
		Model:    t.model,
		Language: oai.String(t.language),
	})
	if err != nil {
		return "", providerError("transcribe", err)
	}

	return strings.TrimSpace(resp.Text), nil
}
