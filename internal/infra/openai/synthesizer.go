package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	oai "github.com/openai/openai-go/v3"
)

const (
	defaultVoice   = "nova"
	maxSpeechBytes = 20 * 1024 * 1024
)

// Synthesizer produces OGG/Opus audio, the format Telegram plays as a
// voice message.
type Synthesizer struct {
	client oai.Client
	model  string
	voice  string
}

func NewSynthesizer(client oai.Client, model, voice string) *Synthesizer {
	if model == "" {
		model = oai.SpeechModelTTS1
	}
	if voice == "" {
		voice = defaultVoice
	}
	return &Synthesizer{client: client, model: model, voice: voice}
}

func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := s.client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Input:          text,
		Model:          s.model,
		Voice:          oai.AudioSpeechNewParamsVoice(s.voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatOpus,
	})
	if err != nil {
		return nil, providerError("synthesize", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxSpeechBytes))
	if err != nil {
		return nil, providerError("synthesize", fmt.Errorf("reading audio: %w", err))
	}
	if len(audio) == 0 {
		return nil, providerError("synthesize", errors.New("empty audio"))
	}

	return audio, nil
}
