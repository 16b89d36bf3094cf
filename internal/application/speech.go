package application

import "context"

type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// SpeechSynthesizer turns text into an OGG/Opus voice message.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
