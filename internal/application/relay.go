package application

import (
	"context"
	"fmt"
	"log/slog"

	"sprachbot/internal/domain"
)

// Relay runs the mode state machine: it applies text commands to a session
// and turns a voice transcript into the replies of the session's mode.
// Provider calls within one call are strictly sequential.
type Relay struct {
	stt       SpeechToText
	generator ResponseGenerator
	extractor GlossaryExtractor
	synth     SpeechSynthesizer
	logger    *slog.Logger
}

func NewRelay(
	stt SpeechToText,
	generator ResponseGenerator,
	extractor GlossaryExtractor,
	synth SpeechSynthesizer,
	logger *slog.Logger,
) *Relay {
	return &Relay{
		stt:       stt,
		generator: generator,
		extractor: extractor,
		synth:     synth,
		logger:    logger,
	}
}

func (r *Relay) Transcribe(ctx context.Context, audio []byte) (string, error) {
	text, err := r.stt.Transcribe(ctx, audio)
	if err != nil {
		return "", fmt.Errorf("transcribing: %w", err)
	}
	return text, nil
}

// HandleText applies a literal text command to the session.
func (r *Relay) HandleText(ctx context.Context, session *domain.Session, text string) ([]domain.Reply, error) {
	cmd := domain.ParseCommand(text)

	switch cmd {
	case domain.CommandConversationMode, domain.CommandTranscriptionMode:
		previous := session.Mode
		session.Mode = domain.Transition(session.Mode, cmd)
		r.logger.Info("mode changed",
			"chat_id", session.ChatID,
			"from", previous,
			"to", session.Mode,
		)
		if cmd == domain.CommandConversationMode {
			return []domain.Reply{domain.TextReply(MessageConversationMode)}, nil
		}
		return []domain.Reply{domain.TextReply(MessageTranscriptionMode)}, nil

	case domain.CommandTranscribeLast:
		if !session.HasAudio() {
			return []domain.Reply{domain.TextReply(MessageNoPriorAudio)}, nil
		}
		transcript, err := r.Transcribe(ctx, session.LastAudio)
		if err != nil {
			return nil, err
		}
		return []domain.Reply{domain.TextReply(formatLastAudioTranscript(transcript))}, nil

	default:
		return []domain.Reply{domain.TextReply(MessageInstructions)}, nil
	}
}

// HandleTranscript runs the pipeline of the session's mode for a transcribed
// voice message. Replies are returned only if every step succeeded.
func (r *Relay) HandleTranscript(ctx context.Context, session *domain.Session, transcript string) ([]domain.Reply, error) {
	switch session.Mode {
	case domain.ModeTranscription:
		return []domain.Reply{domain.TextReply(formatTranscript(transcript))}, nil

	case domain.ModeConversation:
		answer, audio, err := r.answer(ctx, session, transcript)
		if err != nil {
			return nil, err
		}
		return []domain.Reply{
			domain.VoiceReply(audio),
			domain.TextReply(answer),
		}, nil

	case domain.ModeDefault:
		answer, audio, err := r.answer(ctx, session, transcript)
		if err != nil {
			return nil, err
		}

		fromInput, err := r.extractor.Extract(ctx, transcript)
		if err != nil {
			return nil, fmt.Errorf("extracting vocabulary from transcript: %w", err)
		}
		fromAnswer, err := r.extractor.Extract(ctx, answer)
		if err != nil {
			return nil, fmt.Errorf("extracting vocabulary from answer: %w", err)
		}

		return []domain.Reply{
			domain.TextReply(formatTranscript(transcript)),
			domain.VoiceReply(audio),
			domain.TextReply(answer),
			domain.TextReply(formatVocabulary(fromInput, fromAnswer)),
		}, nil

	default:
		return nil, fmt.Errorf("unknown mode %q", session.Mode)
	}
}

// answer generates the German reply and its synthesized audio, storing the
// audio as the session's last synthesis.
func (r *Relay) answer(ctx context.Context, session *domain.Session, transcript string) (string, []byte, error) {
	answer, err := r.generator.Generate(ctx, transcript)
	if err != nil {
		return "", nil, fmt.Errorf("generating answer: %w", err)
	}
	r.logger.Debug("generated answer", "chat_id", session.ChatID, "chars", len(answer))

	audio, err := r.synth.Synthesize(ctx, answer)
	if err != nil {
		return "", nil, fmt.Errorf("synthesizing answer: %w", err)
	}
	session.StoreAudio(audio)
	r.logger.Debug("synthesized answer", "chat_id", session.ChatID, "bytes", len(audio))

	return answer, audio, nil
}
