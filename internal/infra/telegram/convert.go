package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sprachbot/internal/domain"
)

// EventFromUpdate maps an inbound update to a domain event. Updates other
// than voice, command or text messages are reported as not relevant.
func EventFromUpdate(update tgbotapi.Update) (domain.Event, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return domain.Event{}, false
	}

	ev := domain.Event{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
	}
	if msg.From != nil {
		ev.From = msg.From.UserName
		if ev.From == "" {
			ev.From = msg.From.FirstName
		}
	}

	switch {
	case msg.Voice != nil:
		ev.Kind = domain.EventVoice
		ev.VoiceFileID = msg.Voice.FileID
	case msg.IsCommand():
		ev.Kind = domain.EventCommand
		ev.Command = strings.ToLower(msg.Command())
		ev.Text = msg.Text
	case msg.Text != "":
		ev.Kind = domain.EventText
		ev.Text = msg.Text
	default:
		return domain.Event{}, false
	}

	return ev, true
}
