package application

import "context"

// ChatActionRecordVoice is shown while a voice message is being answered.
const ChatActionRecordVoice = "record_voice"

// ChatPlatform sends messages to and fetches files from the chat platform.
type ChatPlatform interface {
	SendText(ctx context.Context, chatID int64, text string) (messageID int, err error)
	SendVoice(ctx context.Context, chatID int64, audio []byte) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}
