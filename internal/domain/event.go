package domain

type EventKind string

const (
	EventCommand EventKind = "command"
	EventText    EventKind = "text"
	EventVoice   EventKind = "voice"
)

// Event is an inbound chat message, independent of the chat platform.
type Event struct {
	Kind        EventKind
	ChatID      int64
	MessageID   int
	From        string
	Text        string
	Command     string
	VoiceFileID string
}

type ReplyKind string

const (
	ReplyText  ReplyKind = "text"
	ReplyVoice ReplyKind = "voice"
)

// Reply is one outbound message of a handling cycle.
type Reply struct {
	Kind  ReplyKind
	Text  string
	Audio []byte
}

func TextReply(text string) Reply {
	return Reply{Kind: ReplyText, Text: text}
}

func VoiceReply(audio []byte) Reply {
	return Reply{Kind: ReplyVoice, Audio: audio}
}
