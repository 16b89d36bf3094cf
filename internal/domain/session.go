package domain

// Session is the conversational state of one chat.
type Session struct {
	ChatID    int64
	Mode      Mode
	LastAudio []byte
}

func NewSession(chatID int64) *Session {
	return &Session{ChatID: chatID, Mode: ModeDefault}
}

// StoreAudio replaces the last synthesized audio.
func (s *Session) StoreAudio(audio []byte) {
	s.LastAudio = audio
}

func (s *Session) HasAudio() bool {
	return len(s.LastAudio) > 0
}
