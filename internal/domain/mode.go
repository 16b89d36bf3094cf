package domain

import "strings"

type Mode string

const (
	ModeDefault       Mode = "default"
	ModeConversation  Mode = "conversation"
	ModeTranscription Mode = "transcription"
)

// Command is a literal text command that changes or inspects the session.
type Command string

const (
	CommandNone              Command = ""
	CommandConversationMode  Command = "gesprächsmodus"
	CommandTranscriptionMode Command = "transkriptionsmodus"
	CommandTranscribeLast    Command = "transkribieren"
)

// ParseCommand matches text against the mode commands by exact,
// case-insensitive equality after trimming surrounding whitespace.
func ParseCommand(text string) Command {
	normalized := strings.ToLower(strings.TrimSpace(text))
	switch Command(normalized) {
	case CommandConversationMode, CommandTranscriptionMode, CommandTranscribeLast:
		return Command(normalized)
	default:
		return CommandNone
	}
}

// Transition returns the mode that follows a command. Commands that do not
// switch modes leave the current mode unchanged.
//
// "transkriptionsmodus" returns to ModeDefault, not ModeTranscription.
// ModeTranscription is not reachable through any command.
func Transition(current Mode, cmd Command) Mode {
	switch cmd {
	case CommandConversationMode:
		return ModeConversation
	case CommandTranscriptionMode:
		return ModeDefault
	default:
		return current
	}
}
