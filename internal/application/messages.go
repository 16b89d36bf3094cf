package application

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"sprachbot/internal/domain"
)

const StartMessage = `Hallo! Ich bin dein Sprachpartner für Deutsch.

Schick mir eine Sprachnachricht und ich antworte dir auf Deutsch, als Text und als Sprachnachricht.

Textbefehle:
• gesprächsmodus: nur Sprachantwort und Antworttext
• transkriptionsmodus: zurück zu Transkript, Antwort und Vokabeln
• transkribieren: meine letzte Sprachantwort als Text

Mit /help bekommst du eine ausführliche Anleitung.`

const HelpMessage = `So funktioniere ich:

🎙 Sprachnachrichten
Sprich einfach auf Deutsch. Ich schreibe auf, was du gesagt hast, antworte dir und schicke dir meine Antwort als Sprachnachricht.

🔀 Modi
• Standardmodus: Transkript deiner Nachricht, Sprachantwort, Antworttext und bis zu drei Vokabeln aus beiden Texten.
• Gesprächsmodus: nur Sprachantwort und Antworttext, ideal für ein flüssiges Gespräch. Aktivieren mit "gesprächsmodus".
• Transkriptionsmodus: Aktivieren mit "transkriptionsmodus".

📝 Transkribieren
Schreib "transkribieren", um meine letzte Sprachantwort noch einmal als Text zu bekommen.

⚙️ Befehle
/start - Begrüßung
/help - diese Hilfe
/time - aktuelle Uhrzeit`

const (
	MessageConversationMode  = "Gesprächsmodus aktiviert. Ich antworte dir jetzt nur noch mit Sprachnachricht und Antworttext."
	MessageTranscriptionMode = "Transkriptionsmodus aktiviert. Du bekommst wieder Transkript, Antwort und Vokabeln."
	MessageNoPriorAudio      = "Es gibt noch keine Sprachantwort von mir, die ich transkribieren könnte."
	MessageInstructions      = "Schick mir eine Sprachnachricht! Textbefehle: gesprächsmodus, transkriptionsmodus, transkribieren. Mehr dazu mit /help."
	MessageProcessing        = "🎧 Ich höre mir deine Nachricht an..."
	MessageApology           = "Entschuldigung, bei der Verarbeitung ist etwas schiefgelaufen. Bitte versuch es noch einmal."
)

// userMessageFor maps an error kind to the text shown to the user. Errors
// without a user-facing message are only logged.
func userMessageFor(err error) (string, bool) {
	var providerErr *domain.ProviderError
	if errors.As(err, &providerErr) {
		return MessageApology, true
	}
	return "", false
}

func formatTranscript(transcript string) string {
	return "📝 Du hast gesagt:\n" + strings.TrimSpace(transcript)
}

func formatLastAudioTranscript(transcript string) string {
	return "📝 Meine letzte Sprachantwort:\n" + strings.TrimSpace(transcript)
}

func formatVocabulary(fromInput, fromAnswer string) string {
	var b strings.Builder
	b.WriteString("📚 Vokabeln")
	if fromInput = strings.TrimSpace(fromInput); fromInput != "" {
		b.WriteString("\n\nAus deiner Nachricht:\n")
		b.WriteString(fromInput)
	}
	if fromAnswer = strings.TrimSpace(fromAnswer); fromAnswer != "" {
		b.WriteString("\n\nAus meiner Antwort:\n")
		b.WriteString(fromAnswer)
	}
	return b.String()
}

func formatTime(now time.Time) string {
	return fmt.Sprintf("Aktuelle Uhrzeit: %s", now.Format("15:04:05"))
}
