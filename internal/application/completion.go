package application

import (
	"context"
	"strings"
)

// TextCompleter runs one stateless completion: a fixed instruction plus a
// single user input yields a single text answer.
type TextCompleter interface {
	Complete(ctx context.Context, instruction, input string) (string, error)
}

type ResponseGenerator interface {
	Generate(ctx context.Context, text string) (string, error)
}

type GlossaryExtractor interface {
	Extract(ctx context.Context, text string) (string, error)
}

const PersonaPrompt = `Du bist ein freundlicher, geduldiger Gesprächspartner für Menschen, die Deutsch lernen.

REGELN:
- Antworte immer auf Deutsch, auch wenn der Nutzer eine andere Sprache verwendet.
- Antworte in zwei bis vier kurzen, natürlichen Sätzen, passend zum Sprachniveau des Nutzers.
- Korrigiere keine Fehler ausdrücklich, sondern verwende die richtige Form selbst in deiner Antwort.
- Stelle am Ende eine offene Rückfrage, damit das Gespräch weitergeht.
- Keine Aufzählungen, kein Markdown, keine Emojis: deine Antwort wird vorgelesen.`

const ExtractionPrompt = `Du hilfst Deutschlernenden beim Wortschatz.

Wähle aus dem Text des Nutzers höchstens drei wichtige oder schwierige deutsche Wörter aus.
Gib für jedes Wort genau eine Zeile in diesem Format aus:
Wort - englische Übersetzung - kurzer Kontext aus dem Text

Gib NUR diese Zeilen aus, ohne Einleitung, Nummerierung oder weitere Erklärungen.`

// PersonaGenerator answers as the German conversation partner.
type PersonaGenerator struct {
	completer TextCompleter
}

func NewPersonaGenerator(completer TextCompleter) *PersonaGenerator {
	return &PersonaGenerator{completer: completer}
}

func (g *PersonaGenerator) Generate(ctx context.Context, text string) (string, error) {
	answer, err := g.completer.Complete(ctx, PersonaPrompt, text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// VocabularyExtractor produces a short word/translation/context digest.
type VocabularyExtractor struct {
	completer TextCompleter
}

func NewVocabularyExtractor(completer TextCompleter) *VocabularyExtractor {
	return &VocabularyExtractor{completer: completer}
}

func (e *VocabularyExtractor) Extract(ctx context.Context, text string) (string, error) {
	digest, err := e.completer.Complete(ctx, ExtractionPrompt, text)
	if err != nil {
		return "", err
	}
	return trimDigest(digest, maxVocabularyEntries), nil
}

const maxVocabularyEntries = 3

// trimDigest keeps at most max non-empty lines of a model answer.
func trimDigest(digest string, max int) string {
	var kept []string
	for _, line := range strings.Split(digest, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kept = append(kept, line)
		if len(kept) == max {
			break
		}
	}
	return strings.Join(kept, "\n")
}
