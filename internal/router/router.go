// Package router classifies finalized transcripts as conversational
// questions or reader commands.
package router

import (
	"strings"
)

// Kind is the classification of one transcript
type Kind int

const (
	KindCommand Kind = iota
	KindQuestion
)

func (k Kind) String() string {
	if k == KindQuestion {
		return "question"
	}
	return "command"
}

// questionPrefixes mark a transcript as conversational regardless of the
// active view. "ask " is stripped; the interrogatives are kept verbatim.
var questionPrefixes = []string{"ask ", "what ", "how ", "why ", "summarize", "summarise"}

// Classify decides whether text is a question or a command. When the
// conversation view is already active, everything is a question. A leading
// "ask " prefix is stripped from questions. Misclassification degrades the
// experience but is never an error, so there is no fallback path here.
func Classify(text string, conversationView bool) (Kind, string) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	if conversationView {
		return KindQuestion, stripAsk(trimmed, lower)
	}

	for _, prefix := range questionPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return KindQuestion, stripAsk(trimmed, lower)
		}
	}

	return KindCommand, trimmed
}

func stripAsk(trimmed, lower string) string {
	if strings.HasPrefix(lower, "ask ") {
		return strings.TrimSpace(trimmed[len("ask "):])
	}
	return trimmed
}
