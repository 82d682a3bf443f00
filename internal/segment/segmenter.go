// Package segment extracts complete sentences from growing text buffers.
// The streaming answer consumer feeds it partial text as chunks arrive
// and speaks each sentence as soon as it is complete.
package segment

import (
	"strings"
)

// terminators are the characters that end a sentence
const terminators = ".!?"

// Sentence is one complete sentence extracted from a buffer.
// Matched is the number of bytes of the input the sentence consumed,
// including the terminator run and any trailing whitespace, so callers
// can advance a cursor by exactly that amount.
type Sentence struct {
	Text    string
	Matched int
}

// Next extracts the first complete sentence from text. It returns false
// when text holds no sentence terminator, meaning the caller should wait
// for more input before trying again.
func Next(text string) (Sentence, bool) {
	idx := strings.IndexAny(text, terminators)
	if idx < 0 {
		return Sentence{}, false
	}

	// Consume the whole terminator run ("...", "?!")
	end := idx + 1
	for end < len(text) && strings.ContainsRune(terminators, rune(text[end])) {
		end++
	}

	// Trailing whitespace belongs to this sentence so the cursor
	// lands on the start of the next one
	for end < len(text) && (text[end] == ' ' || text[end] == '\t' || text[end] == '\n' || text[end] == '\r') {
		end++
	}

	return Sentence{
		Text:    strings.TrimSpace(text[:end]),
		Matched: end,
	}, true
}

// Split breaks text into complete sentences plus any unterminated
// remainder. The remainder is empty when text ends at a terminator.
func Split(text string) (sentences []string, remainder string) {
	for {
		s, ok := Next(text)
		if !ok {
			break
		}
		if s.Text != "" {
			sentences = append(sentences, s.Text)
		}
		text = text[s.Matched:]
	}
	return sentences, strings.TrimSpace(text)
}
