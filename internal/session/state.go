// Package session holds the conversation and document state shared across
// the voice pipeline: current page, bookmarks, chat transcript, and the
// active view. Mutations go through methods so each logical operation has
// exactly one writer.
package session

import (
	"sync"
)

// Role identifies who produced a transcript entry
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one transcript entry
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Bookmark marks a saved page
type Bookmark struct {
	Page  int    `json:"page"`
	Label string `json:"label,omitempty"`
}

// View identifies which surface the client is presenting
type View string

const (
	ViewDocument     View = "document"
	ViewConversation View = "conversation"
)

// State is the session and document state. All methods are safe for
// concurrent use.
type State struct {
	mu sync.RWMutex

	page      int
	totalPage int
	pageLabel string
	pageText  string
	docTitle  string
	docLoaded bool

	bookmarks  []Bookmark
	transcript []Message
	view       View

	apiReady bool
}

// New creates an empty session state showing the document view
func New() *State {
	return &State{view: ViewDocument}
}

// BeginAnswer starts a new question/answer exchange. It returns the prior
// conversation history (at most maxTurns of user/assistant messages, system
// entries excluded), then appends the user question and an empty assistant
// placeholder that UpdateAnswer will fill as the stream arrives.
func (s *State) BeginAnswer(question string, maxTurns int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var history []Message
	for _, m := range s.transcript {
		if m.Role == RoleSystem {
			continue
		}
		history = append(history, m)
	}
	if maxTurns >= 0 && len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}

	s.transcript = append(s.transcript,
		Message{Role: RoleUser, Content: question},
		Message{Role: RoleAssistant, Content: ""},
	)

	return history
}

// UpdateAnswer replaces the content of the most recent assistant entry.
// It is a no-op if the last entry is not an assistant message.
func (s *State) UpdateAnswer(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.transcript); n > 0 && s.transcript[n-1].Role == RoleAssistant {
		s.transcript[n-1].Content = content
	}
}

// AppendSystem appends a system entry to the transcript
func (s *State) AppendSystem(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, Message{Role: RoleSystem, Content: content})
}

// Transcript returns a copy of the transcript
func (s *State) Transcript() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// ResetConversation clears the transcript. Called when a new document
// loads so history from the old document does not leak into answers.
func (s *State) ResetConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = nil
}

// SetPage updates the current page position. Nil fields leave the
// corresponding values unchanged.
func (s *State) SetPage(page, total *int, label, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if page != nil {
		s.page = *page
	}
	if total != nil {
		s.totalPage = *total
	}
	if label != "" {
		s.pageLabel = label
	}
	if text != "" {
		s.pageText = text
	}
}

// Page returns the current page, total pages, and page label
func (s *State) Page() (page, total int, label string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page, s.totalPage, s.pageLabel
}

// PageText returns the text of the current page
func (s *State) PageText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pageText
}

// SetDocument records the loaded document and resets the conversation
func (s *State) SetDocument(title string, totalPages int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docTitle = title
	s.totalPage = totalPages
	s.page = 0
	s.docLoaded = true
	s.transcript = nil
}

// Document returns the document title and whether one is loaded
func (s *State) Document() (title string, loaded bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docTitle, s.docLoaded
}

// SetBookmarks replaces the bookmark set wholesale
func (s *State) SetBookmarks(bookmarks []Bookmark) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bookmarks = make([]Bookmark, len(bookmarks))
	copy(s.bookmarks, bookmarks)
}

// Bookmarks returns a copy of the bookmark set
func (s *State) Bookmarks() []Bookmark {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Bookmark, len(s.bookmarks))
	copy(out, s.bookmarks)
	return out
}

// SetView switches the active view
func (s *State) SetView(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = v
}

// View returns the active view
func (s *State) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// SetAPIReady records the readiness of the reader backend
func (s *State) SetAPIReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiReady = ready
}

// APIReady reports whether the reader backend answered its readiness poll
func (s *State) APIReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiReady
}
