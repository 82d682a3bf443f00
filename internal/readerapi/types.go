// Package readerapi is the HTTP client for the remote document reader
// service: command interpretation, streamed question answering, speech
// synthesis, and backend readiness.
package readerapi

// CommandReply is the structured action reply from the command endpoint.
// Action discriminates which fields are meaningful; page and bookmark
// fields may ride along on any action.
type CommandReply struct {
	Action   string `json:"action"`
	Message  string `json:"message,omitempty"`
	TTSText  string `json:"tts_text,omitempty"`
	Question string `json:"question,omitempty"`
	Length   string `json:"length,omitempty"`

	Title string `json:"title,omitempty"`
	Label string `json:"label,omitempty"`
	Text  string `json:"text,omitempty"`
	Page  *int   `json:"page,omitempty"`
	Total *int   `json:"total,omitempty"`

	Bookmarks []BookmarkReply `json:"bookmarks,omitempty"`
}

// BookmarkReply is one bookmark inside a command reply
type BookmarkReply struct {
	Page  int    `json:"page"`
	Label string `json:"label,omitempty"`
}

// Recognized command actions
const (
	ActionRead           = "read"
	ActionSpeak          = "speak"
	ActionNavigate       = "navigate"
	ActionStop           = "stop"
	ActionError          = "error"
	ActionStreamAnswer   = "stream_answer"
	ActionStreamSummary  = "stream_summary"
	ActionBookmark       = "bookmark"
	ActionOpenFileDialog = "open_file_dialog"
	ActionFileLoaded     = "file_loaded"
)

// Turn is one conversation turn sent as question history
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Status is the readiness reply from the status endpoint
type Status struct {
	APIReady    bool   `json:"api_ready"`
	DocLoaded   bool   `json:"doc_loaded,omitempty"`
	DocTitle    string `json:"doc_title,omitempty"`
	PageCount   int    `json:"page_count,omitempty"`
	CurrentPage int    `json:"current_page,omitempty"`
}
