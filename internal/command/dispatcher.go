// Package command submits free-text commands to the reader service and
// applies the structured action replies to local state and narration.
package command

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/echovision/voice-client/internal/observability"
	"github.com/echovision/voice-client/internal/readerapi"
	"github.com/echovision/voice-client/internal/session"
	"github.com/echovision/voice-client/internal/speech"
)

// CommandClient is the slice of the reader API the dispatcher needs
type CommandClient interface {
	Command(ctx context.Context, text string) (*readerapi.CommandReply, error)
}

// AskFunc re-enters the streaming answer path with an embedded question
type AskFunc func(ctx context.Context, question string)

// FileDialogFunc triggers the environment's file picker, where one exists
type FileDialogFunc func()

// Dispatcher interprets command replies. Page and bookmark fields are
// applied no matter which action carries them; the action then selects
// the behavior.
type Dispatcher struct {
	api        CommandClient
	narrator   *speech.Narrator
	state      *session.State
	ask        AskFunc
	fileDialog FileDialogFunc
	status     speech.StatusFunc
	logger     zerolog.Logger
}

// NewDispatcher creates a command dispatcher. ask, fileDialog and status
// may be nil when the corresponding collaborator is absent.
func NewDispatcher(api CommandClient, narrator *speech.Narrator, state *session.State, ask AskFunc, fileDialog FileDialogFunc, status speech.StatusFunc) *Dispatcher {
	if status == nil {
		status = func(string) {}
	}
	return &Dispatcher{
		api:        api,
		narrator:   narrator,
		state:      state,
		ask:        ask,
		fileDialog: fileDialog,
		status:     status,
		logger:     observability.ComponentLogger("dispatcher"),
	}
}

// Dispatch submits text as a command and applies the reply. Transport
// failures surface through the status channel; the caller's lifecycle
// (returning the mic to idle) is unaffected by the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, text string) {
	reply, err := d.api.Command(ctx, text)
	if err != nil {
		d.logger.Error().Err(err).Str("command", text).Msg("Command request failed")
		d.status("Command failed: " + err.Error())
		return
	}

	d.apply(ctx, reply)
}

func (d *Dispatcher) apply(ctx context.Context, reply *readerapi.CommandReply) {
	observability.RecordCommandDispatch(reply.Action)

	// Page and bookmark updates ride along on any action
	if reply.Page != nil || reply.Total != nil || reply.Label != "" || reply.Text != "" {
		d.state.SetPage(reply.Page, reply.Total, reply.Label, reply.Text)
	}
	if reply.Bookmarks != nil {
		bookmarks := make([]session.Bookmark, len(reply.Bookmarks))
		for i, b := range reply.Bookmarks {
			bookmarks[i] = session.Bookmark{Page: b.Page, Label: b.Label}
		}
		d.state.SetBookmarks(bookmarks)
	}

	switch reply.Action {
	case readerapi.ActionRead, readerapi.ActionSpeak:
		d.narrate(ctx, reply)

	case readerapi.ActionNavigate:
		d.narrate(ctx, reply)

	case readerapi.ActionStop:
		d.narrator.Stop()

	case readerapi.ActionError:
		d.status(reply.Message)
		d.narrator.Speak(ctx, reply.Message)

	case readerapi.ActionStreamAnswer:
		if d.ask != nil && reply.Question != "" {
			d.ask(ctx, reply.Question)
		}

	case readerapi.ActionStreamSummary:
		if d.ask != nil {
			d.ask(ctx, summaryQuestion(reply.Length))
		}

	case readerapi.ActionBookmark:
		d.narrate(ctx, reply)

	case readerapi.ActionOpenFileDialog:
		d.narrate(ctx, reply)
		if d.fileDialog != nil {
			d.fileDialog()
		}

	case readerapi.ActionFileLoaded:
		total := 0
		if reply.Total != nil {
			total = *reply.Total
		}
		d.state.SetDocument(reply.Title, total)
		d.narrate(ctx, reply)

	default:
		d.logger.Debug().Str("action", reply.Action).Msg("Unrecognized action")
		d.narrate(ctx, reply)
	}
}

// summaryQuestion builds the summary request streamed through the
// answer path. length is short, detailed, or medium (the default).
func summaryQuestion(length string) string {
	switch length {
	case "short":
		return "Give a short summary of the document."
	case "detailed":
		return "Give a detailed summary of the document."
	default:
		return "Summarize the document."
	}
}

// narrate speaks the reply's spoken text, preferring the dedicated
// tts_text field over the display message.
func (d *Dispatcher) narrate(ctx context.Context, reply *readerapi.CommandReply) {
	text := reply.TTSText
	if text == "" {
		text = reply.Message
	}
	if text != "" {
		d.narrator.Speak(ctx, text)
	}
}
