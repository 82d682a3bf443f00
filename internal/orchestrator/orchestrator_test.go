package orchestrator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/echovision/voice-client/internal/config"
	"github.com/echovision/voice-client/internal/readerapi"
	"github.com/echovision/voice-client/internal/recognition"
	"github.com/echovision/voice-client/internal/resilience"
	"github.com/echovision/voice-client/internal/session"
)

// testNotifier records every outbound event
type testNotifier struct {
	mu          sync.Mutex
	statuses    []string
	micStates   []string
	transcripts []string
	answers     []string
	fileDialogs int
}

func (n *testNotifier) Status(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, message)
}

func (n *testNotifier) MicState(state string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.micStates = append(n.micStates, state)
}

func (n *testNotifier) LiveTranscript(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transcripts = append(n.transcripts, text)
}

func (n *testNotifier) AnswerUpdate(content string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.answers = append(n.answers, content)
}

func (n *testNotifier) OpenFileDialog() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fileDialogs++
}

func (n *testNotifier) statusCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.statuses)
}

// testSink records played audio without blocking
type testSink struct {
	mu     sync.Mutex
	played [][]byte
}

func (s *testSink) Play(ctx context.Context, audio []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.played = append(s.played, audio)
	return nil
}

func (s *testSink) Stop() {}

func (s *testSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.played)
}

type testCues struct{}

func (testCues) PlayCue(audio []byte) {}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		ReaderAPIBaseURL:       baseURL,
		HistoryTurns:           6,
		ConfirmationWords:      "yes,yeah,no,cancel,stop,proceed",
		MicBufferSize:          8192,
		MicSampleRate:          16000,
		CueSampleRate:          16000,
		SpeechQueueLen:         16,
		TTSBreakerMaxFailures:  5,
		TTSBreakerResetTimeout: 30,
		StatusPollMaxAttempts:  2,
		StatusPollBackoff:      10,
	}
}

func newTestOrchestrator(t *testing.T, handler http.Handler) (*Orchestrator, *testNotifier, *testSink, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	cfg := testConfig(srv.URL)
	api := readerapi.NewClient(srv.URL, resilience.NewCircuitBreaker("tts", 5, time.Second))
	notify := &testNotifier{}
	sink := &testSink{}
	o := New(cfg, api, sink, testCues{}, nil, notify)
	return o, notify, sink, srv.Close
}

func readerMux(t *testing.T, status readerapi.Status, commandReply *readerapi.CommandReply, answer string) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(status)
	})
	mux.HandleFunc("/command", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(commandReply)
	})
	mux.HandleFunc("/ask", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, answer)
	})
	mux.HandleFunc("/tts", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("audio"))
	})
	return mux
}

func TestStartup_RecordsBackendReadiness(t *testing.T) {
	o, _, _, cleanup := newTestOrchestrator(t, readerMux(t,
		readerapi.Status{APIReady: true, DocLoaded: true, DocTitle: "report.pdf", PageCount: 12, CurrentPage: 3},
		&readerapi.CommandReply{}, ""))
	defer cleanup()

	o.Startup(context.Background())

	if !o.State().APIReady() {
		t.Error("Expected api ready after startup poll")
	}
	title, loaded := o.State().Document()
	if title != "report.pdf" || !loaded {
		t.Errorf("Document not recorded from status: title=%q loaded=%v", title, loaded)
	}
	page, _, _ := o.State().Page()
	if page != 3 {
		t.Errorf("Expected page 3 from status, got %d", page)
	}
}

func TestStartup_UnreachableBackendIsSoft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	cfg := testConfig(srv.URL)
	api := readerapi.NewClient(srv.URL, resilience.NewCircuitBreaker("tts", 5, time.Second))
	notify := &testNotifier{}
	o := New(cfg, api, &testSink{}, testCues{}, nil, notify)
	defer srv.Close()

	o.Startup(context.Background())

	if o.State().APIReady() {
		t.Error("Backend readiness should be false when unreachable")
	}
	if notify.statusCount() == 0 {
		t.Error("Unreachable backend should surface a status message")
	}
}

func TestToggleMic_UnsupportedPlatform(t *testing.T) {
	o, notify, _, cleanup := newTestOrchestrator(t, readerMux(t, readerapi.Status{}, &readerapi.CommandReply{}, ""))
	defer cleanup()

	err := o.ToggleMic(context.Background())
	if err != recognition.ErrUnsupportedPlatform {
		t.Errorf("Expected ErrUnsupportedPlatform, got %v", err)
	}
	if notify.statusCount() == 0 {
		t.Error("Unsupported platform should surface a status message")
	}
	if o.MicState() != recognition.StateIdle {
		t.Errorf("Mic must stay idle, got %v", o.MicState())
	}
}

func TestDispatchCommand_NavigateScenario(t *testing.T) {
	page, total := 1, 5
	o, _, sink, cleanup := newTestOrchestrator(t, readerMux(t, readerapi.Status{},
		&readerapi.CommandReply{
			Action:  readerapi.ActionNavigate,
			Page:    &page,
			Total:   &total,
			Label:   "Page 2",
			Text:    "page body",
			TTSText: "Page 2.",
		}, ""))
	defer cleanup()

	o.DispatchCommand(context.Background(), "next page")

	p, tot, _ := o.State().Page()
	if p != 1 || tot != 5 {
		t.Errorf("Navigate not applied: page=%d total=%d", p, tot)
	}
	if sink.count() != 1 {
		t.Errorf("Expected one narration, got %d", sink.count())
	}
}

func TestAskQuestion_ConversationScenario(t *testing.T) {
	o, notify, sink, cleanup := newTestOrchestrator(t, readerMux(t, readerapi.Status{},
		&readerapi.CommandReply{}, "The main topic is birds. They migrate."))
	defer cleanup()

	o.AskQuestion(context.Background(), "what is the main topic?")

	if o.State().View() != session.ViewConversation {
		t.Errorf("Expected conversation view, got %v", o.State().View())
	}

	tr := o.State().Transcript()
	if len(tr) != 2 || tr[0].Role != session.RoleUser {
		t.Fatalf("Unexpected transcript: %v", tr)
	}
	if tr[1].Content != "The main topic is birds. They migrate." {
		t.Errorf("Answer not accumulated: %q", tr[1].Content)
	}

	if sink.count() != 2 {
		t.Errorf("Expected two narrated sentences, got %d", sink.count())
	}

	notify.mu.Lock()
	defer notify.mu.Unlock()
	if len(notify.answers) == 0 {
		t.Error("Expected live answer updates")
	}
}
