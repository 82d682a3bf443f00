package session

import (
	"testing"
)

func TestBeginAnswer_AppendsUserAndPlaceholder(t *testing.T) {
	s := New()

	history := s.BeginAnswer("what is this about?", 6)
	if len(history) != 0 {
		t.Errorf("Expected empty history for first question, got %v", history)
	}

	tr := s.Transcript()
	if len(tr) != 2 {
		t.Fatalf("Expected 2 transcript entries, got %d", len(tr))
	}
	if tr[0].Role != RoleUser || tr[0].Content != "what is this about?" {
		t.Errorf("Unexpected user entry: %+v", tr[0])
	}
	if tr[1].Role != RoleAssistant || tr[1].Content != "" {
		t.Errorf("Expected empty assistant placeholder, got %+v", tr[1])
	}
}

func TestBeginAnswer_HistoryExcludesSystemAndBounds(t *testing.T) {
	s := New()

	for i := 0; i < 5; i++ {
		s.BeginAnswer("q", 6)
		s.UpdateAnswer("a")
	}
	s.AppendSystem("stream failed")

	history := s.BeginAnswer("next", 6)

	if len(history) != 6 {
		t.Fatalf("Expected history bounded to 6 turns, got %d", len(history))
	}
	for _, m := range history {
		if m.Role == RoleSystem {
			t.Errorf("System entry leaked into history: %+v", m)
		}
	}
}

func TestUpdateAnswer_ReplacesLastAssistant(t *testing.T) {
	s := New()
	s.BeginAnswer("q", 6)

	s.UpdateAnswer("partial")
	s.UpdateAnswer("partial answer grows")

	tr := s.Transcript()
	if got := tr[len(tr)-1].Content; got != "partial answer grows" {
		t.Errorf("Expected replaced content, got %q", got)
	}
}

func TestUpdateAnswer_NoAssistantTail(t *testing.T) {
	s := New()
	s.AppendSystem("note")

	// Must not panic or overwrite the system entry
	s.UpdateAnswer("stray")

	tr := s.Transcript()
	if tr[0].Content != "note" {
		t.Errorf("System entry was overwritten: %+v", tr[0])
	}
}

func TestSetPage_PartialUpdate(t *testing.T) {
	s := New()

	page, total := 1, 5
	s.SetPage(&page, &total, "Page 2", "body text")

	// A later reply carrying only a page number keeps the old total
	next := 2
	s.SetPage(&next, nil, "", "")

	p, tot, label := s.Page()
	if p != 2 || tot != 5 || label != "Page 2" {
		t.Errorf("Unexpected page state: page=%d total=%d label=%q", p, tot, label)
	}
}

func TestSetDocument_ResetsConversation(t *testing.T) {
	s := New()
	s.BeginAnswer("old question", 6)

	s.SetDocument("report.pdf", 10)

	if len(s.Transcript()) != 0 {
		t.Error("Transcript should be cleared when a new document loads")
	}
	title, loaded := s.Document()
	if title != "report.pdf" || !loaded {
		t.Errorf("Unexpected document state: title=%q loaded=%v", title, loaded)
	}
}

func TestSetBookmarks_Replaces(t *testing.T) {
	s := New()
	s.SetBookmarks([]Bookmark{{Page: 1}, {Page: 3, Label: "intro"}})
	s.SetBookmarks([]Bookmark{{Page: 7}})

	got := s.Bookmarks()
	if len(got) != 1 || got[0].Page != 7 {
		t.Errorf("Bookmarks not replaced wholesale: %v", got)
	}
}

func TestViewSwitch(t *testing.T) {
	s := New()
	if s.View() != ViewDocument {
		t.Errorf("Expected initial document view, got %v", s.View())
	}

	s.SetView(ViewConversation)
	if s.View() != ViewConversation {
		t.Errorf("Expected conversation view, got %v", s.View())
	}
}
