package router

import (
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name             string
		text             string
		conversationView bool
		wantKind         Kind
		wantPayload      string
	}{
		{"navigation command", "next page", false, KindCommand, "next page"},
		{"what question", "what is the main topic?", false, KindQuestion, "what is the main topic?"},
		{"how question", "How does this work", false, KindQuestion, "How does this work"},
		{"why question", "why is the sky blue", false, KindQuestion, "why is the sky blue"},
		{"summarize", "summarize this page", false, KindQuestion, "summarize this page"},
		{"british summarise", "summarise the document", false, KindQuestion, "summarise the document"},
		{"ask prefix stripped", "ask who wrote this", false, KindQuestion, "who wrote this"},
		{"ask prefix case insensitive", "Ask who wrote this", false, KindQuestion, "who wrote this"},
		{"conversation view forces question", "go to page five", true, KindQuestion, "go to page five"},
		{"conversation view strips ask", "ask about chapter two", true, KindQuestion, "about chapter two"},
		{"whatever is not what", "whatever you say", false, KindCommand, "whatever you say"},
		{"howl is not how", "howl at the moon", false, KindCommand, "howl at the moon"},
		{"whitespace trimmed", "  stop reading  ", false, KindCommand, "stop reading"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, payload := Classify(tt.text, tt.conversationView)
			if kind != tt.wantKind {
				t.Errorf("Classify(%q, %v) kind = %v, want %v", tt.text, tt.conversationView, kind, tt.wantKind)
			}
			if payload != tt.wantPayload {
				t.Errorf("Classify(%q, %v) payload = %q, want %q", tt.text, tt.conversationView, payload, tt.wantPayload)
			}
		})
	}
}
