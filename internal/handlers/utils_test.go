package handlers

import (
	"strings"
	"testing"

	"github.com/capturelabs/capture-engine/internal/api"
)

func TestValidateDocumentCreate(t *testing.T) {
	valid := api.DocumentCreateRequest{
		Type:    "article",
		Title:   "a title",
		Content: "some content",
	}

	tests := []struct {
		name   string
		mutate func(r *api.DocumentCreateRequest)
		wantOk bool
	}{
		{"valid minimal", func(r *api.DocumentCreateRequest) {}, true},
		{"valid with url and tags", func(r *api.DocumentCreateRequest) {
			r.SourceURL = "https://example.com/post"
			r.Tags = []string{"go", "notes"}
		}, true},
		{"unknown type", func(r *api.DocumentCreateRequest) { r.Type = "diary" }, false},
		{"empty title", func(r *api.DocumentCreateRequest) { r.Title = "" }, false},
		{"title too long", func(r *api.DocumentCreateRequest) { r.Title = strings.Repeat("t", 256) }, false},
		{"empty content", func(r *api.DocumentCreateRequest) { r.Content = "" }, false},
		{"content too large", func(r *api.DocumentCreateRequest) { r.Content = strings.Repeat("c", 101) }, false},
		{"bad url scheme", func(r *api.DocumentCreateRequest) { r.SourceURL = "ftp://example.com/x" }, false},
		{"url without host", func(r *api.DocumentCreateRequest) { r.SourceURL = "https://" }, false},
		{"url too long", func(r *api.DocumentCreateRequest) {
			r.SourceURL = "https://example.com/" + strings.Repeat("p", 2048)
		}, false},
		{"too many tags", func(r *api.DocumentCreateRequest) {
			r.Tags = make([]string, 21)
			for i := range r.Tags {
				r.Tags[i] = "tag"
			}
		}, false},
		{"empty tag", func(r *api.DocumentCreateRequest) { r.Tags = []string{""} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			msg := validateDocumentCreate(req, 100)
			if tt.wantOk && msg != "" {
				t.Errorf("expected valid, got %q", msg)
			}
			if !tt.wantOk && msg == "" {
				t.Error("expected a validation message")
			}
		})
	}
}

func TestValidateChatRequest(t *testing.T) {
	limit := func(n int) *int { return &n }

	tests := []struct {
		name   string
		req    api.ChatRequest
		wantOk bool
	}{
		{"valid", api.ChatRequest{Query: "what do I know about kubernetes?"}, true},
		{"valid zero limit", api.ChatRequest{Query: "q", ContextLimit: limit(0)}, true},
		{"valid with filter", api.ChatRequest{Query: "q", DocType: "meeting_note"}, true},
		{"empty query", api.ChatRequest{Query: ""}, false},
		{"query too long", api.ChatRequest{Query: strings.Repeat("q", 1001)}, false},
		{"negative limit", api.ChatRequest{Query: "q", ContextLimit: limit(-1)}, false},
		{"limit too high", api.ChatRequest{Query: "q", ContextLimit: limit(21)}, false},
		{"bad doc type filter", api.ChatRequest{Query: "q", DocType: "diary"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := validateChatRequest(tt.req, 20)
			if tt.wantOk && msg != "" {
				t.Errorf("expected valid, got %q", msg)
			}
			if !tt.wantOk && msg == "" {
				t.Error("expected a validation message")
			}
		})
	}
}
