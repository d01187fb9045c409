package rerank

import (
	"context"
	"testing"

	"github.com/capturelabs/capture-engine/internal/rag/vectorDB"
)

func TestRerank_OrdersByTermOverlap(t *testing.T) {
	r := NewLexicalReranker()
	matches := []vectorDB.Match{
		{DocId: "a", Content: "completely unrelated text about gardening"},
		{DocId: "b", Content: "kubernetes deployment rollout strategy for kubernetes clusters"},
		{DocId: "c", Content: "one mention of kubernetes here"},
	}

	got, err := r.Rerank(context.Background(), "kubernetes rollout", matches)
	if err != nil {
		t.Fatalf("Rerank failed: %v", err)
	}
	if got[0].DocId != "b" {
		t.Errorf("top match got %s, want b", got[0].DocId)
	}
	if got[len(got)-1].DocId != "a" {
		t.Errorf("last match got %s, want a", got[len(got)-1].DocId)
	}
}

func TestRerank_StableOnTies(t *testing.T) {
	r := NewLexicalReranker()
	matches := []vectorDB.Match{
		{DocId: "first", Ordinal: 0, Content: "same words here"},
		{DocId: "second", Ordinal: 1, Content: "same words here"},
	}

	got, _ := r.Rerank(context.Background(), "same words", matches)
	if got[0].DocId != "first" || got[1].DocId != "second" {
		t.Errorf("tie broke retrieval order: %v then %v", got[0].DocId, got[1].DocId)
	}
}

func TestRerank_EmptyQueryKeepsOrder(t *testing.T) {
	r := NewLexicalReranker()
	matches := []vectorDB.Match{
		{DocId: "a", Content: "alpha"},
		{DocId: "b", Content: "beta"},
	}

	got, _ := r.Rerank(context.Background(), "...", matches)
	if got[0].DocId != "a" || got[1].DocId != "b" {
		t.Errorf("empty-term query must not reorder: %v", got)
	}
}

func TestRerank_FewMatches(t *testing.T) {
	r := NewLexicalReranker()
	if got, _ := r.Rerank(context.Background(), "q", nil); got != nil {
		t.Errorf("nil matches should pass through, got %v", got)
	}
	one := []vectorDB.Match{{DocId: "a"}}
	if got, _ := r.Rerank(context.Background(), "q", one); len(got) != 1 {
		t.Errorf("single match should pass through, got %v", got)
	}
}
