package rag

import (
	"context"
	"strings"
	"time"

	"github.com/capturelabs/capture-engine/internal/metrics"
	"github.com/capturelabs/capture-engine/internal/rag/vectorDB"
	"github.com/capturelabs/capture-engine/pkg/logger_i"
)

const sourceExcerptLen = 200

func (s *service) executeEmbeddingStep(ctx context.Context, log *logger_i.Logger, question string) ([]float32, error) {
	log.Debug("Query", "Current Step", "embedding")

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	return s.embedder.GetEmbedding(ctx, question)
}

func (s *service) executeVectorSearchStep(ctx context.Context, log *logger_i.Logger, queryVector []float32, req QueryRequest) ([]vectorDB.Match, error) {
	log.Debug("Query", "Current Step", "vector_search")

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	var filter *vectorDB.SearchFilter
	if req.DocType != "" {
		filter = &vectorDB.SearchFilter{DocType: req.DocType}
	}
	return s.vectorDB.Search(ctx, s.collection, queryVector, req.ContextLimit, filter)
}

// executeRerankStep never fails the query: a broken reranker just means the
// context keeps its vector search order.
func (s *service) executeRerankStep(ctx context.Context, log *logger_i.Logger, question string, matches []vectorDB.Match) []vectorDB.Match {
	log.Debug("Query", "Current Step", "rerank")

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("rerank", time.Since(start)) }()

	reranked, err := s.reranker.Rerank(ctx, question, matches)
	if err != nil {
		log.Warn("rerank failed, keeping retrieval order", "error", err)
		return matches
	}
	return reranked
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, prompt string) (string, error) {
	log.Debug("Query", "Current Step", "llm_generation")

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	return s.llmProvider.Generate(ctx, prompt)
}

// buildPrompt assembles the generation prompt. Context chunks appear in
// reranked order, separated by --- so the model can tell them apart; with no
// context the question goes through alone.
func buildPrompt(question string, matches []vectorDB.Match) string {
	if len(matches) == 0 {
		return question
	}

	var b strings.Builder
	b.WriteString("Context:\n")
	for i, match := range matches {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString(match.Content)
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}

// buildSources dedupes context chunks down to one source per document,
// ordered by first appearance, excerpting the best-ranked chunk.
func buildSources(matches []vectorDB.Match) []Source {
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	sources := make([]Source, 0, len(matches))
	for _, match := range matches {
		if seen[match.DocId] {
			continue
		}
		seen[match.DocId] = true
		sources = append(sources, Source{
			DocId:    match.DocId,
			DocType:  match.DocType,
			DocTitle: match.DocTitle,
			Excerpt:  excerpt(match.Content, sourceExcerptLen),
		})
	}
	return sources
}

func excerpt(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "…"
}
