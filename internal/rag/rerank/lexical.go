package rerank

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/capturelabs/capture-engine/internal/rag/vectorDB"
)

// LexicalReranker scores chunks by normalized query-term frequency and
// reorders descending. It is deliberately cheap: a second model call per
// query is not worth the latency for this corpus size, and term overlap is a
// useful complement to the embedding distance the index already applied.
type LexicalReranker struct{}

func NewLexicalReranker() *LexicalReranker {
	return &LexicalReranker{}
}

func (r *LexicalReranker) Rerank(ctx context.Context, query string, matches []vectorDB.Match) ([]vectorDB.Match, error) {
	if len(matches) < 2 {
		return matches, nil
	}

	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return matches, nil
	}

	reranked := make([]vectorDB.Match, len(matches))
	copy(reranked, matches)
	for i := range reranked {
		reranked[i].Score = relevance(queryTerms, reranked[i].Content)
	}

	// Stable: ties keep the vector search order.
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})
	return reranked, nil
}

// relevance is the sum of per-term frequencies in the chunk, dampened by
// chunk length so long chunks do not win on volume alone.
func relevance(queryTerms []string, content string) float32 {
	chunkTerms := tokenize(content)
	if len(chunkTerms) == 0 {
		return 0
	}

	freq := make(map[string]int, len(chunkTerms))
	for _, term := range chunkTerms {
		freq[term]++
	}

	var score float64
	for _, term := range queryTerms {
		score += float64(freq[term])
	}
	return float32(score / math.Sqrt(float64(len(chunkTerms))))
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
