package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/capturelabs/capture-engine/internal/chunker"
	"github.com/capturelabs/capture-engine/internal/config"
	"github.com/capturelabs/capture-engine/internal/data/lockstore"
	"github.com/capturelabs/capture-engine/internal/domain/docModel"
	"github.com/capturelabs/capture-engine/internal/metrics"
	"github.com/capturelabs/capture-engine/internal/rag/embedding"
	"github.com/capturelabs/capture-engine/internal/rag/ingest"
	"github.com/capturelabs/capture-engine/internal/rag/llm"
	"github.com/capturelabs/capture-engine/internal/rag/rerank"
	"github.com/capturelabs/capture-engine/internal/rag/vectorDB"
	"github.com/capturelabs/capture-engine/pkg/logger_i"
)

/*
ARCHITECTURE NOTE: OPAQUE INTERFACE PATTERN
---------------------------------------------------------

1. Service (Interface):
  - The PUBLIC contract for handlers and workers.
  - Defines behavior only; callers never see the clients behind it.

2. service (Private Struct):
  - The PRIVATE implementation holding the store and model clients.
  - Lowercase so external packages cannot reach the dependencies
    (vectorDB, llmProvider, embedder) directly.

3. Pointer Receiver (*service):
  - Methods on (*service) make the struct satisfy Service implicitly.

4. Dependency Injection (NewService):
  - The constructor links private struct to public interface, which is
    what lets tests swap in function-field mocks for every dependency.
*/

// QueryRequest is one retrieval-and-answer request.
type QueryRequest struct {
	Question     string
	ContextLimit int
	DocType      string
}

// Source identifies a document that contributed context, with a short
// excerpt of its best-ranked chunk. One entry per document, ordered by the
// document's first appearance in the reranked context.
type Source struct {
	DocId    string
	DocType  string
	DocTitle string
	Excerpt  string
}

// QueryResult carries the generated answer. Degraded is set when retrieval
// failed and the answer was generated without any document context.
type QueryResult struct {
	Answer      string
	Sources     []Source
	Degraded    bool
	QueryTimeMs int64
}

// Service is what the worker pool and the HTTP handlers call. They do not
// need to know the llm, the index, or the document store behind it.
type Service interface {
	Query(ctx context.Context, req QueryRequest) (QueryResult, error)
	IngestDocument(ctx context.Context, job docModel.IngestJob) error
}

type service struct {
	store       docModel.Store
	vectorDB    vectorDB.DataProcessor
	llmProvider llm.Provider
	embedder    embedding.Embedder
	reranker    rerank.Reranker
	pipeline    *ingest.Pipeline
	collection  string
	logger      *logger_i.Logger
}

// NewService constructor
func NewService(store docModel.Store, locker lockstore.Locker, vector vectorDB.DataProcessor,
	llm llm.Provider, em embedding.Embedder, reranker rerank.Reranker, cfg config.Config) Service {
	return &service{
		store:       store,
		vectorDB:    vector,
		llmProvider: llm,
		embedder:    em,
		reranker:    reranker,
		pipeline: ingest.NewPipeline(store, locker,
			chunker.New(cfg.ChunkSplitLength, cfg.ChunkSplitOverlap), em, vector, config.VectorCollectionName),
		collection: config.VectorCollectionName,
		logger:     logger_i.NewLogger("RAG Service :"),
	}
}

// Query runs the full answer pipeline: embed, search, rerank, generate.
// Retrieval failures degrade to an empty context; a generation failure is the
// only error this returns, because an answer that was never produced has no
// degraded form.
func (s *service) Query(ctx context.Context, req QueryRequest) (QueryResult, error) {
	inMethodLogger := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))
	start := time.Now()

	processContext, cancel := context.WithTimeout(ctx, config.QueryPipelineTimeout)
	defer cancel()

	result := QueryResult{}

	var matches []vectorDB.Match
	if req.ContextLimit > 0 {
		// Embedding and search failures both land here: the query proceeds
		// with no context and the caller is told so.
		retrieved, err := s.retrieve(processContext, inMethodLogger, req)
		if err != nil {
			inMethodLogger.Warn("retrieval failed, answering without context", "error", err)
			metrics.CountDegradedQuery()
			result.Degraded = true
		} else {
			matches = retrieved
		}
	}

	prompt := buildPrompt(req.Question, matches)

	answer, err := s.executeLLMStep(processContext, inMethodLogger, prompt)
	if err != nil {
		metrics.CaptureJobMetrics("error", time.Since(start))
		return QueryResult{}, fmt.Errorf("answer generation: %w", err)
	}

	result.Answer = answer
	result.Sources = buildSources(matches)
	result.QueryTimeMs = time.Since(start).Milliseconds()
	metrics.CaptureJobMetrics("ok", time.Since(start))
	return result, nil
}

// retrieve produces the reranked context window for a question.
func (s *service) retrieve(ctx context.Context, log *logger_i.Logger, req QueryRequest) ([]vectorDB.Match, error) {
	queryVector, err := s.executeEmbeddingStep(ctx, log, req.Question)
	if err != nil {
		return nil, err
	}

	matches, err := s.executeVectorSearchStep(ctx, log, queryVector, req)
	if err != nil {
		return nil, err
	}

	matches = s.filterIndexed(ctx, log, matches)
	return s.executeRerankStep(ctx, log, req.Question, matches), nil
}

// filterIndexed drops hits whose document is not COMPLETED. The index is
// written before the status flip, so a query racing an ingestion cycle could
// otherwise surface a document that is still PROCESSING.
func (s *service) filterIndexed(ctx context.Context, log *logger_i.Logger, matches []vectorDB.Match) []vectorDB.Match {
	statusByDoc := make(map[string]bool, len(matches))
	kept := matches[:0]
	for _, match := range matches {
		visible, checked := statusByDoc[match.DocId]
		if !checked {
			doc, err := s.store.Get(ctx, match.DocId)
			visible = err == nil && doc.Status == docModel.StatusCompleted
			if err != nil {
				log.Warn("could not verify document status, dropping hits", "docId", match.DocId, "error", err)
			}
			statusByDoc[match.DocId] = visible
		}
		if visible {
			kept = append(kept, match)
		}
	}
	return kept
}

func (s *service) IngestDocument(ctx context.Context, job docModel.IngestJob) error {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("Document_ingestion", time.Since(start)) }()

	ingestCtx, cancel := context.WithTimeout(ctx, config.IngestCycleTimeout)
	defer cancel()
	ingestCtx = context.WithValue(ingestCtx, config.TRACE_ID_KEY, job.TraceId)

	return s.pipeline.Run(ingestCtx, job.DocId)
}
