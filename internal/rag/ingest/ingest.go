package ingest

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
	"github.com/capturelabs/capture-engine/internal/rag/vectorDB"
	"github.com/capturelabs/capture-engine/pkg/logger_i"
)

// Pipeline drives one document through PENDING -> PROCESSING ->
// {COMPLETED, FAILED}. Both outcomes are terminal; recovery is a fresh
// ingestion cycle for the same id. The pending record always exists before
// Run is called — creation happens synchronously on the request path.
type Pipeline struct {
	store      docModel.Store
	locker     lockstore.Locker
	chunks     *chunker.SentenceChunker
	embedder   embedding.Embedder
	vectorDB   vectorDB.DataProcessor
	collection string
	logger     *logger_i.Logger

	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewPipeline(store docModel.Store, locker lockstore.Locker, chunks *chunker.SentenceChunker,
	embedder embedding.Embedder, vector vectorDB.DataProcessor, collection string) *Pipeline {
	return &Pipeline{
		store:      store,
		locker:     locker,
		chunks:     chunks,
		embedder:   embedder,
		vectorDB:   vector,
		collection: collection,
		logger:     logger_i.NewLogger("Document Ingestion"),

		pollInterval: config.LockPollInterval,
		pollTimeout:  config.LockPollTimeout,
	}
}

// Run executes one full ingestion cycle for docId. The per-document advisory
// lock serializes concurrent cycles for the same id; distinct ids proceed
// independently. Once processing begins the cycle always lands on a terminal
// status — a document is never left PROCESSING behind an error return.
func (p *Pipeline) Run(ctx context.Context, docId string) error {
	log := p.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "docId", docId)

	acquired, err := p.acquireLock(ctx, docId)
	if err != nil {
		return p.fail(ctx, log, docId, fmt.Errorf("acquire ingest lock: %w", err))
	}
	if !acquired {
		// Another cycle owns this document. Leave its status alone; that
		// cycle will finalize it.
		log.Warn("concurrent ingestion in progress, skipping cycle")
		return fmt.Errorf("document %s: ingestion already in progress: %w", docId, docModel.ErrConflict)
	}
	defer func() {
		if err := p.locker.Release(context.WithoutCancel(ctx), docId); err != nil {
			log.Error("failed to release ingest lock", "error", err)
		}
	}()

	if err := p.store.UpdateStatus(ctx, docId, docModel.StatusProcessing, ""); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	log.Debug("processing started")

	doc, err := p.store.Get(ctx, docId)
	if err != nil {
		return p.fail(ctx, log, docId, fmt.Errorf("load document: %w", err))
	}

	if err := p.index(ctx, log, doc); err != nil {
		return p.fail(ctx, log, docId, err)
	}

	if err := p.store.UpdateStatus(ctx, docId, docModel.StatusCompleted, ""); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	log.Info("ingestion completed")
	metrics.CountIngestOutcome("completed")
	return nil
}

// index runs the three dependent steps in order: chunk, embed, upsert. All
// three must succeed; there is no partial commit.
func (p *Pipeline) index(ctx context.Context, log *logger_i.Logger, doc docModel.Document) error {
	texts := p.chunks.Split(doc.Content)
	log.Debug("chunked document", "chunks", len(texts))

	docChunks := make([]docModel.DocChunk, len(texts))
	for i, text := range texts {
		docChunks[i] = docModel.DocChunk{
			DocId:    doc.Id,
			DocType:  string(doc.Type),
			DocTitle: doc.Title,
			Ordinal:  i,
			Content:  text,
		}
	}

	var vectors [][]float32
	if len(texts) > 0 {
		start := time.Now()
		var err error
		vectors, err = p.embedder.BatchEmbedding(ctx, texts)
		metrics.CaptureExecutionMetrics("embedding", time.Since(start))
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
	}

	// Upsert also clears any stale points for this doc id, so a whitespace
	// document still wipes its previous chunk set.
	start := time.Now()
	err := p.vectorDB.UpsertDocument(ctx, p.collection, doc.Id, docChunks, vectors)
	metrics.CaptureExecutionMetrics("vector_upsert", time.Since(start))
	if err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}
	return nil
}

// acquireLock polls for the advisory lock for a bounded window.
func (p *Pipeline) acquireLock(ctx context.Context, docId string) (bool, error) {
	deadline := time.Now().Add(p.pollTimeout)
	for {
		ok, err := p.locker.TryAcquire(ctx, docId)
		if err != nil || ok {
			return ok, err
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(p.pollInterval):
		}
	}
}

// fail finalizes the cycle as FAILED with a bounded error description. The
// status write uses a detached context so cancellation of the cycle cannot
// strand the document in PROCESSING.
func (p *Pipeline) fail(ctx context.Context, log *logger_i.Logger, docId string, cause error) error {
	log.Error("ingestion failed", "error", cause)
	metrics.CountIngestOutcome("failed")

	msg := docModel.TruncateError(cause.Error(), config.MaxProcessingErrorLen)
	if err := p.store.UpdateStatus(context.WithoutCancel(ctx), docId, docModel.StatusFailed, msg); err != nil {
		log.Error("failed to record FAILED status", "error", err)
	}
	return cause
}
