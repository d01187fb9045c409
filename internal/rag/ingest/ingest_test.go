package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/capturelabs/capture-engine/internal/chunker"
	"github.com/capturelabs/capture-engine/internal/data/lockstore"
	"github.com/capturelabs/capture-engine/internal/domain/docModel"
	"github.com/capturelabs/capture-engine/internal/rag/vectorDB"
)

type mockStore struct {
	mu       sync.Mutex
	docs     map[string]docModel.Document
	statuses []docModel.DocumentStatus
	lastErr  string

	OnUpdateStatus func(id string, status docModel.DocumentStatus, processingError string) error
}

func newMockStore(docs ...docModel.Document) *mockStore {
	m := &mockStore{docs: map[string]docModel.Document{}}
	for _, d := range docs {
		m.docs[d.Id] = d
	}
	return m
}

func (m *mockStore) Create(ctx context.Context, draft docModel.DocumentDraft) (docModel.Document, error) {
	return docModel.Document{}, errors.New("not used")
}

func (m *mockStore) Get(ctx context.Context, id string) (docModel.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return docModel.Document{}, docModel.ErrNotFound
	}
	return doc, nil
}

func (m *mockStore) List(ctx context.Context, f docModel.ListFilter) ([]docModel.Document, int, error) {
	return nil, 0, errors.New("not used")
}

func (m *mockStore) UpdateStatus(ctx context.Context, id string, status docModel.DocumentStatus, processingError string) error {
	if m.OnUpdateStatus != nil {
		if err := m.OnUpdateStatus(id, status, processingError); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return docModel.ErrNotFound
	}
	doc.Status = status
	doc.ProcessingError = processingError
	m.docs[id] = doc
	m.statuses = append(m.statuses, status)
	m.lastErr = processingError
	return nil
}

func (m *mockStore) AddLink(ctx context.Context, sourceId, targetId string) error {
	return errors.New("not used")
}

func (m *mockStore) Ping(ctx context.Context) error { return nil }

type mockEmbedder struct {
	OnBatchEmbedding func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return []float32{0.1}, nil
}

func (m *mockEmbedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{float32(i)}
	}
	return vectors, nil
}

type mockVector struct {
	mu       sync.Mutex
	upserts  []upsertCall
	OnUpsert func(docId string, chunks []docModel.DocChunk) error
}

type upsertCall struct {
	docId  string
	chunks []docModel.DocChunk
}

func (m *mockVector) CreateCollection(ctx context.Context, name string) error { return nil }

func (m *mockVector) UpsertDocument(ctx context.Context, collection string, docId string, chunks []docModel.DocChunk, vectors [][]float32) error {
	if m.OnUpsert != nil {
		if err := m.OnUpsert(docId, chunks); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.upserts = append(m.upserts, upsertCall{docId: docId, chunks: chunks})
	m.mu.Unlock()
	return nil
}

func (m *mockVector) Search(ctx context.Context, collection string, v []float32, topK int, f *vectorDB.SearchFilter) ([]vectorDB.Match, error) {
	return nil, errors.New("not used")
}

func (m *mockVector) Ping(ctx context.Context) error { return nil }

func testPipeline(store docModel.Store, locker lockstore.Locker, em *mockEmbedder, vec *mockVector) *Pipeline {
	p := NewPipeline(store, locker, chunker.New(1, 0), em, vec, "kb_test")
	p.pollInterval = time.Millisecond
	p.pollTimeout = 5 * time.Millisecond
	return p
}

func pendingDoc(id, content string) docModel.Document {
	return docModel.Document{
		Id:      id,
		Type:    docModel.TypeGeneralNote,
		Title:   "note " + id,
		Content: content,
		Status:  docModel.StatusPending,
	}
}

func TestRun_CompletesAndUpserts(t *testing.T) {
	store := newMockStore(pendingDoc("doc-1", "First. Second. Third."))
	vec := &mockVector{}
	p := testPipeline(store, lockstore.InitInMemoryLocker(time.Minute), &mockEmbedder{}, vec)

	if err := p.Run(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := store.docs["doc-1"].Status; got != docModel.StatusCompleted {
		t.Errorf("status got %v, want completed", got)
	}
	wantStatuses := []docModel.DocumentStatus{docModel.StatusProcessing, docModel.StatusCompleted}
	if len(store.statuses) != 2 || store.statuses[0] != wantStatuses[0] || store.statuses[1] != wantStatuses[1] {
		t.Errorf("status transitions got %v, want %v", store.statuses, wantStatuses)
	}

	if len(vec.upserts) != 1 {
		t.Fatalf("upsert calls got %d, want 1", len(vec.upserts))
	}
	chunks := vec.upserts[0].chunks
	if len(chunks) != 3 {
		t.Fatalf("chunks got %d, want 3", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Ordinal != i {
			t.Errorf("chunk %d ordinal got %d", i, chunk.Ordinal)
		}
		if chunk.DocId != "doc-1" || chunk.DocTitle != "note doc-1" {
			t.Errorf("chunk %d carries wrong metadata: %+v", i, chunk)
		}
	}
}

func TestRun_EmbedderDownFailsDocument(t *testing.T) {
	store := newMockStore(pendingDoc("doc-2", "Some content here."))
	vec := &mockVector{}
	em := &mockEmbedder{
		OnBatchEmbedding: func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("embedding service unavailable")
		},
	}
	p := testPipeline(store, lockstore.InitInMemoryLocker(time.Minute), em, vec)

	if err := p.Run(context.Background(), "doc-2"); err == nil {
		t.Fatal("Run should surface the embedding failure")
	}

	doc := store.docs["doc-2"]
	if doc.Status != docModel.StatusFailed {
		t.Errorf("status got %v, want failed", doc.Status)
	}
	if doc.ProcessingError == "" {
		t.Error("failed document must carry a processing error")
	}
	if len(vec.upserts) != 0 {
		t.Errorf("no vectors may be written on embedding failure, got %d upserts", len(vec.upserts))
	}
}

func TestRun_ProcessingErrorIsBounded(t *testing.T) {
	store := newMockStore(pendingDoc("doc-3", "Content."))
	em := &mockEmbedder{
		OnBatchEmbedding: func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New(strings.Repeat("x", 2000))
		},
	}
	p := testPipeline(store, lockstore.InitInMemoryLocker(time.Minute), em, &mockVector{})

	_ = p.Run(context.Background(), "doc-3")

	if got := len(store.docs["doc-3"].ProcessingError); got > 500 {
		t.Errorf("processing error length got %d, want <= 500", got)
	}
	if store.docs["doc-3"].ProcessingError == "" {
		t.Error("truncated error must not be empty")
	}
}

func TestRun_LockContentionLeavesStatusAlone(t *testing.T) {
	store := newMockStore(pendingDoc("doc-4", "Content."))
	locker := lockstore.InitInMemoryLocker(time.Minute)
	if ok, _ := locker.TryAcquire(context.Background(), "doc-4"); !ok {
		t.Fatal("setup: could not pre-acquire lock")
	}

	p := testPipeline(store, locker, &mockEmbedder{}, &mockVector{})

	err := p.Run(context.Background(), "doc-4")
	if !errors.Is(err, docModel.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	if got := store.docs["doc-4"].Status; got != docModel.StatusPending {
		t.Errorf("contended cycle must not touch status, got %v", got)
	}
	if len(store.statuses) != 0 {
		t.Errorf("no status writes expected, got %v", store.statuses)
	}
}

func TestRun_ReleasesLockAfterCycle(t *testing.T) {
	store := newMockStore(pendingDoc("doc-5", "One. Two."))
	locker := lockstore.InitInMemoryLocker(time.Minute)
	p := testPipeline(store, locker, &mockEmbedder{}, &mockVector{})

	if err := p.Run(context.Background(), "doc-5"); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if ok, _ := locker.TryAcquire(context.Background(), "doc-5"); !ok {
		t.Error("lock must be free after the cycle finishes")
	}
}

func TestRun_ReingestOverwritesSameDoc(t *testing.T) {
	store := newMockStore(pendingDoc("doc-6", "Alpha. Beta."))
	vec := &mockVector{}
	p := testPipeline(store, lockstore.InitInMemoryLocker(time.Minute), &mockEmbedder{}, vec)

	if err := p.Run(context.Background(), "doc-6"); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if err := p.Run(context.Background(), "doc-6"); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if len(vec.upserts) != 2 {
		t.Fatalf("upsert calls got %d, want 2", len(vec.upserts))
	}
	if vec.upserts[0].docId != vec.upserts[1].docId {
		t.Error("re-ingestion must target the same document")
	}
	if got := store.docs["doc-6"].Status; got != docModel.StatusCompleted {
		t.Errorf("status got %v, want completed", got)
	}
}

func TestRun_WhitespaceDocumentStillCompletes(t *testing.T) {
	store := newMockStore(pendingDoc("doc-7", "   \n\t  "))
	vec := &mockVector{}
	em := &mockEmbedder{
		OnBatchEmbedding: func(ctx context.Context, texts []string) ([][]float32, error) {
			t.Error("no embedding call expected for zero chunks")
			return nil, nil
		},
	}
	p := testPipeline(store, lockstore.InitInMemoryLocker(time.Minute), em, vec)

	if err := p.Run(context.Background(), "doc-7"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := store.docs["doc-7"].Status; got != docModel.StatusCompleted {
		t.Errorf("status got %v, want completed", got)
	}
	// Upsert still runs with zero chunks so stale points get cleared.
	if len(vec.upserts) != 1 || len(vec.upserts[0].chunks) != 0 {
		t.Errorf("want one empty upsert, got %+v", vec.upserts)
	}
}

func TestRun_ConcurrentDistinctDocsStayIntact(t *testing.T) {
	store := newMockStore(
		pendingDoc("doc-a", "A one. A two. A three."),
		pendingDoc("doc-b", "B one. B two."),
	)
	vec := &mockVector{}
	p := testPipeline(store, lockstore.InitInMemoryLocker(time.Minute), &mockEmbedder{}, vec)

	var wg sync.WaitGroup
	for _, id := range []string{"doc-a", "doc-b"} {
		wg.Add(1)
		go func(docId string) {
			defer wg.Done()
			if err := p.Run(context.Background(), docId); err != nil {
				t.Errorf("Run(%s) failed: %v", docId, err)
			}
		}(id)
	}
	wg.Wait()

	if len(vec.upserts) != 2 {
		t.Fatalf("upsert calls got %d, want 2", len(vec.upserts))
	}
	wantChunks := map[string]int{"doc-a": 3, "doc-b": 2}
	for _, call := range vec.upserts {
		if got := len(call.chunks); got != wantChunks[call.docId] {
			t.Errorf("%s chunk count got %d, want %d", call.docId, got, wantChunks[call.docId])
		}
		for i, chunk := range call.chunks {
			if chunk.DocId != call.docId {
				t.Errorf("%s chunk %d carries foreign doc id %s", call.docId, i, chunk.DocId)
			}
			if chunk.Ordinal != i {
				t.Errorf("%s chunk %d ordinal got %d", call.docId, i, chunk.Ordinal)
			}
		}
	}
}

func TestRun_MissingDocumentFails(t *testing.T) {
	store := newMockStore()
	p := testPipeline(store, lockstore.InitInMemoryLocker(time.Minute), &mockEmbedder{}, &mockVector{})

	if err := p.Run(context.Background(), "ghost"); err == nil {
		t.Fatal("Run should fail for a missing document")
	}
}
