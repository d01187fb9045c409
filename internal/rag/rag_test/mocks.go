package rag_test

import (
	"context"
	"errors"

	"github.com/capturelabs/capture-engine/internal/domain/docModel"
	"github.com/capturelabs/capture-engine/internal/rag/vectorDB"
)

// MockStore implements docModel.Store
type MockStore struct {
	Docs map[string]docModel.Document

	OnGet          func(ctx context.Context, id string) (docModel.Document, error)
	OnUpdateStatus func(ctx context.Context, id string, status docModel.DocumentStatus, processingError string) error
}

func (m *MockStore) Create(ctx context.Context, draft docModel.DocumentDraft) (docModel.Document, error) {
	return docModel.Document{}, errors.New("not used in these tests")
}

func (m *MockStore) Get(ctx context.Context, id string) (docModel.Document, error) {
	if m.OnGet != nil {
		return m.OnGet(ctx, id)
	}
	doc, ok := m.Docs[id]
	if !ok {
		return docModel.Document{}, docModel.ErrNotFound
	}
	return doc, nil
}

func (m *MockStore) List(ctx context.Context, filter docModel.ListFilter) ([]docModel.Document, int, error) {
	return nil, 0, errors.New("not used in these tests")
}

func (m *MockStore) UpdateStatus(ctx context.Context, id string, status docModel.DocumentStatus, processingError string) error {
	if m.OnUpdateStatus != nil {
		return m.OnUpdateStatus(ctx, id, status, processingError)
	}
	doc, ok := m.Docs[id]
	if !ok {
		return docModel.ErrNotFound
	}
	doc.Status = status
	doc.ProcessingError = processingError
	m.Docs[id] = doc
	return nil
}

func (m *MockStore) AddLink(ctx context.Context, sourceId, targetId string) error {
	return errors.New("not used in these tests")
}

func (m *MockStore) Ping(ctx context.Context) error { return nil }

// MockVectorDB implements vectorDB.DataProcessor
type MockVectorDB struct {
	SearchCalls int

	OnSearch           func(ctx context.Context, collection string, queryVector []float32, topK int, filter *vectorDB.SearchFilter) ([]vectorDB.Match, error)
	OnUpsertDocument   func(ctx context.Context, collection string, docId string, chunks []docModel.DocChunk, vectors [][]float32) error
	OnCreateCollection func(ctx context.Context, name string) error
}

func (m *MockVectorDB) Search(ctx context.Context, collection string, queryVector []float32, topK int, filter *vectorDB.SearchFilter) ([]vectorDB.Match, error) {
	m.SearchCalls++
	if m.OnSearch != nil {
		return m.OnSearch(ctx, collection, queryVector, topK, filter)
	}
	return []vectorDB.Match{{DocId: "default", Content: "default context"}}, nil
}

func (m *MockVectorDB) UpsertDocument(ctx context.Context, collection string, docId string, chunks []docModel.DocChunk, vectors [][]float32) error {
	if m.OnUpsertDocument != nil {
		return m.OnUpsertDocument(ctx, collection, docId, chunks, vectors)
	}
	return nil
}

func (m *MockVectorDB) CreateCollection(ctx context.Context, name string) error {
	if m.OnCreateCollection != nil {
		return m.OnCreateCollection(ctx, name)
	}
	return nil
}

func (m *MockVectorDB) Ping(ctx context.Context) error { return nil }

type MockEmbedder struct {
	OnGetEmbedding   func(ctx context.Context, text string) ([]float32, error)
	OnBatchEmbedding func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return []float32{0.1}, nil
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, texts)
	}
	return make([][]float32, len(texts)), nil
}

// MockLLM implements llm.Provider
type MockLLM struct {
	Prompts []string

	OnGenerate func(ctx context.Context, prompt string) (string, error)
}

func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, prompt)
	}
	return "mocked llm response", nil
}

// MockReranker implements rerank.Reranker
type MockReranker struct {
	OnRerank func(ctx context.Context, query string, matches []vectorDB.Match) ([]vectorDB.Match, error)
}

func (m *MockReranker) Rerank(ctx context.Context, query string, matches []vectorDB.Match) ([]vectorDB.Match, error) {
	if m.OnRerank != nil {
		return m.OnRerank(ctx, query, matches)
	}
	return matches, nil
}
