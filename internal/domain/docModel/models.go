package docModel

import (
	"context"
	"time"
)

type DocumentStatus string
type DocumentType string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"

	TypeJobPost       DocumentType = "job_post"
	TypeInterviewNote DocumentType = "interview_note"
	TypeGeneralNote   DocumentType = "general_note"
	TypeArticle       DocumentType = "article"
	TypeMeetingNote   DocumentType = "meeting_note"
	TypeOther         DocumentType = "other"
)

// ValidType reports whether t belongs to the closed type enumeration.
func ValidType(t DocumentType) bool {
	switch t {
	case TypeJobPost, TypeInterviewNote, TypeGeneralNote, TypeArticle, TypeMeetingNote, TypeOther:
		return true
	}
	return false
}

// Document is the authoritative metadata record. The id is allocated and the
// pending row persisted before any background work starts, so callers always
// hold a stable handle.
type Document struct {
	Id              string         `json:"id"`
	Type            DocumentType   `json:"type"`
	Title           string         `json:"title"`
	Content         string         `json:"content"`
	SourceURL       string         `json:"source_url,omitempty"`
	Status          DocumentStatus `json:"status"`
	ProcessingError string         `json:"processing_error,omitempty"`
	Tags            []string       `json:"tags"`
	LinkedDocIds    []string       `json:"linked_document_ids"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// DocumentDraft is the validated input for a new document.
type DocumentDraft struct {
	Type        DocumentType
	Title       string
	Content     string
	SourceURL   string
	Tags        []string
	LinkToDocId string
}

// DocChunk is a derived, ephemeral unit of ingestion. Identity is
// (doc_id, ordinal); it is never persisted outside the vector index.
type DocChunk struct {
	DocId    string `json:"doc_id"`
	DocType  string `json:"doc_type"`
	DocTitle string `json:"doc_title"`
	Ordinal  int    `json:"ordinal"`
	Content  string `json:"content"`
}

// ListFilter narrows and pages a document listing.
type ListFilter struct {
	Type   DocumentType
	Status DocumentStatus
	Limit  int
	Offset int
}

// Store is the Document Store contract. Status transitions are per-record
// atomic updates, last write wins; nothing is locked across documents.
type Store interface {
	Create(ctx context.Context, draft DocumentDraft) (Document, error)
	Get(ctx context.Context, id string) (Document, error)
	List(ctx context.Context, filter ListFilter) ([]Document, int, error)
	UpdateStatus(ctx context.Context, id string, status DocumentStatus, processingError string) error
	AddLink(ctx context.Context, sourceId, targetId string) error
	Ping(ctx context.Context) error
}

// IngestJob is the unit of work queued for the worker pool.
type IngestJob struct {
	DocId       string    `json:"doc_id"`
	TraceId     string    `json:"trace_id"`
	CreatedTime time.Time `json:"created_time"`
}
