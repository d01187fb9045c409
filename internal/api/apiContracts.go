package api

import "time"

type DocumentResponse struct {
	Id              string    `json:"id" example:"7f8c2b1e-4a5d-4c3b-9e2f-1a2b3c4d5e6f"`
	Type            string    `json:"type" example:"article"`
	Title           string    `json:"title" example:"Q3 retro notes"`
	Content         string    `json:"content,omitempty"`
	SourceURL       string    `json:"source_url,omitempty"`
	Status          string    `json:"status" example:"completed"`
	ProcessingError string    `json:"processing_error,omitempty"`
	Tags            []string  `json:"tags"`
	LinkedDocIds    []string  `json:"linked_document_ids"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Total     int                `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// IngestionResponse acknowledges an accepted document. The record already
// exists as pending; the status URL is where to watch the cycle land.
type IngestionResponse struct {
	Id        string `json:"id"`
	Status    string `json:"status" example:"pending"`
	StatusURL string `json:"status_url"`
}

type SourceResponse struct {
	DocumentId string `json:"document_id"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	Excerpt    string `json:"excerpt"`
}

type ChatResponse struct {
	Answer      string           `json:"answer"`
	Sources     []SourceResponse `json:"sources"`
	Degraded    bool             `json:"degraded,omitempty"`
	QueryTimeMs int64            `json:"query_time_ms"`
}

type ErrorResponse struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"title is required"`
}

type HealthResponse struct {
	Status     string            `json:"status" example:"ok"`
	Components map[string]string `json:"components"`
}

// requests---------------------

type DocumentCreateRequest struct {
	Type             string   `json:"type" validate:"required"`
	Title            string   `json:"title" validate:"required"`
	Content          string   `json:"content" validate:"required"`
	SourceURL        string   `json:"source_url,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	LinkToDocumentId string   `json:"link_to_document_id,omitempty"`
}

type ChatRequest struct {
	Query        string `json:"query" validate:"required"`
	ContextLimit *int   `json:"context_limit,omitempty"`
	DocType      string `json:"doc_type,omitempty"`
}

type LinkRequest struct {
	TargetDocumentId string `json:"target_document_id" validate:"required"`
}
