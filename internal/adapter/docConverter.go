package adapter

import (
	"fmt"

	"github.com/capturelabs/capture-engine/internal/api"
	"github.com/capturelabs/capture-engine/internal/domain/docModel"
	"github.com/capturelabs/capture-engine/internal/rag"
)

func ToDocumentResponse(doc docModel.Document, includeContent bool) api.DocumentResponse {
	res := api.DocumentResponse{
		Id:              doc.Id,
		Type:            string(doc.Type),
		Title:           doc.Title,
		SourceURL:       doc.SourceURL,
		Status:          string(doc.Status),
		ProcessingError: doc.ProcessingError,
		Tags:            doc.Tags,
		LinkedDocIds:    doc.LinkedDocIds,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
	if includeContent {
		res.Content = doc.Content
	}
	if res.Tags == nil {
		res.Tags = []string{}
	}
	if res.LinkedDocIds == nil {
		res.LinkedDocIds = []string{}
	}
	return res
}

// ToDocumentListResponse omits content: listings are for browsing, the full
// body comes from the single-document endpoint.
func ToDocumentListResponse(docs []docModel.Document, total, limit, offset int) api.DocumentListResponse {
	out := make([]api.DocumentResponse, len(docs))
	for i, doc := range docs {
		out[i] = ToDocumentResponse(doc, false)
	}
	return api.DocumentListResponse{
		Documents: out,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	}
}

func ToIngestionResponse(doc docModel.Document) api.IngestionResponse {
	return api.IngestionResponse{
		Id:        doc.Id,
		Status:    string(doc.Status),
		StatusURL: fmt.Sprintf("/api/documents/%s", doc.Id),
	}
}

func ToChatResponse(result rag.QueryResult) api.ChatResponse {
	sources := make([]api.SourceResponse, len(result.Sources))
	for i, src := range result.Sources {
		sources[i] = api.SourceResponse{
			DocumentId: src.DocId,
			Type:       src.DocType,
			Title:      src.DocTitle,
			Excerpt:    src.Excerpt,
		}
	}
	return api.ChatResponse{
		Answer:      result.Answer,
		Sources:     sources,
		Degraded:    result.Degraded,
		QueryTimeMs: result.QueryTimeMs,
	}
}

func BadRequest(message string, code int) api.ErrorResponse {
	return api.ErrorResponse{
		Code:    code,
		Message: message,
	}
}
