package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/capturelabs/capture-engine/internal/adapter"
	"github.com/capturelabs/capture-engine/internal/adapter/utils"
	"github.com/capturelabs/capture-engine/internal/api"
	"github.com/capturelabs/capture-engine/internal/config"
	"github.com/capturelabs/capture-engine/internal/domain/docModel"
	"github.com/capturelabs/capture-engine/internal/rag"
)

// CreateDocumentHandler accepts a document, persists it as pending and queues
// the ingestion cycle. The 202 response carries the id before any chunking or
// embedding has happened.
func CreateDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", "addr", r.RemoteAddr)
		return
	}

	var requestData api.DocumentCreateRequest
	defer closeBody(r.Body)
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		logRH.Warn("Bad create request: ", "error:", err)
		WriteErrorResponse(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if msg := validateDocumentCreate(requestData, handlerInstance.cfg.MaxContentSize); msg != "" {
		logRH.Warn("Invalid create request: ", "reason:", msg)
		WriteErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	draft := docModel.DocumentDraft{
		Type:        docModel.DocumentType(requestData.Type),
		Title:       requestData.Title,
		Content:     requestData.Content,
		SourceURL:   requestData.SourceURL,
		Tags:        requestData.Tags,
		LinkToDocId: requestData.LinkToDocumentId,
	}

	doc, err := handlerInstance.service.DocStore.Create(r.Context(), draft)
	if err != nil {
		if errors.Is(err, docModel.ErrNotFound) {
			WriteErrorResponse(w, http.StatusNotFound, "link target document does not exist")
			return
		}
		logRH.Error("Create failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "could not store document")
		return
	}

	traceId, _ := r.Context().Value(config.TRACE_ID_KEY).(string)
	EnqueueIngestJob(doc.Id, traceId)

	writeJsonResponse(w, http.StatusAccepted, adapter.ToIngestionResponse(doc))
}

func GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	id := utils.GetChiURLParam(r, "id")
	doc, err := handlerInstance.service.DocStore.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, docModel.ErrNotFound) {
			WriteErrorResponse(w, http.StatusNotFound, "document not found")
			return
		}
		logRH.Error("Get failed", "id", id, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "could not load document")
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentResponse(doc, true))
}

func ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	filter := docModel.ListFilter{
		Type:   docModel.DocumentType(r.URL.Query().Get("type")),
		Status: docModel.DocumentStatus(r.URL.Query().Get("status")),
	}
	if filter.Type != "" && !docModel.ValidType(filter.Type) {
		WriteErrorResponse(w, http.StatusBadRequest, "unknown document type filter")
		return
	}

	var err error
	if filter.Limit, err = parseQueryInt(r, "limit", 20); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Offset, err = parseQueryInt(r, "offset", 0); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	docs, total, err := handlerInstance.service.DocStore.List(r.Context(), filter)
	if err != nil {
		logRH.Error("List failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "could not list documents")
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentListResponse(docs, total, filter.Limit, filter.Offset))
}

// AddLinkHandler creates an undirected link between two documents.
func AddLinkHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	var requestData api.LinkRequest
	defer closeBody(r.Body)
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil || requestData.TargetDocumentId == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "target_document_id is required")
		return
	}

	sourceId := utils.GetChiURLParam(r, "id")
	if sourceId == requestData.TargetDocumentId {
		WriteErrorResponse(w, http.StatusBadRequest, "cannot link a document to itself")
		return
	}

	err := handlerInstance.service.DocStore.AddLink(r.Context(), sourceId, requestData.TargetDocumentId)
	switch {
	case errors.Is(err, docModel.ErrNotFound):
		WriteErrorResponse(w, http.StatusNotFound, "document not found")
	case errors.Is(err, docModel.ErrConflict):
		WriteErrorResponse(w, http.StatusConflict, "documents are already linked")
	case err != nil:
		logRH.Error("AddLink failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "could not link documents")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// ChatHandler answers a question against the knowledge base synchronously.
func ChatHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", "addr", r.RemoteAddr)
		return
	}

	var requestData api.ChatRequest
	defer closeBody(r.Body)
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		logRH.Warn("Bad Chat Request: ", "error:", err)
		WriteErrorResponse(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if msg := validateChatRequest(requestData, handlerInstance.cfg.MaxContextLimit); msg != "" {
		WriteErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	contextLimit := handlerInstance.cfg.DefaultContextLimit
	if requestData.ContextLimit != nil {
		contextLimit = *requestData.ContextLimit
	}

	result, err := handlerInstance.ragService.Query(r.Context(), rag.QueryRequest{
		Question:     requestData.Query,
		ContextLimit: contextLimit,
		DocType:      requestData.DocType,
	})
	if err != nil {
		logRH.Error("Query failed", "error", err)
		WriteErrorResponse(w, http.StatusBadGateway, "answer generation failed")
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToChatResponse(result))
}

// HealthHandler reports component health. The document store is the only
// critical dependency; a missing index or model still serves degraded answers.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{
		"database":     "ok",
		"vector_index": "ok",
	}
	status := "ok"
	httpCode := http.StatusOK

	if err := handlerInstance.service.DocStore.Ping(r.Context()); err != nil {
		components["database"] = "unavailable"
		status = "unavailable"
		httpCode = http.StatusServiceUnavailable
	}
	if err := handlerInstance.vector.Ping(r.Context()); err != nil {
		components["vector_index"] = "unavailable"
		if status == "ok" {
			status = "degraded"
		}
	}

	writeJsonResponse(w, httpCode, api.HealthResponse{Status: status, Components: components})
}

func closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		logRH.Error("Couldn't close the request body reader :", "err", err)
	}
}
