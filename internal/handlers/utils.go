package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"unicode/utf8"

	"github.com/capturelabs/capture-engine/internal/adapter"
	"github.com/capturelabs/capture-engine/internal/api"
	"github.com/capturelabs/capture-engine/internal/config"
	"github.com/capturelabs/capture-engine/internal/domain/docModel"
)

const (
	maxTitleLen     = 255
	maxQueryLen     = 1000
	maxTagCount     = 20
	maxTagLen       = 100
	maxSourceURLLen = 2048
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response: %v", err)
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, message string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(message, httpCode))
}

func validateContext(ctx context.Context) bool {
	if trace, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok {
		logRH.With("traceId:", trace)
	}
	if ctx.Err() != nil {
		logRH.Warn("context error", "err", ctx.Err())
		return false
	}

	select {
	case <-ctx.Done():
		logRH.Warn("context cancelled")
		return false
	default:
		return true

	}
}

// validateDocumentCreate returns an empty string when the request is valid.
func validateDocumentCreate(req api.DocumentCreateRequest, maxContentSize int) string {
	if !docModel.ValidType(docModel.DocumentType(req.Type)) {
		return fmt.Sprintf("unknown document type %q", req.Type)
	}
	if n := utf8.RuneCountInString(req.Title); n == 0 || n > maxTitleLen {
		return fmt.Sprintf("title must be 1-%d characters", maxTitleLen)
	}
	if len(req.Content) == 0 {
		return "content is required"
	}
	if len(req.Content) > maxContentSize {
		return fmt.Sprintf("content exceeds the %d byte limit", maxContentSize)
	}
	if req.SourceURL != "" {
		if msg := validateSourceURL(req.SourceURL); msg != "" {
			return msg
		}
	}
	if len(req.Tags) > maxTagCount {
		return fmt.Sprintf("at most %d tags allowed", maxTagCount)
	}
	for _, tag := range req.Tags {
		if n := utf8.RuneCountInString(tag); n == 0 || n > maxTagLen {
			return fmt.Sprintf("tags must be 1-%d characters", maxTagLen)
		}
	}
	return ""
}

func validateSourceURL(raw string) string {
	if len(raw) > maxSourceURLLen {
		return fmt.Sprintf("source_url exceeds %d characters", maxSourceURLLen)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "source_url must be a valid http(s) URL"
	}
	return ""
}

func validateChatRequest(req api.ChatRequest, maxContextLimit int) string {
	if n := utf8.RuneCountInString(req.Query); n == 0 || n > maxQueryLen {
		return fmt.Sprintf("query must be 1-%d characters", maxQueryLen)
	}
	if req.ContextLimit != nil && (*req.ContextLimit < 0 || *req.ContextLimit > maxContextLimit) {
		return fmt.Sprintf("context_limit must be 0-%d", maxContextLimit)
	}
	if req.DocType != "" && !docModel.ValidType(docModel.DocumentType(req.DocType)) {
		return fmt.Sprintf("unknown doc_type %q", req.DocType)
	}
	return ""
}

func parseQueryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}
