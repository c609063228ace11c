package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"docqa-gateway/internal/ingest"
	"docqa-gateway/pkg/logging"
)

// Documents is satisfied by *ingest.Indexer.
type Documents interface {
	Ingest(ctx context.Context, scope, name string, data []byte) (ingest.Result, error)
	Delete(ctx context.Context, scope string) (int, error)
}

// DocumentHandler serves document upload and deletion. Both invalidate the
// cached answers of the document's scope.
type DocumentHandler struct {
	Docs Documents
	// MaxMemory bounds the multipart form kept in memory.
	MaxMemory int64
}

func NewDocumentHandler(docs Documents) *DocumentHandler {
	return &DocumentHandler{Docs: docs, MaxMemory: 32 << 20}
}

// Upload handles POST /v1/documents (multipart "file", optional "document_scope").
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)

	if err := r.ParseMultipartForm(h.MaxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request_too_large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_multipart")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Warn("upload_read_failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, "unreadable_file")
		return
	}

	scope := strings.TrimSpace(r.FormValue("document_scope"))
	res, err := h.Docs.Ingest(ctx, scope, header.Filename, data)
	switch {
	case err == nil:
	case errors.Is(err, ingest.ErrUnsupportedType):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_document_type")
		return
	case errors.Is(err, ingest.ErrNoText):
		writeError(w, http.StatusUnprocessableEntity, "no_extractable_text")
		return
	default:
		logger.Error("ingest_failed",
			zap.String("name", header.Filename),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "ingest_failed")
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

// Delete handles DELETE /v1/documents/{scope}.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope := strings.TrimSpace(chi.URLParam(r, "scope"))
	if scope == "" {
		writeError(w, http.StatusBadRequest, "missing_scope")
		return
	}

	n, err := h.Docs.Delete(ctx, scope)
	if err != nil {
		logging.L(ctx).Error("delete_failed", zap.String("document_scope", scope), zap.Error(err))
		writeError(w, http.StatusBadGateway, "delete_failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document_scope": scope,
		"invalidated":    n,
	})
}
