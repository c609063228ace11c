package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"docqa-gateway/internal/pipeline"
	"docqa-gateway/internal/response"
	"docqa-gateway/pkg/logging"
)

// Answerer is satisfied by *pipeline.Service.
type Answerer interface {
	Answer(ctx context.Context, req pipeline.Request) (response.AnswerResult, error)
}

// AskHandler serves POST /v1/ask.
type AskHandler struct {
	Pipeline Answerer
}

func NewAskHandler(p Answerer) *AskHandler {
	return &AskHandler{Pipeline: p}
}

// Ask answers one question. Pipeline faults never surface here: the body is
// always the {answer, chart, table} contract unless the request itself is bad.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.L(ctx)
	start := time.Now()

	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request_too_large")
			return
		}
		logger.Warn("invalid_request", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	res, err := h.Pipeline.Answer(ctx, req)
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrEmptyQuestion):
		writeError(w, http.StatusBadRequest, "empty_question")
		return
	case errors.Is(err, pipeline.ErrQuestionTooLong):
		writeError(w, http.StatusBadRequest, "question_too_long")
		return
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "gateway_timeout")
		return
	case errors.Is(err, context.Canceled):
		// client went away
		return
	default:
		logger.Error("ask_failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_server_error")
		return
	}

	logger.Info("ask_completed",
		zap.String("document_scope", req.DocumentScope),
		zap.Bool("has_chart", res.Chart != nil),
		zap.Bool("has_table", res.Table != nil),
		zap.Duration("total_latency", time.Since(start)),
	)
	writeJSON(w, http.StatusOK, res)
}
