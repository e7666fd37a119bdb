package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sentinel-intel/sentinel/internal/analysis"
	"github.com/sentinel-intel/sentinel/internal/render"
	"github.com/sentinel-intel/sentinel/pkg/logging"
)

// Analyzer is the entry point the HTTP layer calls into. Satisfied by both
// the in-process orchestrator and the queue-backed dispatcher.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// AnalyzeRequest is the JSON body accepted by POST /api/analyze.
type AnalyzeRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Language  string `json:"language,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// AnalyzeHandler serves text/URL/phone checks over JSON.
type AnalyzeHandler struct {
	analyzer Analyzer
	logger   *logging.Logger
}

func NewAnalyzeHandler(analyzer Analyzer, logger *logging.Logger) *AnalyzeHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AnalyzeHandler{analyzer: analyzer, logger: logger}
}

func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: render.EmptyPrompt(req.Language)})
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), analysis.Request{
		Identity: req.SessionID,
		Raw:      req.Message,
		Language: req.Language,
	})
	if err != nil {
		if errors.Is(err, analysis.ErrEmptyInput) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: render.EmptyPrompt(req.Language)})
			return
		}
		h.logger.Error("analysis request failed", "error", err, "session_id", req.SessionID)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: render.GenericError(req.Language)})
		return
	}

	writeJSON(w, http.StatusOK, render.Web(result))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
