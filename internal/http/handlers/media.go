package handlers

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/sentinel-intel/sentinel/internal/analysis"
	"github.com/sentinel-intel/sentinel/internal/render"
	"github.com/sentinel-intel/sentinel/pkg/logging"
)

// maxUploadBytes caps media uploads. Twilio MMS stays well under this.
const maxUploadBytes = 16 << 20

// MediaStore persists an upload and returns the key workers use to fetch it.
type MediaStore interface {
	Put(ctx context.Context, data []byte, kind analysis.Kind) (string, error)
	Enabled() bool
}

// MediaHandler serves image/audio/video checks as multipart uploads. The
// payload is parked in the media store so only its key rides the queue.
type MediaHandler struct {
	analyzer Analyzer
	store    MediaStore
	logger   *logging.Logger
}

func NewMediaHandler(analyzer Analyzer, store MediaStore, logger *logging.Logger) *MediaHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &MediaHandler{analyzer: analyzer, store: store, logger: logger}
}

func (h *MediaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.store == nil || !h.store.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "media analysis is not enabled"})
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart body"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing file field"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil || len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "empty upload"})
		return
	}

	language := r.FormValue("language")
	kind := mediaKind(r.FormValue("kind"), header)
	if !kind.IsMedia() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unsupported media kind"})
		return
	}

	key, err := h.store.Put(r.Context(), data, kind)
	if err != nil {
		h.logger.Error("media store put failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: render.GenericError(language)})
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), analysis.Request{
		Identity: r.FormValue("session_id"),
		KindHint: string(kind),
		Language: language,
		MediaKey: key,
	})
	if err != nil {
		h.logger.Error("media analysis failed", "error", err, "s3_key", key)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: render.GenericError(language)})
		return
	}

	writeJSON(w, http.StatusOK, render.Web(result))
}

// mediaKind resolves the declared kind, falling back to the part's
// Content-Type. Unknown types default to image, the most common upload.
func mediaKind(declared string, header *multipart.FileHeader) analysis.Kind {
	switch declared {
	case "image", "audio", "video":
		return analysis.Kind(declared)
	}
	ct := header.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "audio/"):
		return analysis.KindAudio
	case strings.HasPrefix(ct, "video/"):
		return analysis.KindVideo
	default:
		return analysis.KindImage
	}
}
