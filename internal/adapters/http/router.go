package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kirillkom/content-filter/internal/config"
	"github.com/kirillkom/content-filter/internal/core/domain"
	"github.com/kirillkom/content-filter/internal/core/ports"
	"github.com/kirillkom/content-filter/internal/observability/metrics"
)

const (
	statusAccepted   = "Accepted"
	statusError      = "Error"
	statusCompleted  = "Completed"
	statusProcessing = "Processing"
	statusNotFound   = "NotFound"
	statusHealthy    = "Healthy"
)

type Router struct {
	cfg      config.Config
	uploader ports.ChunkUploader
	results  ports.ResultReader

	httpMetrics    *metrics.HTTPServerMetrics
	metricsHandler http.Handler
}

type RouterOption func(*Router)

// WithMetrics instruments every request and serves handler on /metrics.
func WithMetrics(m *metrics.HTTPServerMetrics, handler http.Handler) RouterOption {
	return func(rt *Router) {
		rt.httpMetrics = m
		rt.metricsHandler = handler
	}
}

func NewRouter(
	cfg config.Config,
	uploader ports.ChunkUploader,
	results ports.ResultReader,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:      cfg,
		uploader: uploader,
		results:  results,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

type uploadRequest struct {
	UploadID    string `json:"uploadId"`
	ChunkIndex  int    `json:"chunkIndex"`
	Data        string `json:"data"`
	IsLastChunk bool   `json:"isLastChunk"`
}

type statusResponse struct {
	UploadID string `json:"uploadId,omitempty"`
	Status   string `json:"status"`
	Data     string `json:"data,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/upload", rt.uploadChunk)
	api.HandleFunc("GET /api/result/{uploadId}", rt.getResult)

	var apiHandler http.Handler = api
	apiHandler = bodyLimitMiddleware(apiHandler, rt.cfg.APIMaxBodyBytes)
	apiHandler = rateLimitMiddleware(apiHandler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.onRateLimited)
	apiHandler = backpressureMiddleware(apiHandler, rt.cfg.APIBackpressureMaxInFlight, rt.cfg.APIBackpressureWaitTimeout)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", rt.health)
	if rt.metricsHandler != nil {
		mux.Handle("GET /metrics", rt.metricsHandler)
	}
	mux.Handle("/api/", apiHandler)

	var handler http.Handler = mux
	if rt.httpMetrics != nil {
		handler = rt.httpMetrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: statusHealthy})
}

func (rt *Router) uploadChunk(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			rt.writeError(w, r, err)
			return
		}
		rt.writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "decode upload", fmt.Errorf("invalid json: %w", err)))
		return
	}

	uploadID, err := parseUploadID(req.UploadID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	_, err = rt.uploader.UploadChunk(r.Context(), domain.ChunkUpload{
		DocumentID:  uploadID,
		ChunkIndex:  req.ChunkIndex,
		Data:        req.Data,
		IsLastChunk: req.IsLastChunk,
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, statusResponse{Status: statusAccepted})
}

func (rt *Router) getResult(w http.ResponseWriter, r *http.Request) {
	uploadID, err := parseUploadID(r.PathValue("uploadId"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	res, err := rt.results.GetResult(r.Context(), uploadID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	switch res.Status {
	case domain.StatusCompleted:
		writeJSON(w, http.StatusOK, statusResponse{UploadID: uploadID, Status: statusCompleted, Data: res.Data})
	case domain.StatusPending:
		writeJSON(w, http.StatusAccepted, statusResponse{UploadID: uploadID, Status: statusProcessing})
	default:
		writeJSON(w, http.StatusNotFound, statusResponse{UploadID: uploadID, Status: statusNotFound})
	}
}

func (rt *Router) onRateLimited() {
	if rt.httpMetrics != nil {
		rt.httpMetrics.RecordRateLimited()
	}
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		if status == http.StatusInternalServerError {
			message = "internal error"
		}
	}
	writeJSON(w, status, statusResponse{Status: statusError, Message: message})
}

// parseUploadID accepts any textual UUID form and returns it canonicalized.
func parseUploadID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "parse upload id", errors.New("uploadId is required"))
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "parse upload id", fmt.Errorf("malformed uploadId %q", raw))
	}
	return id.String(), nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
