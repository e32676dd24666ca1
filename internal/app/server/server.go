package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tubegrab/tubegrab/internal/config"
	"github.com/tubegrab/tubegrab/internal/models"
	"github.com/tubegrab/tubegrab/internal/pkg/log"
	"github.com/tubegrab/tubegrab/internal/provider"
	"github.com/tubegrab/tubegrab/internal/service"
)

type downloadRequest struct {
	VideoID         string `json:"videoId"`
	Format          string `json:"format"`
	SelectedQuality string `json:"selectedQuality"`
}

type downloadResponse struct {
	Success             bool                   `json:"success"`
	Title               string                 `json:"title"`
	Thumbnail           string                 `json:"thumbnail"`
	Duration            int64                  `json:"duration"`
	Channel             string                 `json:"channel"`
	DownloadURL         string                 `json:"downloadUrl"`
	Quality             string                 `json:"quality"`
	FileSize            string                 `json:"fileSize,omitempty"`
	Format              string                 `json:"format"`
	AvailableQualities  []models.QualityOption `json:"availableQualities"`
	HasVideoOnlyWarning bool                   `json:"hasVideoOnlyWarning"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Server is the HTTP transport for the resolver: one download endpoint
// plus a liveness probe, CORS-open for browser use.
type Server struct {
	conf *config.Config
	vs   *service.VideoService
}

func NewServer(conf *config.Config, vs *service.VideoService) *Server {
	return &Server{
		conf: conf,
		vs:   vs,
	}
}

func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/download", s.handleDownload)
	mux.HandleFunc("/healthz", s.handleHealth)

	srv := &http.Server{
		Addr:    s.conf.Server.Addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Logger.Infow("server listening", "addr", s.conf.Server.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server exited unexpectedly")
	}

	return nil
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	requestID := uuid.New().String()

	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	if len(req.VideoID) == 0 {
		writeError(w, http.StatusBadRequest, "Video ID is required", "")
		return
	}

	// Full watch links are accepted and reduced to the id; a bare id
	// passes through unchanged.
	videoID, ok := service.ExtractVideoID(req.VideoID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid YouTube URL", "")
		return
	}

	format := models.Format(req.Format)
	if !format.Valid() {
		writeError(w, http.StatusBadRequest, "Unsupported format", "")
		return
	}

	if len(s.conf.Provider.Key) == 0 {
		writeError(w, http.StatusInternalServerError, "API key not configured", "")
		return
	}

	log.Logger.Infow("resolving download",
		"request_id", requestID, "video_id", videoID, "format", req.Format)

	result, err := s.vs.Resolve(r.Context(), videoID, format, req.SelectedQuality)
	if err != nil {
		s.writeResolveError(w, requestID, err)
		return
	}

	writeJSON(w, http.StatusOK, downloadResponse{
		Success:             true,
		Title:               result.Metadata.Title,
		Thumbnail:           result.Metadata.Thumbnail,
		Duration:            result.Metadata.Duration,
		Channel:             result.Metadata.Channel,
		DownloadURL:         result.DownloadURL,
		Quality:             result.Quality,
		FileSize:            result.FileSize,
		Format:              string(result.Format),
		AvailableQualities:  result.AvailableQualities,
		HasVideoOnlyWarning: result.VideoOnlyWarning,
	})
}

// writeResolveError maps one pipeline failure to one HTTP status. No
// retries happen anywhere behind this point.
func (s *Server) writeResolveError(w http.ResponseWriter, requestID string, err error) {
	var upstream *provider.UpstreamError
	if errors.As(err, &upstream) {
		log.Logger.Errorw("upstream error",
			"request_id", requestID, "status", upstream.Status)
		writeError(w, upstream.Status, "Failed to fetch video info", upstream.Body)
		return
	}

	switch {
	case errors.Is(err, service.ErrNoFormats):
		writeError(w, http.StatusNotFound, "No download URL found for the requested format", "")
	case errors.Is(err, service.ErrQualityNotFound):
		writeError(w, http.StatusNotFound, "Requested quality not available", "")
	case errors.Is(err, service.ErrResolutionFailed):
		writeError(w, http.StatusNotFound, "Failed to resolve download URL", "")
	default:
		log.Logger.Errorw("resolve failed", "request_id", requestID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Logger.Errorw("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorResponse{
		Error:   msg,
		Details: details,
	})
}
