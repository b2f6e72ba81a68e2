// Package api holds the JSON handlers of the library read API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/drallgood/mediatrack/internal/ingest"
	"github.com/drallgood/mediatrack/internal/library"
	"github.com/drallgood/mediatrack/internal/logger"
	"github.com/drallgood/mediatrack/internal/models"
	"github.com/drallgood/mediatrack/internal/source"
)

// Library is the read side the handlers serve
type Library interface {
	SeriesProgress(ctx context.Context) ([]models.SeriesProgress, error)
	SeriesDetail(ctx context.Context, name string) ([]models.AudiobookRecord, error)
	ListeningStats(ctx context.Context) (models.ListeningStats, error)
	MarkListened(ctx context.Context, id uint, listened bool) (models.AudiobookRecord, error)
	RecentRuns(ctx context.Context, limit int) ([]models.ImportRun, error)
}

// Importer runs a library import. It returns ingest.ErrImportInProgress
// while another import is running.
type Importer interface {
	Import(ctx context.Context, path string) (*models.ImportSummary, error)
}

var errImportPathNotAllowed = errors.New("import path is outside the configured import directory")

// ImportSource limits the files POST /api/import may read
type ImportSource struct {
	// DefaultPath is imported when a request names no file
	DefaultPath string
	// Dir lets requests name any file below it. Relative request paths are
	// resolved against it. Without Dir only DefaultPath can be imported.
	Dir string
}

// resolve maps a requested path onto a file the server is allowed to import
func (s ImportSource) resolve(requested string) (string, error) {
	if requested == "" {
		return s.DefaultPath, nil
	}
	if s.DefaultPath != "" && samePath(requested, s.DefaultPath) {
		return s.DefaultPath, nil
	}
	if s.Dir == "" {
		return "", errImportPathNotAllowed
	}

	dir, err := filepath.Abs(s.Dir)
	if err != nil {
		return "", errImportPathNotAllowed
	}
	candidate := requested
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(dir, candidate)
	}
	rel, err := filepath.Rel(dir, filepath.Clean(candidate))
	if err != nil || rel == "." || !filepath.IsLocal(rel) {
		return "", errImportPathNotAllowed
	}
	return filepath.Join(dir, rel), nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// Handler provides HTTP handlers for the library API
type Handler struct {
	library  Library
	importer Importer
	source   ImportSource
	logger   *logger.Logger
}

// NewHandler creates a new API handler. importer may be nil, which disables
// POST /api/import.
func NewHandler(lib Library, importer Importer, src ImportSource, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		library:  lib,
		importer: importer,
		source:   src,
		logger:   log,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ImportRequest is the optional body of POST /api/import
type ImportRequest struct {
	Path string `json:"path"`
}

// ListenedRequest is the optional body of POST /api/books/{id}/listened.
// A missing body marks the book as listened.
type ListenedRequest struct {
	Listened *bool `json:"listened"`
}

// writeJSONResponse writes a JSON response
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode JSON response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// writeErrorResponse writes an error response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	h.writeJSONResponse(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}

// writeSuccessResponse writes a success response
func (h *Handler) writeSuccessResponse(w http.ResponseWriter, data interface{}) {
	h.writeJSONResponse(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

func (h *Handler) requestLogger(r *http.Request) *logger.Logger {
	return logger.FromContext(r.Context(), h.logger)
}

// GetSeries handles GET /api/series
func (h *Handler) GetSeries(w http.ResponseWriter, r *http.Request) {
	progress, err := h.library.SeriesProgress(r.Context())
	if err != nil {
		h.requestLogger(r).Error("Failed to get series progress", map[string]interface{}{
			"error": err.Error(),
		})
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get series progress")
		return
	}

	h.writeSuccessResponse(w, progress)
}

// GetSeriesDetail handles GET /api/series/{name}
func (h *Handler) GetSeriesDetail(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "Series name is required")
		return
	}

	books, err := h.library.SeriesDetail(r.Context(), name)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			h.writeErrorResponse(w, http.StatusNotFound, "Series not found")
			return
		}
		h.requestLogger(r).Error("Failed to get series", map[string]interface{}{
			"series": name,
			"error":  err.Error(),
		})
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get series")
		return
	}

	h.writeSuccessResponse(w, books)
}

// GetStats handles GET /api/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.library.ListeningStats(r.Context())
	if err != nil {
		h.requestLogger(r).Error("Failed to get listening stats", map[string]interface{}{
			"error": err.Error(),
		})
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get listening stats")
		return
	}

	h.writeSuccessResponse(w, stats)
}

// GetRuns handles GET /api/runs?limit=n
func (h *Handler) GetRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.library.RecentRuns(r.Context(), limit)
	if err != nil {
		h.requestLogger(r).Error("Failed to list import runs", map[string]interface{}{
			"error": err.Error(),
		})
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list import runs")
		return
	}
	if runs == nil {
		runs = []models.ImportRun{}
	}

	h.writeSuccessResponse(w, runs)
}

// MarkListened handles POST /api/books/{id}/listened
func (h *Handler) MarkListened(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid book ID")
		return
	}

	var req ListenedRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	listened := true
	if req.Listened != nil {
		listened = *req.Listened
	}

	rec, err := h.library.MarkListened(r.Context(), uint(id), listened)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			h.writeErrorResponse(w, http.StatusNotFound, "Book not found")
			return
		}
		h.requestLogger(r).Error("Failed to update listened flag", map[string]interface{}{
			"id":    id,
			"error": err.Error(),
		})
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to update book")
		return
	}

	h.writeSuccessResponse(w, rec)
}

// StartImport handles POST /api/import. Imports run synchronously and one at
// a time; a request made while any import is running gets 409. A body path
// must be the configured default or lie inside the configured directory.
func (h *Handler) StartImport(w http.ResponseWriter, r *http.Request) {
	if h.importer == nil {
		h.writeErrorResponse(w, http.StatusNotImplemented, "Import is not enabled")
		return
	}

	var req ImportRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	path, err := h.source.resolve(strings.TrimSpace(req.Path))
	if err != nil {
		h.requestLogger(r).Warn("Rejected import path", map[string]interface{}{
			"path": req.Path,
		})
		h.writeErrorResponse(w, http.StatusBadRequest, "Import path is not allowed")
		return
	}
	if path == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "No import path given and none configured")
		return
	}

	summary, err := h.importer.Import(r.Context(), path)
	if err != nil {
		if errors.Is(err, ingest.ErrImportInProgress) {
			h.writeErrorResponse(w, http.StatusConflict, "An import is already running")
			return
		}
		status := http.StatusInternalServerError
		if errors.Is(err, os.ErrNotExist) ||
			errors.Is(err, source.ErrUnsupportedFormat) ||
			errors.Is(err, source.ErrNoSheet) {
			status = http.StatusBadRequest
		}
		h.writeErrorResponse(w, status, err.Error())
		return
	}

	h.writeSuccessResponse(w, summary)
}

func decodeOptionalJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
