// Package handler wires the verification pipeline to HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"permitgate/internal/verify"
	"permitgate/internal/verify/store"
)

// maxUploadBytes caps the multipart form; phone photos of permits run a few
// megabytes at most.
const maxUploadBytes = 16 << 20

// Service defines the verification operations the handler needs.
type Service interface {
	Verify(ctx context.Context, req verify.Request) (*verify.Result, error)
	Capabilities() verify.Capabilities
}

// Lister reads back a user's audit trail.
type Lister interface {
	ListByUser(ctx context.Context, userID string) ([]store.Record, error)
}

// Handler exposes permit verification over HTTP.
type Handler struct {
	service   Service
	records   Lister
	uploadDir string
	logger    *slog.Logger
}

// New constructs a verification handler with its dependencies.
func New(service Service, records Lister, uploadDir string, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		records:   records,
		uploadDir: uploadDir,
		logger:    logger,
	}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verify", h.HandleVerify)
	r.Get("/verifications/{userID}", h.HandleListVerifications)
	r.Get("/capabilities", h.HandleCapabilities)
}

// HandleVerify handles POST /verify: a multipart form with the permit image
// and the applicant-entered names.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	userID := strings.TrimSpace(r.FormValue("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	path, err := h.saveUpload(file, header.Filename)
	if err != nil {
		h.logger.ErrorContext(ctx, "upload save failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not store uploaded image")
		return
	}

	req := verify.Request{
		UserID:       userID,
		FilePath:     path,
		ImageName:    header.Filename,
		BusinessName: strings.TrimSpace(r.FormValue("business_name")),
		OwnerName:    strings.TrimSpace(r.FormValue("owner_name")),
		UserEmail:    strings.TrimSpace(r.FormValue("user_email")),
		UserName:     strings.TrimSpace(r.FormValue("user_name")),
		FarmName:     strings.TrimSpace(r.FormValue("farm_name")),
	}

	result, err := h.service.Verify(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.logger.ErrorContext(ctx, "verification failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	h.logger.InfoContext(ctx, "verification served",
		"user_id", userID,
		"valid", result.Valid,
		"confidence", result.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	writeJSON(w, http.StatusOK, result)
}

// HandleListVerifications handles GET /verifications/{userID}.
func (h *Handler) HandleListVerifications(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	records, err := h.records.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list verifications failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not list verifications")
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"records": records,
	})
}

// HandleCapabilities handles GET /capabilities.
func (h *Handler) HandleCapabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Capabilities())
}

// saveUpload copies the uploaded image into the upload directory under a
// fresh name; user-supplied filenames never touch the filesystem.
func (h *Handler) saveUpload(file io.Reader, original string) (string, error) {
	ext := strings.ToLower(filepath.Ext(original))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff":
	default:
		ext = ".img"
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(h.uploadDir, uuid.NewString()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return path, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
