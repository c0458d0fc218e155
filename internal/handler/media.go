package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/homestead/homestead/internal/auth"
	"github.com/homestead/homestead/internal/handler/dto"
	"github.com/homestead/homestead/internal/media"
	"github.com/homestead/homestead/internal/middleware"
)

// contentTypeExt maps sniffed image types to receipt extensions.
var contentTypeExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// MediaHandler manages recipe images and cospend receipts on disk.
type MediaHandler struct {
	store  *media.Store
	logger *slog.Logger
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(store *media.Store, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		store:  store,
		logger: logger,
	}
}

func (h *MediaHandler) validName(w http.ResponseWriter, name string) bool {
	if err := middleware.ValidateMediaName(name); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_IMAGE_NAME", err.Error())
		return false
	}
	return true
}

// Add handles POST /api/rezepte/img/add.
func (h *MediaHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req dto.ImageAddRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if !h.validName(w, req.Name) {
		return
	}

	if err := h.store.SaveBase64(req.Name, req.Data); err != nil {
		h.handleMediaError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.MessageResponse{Message: "Added image successfully"})
}

// Move handles POST /api/rezepte/img/mv.
func (h *MediaHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req dto.ImageMoveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if !h.validName(w, req.Old) || !h.validName(w, req.New) {
		return
	}

	if err := h.store.Move(req.Old, req.New); err != nil {
		h.handleMediaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Moved image successfully"})
}

// Delete handles POST /api/rezepte/img/delete.
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req dto.ImageDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if !h.validName(w, req.Name) {
		return
	}

	if err := h.store.Delete(req.Name); err != nil {
		h.handleMediaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Deleted image successfully"})
}

// UploadReceipt handles POST /api/cospend/upload. The extension comes from
// filename when given, otherwise from the sniffed content type.
func (h *MediaHandler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	var req dto.UploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	raw, err := media.DecodeBase64(req.Data)
	if err != nil {
		h.handleMediaError(w, err)
		return
	}

	var ext string
	if req.Filename != "" {
		if !h.validName(w, path.Base(req.Filename)) {
			return
		}
		ext = strings.ToLower(path.Ext(req.Filename))
	} else {
		ext = contentTypeExt[http.DetectContentType(raw)]
		if ext == "" {
			writeError(w, http.StatusBadRequest, "INVALID_IMAGE_TYPE", middleware.ErrMediaTypeForbidden.Error())
			return
		}
	}

	stored, err := h.store.SaveReceipt(ext, raw)
	if err != nil {
		h.handleMediaError(w, err)
		return
	}

	h.logger.Info("receipt_uploaded",
		"path", stored,
		"user", auth.UsernameFromContext(r.Context()),
	)
	writeJSON(w, http.StatusCreated, dto.UploadResponse{Path: stored})
}

// Files serves one media subdirectory read-only below prefix.
func (h *MediaHandler) Files(prefix, sub string) http.Handler {
	fs := http.FileServer(http.Dir(filepath.Join(h.store.Root(), sub)))
	return http.StripPrefix(prefix, noDirListing(fs))
}

// noDirListing answers 404 for directory paths.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		next.ServeHTTP(w, r)
	})
}

// handleMediaError maps media errors to HTTP responses.
func (h *MediaHandler) handleMediaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, media.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "INVALID_IMAGE_NAME", "Invalid image name")
	case errors.Is(err, media.ErrInvalidData), errors.Is(err, media.ErrEmptyData):
		writeError(w, http.StatusBadRequest, "INVALID_IMAGE_DATA", err.Error())
	case errors.Is(err, media.ErrNotFound):
		writeError(w, http.StatusNotFound, "IMAGE_NOT_FOUND", "Image not found")
	case errors.Is(err, media.ErrExists):
		writeError(w, http.StatusConflict, "IMAGE_EXISTS", "An image with this name already exists")
	default:
		h.logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
