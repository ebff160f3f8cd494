package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/petermazzocco/findit/internal/apperr"
	"github.com/petermazzocco/findit/internal/upload"
)

// GetImage streams a stored item image. Only names the upload validator
// could have generated are looked up.
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if !upload.IsStoredName(name) {
		h.writeError(w, r, errNotFound)
		return
	}

	rc, err := h.images.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, upload.ErrNotExist) {
			h.writeError(w, r, errNotFound)
			return
		}
		h.writeError(w, r, apperr.Internal("Failed to read image", err))
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, rc); err != nil {
		h.log.WithError(err).WithField("image", name).Warn("streaming image")
	}
}
