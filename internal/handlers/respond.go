package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/petermazzocco/findit/internal/apperr"
	"github.com/sirupsen/logrus"
)

var (
	errNotFound   = apperr.NotFound("Resource not found")
	errBadJSON    = apperr.Validation("Invalid JSON body")
	errBodyTooBig = apperr.TooLarge("Request body is too large")
)

// jsonResponse writes a JSON response with the given status code.
func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			h.log.WithError(err).Warn("encoding response")
		}
	}
}

func (h *Handler) jsonError(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}

// writeError is the single place errors become responses. Internal errors
// are logged with their cause and answered with a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		h.log.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).Error("request failed")
	}
	h.jsonError(w, kind.Status(), apperr.PublicMessage(err))
}

// bodyError classifies failures while reading a request body.
func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errBodyTooBig
	}
	return errBadJSON
}

// decodeJSON decodes the request body into target. An empty body leaves
// target untouched.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return bodyError(err)
	}
	return nil
}

// pathID parses the numeric {id} route parameter. Ids that do not fit are
// reported as not found.
func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errNotFound
	}
	return uint(id), nil
}
