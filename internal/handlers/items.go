package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/petermazzocco/findit/internal/apperr"
	"github.com/petermazzocco/findit/internal/auth"
	"github.com/petermazzocco/findit/internal/service"
	"github.com/petermazzocco/findit/models"
)

// multipartMemory is how much of a multipart body is kept in memory before
// file parts spill to temporary files.
const multipartMemory = 8 << 20

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.items.List(r.Context(), service.ItemQuery{
		Type:     q.Get("type"),
		Category: q.Get("category"),
		Search:   q.Get("search"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{"items": models.PublicItems(items)})
}

func (h *Handler) MyItems(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	items, err := h.items.Mine(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{"items": models.PublicItems(items)})
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	item, err := h.items.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{"item": item.Public()})
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.items.Categories(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{"categories": models.PublicCategories(categories)})
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	fields, img, err := itemInput(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer closeImage(img)

	item, err := h.items.Create(r.Context(), userID, fields, img)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusCreated, map[string]any{
		"message": "Item created successfully",
		"item":    item.Public(),
	})
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	fields, img, err := itemInput(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer closeImage(img)

	item, err := h.items.Update(r.Context(), userID, id, fields, img)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"message": "Item updated successfully",
		"item":    item.Public(),
	})
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.items.Delete(r.Context(), userID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]string{"message": "Item deleted successfully"})
}

// itemInput reads item fields from a multipart form, with an optional
// "image" file part, or from a JSON object.
func itemInput(r *http.Request) (service.ItemFields, *service.Image, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		fields, err := jsonFields(r)
		return fields, nil, err
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, errBodyTooBig
		}
		return nil, nil, apperr.Validation("Invalid form data")
	}
	fields := service.ItemFields{}
	for key, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return fields, nil, nil
	}
	if err != nil {
		return nil, nil, apperr.Validation("Invalid image upload")
	}
	return fields, &service.Image{Reader: file, Filename: header.Filename}, nil
}

// jsonFields flattens a JSON object into textual fields. Numbers keep their
// literal form and null values are treated as absent.
func jsonFields(r *http.Request) (service.ItemFields, error) {
	defer r.Body.Close()
	var raw map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return service.ItemFields{}, nil
		}
		return nil, bodyError(err)
	}

	fields := make(service.ItemFields, len(raw))
	for key, v := range raw {
		switch v := v.(type) {
		case nil:
		case string:
			fields[key] = v
		case json.Number:
			fields[key] = v.String()
		case bool:
			fields[key] = strconv.FormatBool(v)
		default:
			return nil, apperr.Validation(fmt.Sprintf("Invalid value for %s", key))
		}
	}
	return fields, nil
}

func closeImage(img *service.Image) {
	if img == nil {
		return
	}
	if c, ok := img.Reader.(io.Closer); ok {
		c.Close()
	}
}
