package handlers

import (
	"net/http"

	"github.com/petermazzocco/findit/internal/auth"
	"github.com/petermazzocco/findit/internal/service"
	"github.com/petermazzocco/findit/models"
)

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.moderation.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{"users": models.PublicUsers(users)})
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in service.UserUpdate
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	u, err := h.moderation.UpdateUser(r.Context(), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"message": "User updated successfully",
		"user":    u.Public(),
	})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actorID, _ := auth.UserIDFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.moderation.DeleteUser(r.Context(), actorID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

func (h *Handler) ListAllItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.moderation.ListAllItems(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{"items": models.PublicItems(items)})
}
