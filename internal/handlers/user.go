package handlers

import (
	"net/http"

	"github.com/markbates/goth/gothic"
	"github.com/petermazzocco/findit/internal/apperr"
	"github.com/petermazzocco/findit/internal/auth"
	"github.com/petermazzocco/findit/internal/service"
	"github.com/petermazzocco/findit/models"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	u, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.sessions.Login(w, r, u.ID); err != nil {
		h.writeError(w, r, apperr.Internal("Failed to start session", err))
		return
	}

	h.jsonResponse(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    u.Public(),
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	u, err := h.accounts.Login(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.startSession(w, r, u)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, u *models.User) {
	if err := h.sessions.Login(w, r, u.ID); err != nil {
		h.writeError(w, r, apperr.Internal("Failed to start session", err))
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    u.Public(),
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		h.writeError(w, r, apperr.Internal("Failed to log out", err))
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.UserIDFromContext(r.Context())
	u, err := h.accounts.CurrentUser(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{"user": u.Public()})
}

func (h *Handler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.UserIDFromContext(r.Context())
	u, err := h.accounts.CheckAuth(r.Context(), id, ok)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if u == nil {
		h.jsonResponse(w, http.StatusOK, map[string]bool{"authenticated": false})
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          u.Public(),
	})
}

// BeginOAuth redirects to the provider's consent page.
func (h *Handler) BeginOAuth(w http.ResponseWriter, r *http.Request) {
	gothic.BeginAuthHandler(w, r)
}

// OAuthCallback completes the provider flow and signs the user in, creating
// an account on first use.
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	gu, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		h.log.WithError(err).Warn("oauth callback failed")
		h.writeError(w, r, apperr.New(apperr.KindAuth, "OAuth sign-in failed"))
		return
	}

	u, err := h.accounts.OAuthUser(r.Context(), gu)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.startSession(w, r, u)
}
