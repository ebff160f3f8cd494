package auth

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"github.com/petermazzocco/findit/internal/config"
)

var errNoProvider = errors.New("no oauth provider selected")

var usernameChars = regexp.MustCompile(`[^a-z0-9_]+`)

// SetupOAuth registers the configured providers with goth and points gothic
// at the application's session store. It returns the enabled provider names.
func SetupOAuth(cfg config.Config, store sessions.Store) []string {
	if !cfg.OAuthEnabled() {
		return nil
	}
	goth.UseProviders(google.New(cfg.GoogleKey, cfg.GoogleSecret, cfg.OAuthCallbackURL, "email", "profile"))
	gothic.Store = store
	gothic.GetProviderName = func(r *http.Request) (string, error) {
		if p := chi.URLParam(r, "provider"); p != "" {
			return p, nil
		}
		return "", errNoProvider
	}
	return []string{"google"}
}

// BaseUsername derives a username candidate from an OAuth identity. The
// caller appends a suffix when the candidate is taken.
func BaseUsername(u goth.User) string {
	candidates := []string{u.NickName, strings.SplitN(u.Email, "@", 2)[0], u.Name}
	for _, c := range candidates {
		name := strings.Trim(usernameChars.ReplaceAllString(strings.ToLower(c), "_"), "_")
		if len(name) > 70 {
			name = name[:70]
		}
		if len(name) >= 3 {
			return name
		}
	}
	return "user"
}
