package auth

import (
	"context"
	"net/http"

	"github.com/petermazzocco/findit/internal/apperr"
	"github.com/petermazzocco/findit/models"
)

// Decision is the outcome of a gate: either allowed, or denied with the
// error to report.
type Decision struct {
	Err error
}

func Allow() Decision { return Decision{} }

func Deny(err error) Decision { return Decision{Err: err} }

func (d Decision) Allowed() bool { return d.Err == nil }

// Gate decides whether a request may reach a protected handler.
type Gate func(r *http.Request) Decision

// UserLookup resolves users from storage.
type UserLookup interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
}

// Authenticated allows requests that carry a session user id.
func Authenticated() Gate {
	return func(r *http.Request) Decision {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			return Deny(apperr.ErrAuthRequired)
		}
		return Allow()
	}
}

// Admin allows requests from users whose stored is_admin flag is set. The
// user is looked up on every request so revoked rights apply immediately.
func Admin(users UserLookup) Gate {
	return func(r *http.Request) Decision {
		id, ok := UserIDFromContext(r.Context())
		if !ok {
			return Deny(apperr.ErrAuthRequired)
		}
		u, err := users.GetUser(r.Context(), id)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return Deny(apperr.ErrAdminOnly)
			}
			return Deny(apperr.Internal("Failed to check permissions", err))
		}
		if !u.IsAdmin {
			return Deny(apperr.ErrAdminOnly)
		}
		return Allow()
	}
}
