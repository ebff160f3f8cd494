package auth

import (
	"net/http"
)

// UserMiddleware resolves the session once per request and stores the
// optional user id in the request context for gates and handlers. It never
// rejects a request on its own.
func (s *Sessions) UserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID, ok := s.UserID(r); ok {
			r = r.WithContext(WithUserID(r.Context(), userID))
		}
		next.ServeHTTP(w, r)
	})
}

// Require turns a gate into middleware. Denied requests are answered by deny
// and never reach next.
func Require(gate Gate, deny func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d := gate(r); !d.Allowed() {
				deny(w, r, d.Err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
