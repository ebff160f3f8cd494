package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/petermazzocco/findit/internal/auth"
)

type RouterOptions struct {
	CORSOrigins []string
	// AuthRateLimit is the number of register/login requests allowed per
	// client IP and minute. Zero disables limiting.
	AuthRateLimit int
	// OAuthEnabled mounts the provider sign-in routes.
	OAuthEnabled bool
}

// NewRouter builds the HTTP API.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: h.log, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestSize(h.maxBody))
	r.Use(h.sessions.UserMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, errNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.jsonError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		h.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	requireUser := auth.Require(auth.Authenticated(), h.writeError)
	requireAdmin := auth.Require(auth.Admin(h.users), h.writeError)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if opts.AuthRateLimit > 0 {
					r.Use(httprate.Limit(
						opts.AuthRateLimit,
						1*time.Minute,
						httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
						httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
							h.jsonError(w, http.StatusTooManyRequests, "Too many requests, try again later")
						}),
					))
				}
				r.Post("/register", h.Register)
				r.Post("/login", h.Login)
			})
			r.Post("/logout", h.Logout)
			r.With(requireUser).Get("/current-user", h.CurrentUser)
			r.Get("/check-auth", h.CheckAuth)

			if opts.OAuthEnabled {
				r.Get("/oauth/{provider}", h.BeginOAuth)
				r.Get("/oauth/{provider}/callback", h.OAuthCallback)
			}
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.ListItems)
			r.Get("/categories", h.Categories)
			r.Get("/image/{filename}", h.GetImage)
			r.Get("/{id:[0-9]+}", h.GetItem)

			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Get("/mine", h.MyItems)
				r.Post("/", h.CreateItem)
				r.Put("/{id:[0-9]+}", h.UpdateItem)
				r.Delete("/{id:[0-9]+}", h.DeleteItem)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Get("/users", h.ListUsers)
			r.Put("/users/{id:[0-9]+}", h.UpdateUser)
			r.Delete("/users/{id:[0-9]+}", h.DeleteUser)
			r.Get("/items", h.ListAllItems)
		})
	})

	return r
}
