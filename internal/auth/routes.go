package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sadoj/intel-backend/internal/middleware"
)

func SetupRoutes(h *Handler, sessions middleware.SessionFetcher, roles middleware.RoleLookup, limiter *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()

	r.With(limiter.Middleware).Post("/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(sessions))
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
		r.Post("/password", h.UpdatePassword)
		r.Get("/edit-mode", h.EditMode)
		r.Post("/edit-mode/toggle", h.ToggleEditMode)

		r.With(middleware.AdminMiddleware(roles)).Post("/register", h.Register)
	})

	return r
}
