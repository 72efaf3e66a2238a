package intelligence

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sadoj/intel-backend/internal/middleware"
)

func SetupRoutes(h *Handler, sessions middleware.SessionFetcher) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.StripSlashes)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(sessions))

		r.Get("/dashboard", h.Dashboard)
		r.Get("/gangs", h.ListGangs)
		r.Get("/gangs/{id}", h.GetGang)
		r.Get("/territories", h.Territories)
		r.Get("/members", h.ListMembers)
		r.Get("/members/{id}", h.GetMember)
		r.Get("/incidents", h.ListIncidents)
		r.Get("/incidents/{id}", h.GetIncident)
		r.Get("/relationships", h.ListRelationships)
		r.Get("/relationships/{id}", h.GetRelationship)
		r.Get("/cases", h.ListCases)
		r.Get("/cases/{id}", h.GetCase)

		// Mutations check the session's edit mode in the service call.
		r.Post("/gang/create", h.CreateGang())
		r.Post("/gang/{id}/update", h.UpdateGang())
		r.Post("/gang/{id}/delete", h.DeleteGang())

		r.Post("/member/create", h.CreateMember())
		r.Post("/member/{id}/update", h.UpdateMember())
		r.Post("/member/{id}/delete", h.DeleteMember())

		r.Post("/incident/create", h.CreateIncident())
		r.Post("/incident/{id}/update", h.UpdateIncident())
		r.Post("/incident/{id}/delete", h.DeleteIncident())

		r.Post("/case/create", h.CreateCase())
		r.Post("/case/{id}/update", h.UpdateCase())
		r.Post("/case/{id}/delete", h.DeleteCase())

		r.Post("/relationship/create", h.CreateRelationship())
		r.Post("/relationship/{id}/update", h.UpdateRelationship())
		r.Post("/relationship/{id}/delete", h.DeleteRelationship())
	})

	return r
}
