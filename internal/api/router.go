package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/valet/internal/history"
	"github.com/starford/valet/internal/registry"
)

// NewRouter creates a chi router with all API routes. authEnabled controls
// Bearer token enforcement; sseHandler, if non-nil, is mounted at GET /events
// behind the same auth.
func NewRouter(svc *registry.Service, expand *history.ExpandState, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, expand)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/clients", func(r chi.Router) {
		r.Get("/", h.ListClients)
		r.Post("/", h.CreateClient)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetClient)
			r.Put("/", h.UpdateClient)
			r.Delete("/", h.DeleteClient)
			r.Post("/bicycles", h.AddBicycle)
			r.Put("/bicycles/{bikeID}", h.UpdateBicycle)
			r.Delete("/bicycles/{bikeID}", h.RemoveBicycle)
			r.Get("/records", h.ClientRecords)
			r.Get("/report.{format}", h.ClientReport)
		})
	})

	r.Get("/search", h.Search)

	r.Get("/registros", h.DailyRecords)
	r.Post("/registros", h.CheckIn)
	r.Post("/registros/{id}/checkout", h.CheckOut)

	r.Get("/history", h.History)
	r.Get("/history/summary", h.HistorySummary)
	r.Post("/history/years/{year}/toggle", h.ToggleYear)
	r.Post("/history/months/{year}/{month}/toggle", h.ToggleMonth)

	r.Post("/import", h.Import)
	r.Get("/imports", h.Imports)
	r.Get("/export/clients.{format}", h.ExportClients)

	r.Delete("/storage", h.ResetStorage)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}
	return r
}
