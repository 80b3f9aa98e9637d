package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/noted/internal/identity"
	"github.com/starford/noted/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// Every route, including sseHandler when non-nil, requires a caller
// identity resolved by provider.
func NewRouter(svc *noteservice.Service, provider identity.Provider, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(provider))

	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Patch("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)

	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
