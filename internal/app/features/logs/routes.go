// internal/app/features/logs/routes.go
package logs

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the visit log API endpoints.
//
// When mounted at /api/logs:
//   - GET  /api/logs         - list events, newest first, paged
//   - GET  /api/logs/export  - stream the full log as CSV
//   - POST /api/logs/clear   - delete every stored event
//
// Authentication and CORS are applied by the caller when mounting.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/export", h.Export)
	r.Post("/clear", h.Clear)
	return r
}
