// internal/app/features/analytics/routes.go
package analytics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the analytics API endpoints.
//
// When mounted at /api/analytics:
//   - GET /api/analytics/stats - aggregate KPIs, daily counts, and top pages
//
// Authentication and CORS are applied by the caller when mounting.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/stats", h.Stats)
	return r
}
