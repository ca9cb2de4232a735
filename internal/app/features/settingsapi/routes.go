// internal/app/features/settingsapi/routes.go
package settingsapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the tracker settings API endpoints.
//
// When mounted at /api/settings:
//   - GET /api/settings - read the current tracking policy
//   - PUT /api/settings - replace the tracking policy
//
// Authentication and CORS are applied by the caller when mounting.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Put("/", h.Update)
	return r
}
