// internal/app/features/privacy/routes.go
package privacy

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the subject-access API endpoints.
//
// When mounted at /api/privacy:
//   - POST /api/privacy/export - one page of a subject's events
//   - POST /api/privacy/erase  - remove one batch of a subject's events
//
// Authentication and CORS are applied by the caller when mounting.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/export", h.Export)
	r.Post("/erase", h.Erase)
	return r
}
