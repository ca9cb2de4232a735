// internal/app/system/tracking/middleware.go
package tracking

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/tangra/visitortrack/internal/app/system/timeouts"
	"github.com/tangra/visitortrack/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MiddlewareConfig holds configuration for the view-tracking middleware.
type MiddlewareConfig struct {
	// Ingestor persists the captured views.
	Ingestor *Ingestor

	// Logger for logging persistence failures.
	Logger *zap.Logger

	// ExcludePaths is a list of path prefixes never tracked.
	// Health probes, static assets, and the API itself.
	ExcludePaths []string

	// StoreTimeout bounds the background write. Zero means timeouts.Short().
	StoreTimeout time.Duration
}

// DefaultMiddlewareConfig returns a MiddlewareConfig with sensible defaults.
func DefaultMiddlewareConfig(ing *Ingestor, logger *zap.Logger) MiddlewareConfig {
	return MiddlewareConfig{
		Ingestor: ing,
		Logger:   logger,
		ExcludePaths: []string{
			"/health",
			"/ready",
			"/livez",
			"/api",
			"/static",
			"/assets",
			"/favicon.ico",
		},
	}
}

// Middleware returns HTTP middleware that records a view event for each
// tracked GET request. Capture happens before the handler runs (the
// request must not be touched afterward); the store write happens in the
// background so tracking never delays the page.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = timeouts.Short()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			path := r.URL.Path
			for _, prefix := range cfg.ExcludePaths {
				if strings.HasPrefix(path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			// The request id ties a store failure log line back to the
			// access log entry for the same request.
			requestID := uuid.NewString()
			info := cfg.Ingestor.Capture(r, models.EventView)

			next.ServeHTTP(w, r)

			go func() {
				ctx, cancel := timeouts.WithTimeout(context.Background(), timeout, cfg.Logger, "store visit event")
				defer cancel()
				if _, err := cfg.Ingestor.Ingest(ctx, info); err != nil {
					cfg.Logger.Error("failed to store visit event",
						zap.String("request_id", requestID),
						zap.String("url", info.URL),
						zap.Error(err))
				}
			}()
		})
	}
}
