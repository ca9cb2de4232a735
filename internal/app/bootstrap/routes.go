// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	analyticsfeature "github.com/tangra/visitortrack/internal/app/features/analytics"
	errorsfeature "github.com/tangra/visitortrack/internal/app/features/errors"
	healthfeature "github.com/tangra/visitortrack/internal/app/features/health"
	loginfeature "github.com/tangra/visitortrack/internal/app/features/login"
	logsfeature "github.com/tangra/visitortrack/internal/app/features/logs"
	privacyfeature "github.com/tangra/visitortrack/internal/app/features/privacy"
	settingsapifeature "github.com/tangra/visitortrack/internal/app/features/settingsapi"
	accountstore "github.com/tangra/visitortrack/internal/app/store/accounts"
	eventstore "github.com/tangra/visitortrack/internal/app/store/events"
	settingsstore "github.com/tangra/visitortrack/internal/app/store/trackersettings"
	"github.com/tangra/visitortrack/internal/app/system/apicors"
	"github.com/tangra/visitortrack/internal/app/system/auth"
	"github.com/tangra/visitortrack/internal/app/system/tracking"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and the Startup hook have completed.
//
// Route groups:
//   - Tracked pages: every GET/HEAD outside the exclusion list passes
//     through the tracking middleware, which records a visit event
//     after the response is written.
//   - Session routes: POST /login and POST /logout use cookie sessions.
//   - Admin API (/api/*): Bearer API key auth with permissive CORS,
//     serving the analytics dashboard and admin tooling.
//   - Probes: /health, /ready, /readyz, /livez.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Set up the AccountFetcher so LoadSessionAccount fetches fresh data
	// on each request. Role changes and disabled accounts take effect
	// immediately instead of at next login.
	sessionMgr.SetAccountFetcher(accountstore.NewFetcher(deps.MongoDatabase, logger))

	errLog := errorsfeature.NewErrorLogger(logger)

	events := eventstore.New(deps.MongoDatabase)
	settings := settingsstore.New(deps.MongoDatabase)
	ingestor := tracking.NewIngestor(events, settings, []byte(appCfg.SigningKey), logger)

	r := chi.NewRouter()

	// Global middleware

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(30 * time.Second))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Session middleware: loads SessionAccount into context if logged in.
	// API routes simply have no session, which is fine.
	r.Use(sessionMgr.LoadSessionAccount)

	// Visit tracking: records page views asynchronously after serving.
	// API, probe, and asset paths are excluded inside the middleware.
	r.Use(tracking.Middleware(tracking.DefaultMiddlewareConfig(ingestor, logger)))

	// Session auth: POST /login and POST /logout
	loginHandler := loginfeature.NewHandler(deps.MongoDatabase, sessionMgr, ingestor, errLog, logger)
	loginfeature.MountRootEndpoints(r, loginHandler)

	// Admin API. Bearer API key auth with permissive CORS; disabled
	// entirely when no key is configured.
	if appCfg.APIKey != "" {
		analyticsHandler := analyticsfeature.NewHandler(deps.MongoDatabase, errLog, logger)
		logsHandler := logsfeature.NewHandler(deps.MongoDatabase, errLog, logger)
		privacyHandler := privacyfeature.NewHandler(deps.MongoDatabase, errLog, logger)
		settingsHandler := settingsapifeature.NewHandler(deps.MongoDatabase, errLog, logger)

		r.Route("/api", func(api chi.Router) {
			api.Use(apicors.Middleware())
			api.Use(auth.APIKeyAuth(appCfg.APIKey, logger))

			api.Mount("/analytics", analyticsfeature.Routes(analyticsHandler))
			api.Mount("/logs", logsfeature.Routes(logsHandler))
			api.Mount("/privacy", privacyfeature.Routes(privacyHandler))
			api.Mount("/settings", settingsapifeature.Routes(settingsHandler))
		})
	} else {
		logger.Warn("no api_key configured; admin API disabled")
	}

	// Health check endpoints for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	return r, nil
}
