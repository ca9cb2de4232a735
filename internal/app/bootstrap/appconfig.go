// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP/HTTPS
// ports, TLS, logging level, CORS, and request size limits. AppConfig is
// everything specific to this service.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: visitortrack-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Maximum session cookie lifetime (default: 24h)

	// SigningKey verifies the front-gate session cookie carried by
	// tracked page requests. Leave empty when no front gate is deployed;
	// cookie identities are then ignored and visitors are attributed by
	// local session only.
	SigningKey string

	// API key authentication for the admin API (/api/* routes).
	// When set, enables Bearer token authentication. Leave empty to
	// disable the admin API entirely.
	APIKey string

	// Admin seeding configuration. When both are set, an active admin
	// account is created on startup if one does not already exist.
	SeedAdminEmail    string
	SeedAdminPassword string
}
