// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// ports, TLS, logging, CORS and body limits; AppConfig carries everything
// specific to the dashboard.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Site presentation
	SiteName string // Shown in the page header and titles

	// Chart definition cache
	ChartCacheTTL   time.Duration // How long a built definition is served from cache (default: 15m)
	ChartCacheSweep time.Duration // How often expired entries are dropped (default: 5m)

	// Number formatting
	FormatLocale    string // BCP 47 tag for digit grouping (default: en-US)
	DefaultCurrency string // ISO 4217 code used when a callback names none (default: USD)

	// Callback revival of function text in legacy payloads
	RevivalEnabled bool          // Allow function text to be revived in the sandbox
	RevivalTimeout time.Duration // Per-call budget for revived functions (default: 50ms)

	// Snapshots
	SeedDemoSnapshots bool          // Seed demo snapshots into an empty store on startup
	SnapshotRetention time.Duration // Prune snapshots older than this; zero keeps everything

	// Timeouts
	BuildTimeout time.Duration // Budget for building one chart or section (default: 10s)

	// APIAllowedOrigins restricts cross-origin reads of /api/chart.
	// Empty allows any origin.
	APIAllowedOrigins []string
}
