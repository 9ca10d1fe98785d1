// internal/app/bootstrap/hooks.go
package bootstrap

import (
	"github.com/dalemusser/waffle/app"
)

// Hooks wires this app into the WAFFLE lifecycle.
// Each function is called in order by app.Run, from configuration
// loading through DB setup, one-time startup work, HTTP handler
// construction, and finally graceful shutdown.
var Hooks = app.Hooks[AppConfig, DBDeps]{
	Name:           "stratadash",   // used only for logging/diagnostics
	LoadConfig:     LoadConfig,     // load core + app config
	ValidateConfig: ValidateConfig, // validate MongoDB URI, locale, currency, durations
	ConnectDB:      ConnectDB,      // connect to MongoDB and open the snapshot store
	EnsureSchema:   EnsureSchema,   // collections, validators, indexes
	Startup:        Startup,        // layout, demo seed, chart pipeline, background jobs
	BuildHandler:   BuildHandler,   // build the HTTP router + middleware stack
	Shutdown:       Shutdown,       // stop jobs and disconnect MongoDB
}
