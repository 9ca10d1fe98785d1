// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/stratadash/internal/app/system/chartcache"
	"github.com/dalemusser/stratadash/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "STRATADASH"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, chart_cache_ttl, etc.
//   - Environment variables: STRATADASH_MONGO_URI, STRATADASH_CHART_CACHE_TTL, etc.
//   - Command-line flags: --mongo_uri, --chart_cache_ttl, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "stratadash", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "site_name", Default: "Stratadash", Desc: "Site name shown in the header and page titles"},

	// Chart cache
	{Name: "chart_cache_ttl", Default: "15m", Desc: "How long built chart definitions are cached (0 disables the cache)"},
	{Name: "chart_cache_sweep", Default: "5m", Desc: "Interval for dropping expired chart cache entries"},

	// Formatting
	{Name: "format_locale", Default: "en-US", Desc: "Locale used for digit grouping (BCP 47 tag)"},
	{Name: "default_currency", Default: "USD", Desc: "Currency used when a formatter names none (ISO 4217)"},

	// Callback revival
	{Name: "revival_enabled", Default: true, Desc: "Revive function text in legacy payloads inside the sandbox"},
	{Name: "revival_timeout", Default: "50ms", Desc: "Per-call time budget for revived functions"},

	// Snapshots
	{Name: "seed_demo_snapshots", Default: false, Desc: "Seed demo snapshots into an empty store on startup"},
	{Name: "snapshot_retention", Default: "0", Desc: "Prune snapshots older than this (e.g., 43800h); 0 keeps everything"},

	{Name: "build_timeout", Default: "10s", Desc: "Time budget for building a chart or section"},

	// Chart API CORS
	{Name: "api_allowed_origins", Default: "", Desc: "Comma-separated origins allowed to read /api/chart (blank allows any)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// STRATADASH_* environment variables and flags, merged with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SiteName: appValues.String("site_name"),

		ChartCacheTTL:   appValues.Duration("chart_cache_ttl", chartcache.DefaultTTL),
		ChartCacheSweep: appValues.Duration("chart_cache_sweep", 5*time.Minute),

		FormatLocale:    appValues.String("format_locale"),
		DefaultCurrency: strings.ToUpper(strings.TrimSpace(appValues.String("default_currency"))),

		RevivalEnabled: appValues.Bool("revival_enabled"),
		RevivalTimeout: appValues.Duration("revival_timeout", 50*time.Millisecond),

		SeedDemoSnapshots: appValues.Bool("seed_demo_snapshots"),
		SnapshotRetention: appValues.Duration("snapshot_retention", 0),

		BuildTimeout: appValues.Duration("build_timeout", timeouts.DefaultBuild),

		APIAllowedOrigins: splitList(appValues.String("api_allowed_origins")),
	}

	return coreCfg, appCfg, nil
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(appCfg)
}

// validateApp checks the settings that do not need a live backend.
func validateApp(appCfg AppConfig) error {
	if _, err := language.Parse(appCfg.FormatLocale); err != nil {
		return fmt.Errorf("invalid format_locale %q: %w", appCfg.FormatLocale, err)
	}
	if _, err := currency.ParseISO(appCfg.DefaultCurrency); err != nil {
		return fmt.Errorf("invalid default_currency %q: %w", appCfg.DefaultCurrency, err)
	}
	if appCfg.ChartCacheTTL < 0 {
		return fmt.Errorf("chart_cache_ttl must not be negative")
	}
	if appCfg.ChartCacheTTL > 0 && appCfg.ChartCacheSweep <= 0 {
		return fmt.Errorf("chart_cache_sweep must be positive when the cache is enabled")
	}
	if appCfg.RevivalEnabled && appCfg.RevivalTimeout <= 0 {
		return fmt.Errorf("revival_timeout must be positive when revival is enabled")
	}
	if appCfg.BuildTimeout <= 0 {
		return fmt.Errorf("build_timeout must be positive")
	}
	if appCfg.SnapshotRetention < 0 {
		return fmt.Errorf("snapshot_retention must not be negative")
	}
	return nil
}
