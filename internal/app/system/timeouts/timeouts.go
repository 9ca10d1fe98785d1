// Package timeouts holds the process-wide deadlines for health pings, chart
// builds and startup seeding. Bootstrap sets them once from config.
package timeouts

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults used until Configure is called.
const (
	DefaultPing  = 2 * time.Second
	DefaultBuild = 10 * time.Second
	DefaultSeed  = 30 * time.Second
)

// Config holds timeout values.
type Config struct {
	Ping  time.Duration
	Build time.Duration
	Seed  time.Duration
}

var defaults = Config{Ping: DefaultPing, Build: DefaultBuild, Seed: DefaultSeed}

var (
	mu      sync.RWMutex
	current = defaults
)

// Ping bounds a health check round trip.
func Ping() time.Duration { return Current().Ping }

// Build bounds one chart definition or a whole dashboard section.
func Build() time.Duration { return Current().Build }

// Seed bounds loading fixture snapshots at startup.
func Seed() time.Duration { return Current().Seed }

// Current returns the active configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Configure applies the positive fields of cfg and keeps the rest.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	current.Ping = positiveOr(cfg.Ping, current.Ping)
	current.Build = positiveOr(cfg.Build, current.Build)
	current.Seed = positiveOr(cfg.Seed, current.Seed)
}

// Reset restores the defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = defaults
}

func positiveOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

// WithTimeout derives a context bounded by timeout. Its cancel func logs a
// warning naming operation when the deadline, rather than the caller, ended it.
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if log != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
