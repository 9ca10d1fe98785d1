// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"time"

	"github.com/dalemusser/stratadash/internal/app/charts"
	"github.com/dalemusser/stratadash/internal/app/charts/catalog"
	"github.com/dalemusser/stratadash/internal/app/resources"
	"github.com/dalemusser/stratadash/internal/app/system/callbacks"
	"github.com/dalemusser/stratadash/internal/app/system/chartcache"
	"github.com/dalemusser/stratadash/internal/app/system/numfmt"
	"github.com/dalemusser/stratadash/internal/app/system/render"
	"github.com/dalemusser/stratadash/internal/app/system/revival"
	"github.com/dalemusser/stratadash/internal/app/system/seeding"
	"github.com/dalemusser/stratadash/internal/app/system/tasks"
	"github.com/dalemusser/stratadash/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema setup are complete,
// but before the HTTP handler is built and requests are served.
//
// It parses the page layout, seeds demo snapshots when asked, assembles
// the chart pipeline and starts background jobs. Returning a non-nil
// error aborts startup.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if _, err := resources.Layout(); err != nil {
		logger.Error("failed to parse page layout", zap.Error(err))
		return err
	}

	timeouts.Configure(timeouts.Config{Build: appCfg.BuildTimeout})

	if appCfg.SeedDemoSnapshots {
		if err := seedDemo(ctx, deps, logger); err != nil {
			logger.Error("failed to seed demo snapshots", zap.Error(err))
			return err
		}
	}

	p, err := newPipeline(appCfg, deps.Snapshots, logger)
	if err != nil {
		logger.Error("failed to assemble chart pipeline", zap.Error(err))
		return err
	}
	pipe = p

	startTaskRunner(appCfg, deps, p.cache, logger)
	return nil
}

func seedDemo(ctx context.Context, deps DBDeps, logger *zap.Logger) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Seed(), logger, "seed demo snapshots")
	defer cancel()
	snaps, err := seeding.Demo(time.Now())
	if err != nil {
		return err
	}
	_, err = seeding.SeedAll(ctx, deps.Snapshots, snaps, logger)
	return err
}

// pipeline is everything between the snapshot store and the handlers.
type pipeline struct {
	renderer *render.Renderer
	cache    *chartcache.Cache
	resolver *charts.Resolver
}

// pipe is built in Startup and consumed by BuildHandler.
var pipe *pipeline

func newPipeline(appCfg AppConfig, source charts.Source, logger *zap.Logger) (*pipeline, error) {
	f := numfmt.NewFromLocale(appCfg.FormatLocale, appCfg.DefaultCurrency)
	registry := callbacks.NewRegistry(f, nil)

	var reviver callbacks.Reviver
	if appCfg.RevivalEnabled {
		reviver = revival.New(appCfg.RevivalTimeout, logger)
	}
	hydrator := callbacks.NewHydrator(registry, reviver, logger)

	manager, err := catalog.New(charts.Deps{Source: source}, logger)
	if err != nil {
		return nil, err
	}

	var cache *chartcache.Cache
	if appCfg.ChartCacheTTL > 0 {
		cache = chartcache.New(appCfg.ChartCacheTTL)
	}

	logger.Info("chart pipeline ready",
		zap.Strings("sections", manager.Sections()),
		zap.String("locale", f.Tag().String()),
		zap.Duration("cache_ttl", appCfg.ChartCacheTTL),
		zap.Bool("revival", appCfg.RevivalEnabled),
	)

	return &pipeline{
		renderer: render.New(hydrator, nil, logger, render.WithFormatter(f)),
		cache:    cache,
		resolver: charts.NewResolver(manager, cache, charts.DefaultAPIBase),
	}, nil
}

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

// startTaskRunner registers and starts the background jobs.
func startTaskRunner(appCfg AppConfig, deps DBDeps, cache *chartcache.Cache, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	if cache != nil {
		taskRunner.Register(tasks.ChartCacheSweepJob(cache, logger, appCfg.ChartCacheSweep))
	}
	if appCfg.SnapshotRetention > 0 {
		taskRunner.Register(tasks.SnapshotRetentionJob(deps.Snapshots, cache, logger, appCfg.SnapshotRetention))
	}

	taskRunner.Start()
}
