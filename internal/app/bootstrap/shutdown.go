// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown runs after the HTTP server has drained. It stops background
// jobs and disconnects MongoDB within ctx's deadline. Errors are logged
// by WAFFLE but do not block exit.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	var firstErr error

	// Stop background task runner with context timeout
	if taskRunner != nil {
		logger.Info("stopping background task runner")
		if err := taskRunner.Stop(ctx); err != nil {
			logger.Warn("background task runner did not stop cleanly", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	// Disconnect MongoDB client
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
