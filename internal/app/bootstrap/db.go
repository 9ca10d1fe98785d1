// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"

	snapshotstore "github.com/dalemusser/stratadash/internal/app/store/snapshots"
	"github.com/dalemusser/stratadash/internal/app/system/indexes"
	"github.com/dalemusser/stratadash/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// ConnectDB connects to MongoDB and opens the snapshot store.
//
// WAFFLE calls this after configuration is loaded but before EnsureSchema
// and Startup.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	// Configure MongoDB connection pool
	poolCfg := wafflemongo.DefaultPoolConfig()
	if appCfg.MongoMaxPoolSize > 0 {
		poolCfg.MaxPoolSize = appCfg.MongoMaxPoolSize
	}
	if appCfg.MongoMinPoolSize > 0 {
		poolCfg.MinPoolSize = appCfg.MongoMinPoolSize
	}

	client, err := wafflemongo.ConnectWithPool(ctx, appCfg.MongoURI, appCfg.MongoDatabase, poolCfg)
	if err != nil {
		return DBDeps{}, err
	}

	db := client.Database(appCfg.MongoDatabase)

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", poolCfg.MaxPoolSize),
		zap.Uint64("min_pool_size", poolCfg.MinPoolSize),
	)

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		Snapshots:     snapshotstore.New(db),
	}, nil
}

// EnsureSchema creates collections, validators and indexes.
//
// The context has a timeout based on coreCfg.IndexBootTimeout.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	// Collections and validators first so indexes land on existing collections.
	logger.Info("ensuring collections and validators")
	if err := validators.EnsureAll(ctx, db, logger); err != nil {
		logger.Error("failed to ensure validators", zap.Error(err))
		return err
	}

	logger.Info("ensuring database indexes")
	if err := indexes.EnsureAll(ctx, db, logger); err != nil {
		logger.Error("failed to ensure indexes", zap.Error(err))
		return err
	}

	logger.Info("database schema ensured successfully")
	return nil
}
