// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/stratadash/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Index is one desired index.
type Index struct {
	Name   string
	Keys   bson.D
	Unique bool
}

// Set groups the desired indexes of one collection.
type Set struct {
	Collection string
	Indexes    []Index
}

var snapshots = Set{
	Collection: models.SnapshotCollection,
	Indexes: []Index{
		// One snapshot per month, kind and test flag.
		{
			Name:   "uniq_snapshots_period_kind_test",
			Keys:   bson.D{{Key: "period", Value: 1}, {Key: "kind", Value: 1}, {Key: "is_test", Value: 1}},
			Unique: true,
		},
		// Monthly and Latest filter on is_test, then scan period.
		{
			Name: "idx_snapshots_test_period_taken",
			Keys: bson.D{{Key: "is_test", Value: 1}, {Key: "period", Value: 1}, {Key: "taken_at", Value: 1}},
		},
	},
}

// Sets returns every managed index set.
func Sets() []Set {
	return []Set{snapshots}
}

// EnsureAll reconciles Sets. It runs from EnsureSchema at startup and from
// the test database helper.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	return Ensure(ctx, db, logger, Sets()...)
}

// Ensure reconciles each set against the server. Indexes that already match
// are left alone; an index whose keys or uniqueness changed is dropped and
// rebuilt. Errors from all sets are joined.
func Ensure(ctx context.Context, db *mongo.Database, logger *zap.Logger, sets ...Set) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	var errs []error
	for _, set := range sets {
		coll := db.Collection(set.Collection)
		log := logger.With(zap.String("collection", set.Collection))
		if err := reconcile(ctx, coll, set.Indexes, log); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", set.Collection, err))
		}
	}
	return errors.Join(errs...)
}

type present struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique"`
}

// signature renders keys in order, e.g. "period:1,kind:1".
func signature(keys bson.D) string {
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s:%v", k.Key, k.Value)
	}
	return b.String()
}

// current lists the collection's indexes by name. A collection that does not
// exist yet has none.
func current(ctx context.Context, coll *mongo.Collection, log *zap.Logger) map[string]present {
	out := map[string]present{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		log.Debug("listing indexes failed", zap.Error(err))
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var p present
		if err := cur.Decode(&p); err != nil {
			log.Warn("undecodable index", zap.Error(err))
			continue
		}
		out[p.Name] = p
	}
	return out
}

func reconcile(ctx context.Context, coll *mongo.Collection, want []Index, log *zap.Logger) error {
	have := current(ctx, coll, log)
	bySig := make(map[string]present, len(have))
	for _, p := range have {
		bySig[signature(p.Key)] = p
	}

	var errs []error
	for _, idx := range want {
		sig := signature(idx.Keys)
		fields := []zap.Field{zap.String("index", idx.Name), zap.String("keys", sig), zap.Bool("unique", idx.Unique)}

		// The same keys under any name, or the same name over other keys.
		stale, found := bySig[sig]
		if !found {
			stale, found = have[idx.Name]
		}
		if found {
			if signature(stale.Key) == sig && stale.Unique == idx.Unique {
				log.Debug("index current", fields...)
				continue
			}
			if _, err := coll.Indexes().DropOne(ctx, stale.Name); err != nil {
				errs = append(errs, fmt.Errorf("%s: drop %s: %w", idx.Name, stale.Name, err))
				continue
			}
			log.Info("dropped outdated index", append(fields, zap.String("dropped", stale.Name))...)
		}

		start := time.Now()
		opts := options.Index().SetName(idx.Name)
		if idx.Unique {
			opts.SetUnique(true)
		}
		if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: idx.Keys, Options: opts}); err != nil {
			if idx.Unique && mongo.IsDuplicateKeyError(err) {
				err = fmt.Errorf("existing documents violate uniqueness: %w", err)
			}
			log.Warn("index create failed", append(fields, zap.Error(err))...)
			errs = append(errs, fmt.Errorf("%s: %w", idx.Name, err))
			continue
		}
		log.Info("index created", append(fields, zap.Duration("took", time.Since(start)))...)
	}
	return errors.Join(errs...)
}
