// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dalemusser/stratadash/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server error codes seen while creating collections and attaching validators.
const (
	codeNamespaceExists     = 48
	codeCommandNotFound     = 59
	codeCommandNotSupported = 115
)

// Spec describes one collection and the $jsonSchema its documents must match.
type Spec struct {
	Collection string
	Schema     bson.M // nil creates the collection without a validator
	// Level is the collMod validationLevel. "moderate" leaves documents that
	// were already invalid updatable. Empty means "strict".
	Level string
}

// Specs returns the validated collections.
func Specs() []Spec {
	return []Spec{
		{Collection: models.SnapshotCollection, Schema: SnapshotSchema(), Level: "moderate"},
	}
}

// EnsureAll applies Specs.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	return Ensure(ctx, db, logger, Specs()...)
}

// Ensure creates each collection when missing and attaches its validator.
// Deployments that reject collMod (some DocumentDB versions) keep the
// collection unvalidated. Every failure is reported, not just the first.
func Ensure(ctx context.Context, db *mongo.Database, logger *zap.Logger, specs ...Spec) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	var errs []error
	for _, s := range specs {
		log := logger.With(zap.String("collection", s.Collection))

		created, err := createIfMissing(ctx, db, s.Collection)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: create: %w", s.Collection, err))
			continue
		}
		if created {
			log.Info("created collection")
		}
		if s.Schema == nil {
			continue
		}

		switch err := applyValidator(ctx, db, s); {
		case err == nil:
			log.Debug("validator applied", zap.String("level", level(s)))
		case unsupported(err):
			log.Info("validator skipped, collMod unsupported")
		default:
			errs = append(errs, fmt.Errorf("%s: validator: %w", s.Collection, err))
		}
	}
	return errors.Join(errs...)
}

// createIfMissing reports whether it created name. A lost creation race
// counts as already present.
func createIfMissing(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err == nil && len(names) > 0 {
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if alreadyExists(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func applyValidator(ctx context.Context, db *mongo.Database, s Spec) error {
	return db.RunCommand(ctx, bson.D{
		{Key: "collMod", Value: s.Collection},
		{Key: "validator", Value: bson.M{"$jsonSchema": s.Schema}},
		{Key: "validationLevel", Value: level(s)},
		{Key: "validationAction", Value: "error"},
	}).Err()
}

func level(s Spec) string {
	if s.Level == "" {
		return "strict"
	}
	return s.Level
}

func alreadyExists(err error) bool {
	return hasCode(err, codeNamespaceExists) || mentions(err, "already exists", "namespace exists")
}

func unsupported(err error) bool {
	return hasCode(err, codeCommandNotFound, codeCommandNotSupported) ||
		mentions(err, "no such command", "not implemented", "not supported")
}

func hasCode(err error, codes ...int32) bool {
	var ce mongo.CommandError
	return errors.As(err, &ce) && slices.Contains(codes, ce.Code)
}

func mentions(err error, phrases ...string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// numeric matches every BSON number type the driver may write for float64
// values that arrived as integers.
var numeric = bson.A{"double", "int", "long", "decimal"}

// SnapshotSchema is the $jsonSchema body for the snapshots collection.
// Metrics are flat name to number; breakdowns nest one level deeper.
func SnapshotSchema() bson.M {
	return bson.M{
		"bsonType": "object",
		"required": bson.A{"period", "kind", "is_test", "metrics"},
		"properties": bson.M{
			"period":   bson.M{"bsonType": "date"},
			"taken_at": bson.M{"bsonType": "date"},
			"kind": bson.M{"enum": bson.A{
				models.SnapshotKindMonthly,
				models.SnapshotKindQuarterly,
				models.SnapshotKindManual,
			}},
			"is_test": bson.M{"bsonType": "bool"},
			"metrics": bson.M{
				"bsonType":             "object",
				"additionalProperties": bson.M{"bsonType": numeric},
			},
			"breakdowns": bson.M{
				"bsonType": bson.A{"object", "null"},
				"additionalProperties": bson.M{
					"bsonType":             "object",
					"additionalProperties": bson.M{"bsonType": numeric},
				},
			},
		},
	}
}
