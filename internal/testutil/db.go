// Package testutil holds shared helpers for package tests: a throwaway Mongo
// database per test and an HTTP recorder with assertions.
package testutil

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stratadash/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap/zaptest"
)

const (
	// DefaultTestDBURI is used when STRATADASH_TEST_MONGO_URI is unset.
	DefaultTestDBURI = "mongodb://localhost:27017"
	// TestDBName prefixes every per-test database.
	TestDBName = "stratadash_test"

	// Mongo database names are capped at 63 bytes.
	maxDBName = 63
)

var sharedClient = sync.OnceValues(func() (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uri := os.Getenv("STRATADASH_TEST_MONGO_URI")
	if uri == "" {
		uri = DefaultTestDBURI
	}
	c, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetConnectTimeout(3*time.Second).
		SetServerSelectionTimeout(3*time.Second))
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return c, nil
})

// SetupTestDB returns an empty database named after the test, with the
// production indexes in place. It is dropped on cleanup. Tests are skipped
// when Mongo is unreachable so the pure unit tests still run anywhere.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	c, err := sharedClient()
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}
	db := c.Database(DatabaseName(t.Name()))

	ctx, cancel := TestContext()
	defer cancel()
	if err := db.Drop(ctx); err != nil {
		t.Fatalf("drop test database: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("drop test database on cleanup: %v", err)
		}
	})
	return db
}

var unsafeDBChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// DatabaseName maps a test name onto a valid, bounded database name so
// parallel packages never share one.
func DatabaseName(testName string) string {
	name := fmt.Sprintf("%s_%s", TestDBName, unsafeDBChars.ReplaceAllString(testName, "_"))
	if len(name) > maxDBName {
		name = name[:maxDBName]
	}
	return name
}

// TestContext returns a context bounded for database round trips.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
