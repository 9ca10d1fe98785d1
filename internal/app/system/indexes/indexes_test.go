package indexes_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stratadash/internal/app/system/indexes"
	"github.com/dalemusser/stratadash/internal/domain/models"
	"github.com/dalemusser/stratadash/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type listed struct {
	Name   string `bson:"name"`
	Unique bool   `bson:"unique"`
}

func indexNames(t *testing.T, ctx context.Context, coll *mongo.Collection) map[string]listed {
	t.Helper()
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		t.Fatalf("list indexes on %s: %v", coll.Name(), err)
	}
	var all []listed
	if err := cur.All(ctx, &all); err != nil {
		t.Fatal(err)
	}
	got := make(map[string]listed, len(all))
	for _, l := range all {
		got[l.Name] = l
	}
	return got
}

func TestEnsureAll_Snapshots(t *testing.T) {
	// SetupTestDB already ran EnsureAll once.
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("second EnsureAll() error = %v", err)
	}

	got := indexNames(t, ctx, db.Collection(models.SnapshotCollection))
	for _, idx := range indexes.Sets()[0].Indexes {
		p, ok := got[idx.Name]
		if !ok {
			t.Errorf("index %s missing", idx.Name)
			continue
		}
		if p.Unique != idx.Unique {
			t.Errorf("index %s unique = %v, want %v", idx.Name, p.Unique, idx.Unique)
		}
	}
}

func TestEnsure_ReplacesChangedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	coll := db.Collection("widgets")

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetName("legacy_code"),
	})
	if err != nil {
		t.Fatal(err)
	}

	set := indexes.Set{Collection: "widgets", Indexes: []indexes.Index{
		{Name: "uniq_widgets_code", Keys: bson.D{{Key: "code", Value: 1}}, Unique: true},
	}}
	if err := indexes.Ensure(ctx, db, nil, set); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	got := indexNames(t, ctx, coll)
	if _, ok := got["legacy_code"]; ok {
		t.Error("outdated index was not dropped")
	}
	if p, ok := got["uniq_widgets_code"]; !ok || !p.Unique {
		t.Errorf("unique index missing: %+v", got)
	}
}

func TestEnsure_UniqueWithDuplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	coll := db.Collection("dupes")

	for i := 0; i < 2; i++ {
		if _, err := coll.InsertOne(ctx, bson.M{"code": "same", "at": time.Now()}); err != nil {
			t.Fatal(err)
		}
	}

	set := indexes.Set{Collection: "dupes", Indexes: []indexes.Index{
		{Name: "uniq_dupes_code", Keys: bson.D{{Key: "code", Value: 1}}, Unique: true},
	}}
	err := indexes.Ensure(ctx, db, zap.NewNop(), set)
	if err == nil {
		t.Fatal("expected error for duplicate keys")
	}
	if !strings.Contains(err.Error(), "violate uniqueness") || !strings.Contains(err.Error(), "dupes") {
		t.Errorf("error = %v", err)
	}
}
