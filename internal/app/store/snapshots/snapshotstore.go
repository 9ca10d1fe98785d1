// internal/app/store/snapshots/snapshotstore.go
package snapshotstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dalemusser/stratadash/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the Mongo collection holding snapshots.
const CollectionName = models.SnapshotCollection

var (
	// ErrNotFound is returned when no snapshot matches.
	ErrNotFound = errors.New("snapshot not found")
)

// Store provides snapshot persistence.
type Store struct {
	c *mongo.Collection
}

// New creates a new snapshot store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// Upsert writes a snapshot keyed by period, kind and test flag. The period
// is truncated to the first of its month.
func (s *Store) Upsert(ctx context.Context, snap models.Snapshot) error {
	now := time.Now().UTC()
	period := models.MonthStart(snap.Period)
	if snap.Kind == "" {
		snap.Kind = models.SnapshotKindMonthly
	}
	if snap.TakenAt.IsZero() {
		snap.TakenAt = now
	}
	if snap.Metrics == nil {
		snap.Metrics = map[string]float64{}
	}

	opts := options.Update().SetUpsert(true)
	_, err := s.c.UpdateOne(ctx, bson.M{
		"period":  period,
		"kind":    snap.Kind,
		"is_test": snap.IsTest,
	}, bson.M{
		"$set": bson.M{
			"taken_at":   snap.TakenAt,
			"metrics":    snap.Metrics,
			"breakdowns": snap.Breakdowns,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"created_at": now,
		},
	}, opts)
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", period.Format("2006-01"), err)
	}
	return nil
}

// Latest returns the most recent non-test snapshot.
func (s *Store) Latest(ctx context.Context) (*models.Snapshot, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "period", Value: -1}, {Key: "taken_at", Value: -1}})
	var snap models.Snapshot
	if err := s.c.FindOne(ctx, bson.M{"is_test": false}, opts).Decode(&snap); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &snap, nil
}

// Monthly returns one snapshot per month between from and to inclusive,
// oldest first. When a month has several snapshots the latest taken wins.
// A nil from means no lower bound.
func (s *Store) Monthly(ctx context.Context, from *time.Time, to time.Time) ([]models.Snapshot, error) {
	period := bson.M{"$lte": models.MonthStart(to)}
	if from != nil {
		period["$gte"] = models.MonthStart(*from)
	}
	opts := options.Find().SetSort(bson.D{{Key: "period", Value: 1}, {Key: "taken_at", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"is_test": false, "period": period}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var snaps []models.Snapshot
	if err := cur.All(ctx, &snaps); err != nil {
		return nil, err
	}
	return collapseMonthly(snaps, from, to), nil
}

// DeleteBefore removes snapshots for periods before cutoff.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"period": bson.M{"$lt": models.MonthStart(cutoff)}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Count returns the number of stored snapshots.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

// collapseMonthly filters snaps to [from, to], drops test snapshots and
// keeps the latest-taken snapshot of each month, ordered by period.
func collapseMonthly(snaps []models.Snapshot, from *time.Time, to time.Time) []models.Snapshot {
	upper := models.MonthStart(to)
	var lower time.Time
	if from != nil {
		lower = models.MonthStart(*from)
	}

	byMonth := map[time.Time]models.Snapshot{}
	for _, snap := range snaps {
		if snap.IsTest {
			continue
		}
		p := models.MonthStart(snap.Period)
		if p.After(upper) || (from != nil && p.Before(lower)) {
			continue
		}
		snap.Period = p
		if cur, ok := byMonth[p]; !ok || !snap.TakenAt.Before(cur.TakenAt) {
			byMonth[p] = snap
		}
	}

	out := make([]models.Snapshot, 0, len(byMonth))
	for _, snap := range byMonth {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out
}
