// internal/domain/models/snapshot.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Snapshot is one point-in-time capture of organization metrics. Chart
// builders read the latest snapshot per month.
type Snapshot struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty" yaml:"-"`
	Period  time.Time          `bson:"period" json:"period" yaml:"period"` // Truncated to the first of the month (UTC)
	Kind    string             `bson:"kind" json:"kind" yaml:"kind"`       // "monthly", "quarterly", "manual"
	TakenAt time.Time          `bson:"taken_at" json:"taken_at" yaml:"taken_at"`
	IsTest  bool               `bson:"is_test" json:"is_test" yaml:"is_test"`

	// Metrics holds scalar values such as members_active.
	Metrics map[string]float64 `bson:"metrics" json:"metrics" yaml:"metrics"`
	// Breakdowns holds categorical distributions keyed by breakdown name,
	// e.g. board_gender -> {"Woman": 4, "Man": 5}.
	Breakdowns map[string]map[string]float64 `bson:"breakdowns,omitempty" json:"breakdowns,omitempty" yaml:"breakdowns"`

	CreatedAt time.Time `bson:"created_at" json:"created_at" yaml:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at" yaml:"-"`
}

// SnapshotCollection is the Mongo collection holding snapshots.
const SnapshotCollection = "snapshots"

// Snapshot kinds.
const (
	SnapshotKindMonthly   = "monthly"
	SnapshotKindQuarterly = "quarterly"
	SnapshotKindManual    = "manual"
)

// Metric names recorded on snapshots.
const (
	MetricMembersActive    = "members_active"
	MetricMembersJoined    = "members_joined"
	MetricMembersEnded     = "members_ended"
	MetricMemberDonors     = "member_donors"
	MetricNonMemberDonors  = "non_member_donors"
	MetricMemberGiving     = "member_giving"
	MetricNonMemberGiving  = "non_member_giving"
	MetricRetention12Month = "retention_rate_12m"
)

// Breakdown names recorded on snapshots.
const (
	BreakdownGivingChannel  = "giving_channel"
	BreakdownBoardGender    = "board_gender"
	BreakdownMemberGender   = "member_gender"
	BreakdownCohortActive   = "cohort_active"
	BreakdownCohortInactive = "cohort_inactive"
	BreakdownGoalMembers    = "goal_members"
	BreakdownGoalMet        = "goal_met"
)

// Metric returns the named metric and whether it was recorded.
func (s Snapshot) Metric(name string) (float64, bool) {
	v, ok := s.Metrics[name]
	return v, ok
}

// Breakdown returns the named distribution, or nil.
func (s Snapshot) Breakdown(name string) map[string]float64 {
	return s.Breakdowns[name]
}

// MonthStart truncates t to the first of its month in UTC.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
