package callbacks

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/dalemusser/stratadash/internal/app/system/numfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestRegistry() *Registry {
	return NewRegistry(numfmt.Default, nil)
}

func TestDescriptor_MarshalJSON(t *testing.T) {
	raw, err := json.Marshal(New(ValueFormat, map[string]any{"format": "currency"}))
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	if m["__callback"] != ValueFormat {
		t.Errorf("__callback = %v", m["__callback"])
	}
	if opts, ok := m["options"].(map[string]any); !ok || opts["format"] != "currency" {
		t.Errorf("options = %v", m["options"])
	}

	raw, _ = json.Marshal(New(CohortAfterBody, nil))
	if !strings.Contains(string(raw), `"options":{}`) {
		t.Errorf("nil options should serialize as {}: %s", raw)
	}
}

func TestHydrate_DepthThreeRoundTrip(t *testing.T) {
	opts := map[string]any{"format": "currency", "currency": "USD", "decimals": float64(0)}
	tree := map[string]any{
		"plugins": []any{
			"keep me",
			map[string]any{
				"label": map[string]any{"__callback": ValueFormat, "options": opts},
				"size":  float64(3),
			},
		},
		"responsive": true,
	}

	h := NewHydrator(newTestRegistry(), nil, zap.NewNop())
	out, rep := h.HydrateWithReport(tree)
	if rep.Resolved != 1 || len(rep.Unresolved) != 0 {
		t.Fatalf("report = %+v", rep)
	}

	root := out.(map[string]any)
	if root["responsive"] != true {
		t.Error("scalar changed")
	}
	plugins := root["plugins"].([]any)
	if len(plugins) != 2 || plugins[0] != "keep me" {
		t.Fatalf("sequence shape changed: %v", plugins)
	}
	inner := plugins[1].(map[string]any)
	if inner["size"] != float64(3) {
		t.Error("sibling scalar changed")
	}
	b, ok := inner["label"].(Behavior)
	if !ok {
		t.Fatalf("leaf = %T, want Behavior", inner["label"])
	}

	got := b.Call(Invocation{Value: 1234.5}).String()
	want := numfmt.ValueString(1234.5, numfmt.ParseOptions(opts))
	if got != want || got != "$1,235" {
		t.Errorf("behavior = %q, formatter = %q", got, want)
	}

	// The input tree is untouched.
	if _, ok := tree["plugins"].([]any)[1].(map[string]any)["label"].(map[string]any); !ok {
		t.Error("Hydrate mutated its input")
	}
}

func TestHydrate_TypedDescriptor(t *testing.T) {
	h := NewHydrator(newTestRegistry(), nil, nil)
	out := h.HydrateMap(map[string]any{"cb": New(ValueFormat, nil)})
	if _, ok := out["cb"].(Behavior); !ok {
		t.Errorf("typed descriptor not hydrated: %T", out["cb"])
	}
	if h.HydrateMap(nil) != nil {
		t.Error("nil map should stay nil")
	}
}

func TestHydrate_UnknownID(t *testing.T) {
	h := NewHydrator(newTestRegistry(), nil, zap.NewNop())
	out, rep := h.HydrateWithReport(map[string]any{
		"a": map[string]any{"__callback": "does_not_exist"},
		"b": map[string]any{"__callback": "does_not_exist"},
	})
	if len(rep.Unresolved) != 1 || rep.Unresolved[0] != "does_not_exist" {
		t.Errorf("Unresolved = %v", rep.Unresolved)
	}
	b, ok := out.(map[string]any)["a"].(Behavior)
	if !ok {
		t.Fatalf("unknown descriptor = %T, want placeholder Behavior", out.(map[string]any)["a"])
	}
	if lines := b.Call(Invocation{Value: 1}); len(lines) != 0 {
		t.Errorf("placeholder produced %v", lines)
	}
}

type stubReviver struct{ calls int }

func (s *stubReviver) Revive(text string) (Behavior, bool) {
	s.calls++
	if strings.HasPrefix(text, "function") {
		return func(Invocation) Lines { return Text("revived") }, true
	}
	return nil, false
}

func TestHydrate_RevivesStrings(t *testing.T) {
	rev := &stubReviver{}
	h := NewHydrator(newTestRegistry(), rev, nil)
	out, rep := h.HydrateWithReport([]string{"function (v) { return v }", "Members"})
	items := out.([]any)
	if _, ok := items[0].(Behavior); !ok {
		t.Errorf("candidate not revived: %T", items[0])
	}
	if items[1] != "Members" {
		t.Errorf("label changed: %v", items[1])
	}
	if rep.Revived != 1 || rev.calls != 2 {
		t.Errorf("revived = %d, calls = %d", rep.Revived, rev.calls)
	}
}

func TestSeriesValue_Shapes(t *testing.T) {
	reg := newTestRegistry()
	b, _ := reg.Build(New(SeriesValue, map[string]any{"format": "integer"}))

	tests := []struct {
		name string
		inv  Invocation
		want string
	}{
		{"raw number", Invocation{Value: 1500.0, Label: "Members"}, "Members: 1,500"},
		{"raw object", Invocation{Value: map[string]any{"value": 12.0}}, "12"},
		{"parsed scalar", Invocation{Value: "n/a", Parsed: 7.0}, "7"},
		{"parsed xy", Invocation{Parsed: map[string]any{"x": 2.0, "y": 9.0}}, "9"},
		{"parsed x only", Invocation{Parsed: map[string]any{"x": 4.0}}, "4"},
		{"no value", Invocation{Value: "n/a", Label: "Members"}, ""},
		{"label from dataset", Invocation{Value: 3, Dataset: map[string]any{"label": "Donors"}}, "Donors: 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Call(tt.inv).String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSeriesValue_Overrides(t *testing.T) {
	reg := newTestRegistry()
	b, _ := reg.Build(New(SeriesValue, map[string]any{
		"format": "integer",
		"perAxis": map[string]any{
			"yAmount": map[string]any{"format": "currency", "currency": "USD", "decimals": 0},
		},
		"perDataset": map[string]any{
			"2": map[string]any{"format": "percent", "showLabel": false},
		},
	}))

	amount := b.Call(Invocation{Value: 2500.4, Label: "Raised", Dataset: map[string]any{"yAxisID": "yAmount"}, DatasetIndex: 1})
	if amount.String() != "Raised: $2,500" {
		t.Errorf("axis override = %q", amount)
	}
	share := b.Call(Invocation{Value: 40, Label: "Share", AxisID: "yAmount", DatasetIndex: 2})
	if share.String() != "40%" {
		t.Errorf("dataset override = %q", share)
	}
}

func TestValueFormat(t *testing.T) {
	b, _ := newTestRegistry().Build(New(ValueFormat, map[string]any{"format": "decimal", "suffix": "hrs"}))
	if got := b.Call(Invocation{Value: 3.25}).String(); got != "3.3 hrs" {
		t.Errorf("got %q", got)
	}
	if got := b.Call(Invocation{Value: "tick"}); len(got) != 0 {
		t.Errorf("non-numeric tick = %v", got)
	}
}

func TestDatasetSharePercent(t *testing.T) {
	reg := newTestRegistry()
	b, _ := reg.Build(New(DatasetSharePercent, nil))

	zero := map[string]any{"data": []any{0.0, 0.0, 0.0}}
	for i := 0; i < 3; i++ {
		if got := b.Call(Invocation{Dataset: zero, DataIndex: i}).String(); got != "0%" {
			t.Errorf("index %d over zero total = %q, want 0%%", i, got)
		}
	}

	ds := map[string]any{"data": []any{1.0, 3.0}}
	if got := b.Call(Invocation{Dataset: ds, DataIndex: 1, Value: 3.0}).String(); got != "75%" {
		t.Errorf("share = %q, want 75%%", got)
	}

	b1, _ := reg.Build(New(DatasetSharePercent, map[string]any{"decimals": 1, "suffix": " pct"}))
	ds3 := map[string]any{"data": []float64{1, 2}}
	if got := b1.Call(Invocation{Dataset: ds3, DataIndex: 0}).String(); got != "33.3 pct" {
		t.Errorf("share with options = %q", got)
	}
}

func TestCohortAfterBody(t *testing.T) {
	reg := NewRegistry(numfmt.Default, strings.ToUpper)
	b, _ := reg.Build(New(CohortAfterBody, nil))
	datasets := []map[string]any{
		{"label": "Still active", "data": []any{10.0, 1200.0}},
		{"label": "No longer active", "data": []any{5.0, 300.0}},
	}
	got := b.Call(Invocation{Datasets: datasets, Items: []Invocation{{DataIndex: 1}}})
	want := Lines{"TOTAL: 1,500", "ACTIVE: 1,200", "INACTIVE: 300"}
	if got.String() != want.String() {
		t.Errorf("got %q, want %q", got, want)
	}
	if lines := b.Call(Invocation{Datasets: datasets[:1]}); lines != nil {
		t.Errorf("single dataset should produce nothing, got %v", lines)
	}
}

func TestDatasetMembersCount(t *testing.T) {
	b, _ := newTestRegistry().Build(New(DatasetMembersCount, nil))
	ds := map[string]any{"label": "Goal met", "memberCounts": []any{4.0, 12.0}}
	if got := b.Call(Invocation{Dataset: ds, DataIndex: 1}).String(); got != "Goal met: 12 members" {
		t.Errorf("got %q", got)
	}
	if got := b.Call(Invocation{Dataset: ds, DataIndex: 5}); got != nil {
		t.Errorf("out of range = %v", got)
	}
}

func TestRegistry_WithFactory(t *testing.T) {
	reg := NewRegistry(nil, nil, WithFactory("static", func(map[string]any) Behavior {
		return func(Invocation) Lines { return Text("x") }
	}))
	if _, ok := reg.Lookup("static"); !ok {
		t.Fatal("custom factory missing")
	}
	ids := strings.Join(reg.IDs(), ",")
	if !strings.Contains(ids, SeriesValue) || !strings.Contains(ids, "static") {
		t.Errorf("IDs = %s", ids)
	}
}

func TestHydrate_UnknownIDWarnsOncePerID(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	h := NewHydrator(newTestRegistry(), nil, zap.New(core))
	h.Hydrate([]any{
		map[string]any{"__callback": "gone"},
		map[string]any{"__callback": "gone"},
		map[string]any{"__callback": "also_gone"},
	})
	if n := logs.FilterMessage("unresolved chart callback").Len(); n != 2 {
		t.Errorf("warnings = %d, want one per distinct id", n)
	}
	if lines := Unresolved().Call(Invocation{Value: 3}); lines != nil {
		t.Errorf("Unresolved() produced %v", lines)
	}
}
