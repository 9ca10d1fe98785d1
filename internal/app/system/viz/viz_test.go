package viz

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDefinition_MarshalFieldNames(t *testing.T) {
	active := "1y"
	def := Definition{
		SectionID:     "overview",
		ChartID:       "members",
		Title:         "Members",
		Visualization: NewChart(ChartLine, map[string]any{"labels": []string{"Jan"}}, nil),
		Range: &RangeSelection{
			Active:  &active,
			Options: NewOrdered(Entry[RangeOption]{Key: "1y", Value: RangeOption{Label: "1 year"}}),
		},
		Weight: 10,
	}

	raw, err := json.Marshal(def)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	for _, key := range []string{"sectionId", "chartId", "title", "description", "notes", "visualization", "range"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing envelope field %q in %s", key, raw)
		}
	}
	for _, key := range []string{"weight", "Weight", "cache", "downloadUrl"} {
		if _, ok := got[key]; ok {
			t.Errorf("unexpected field %q in %s", key, raw)
		}
	}
	if notes, ok := got["notes"].([]any); !ok || len(notes) != 0 {
		t.Errorf("notes = %v, want empty array", got["notes"])
	}
	vis := got["visualization"].(map[string]any)
	if vis["type"] != "chart" || vis["library"] != "chartjs" || vis["chartType"] != "line" {
		t.Errorf("visualization = %v", vis)
	}
	rng := got["range"].(map[string]any)
	if rng["active"] != "1y" {
		t.Errorf("range.active = %v", rng["active"])
	}
}

func TestDefinition_RoundTrip(t *testing.T) {
	empty := "Nothing yet."
	def := Definition{
		SectionID: "s",
		ChartID:   "c",
		Notes:     []string{"a note"},
		Visualization: NewContainer(map[string]any{"class": PairClass},
			Child{Key: "goal", Value: Table{Header: []string{"A"}, Rows: [][]string{{"1"}}, Empty: &empty}},
			Child{Key: "actual", Value: Markup{HTML: "<p>hi</p>"}},
		),
		DownloadURL: "/api/chart/s/c/download.csv",
	}
	raw, err := json.Marshal(def)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}

	var back Definition
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if back.DownloadURL != def.DownloadURL || back.Key() != "s:c" {
		t.Errorf("envelope mismatch: %+v", back)
	}
	c, ok := back.Visualization.(Container)
	if !ok {
		t.Fatalf("visualization = %T, want Container", back.Visualization)
	}
	if !c.HasClass(PairClass) {
		t.Error("container lost its pair class")
	}
	if keys := c.Children.Keys(); strings.Join(keys, ",") != "goal,actual" {
		t.Errorf("children order = %v", keys)
	}
	goal, _ := c.Children.Get("goal")
	if tbl := goal.(Table); tbl.Empty == nil || *tbl.Empty != empty {
		t.Errorf("table empty message lost: %+v", tbl)
	}
	actual, _ := c.Children.Get("actual")
	if m := actual.(Markup); m.HTML != "<p>hi</p>" {
		t.Errorf("markup = %q", m.HTML)
	}
}

func TestOrdered_PreservesOrder(t *testing.T) {
	var o Ordered[int]
	o.Set("zeta", 1)
	o.Set("alpha", 2)
	o.Set("mid", 3)
	o.Set("zeta", 4)

	raw, err := json.Marshal(o)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"zeta":4,"alpha":2,"mid":3}` {
		t.Errorf("Marshal = %s", raw)
	}

	var back Ordered[int]
	if err := json.Unmarshal([]byte(`{"b":1,"a":2}`), &back); err != nil {
		t.Fatal(err)
	}
	if strings.Join(back.Keys(), ",") != "b,a" {
		t.Errorf("Keys = %v", back.Keys())
	}
}

func TestOrdered_EmptyArrayIsEmptyObject(t *testing.T) {
	var o Ordered[string]
	if err := json.Unmarshal([]byte(`[]`), &o); err != nil {
		t.Fatalf("Unmarshal([]) error = %v", err)
	}
	if o.Len() != 0 {
		t.Errorf("Len = %d, want 0", o.Len())
	}
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind Kind
	}{
		{"chart", `{"type":"chart","library":"chartjs","chartType":"bar","data":{"labels":[]},"options":[]}`, KindChart},
		{"table", `{"type":"table","header":["A"],"rows":[],"empty":null}`, KindTable},
		{"markup html alias", `{"type":"markup","html":"<b>x</b>"}`, KindMarkup},
		{"container php empty", `{"type":"container","attributes":[],"children":[]}`, KindContainer},
		{"missing type", `{"rows":[]}`, KindUnknown},
		{"unrecognized type", `{"type":"sankey"}`, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodePayload([]byte(tt.in))
			if err != nil {
				t.Fatalf("DecodePayload error = %v", err)
			}
			if p.Kind() != tt.kind {
				t.Errorf("Kind = %q, want %q", p.Kind(), tt.kind)
			}
		})
	}

	p, _ := DecodePayload([]byte(`{"type":"markup","html":"<b>x</b>"}`))
	if p.(Markup).HTML != "<b>x</b>" {
		t.Errorf("html alias not honoured: %+v", p)
	}

	if p, err := DecodePayload([]byte("null")); p != nil || err != nil {
		t.Errorf("null = (%v, %v), want (nil, nil)", p, err)
	}
}

func TestChart_EffectiveType(t *testing.T) {
	tests := map[string]string{
		"bar":      ChartBar,
		"pie":      ChartPie,
		"doughnut": ChartPie,
		"line":     ChartLine,
		"radar":    ChartLine,
		"":         ChartLine,
	}
	for in, want := range tests {
		if got := (Chart{ChartType: in}).EffectiveType(); got != want {
			t.Errorf("EffectiveType(%q) = %q, want %q", in, got, want)
		}
	}
}

type marker struct{ ID string }

func (m marker) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"__callback": m.ID})
}

func TestNormalize(t *testing.T) {
	p := NewChart(ChartLine, map[string]any{"datasets": []any{}}, map[string]any{
		"plugins": map[string]any{"tooltip": map[string]any{"label": marker{ID: "series_value"}}},
	})
	n, err := Normalize(p)
	if err != nil {
		t.Fatalf("Normalize error = %v", err)
	}
	label := n.(Chart).Options["plugins"].(map[string]any)["tooltip"].(map[string]any)["label"]
	m, ok := label.(map[string]any)
	if !ok || m["__callback"] != "series_value" {
		t.Errorf("label = %#v, want wire map", label)
	}
}

func TestContainer_Classes(t *testing.T) {
	c := Container{Attributes: map[string]any{"class": []any{"grid two", 3}}}
	if !c.HasClass("two") || !c.HasClass("grid") {
		t.Errorf("Classes = %v", c.Classes())
	}
	if (Container{}).HasClass(PairClass) {
		t.Error("empty container should have no classes")
	}
}
