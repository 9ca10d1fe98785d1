package revival

import (
	"testing"
	"time"

	"github.com/dalemusser/stratadash/internal/app/system/callbacks"
	"go.uber.org/zap"
)

func TestIsCandidate(t *testing.T) {
	tests := map[string]bool{
		"function (v) { return v; }": true,
		"  function(v){return v}":    true,
		"(v) => v + '%'":             true,
		"Members":                    false,
		"":                           false,
		"functional areas":           true,
		"=> v":                       false,
	}
	for in, want := range tests {
		if got := IsCandidate(in); got != want {
			t.Errorf("IsCandidate(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRevive_FunctionExpression(t *testing.T) {
	r := New(time.Second, zap.NewNop())
	b, ok := r.Revive("function (value) { return '$' + value; }")
	if !ok {
		t.Fatal("Revive returned false")
	}
	if got := b.Call(callbacks.Invocation{Value: 12}).String(); got != "$12" {
		t.Errorf("got %q, want $12", got)
	}
}

func TestRevive_ArrowWithContext(t *testing.T) {
	r := New(time.Second, zap.NewNop())
	b, ok := r.Revive("(ctx) => ctx.dataset.label + ': ' + ctx.raw")
	if !ok {
		t.Fatal("Revive returned false")
	}
	inv := callbacks.Invocation{Value: 5, Dataset: map[string]any{"label": "Donors"}}
	if got := b.Call(inv).String(); got != "Donors: 5" {
		t.Errorf("got %q", got)
	}
}

func TestRevive_MultipleLines(t *testing.T) {
	r := New(time.Second, nil)
	b, ok := r.Revive("function (items) { return ['a', 'b']; }")
	if !ok {
		t.Fatal("Revive returned false")
	}
	lines := b.Call(callbacks.Invocation{Items: []callbacks.Invocation{{DataIndex: 0}}})
	if len(lines) != 2 || lines[0] != "a" || lines[1] != "b" {
		t.Errorf("lines = %v", lines)
	}
}

func TestRevive_Failures(t *testing.T) {
	r := New(time.Second, zap.NewNop())

	if _, ok := r.Revive("Members"); ok {
		t.Error("non-candidate revived")
	}
	if r.Failures() != 0 {
		t.Errorf("non-candidate counted as failure")
	}

	for _, src := range []string{
		"function (v) { return v +; }",
		"(just a parenthetical note)",
		"(42)",
	} {
		if _, ok := r.Revive(src); ok {
			t.Errorf("Revive(%q) = true, want false", src)
		}
	}
	if r.Failures() != 3 {
		t.Errorf("Failures = %d, want 3", r.Failures())
	}
}

func TestRevive_NoHostEval(t *testing.T) {
	r := New(time.Second, zap.NewNop())
	b, ok := r.Revive("function () { return typeof eval + ',' + typeof Function; }")
	if !ok {
		t.Fatal("Revive returned false")
	}
	if got := b.Call(callbacks.Invocation{}).String(); got != "undefined,undefined" {
		t.Errorf("globals visible: %q", got)
	}
}

func TestRevive_Timeout(t *testing.T) {
	r := New(20*time.Millisecond, zap.NewNop())
	b, ok := r.Revive("function () { while (true) {} }")
	if !ok {
		t.Fatal("Revive returned false")
	}
	done := make(chan callbacks.Lines, 1)
	go func() { done <- b.Call(callbacks.Invocation{}) }()
	select {
	case lines := <-done:
		if lines != nil {
			t.Errorf("interrupted call returned %v", lines)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("call was not interrupted")
	}

	// The runtime stays usable after an interrupt.
	if got := b.Call(callbacks.Invocation{}); got != nil {
		t.Errorf("second call returned %v", got)
	}
}

func TestRevive_CannotMutateHostData(t *testing.T) {
	r := New(time.Second, zap.NewNop())
	b, _ := r.Revive("(ctx) => { ctx.dataset.label = 'hacked'; return 'ok'; }")
	ds := map[string]any{"label": "Donors"}
	b.Call(callbacks.Invocation{Dataset: ds})
	if ds["label"] != "Donors" {
		t.Errorf("host dataset mutated: %v", ds["label"])
	}
}

func TestReviver_HydratorIntegration(t *testing.T) {
	h := callbacks.NewHydrator(callbacks.NewRegistry(nil, nil), New(time.Second, nil), nil)
	out := h.HydrateMap(map[string]any{
		"formatter": "function (v) { return v * 2; }",
		"title":     "Donors",
		"broken":    "function (",
	})
	if _, ok := out["formatter"].(callbacks.Behavior); !ok {
		t.Errorf("formatter = %T, want Behavior", out["formatter"])
	}
	if out["title"] != "Donors" {
		t.Errorf("title = %v", out["title"])
	}
	if out["broken"] != "function (" {
		t.Errorf("broken source should pass through, got %v", out["broken"])
	}
}
