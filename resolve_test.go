package argstore

import (
	"reflect"
	"testing"
)

func TestResolveMatchesGetArgs(t *testing.T) {
	store := New()
	store.SetFuncArg(Wildcard, "color", "red")
	store.SetFuncArg(Wildcard, "size", 1)
	store.SetFuncArg(Named("paint"), "size", 2)
	override := Record{"opacity": 0.5}

	resolution := store.Resolve(Named("paint"), override)
	if !reflect.DeepEqual(resolution.Args, store.GetArgs(Named("paint"), override)) {
		t.Fatalf("Resolve and GetArgs disagree: %#v", resolution.Args)
	}
	if len(resolution.Layers) != 3 {
		t.Fatalf("expected three layers, got %d", len(resolution.Layers))
	}
	for i, scope := range []Scope{ScopeOverride, ScopeFunction, ScopeWildcard} {
		if resolution.Layers[i].Scope != scope {
			t.Fatalf("layer %d: expected %s, got %s", i, scope.Name, resolution.Layers[i].Scope.Name)
		}
		if !resolution.Layers[i].Present {
			t.Fatalf("layer %d should be present", i)
		}
	}
}

func TestResolveMarksMissingLayers(t *testing.T) {
	store := New()
	resolution := store.Resolve(Named("f"), nil)
	for _, layer := range resolution.Layers {
		if layer.Present {
			t.Fatalf("expected no layer to be present, got %s", layer.Scope.Name)
		}
	}
	if len(resolution.Args) != 0 {
		t.Fatalf("expected empty args, got %#v", resolution.Args)
	}
}

func TestResolveWildcardSkipsFunctionLayer(t *testing.T) {
	store := New()
	store.SetFuncArg(Wildcard, "a", 1)
	resolution := store.Resolve(Wildcard, nil)
	if len(resolution.Layers) != 2 {
		t.Fatalf("expected override and wildcard layers, got %d", len(resolution.Layers))
	}
	if resolution.Layers[1].Scope != ScopeWildcard {
		t.Fatalf("expected wildcard layer last, got %s", resolution.Layers[1].Scope.Name)
	}
}

func TestTraceReportsEffectiveAndShadowed(t *testing.T) {
	store := New()
	store.SetFuncArg(Wildcard, "x", 1)
	store.SetFuncArg(Named("f"), "x", 2)

	trace := store.Resolve(Named("f"), Record{"x": 3}).Trace("x")
	effective, ok := trace.Effective()
	if !ok {
		t.Fatalf("expected an effective layer")
	}
	if effective.Scope != ScopeOverride || effective.Value != 3 {
		t.Fatalf("unexpected effective provenance %+v", effective)
	}
	shadowed := trace.Shadowed()
	if len(shadowed) != 2 {
		t.Fatalf("expected two shadowed layers, got %d", len(shadowed))
	}
	if shadowed[0].Scope != ScopeFunction || shadowed[0].Value != 2 {
		t.Fatalf("unexpected function provenance %+v", shadowed[0])
	}
	if shadowed[1].Scope != ScopeWildcard || shadowed[1].Value != 1 {
		t.Fatalf("unexpected wildcard provenance %+v", shadowed[1])
	}
}

func TestTraceUnknownArgument(t *testing.T) {
	store := New()
	store.SetFuncArg(Named("f"), "x", 1)
	trace := store.Resolve(Named("f"), nil).Trace("missing")
	if _, ok := trace.Effective(); ok {
		t.Fatalf("expected no effective layer")
	}
	if len(trace.Shadowed()) != 0 {
		t.Fatalf("expected nothing shadowed")
	}
}

func TestTraceJSONRoundTrip(t *testing.T) {
	store := New()
	store.SetFuncArg(Named("f"), "color", "blue")
	trace := store.Resolve(Named("f"), nil).Trace("color")

	payload, err := trace.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	decoded, err := TraceFromJSON(payload)
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	effective, ok := decoded.Effective()
	if !ok || effective.Scope.Name != "function" || effective.Value != "blue" {
		t.Fatalf("unexpected decoded trace %+v", decoded)
	}
	if _, err := TraceFromJSON([]byte("{")); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}
