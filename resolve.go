package argstore

import (
	"github.com/goliatone/go-argstore/layering"
)

const (
	// Priorities of the resolution layers. Higher numbers win.
	ScopePriorityWildcard = 100
	ScopePriorityFunction = 200
	ScopePriorityOverride = 300
)

// Scope names one layer of a resolution.
type Scope struct {
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	Priority int    `json:"priority"`
}

var (
	ScopeOverride = Scope{Name: "override", Label: "Call Override", Priority: ScopePriorityOverride}
	ScopeFunction = Scope{Name: "function", Label: "Function Defaults", Priority: ScopePriorityFunction}
	ScopeWildcard = Scope{Name: "wildcard", Label: "Wildcard Defaults", Priority: ScopePriorityWildcard}
)

// Layer pairs a scope with the record it contributed. Present is false when
// the scope had nothing stored (or no override was supplied).
type Layer struct {
	Scope   Scope
	Record  Record
	Present bool
}

// Resolution is the effective record for one call together with the layers
// that produced it, ordered strongest to weakest.
type Resolution struct {
	Key    Key
	Args   Record
	Layers []Layer
}

// Resolve computes the same effective record as GetArgs while keeping the
// contributing layers for provenance queries.
func (s *Store) Resolve(key Key, override Record) Resolution {
	layers := []Layer{
		newLayer(ScopeOverride, override, override != nil),
	}
	if !key.IsWildcard() {
		function, ok := s.records[key]
		layers = append(layers, newLayer(ScopeFunction, function, ok))
	}
	wildcard, ok := s.records[Wildcard]
	layers = append(layers, newLayer(ScopeWildcard, wildcard, ok))

	records := make([]map[string]any, len(layers))
	for i, layer := range layers {
		records[i] = layer.Record
	}
	return Resolution{
		Key:    key,
		Args:   Record(layering.MergeRecords(records...)),
		Layers: layers,
	}
}

// Trace reports, for argument name, which layers define it and with what
// value. The first found layer is the one whose value is effective.
func (r Resolution) Trace(name string) Trace {
	trace := Trace{Path: name, Layers: make([]Provenance, 0, len(r.Layers))}
	for _, layer := range r.Layers {
		value, found := layer.Record[name]
		entry := Provenance{Scope: layer.Scope, Path: name, Found: found}
		if found {
			entry.Value = layering.CloneValue(value)
		}
		trace.Layers = append(trace.Layers, entry)
	}
	return trace
}

func newLayer(scope Scope, record Record, present bool) Layer {
	if !present {
		return Layer{Scope: scope}
	}
	return Layer{Scope: scope, Record: record.Clone(), Present: true}
}
