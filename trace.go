package argstore

import (
	"encoding/json"
)

// Trace captures provenance information for one argument name across the
// layers of a resolution.
type Trace struct {
	Path   string       `json:"path"`
	Layers []Provenance `json:"layers"`
}

// Provenance details how a specific layer contributed to a traced argument.
type Provenance struct {
	Scope Scope  `json:"scope"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
	Found bool   `json:"found"`
}

// Effective returns the provenance entry whose value wins, if any layer
// defines the argument.
func (t Trace) Effective() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found {
			return layer, true
		}
	}
	return Provenance{}, false
}

// Shadowed returns the layers that define the argument but lose to a
// stronger one.
func (t Trace) Shadowed() []Provenance {
	var out []Provenance
	winner := true
	for _, layer := range t.Layers {
		if !layer.Found {
			continue
		}
		if winner {
			winner = false
			continue
		}
		out = append(out, layer)
	}
	return out
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
