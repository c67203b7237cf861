package dispatch

import (
	"encoding/json"
	"sort"

	"github.com/goliatone/go-argstore"
)

// decodeObject accepts the untyped shapes a host may hand an entry point: a
// map, a Record, or JSON text/bytes holding an object.
func decodeObject(entryPoint string, input any) (map[string]any, error) {
	switch typed := input.(type) {
	case nil:
		return nil, invalid(entryPoint, "", "input is required")
	case map[string]any:
		return typed, nil
	case argstore.Record:
		return map[string]any(typed), nil
	case json.RawMessage:
		return decodeJSONObject(entryPoint, typed)
	case []byte:
		return decodeJSONObject(entryPoint, typed)
	case string:
		return decodeJSONObject(entryPoint, []byte(typed))
	default:
		return nil, invalid(entryPoint, "", "expected an object, got %T", input)
	}
}

func decodeJSONObject(entryPoint string, payload []byte) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(payload, &out); err != nil {
		verr := invalid(entryPoint, "", "is not a JSON object")
		verr.Err = err
		return nil, verr
	}
	if out == nil {
		return nil, invalid(entryPoint, "", "input is required")
	}
	return out, nil
}

// stringField reads a required string. Empty text is valid: an empty function
// name or argument name is stored like any other.
func stringField(entryPoint string, object map[string]any, field string) (string, error) {
	raw, ok := object[field]
	if !ok {
		return "", invalid(entryPoint, field, "is required")
	}
	text, ok := raw.(string)
	if !ok {
		return "", invalid(entryPoint, field, "must be a string, got %T", raw)
	}
	return text, nil
}

func recordValue(entryPoint, field string, raw any) (argstore.Record, error) {
	switch typed := raw.(type) {
	case map[string]any:
		return argstore.Record(typed), nil
	case argstore.Record:
		return typed, nil
	default:
		return nil, invalid(entryPoint, field, "must be an object of named values, got %T", raw)
	}
}

// recordField reads field as a Record. A missing or null optional field
// yields a nil record.
func recordField(entryPoint string, object map[string]any, field string, required bool) (argstore.Record, error) {
	raw, ok := object[field]
	if !ok || raw == nil {
		if required {
			return nil, invalid(entryPoint, field, "is required")
		}
		return nil, nil
	}
	return recordValue(entryPoint, field, raw)
}

// keyedRecordsField reads field as a map from key text to Record.
func keyedRecordsField(entryPoint string, object map[string]any, field string, store *argstore.Store) (map[argstore.Key]argstore.Record, error) {
	raw, ok := object[field]
	if !ok || raw == nil {
		return nil, invalid(entryPoint, field, "is required")
	}
	var keyed map[string]any
	switch typed := raw.(type) {
	case map[string]any:
		keyed = typed
	case map[string]argstore.Record:
		keyed = make(map[string]any, len(typed))
		for key, record := range typed {
			keyed[key] = record
		}
	case argstore.Snapshot:
		keyed = make(map[string]any, len(typed))
		for key, record := range typed {
			keyed[key] = record
		}
	default:
		return nil, invalid(entryPoint, field, "must map function keys to objects, got %T", raw)
	}

	names := make([]string, 0, len(keyed))
	for name := range keyed {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[argstore.Key]argstore.Record, len(keyed))
	for _, name := range names {
		record, err := recordValue(entryPoint, field+"."+name, keyed[name])
		if err != nil {
			return nil, err
		}
		out[store.ParseKey(name)] = record
	}
	return out, nil
}
