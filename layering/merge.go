package layering

// MergeRecords composes records ordered from strongest to weakest and returns
// a new record. Keys are overlaid shallowly: a stronger layer replaces the
// whole value of a weaker one, nested maps included. Nil layers are skipped.
func MergeRecords(layers ...map[string]any) map[string]any {
	merged := map[string]any{}
	for i := len(layers) - 1; i >= 0; i-- {
		Overlay(merged, layers[i])
	}
	return merged
}

// Overlay copies every key of src into dst, overwriting existing keys. Values
// are cloned so dst never shares containers with src.
func Overlay(dst, src map[string]any) {
	for key, value := range src {
		dst[key] = CloneValue(value)
	}
}

// CloneMap returns a detached copy of m. A nil map yields an empty map.
func CloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	Overlay(out, m)
	return out
}

// CloneValue copies the untyped containers produced by decoders (JSON, YAML,
// host marshalling) so callers cannot reach stored state through a returned
// value. Other values are returned as-is.
func CloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		if typed == nil {
			return typed
		}
		return CloneMap(typed)
	case []any:
		if typed == nil {
			return typed
		}
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = CloneValue(typed[i])
		}
		return out
	case map[string]string:
		if typed == nil {
			return typed
		}
		out := make(map[string]string, len(typed))
		for key, value := range typed {
			out[key] = value
		}
		return out
	case []string:
		if typed == nil {
			return typed
		}
		return append([]string(nil), typed...)
	default:
		return value
	}
}
