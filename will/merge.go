package will

// DeepMerge returns a new map holding target overlaid with source. When a key
// maps to objects on both sides the objects are merged recursively; any other
// source value (arrays included) replaces the target value outright. Neither
// argument is modified.
func DeepMerge(target, source map[string]any) map[string]any {
	out := cloneMap(target)
	for k, sv := range source {
		sm, sIsMap := sv.(map[string]any)
		tm, tIsMap := out[k].(map[string]any)
		if sIsMap && tIsMap {
			out[k] = DeepMerge(tm, sm)
			continue
		}
		out[k] = cloneValue(sv)
	}
	return out
}

// MergeTopLevel overlays source keys onto target without recursing.
func MergeTopLevel(target, source map[string]any) map[string]any {
	out := cloneMap(target)
	for k, v := range source {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
