package config

import (
	"fmt"
	"reflect"
)

// Options is the per-invocation configuration layer.
type Options map[string]any

// MergeLayers deep-merges layers from left to right into a new map.
//
// Later scalars override earlier ones, nested maps are merged recursively and
// array-valued fields are concatenated (earlier ++ later). Nil layers and nil
// values are skipped. Inputs are never modified.
func MergeLayers(layers ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		mergeInto(out, layer)
	}
	return out
}

// mergeInto merges src into dst. dst only ever holds values cloned by this package.
func mergeInto(dst, src map[string]any) {
	for key, raw := range src {
		if raw == nil {
			continue
		}
		value := normalize(raw)
		switch existing := dst[key].(type) {
		case []any:
			dst[key] = concat(existing, value)
			continue
		case map[string]any:
			if nested, ok := value.(map[string]any); ok {
				mergeInto(existing, nested)
				continue
			}
		}
		dst[key] = clone(value)
	}
}

// concat appends value to base; a slice value is spread, anything else is appended as one element.
func concat(base []any, value any) []any {
	out := make([]any, 0, len(base)+1)
	out = append(out, base...)
	if items, ok := value.([]any); ok {
		for _, item := range items {
			out = append(out, clone(item))
		}
		return out
	}
	return append(out, clone(value))
}

// normalize converts typed slices and string-keyed maps into []any and map[string]any.
func normalize(v any) any {
	switch t := v.(type) {
	case nil, []any, map[string]any:
		return v
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = val
		}
		return out
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = iter.Value().Interface()
		}
		return out
	default:
		return v
	}
}

func clone(v any) any {
	switch t := normalize(v).(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = clone(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = clone(val)
		}
		return out
	default:
		return t
	}
}
