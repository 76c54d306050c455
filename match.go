package xhab

import (
	"bytes"
	"reflect"
)

// Match reports whether msg satisfies filter.
//
// The filter is a subset predicate: every key present in the filter must be
// present in the message with an equal value. Nested maps apply the same rule
// recursively, so a filter can pin a subset of a nested payload. Keys present
// in the message but absent from the filter are ignored, which lets a
// subscriber filter coarsely (typically on "type") while disregarding payload
// fields. An empty filter matches everything.
//
// Scalar equality is type-normalized: numeric values compare by value across
// representation widths (int vs int64 vs float64), strings compare by exact
// content case-sensitively, byte sequences by content. Match is deterministic
// and side-effect free; it runs once per (message, subscriber) pair on the
// dispatch hot path.
func Match(msg, filter Message) bool {
	return subsetMatch(map[string]any(msg), map[string]any(filter))
}

func subsetMatch(msg, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := msg[k]
		if !ok {
			return false
		}
		if !valueEqual(got, want) {
			return false
		}
	}
	return true
}

// valueEqual compares one message value against one filter value under the
// normalization rules of Match.
func valueEqual(got, want any) bool {
	if want == nil {
		return got == nil
	}

	switch w := want.(type) {
	case map[string]any:
		g, ok := asMap(got)
		if !ok {
			return false
		}
		return subsetMatch(g, w)
	case Message:
		g, ok := asMap(got)
		if !ok {
			return false
		}
		return subsetMatch(g, map[string]any(w))
	case string:
		g, ok := got.(string)
		return ok && g == w
	case bool:
		g, ok := got.(bool)
		return ok && g == w
	case []byte:
		g, ok := got.([]byte)
		return ok && bytes.Equal(g, w)
	case []any:
		g, ok := got.([]any)
		if !ok || len(g) != len(w) {
			return false
		}
		for i := range w {
			if !valueEqual(g[i], w[i]) {
				return false
			}
		}
		return true
	}

	if wf, ok := asFloat(want); ok {
		gf, gok := asFloat(got)
		return gok && gf == wf
	}

	// Typed slices, maps, and other uncomparable dynamic types would make
	// the interface comparison below panic when both sides hold the same
	// type. Match must stay total on arbitrary payload values.
	if !reflect.TypeOf(want).Comparable() {
		return reflect.DeepEqual(got, want)
	}
	return got == want
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Message:
		return map[string]any(m), true
	}
	return nil, false
}

// asFloat normalizes every numeric representation to float64. Event payloads
// arrive as typed Go values from native publishers, as float64 from JSON
// decoding, and as int64/float64 from the scripting bridge; they all have to
// compare equal by numeric value.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
