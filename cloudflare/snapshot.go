package cloudflare

import (
	"maps"
	"slices"
)

// Snapshot is the flattened totals of one analytics response, keyed by the
// dotted path of each metric. Values are int64, float64, string or bool.
type Snapshot map[string]any

// Keys returns the keys of s in sorted order.
func (s Snapshot) Keys() []string {
	return slices.Sorted(maps.Keys(s))
}

// Int returns the value of key as an int64. Float values are truncated.
// The boolean is false if key is absent or not a number.
func (s Snapshot) Int(key string) (int64, bool) {
	switch v := s[key].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// Float returns the value of key as a float64. The boolean is false if key
// is absent or not a number.
func (s Snapshot) Float(key string) (float64, bool) {
	switch v := s[key].(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}
