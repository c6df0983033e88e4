package graph

import (
	"encoding/json"
	"fmt"
	"maps"
)

// State is the keyed session state record. Nodes read it and return partial
// State updates; the schema merges updates without ever clearing fields an
// update does not mention.
type State map[string]any

// Clone returns a copy with its own key set. Values are shared.
func (s State) Clone() State {
	out := make(State, len(s))
	maps.Copy(out, s)
	return out
}

// Has reports whether the key is present with a non-nil value. Absent is a
// valid case for absent-until-set fields, distinct from any zero value.
func (s State) Has(key string) bool {
	v, ok := s[key]
	return ok && v != nil
}

// String returns the string at key, or "" if absent or not a string.
func (s State) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Bool returns the bool at key, or false if absent or not a bool.
func (s State) Bool(key string) bool {
	v, _ := s[key].(bool)
	return v
}

// Int returns the int at key. JSON round-trips store numbers as float64, so
// both forms are accepted.
func (s State) Int(key string) int {
	switch v := s[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// StringSlice returns the string slice at key. A []any holding strings (the
// shape produced by a JSON round-trip through a durable store) is converted.
func (s State) StringSlice(key string) []string {
	switch v := s[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// IntMap returns the map[string]int at key, converting the generic map shape
// produced by a JSON round-trip.
func (s State) IntMap(key string) map[string]int {
	switch v := s[key].(type) {
	case map[string]int:
		return v
	case map[string]any:
		out := make(map[string]int, len(v))
		for k, item := range v {
			switch n := item.(type) {
			case int:
				out[k] = n
			case float64:
				out[k] = int(n)
			}
		}
		return out
	default:
		return nil
	}
}

// Reencode converts a state value into a typed destination via a JSON round
// trip. It accepts both the typed form (value stored by a node in the same
// process) and the generic map form (value loaded from a durable store).
func Reencode(v any, out any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to re-encode state value: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode state value: %w", err)
	}
	return nil
}
