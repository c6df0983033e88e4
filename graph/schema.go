package graph

import (
	"fmt"
	"reflect"
)

// Reducer defines how one state field is updated. It takes the current value
// and the incoming value and returns the merged value.
type Reducer func(current, incoming any) (any, error)

// Schema is the per-field merge strategy table for a workflow's state.
// Fields without a registered reducer are overwritten wholesale.
type Schema struct {
	reducers map[string]Reducer
}

// NewSchema creates an empty schema (every field overwrites).
func NewSchema() *Schema {
	return &Schema{reducers: make(map[string]Reducer)}
}

// RegisterReducer sets the reducer for one field.
func (s *Schema) RegisterReducer(key string, reducer Reducer) {
	s.reducers[key] = reducer
}

// Apply merges a partial update into the current state and returns a new
// state. The current state is never mutated, and fields the update does not
// mention are carried over untouched.
func (s *Schema) Apply(current, update State) (State, error) {
	result := current.Clone()
	if result == nil {
		result = make(State)
	}

	for k, v := range update {
		reducer, ok := s.reducers[k]
		if !ok {
			result[k] = v
			continue
		}
		merged, err := reducer(result[k], v)
		if err != nil {
			return nil, fmt.Errorf("failed to reduce field %s: %w", k, err)
		}
		result[k] = merged
	}
	return result, nil
}

// OverwriteReducer replaces the old value with the new one. It is the
// implicit default; registering it explicitly just documents intent.
func OverwriteReducer(current, incoming any) (any, error) {
	return incoming, nil
}

// AppendReducer concatenates the incoming value onto the current slice.
// It accepts a slice or a single element as the incoming value, and starts a
// new slice when the current value is nil. Elements of differing concrete
// types (e.g. after a JSON round trip) are widened to []any.
func AppendReducer(current, incoming any) (any, error) {
	if incoming == nil {
		return current, nil
	}
	if current == nil {
		incomingVal := reflect.ValueOf(incoming)
		if incomingVal.Kind() == reflect.Slice {
			return incoming, nil
		}
		sliceType := reflect.SliceOf(reflect.TypeOf(incoming))
		slice := reflect.MakeSlice(sliceType, 0, 1)
		return reflect.Append(slice, incomingVal).Interface(), nil
	}

	currVal := reflect.ValueOf(current)
	incomingVal := reflect.ValueOf(incoming)

	if currVal.Kind() != reflect.Slice {
		return nil, fmt.Errorf("append reducer: current value is not a slice (%T)", current)
	}

	if incomingVal.Kind() == reflect.Slice {
		if currVal.Type().Elem() != incomingVal.Type().Elem() {
			result := make([]any, 0, currVal.Len()+incomingVal.Len())
			for i := 0; i < currVal.Len(); i++ {
				result = append(result, currVal.Index(i).Interface())
			}
			for i := 0; i < incomingVal.Len(); i++ {
				result = append(result, incomingVal.Index(i).Interface())
			}
			return result, nil
		}
		return reflect.AppendSlice(currVal, incomingVal).Interface(), nil
	}

	if currVal.Type().Elem() != incomingVal.Type() {
		result := make([]any, 0, currVal.Len()+1)
		for i := 0; i < currVal.Len(); i++ {
			result = append(result, currVal.Index(i).Interface())
		}
		return append(result, incoming), nil
	}
	return reflect.Append(currVal, incomingVal).Interface(), nil
}
