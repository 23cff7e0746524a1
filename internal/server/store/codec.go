package store

import (
	"encoding/json"
	"fmt"
)

// Encode converts a model into document fields using its JSON tags. Numbers
// become float64, so every backend compares values of the same shape.
func Encode(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return fields, nil
}

// Decode fills v from the record's fields.
func Decode(r Record, v any) error {
	b, err := json.Marshal(r.Fields)
	if err != nil {
		return fmt.Errorf("decode record %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode record %s: %w", r.ID, err)
	}
	return nil
}

// Normalize returns a deep copy of fields in Encode's value shapes.
func Normalize(fields map[string]any) (map[string]any, error) {
	if fields == nil {
		return map[string]any{}, nil
	}
	return Encode(fields)
}

// NormalizeValue converts a single filter value to the stored shape.
func NormalizeValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
