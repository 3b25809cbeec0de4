package cache

import (
	"encoding/json"
	"fmt"
)

// Payloads are stored as JSON. The backing column is jsonb and the values are
// consumed by JSON-speaking frontends, so the wire format is part of the
// contract rather than an implementation detail.

// Marshal serializes a value to JSON bytes.
func Marshal[T any](v T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cache: marshal failed: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes JSON bytes into a value of type T.
func Unmarshal[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("cache: unmarshal failed: %w", err)
	}
	return v, nil
}

// MustMarshal is like Marshal but panics on error. Intended for tests and
// pre-validated values.
func MustMarshal[T any](v T) []byte {
	data, err := Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("MustMarshal failed: %v", err))
	}
	return data
}
