package models

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes an absent field from one explicitly set, including
// set-to-null. Update operations leave absent fields untouched, so plain
// pointers are not enough to carry the caller's intent.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a present, non-null Optional
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null returns a present Optional carrying an explicit null
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// Present reports whether the field was supplied with a non-null value
func (o Optional[T]) Present() bool {
	return o.Set && !o.Null
}

// UnmarshalJSON marks the field as set; encoding/json only calls this for
// keys that appear in the payload.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON round-trips the carried value; absent fields marshal as null
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
