// Package model holds the OmniFocus data model shared by the bridge layers.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Optional is a tri-state request field. Set is false when the key was
// absent; Null is true when the key was present with a JSON null, which
// update operations treat as "clear".
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns an Optional holding value.
func Some[T any](value T) Optional[T] {
	return Optional[T]{Set: true, Value: value}
}

// Clear returns an Optional that clears the field.
func Clear[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// Ptr returns nil when the field is unset or null.
func (o Optional[T]) Ptr() *T {
	if !o.Set || o.Null {
		return nil
	}
	value := o.Value
	return &value
}

// IDList is one identifier or a list of identifiers. A single string is
// normalized to a one-element list.
type IDList []string

func (l *IDList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}
	if trimmed[0] == '"' {
		var single string
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}
		*l = IDList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(trimmed, &many); err != nil {
		return fmt.Errorf("ids must be a string or a list of strings: %w", err)
	}
	*l = IDList(many)
	return nil
}

func (l IDList) String() string {
	return strings.Join(l, ",")
}
