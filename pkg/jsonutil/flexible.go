// Package jsonutil holds decoding helpers for loosely-typed provider payloads.
package jsonutil

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// FlexibleStringValue converts a raw JSON value to a string, accepting numbers
// and booleans where a string is expected. Numbers keep their literal text so
// large integer IDs never lose precision. Returns "" for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal json.Number
	if err := json.Unmarshal(raw, &numVal); err == nil {
		return numVal.String()
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return string(raw)
}

// FlexibleString decodes a JSON string, number or boolean into its string
// form. Set reports whether the key was present with a non-null value.
type FlexibleString struct {
	Value string
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*f = FlexibleString{}
		return nil
	}
	switch trimmed[0] {
	case '{', '[':
		return fmt.Errorf("expected string or number, got %s", trimmed[:1])
	}
	*f = FlexibleString{Value: FlexibleStringValue(trimmed), Set: true}
	return nil
}

// MarshalJSON writes the value as a JSON string, or null when unset.
func (f FlexibleString) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// String returns the decoded value.
func (f FlexibleString) String() string {
	return f.Value
}
