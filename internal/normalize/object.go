// Package normalize converts the loosely-shaped payloads returned by the REST
// backend into the fixed domain types. Every decoder matches known shapes in a
// fixed order; anything unrecognizable becomes a ParseFailure instead of a
// half-filled value.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var errEmptyBody = errors.New("empty response body")

// Object is a decoded JSON object with lenient typed accessors
type Object map[string]any

// ParseJSON decodes a response body, keeping numbers as json.Number
func ParseJSON(body []byte) (any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errEmptyBody
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	return value, nil
}

// AsObject returns value as an Object when it is a JSON object
func AsObject(value any) (Object, bool) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, false
	}
	return Object(m), true
}

// Truthy applies JavaScript-style truthiness, which is what the backend's
// clients have historically relied on
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	}
	return true
}

// Truthy reports whether the field is present and truthy
func (o Object) Truthy(key string) bool {
	return Truthy(o[key])
}

// String returns a string field; numbers are rendered in their JSON form
func (o Object) String(key string) string {
	switch v := o[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

// FirstString returns the first non-empty string among keys
func (o Object) FirstString(keys ...string) string {
	for _, key := range keys {
		if s := o.String(key); s != "" {
			return s
		}
	}
	return ""
}

// Int returns an integer field, accepting numeric strings
func (o Object) Int(key string) int64 {
	switch v := o[key].(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return i
		}
	}
	return 0
}

// Bool returns a boolean field; anything that is not a JSON bool is false
func (o Object) Bool(key string) bool {
	b, _ := o[key].(bool)
	return b
}

// Array returns an array field
func (o Object) Array(key string) ([]any, bool) {
	arr, ok := o[key].([]any)
	return arr, ok
}

// Object returns a nested object field
func (o Object) Object(key string) (Object, bool) {
	return AsObject(o[key])
}

// Strings returns the string elements of an array field
func (o Object) Strings(key string) []string {
	arr, _ := o.Array(key)
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
