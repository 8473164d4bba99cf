// Package document implements the nested key-value structure used for request
// and response bodies.
//
// A Document is a tree of string-keyed mappings, lists and scalar leaves. Paths
// are given as one key per segment; Split turns a dotted path such as
// "user.additional.timezone" into segments.
//
// Values stored in a Document are restricted to a closed set: strings, numbers,
// booleans, nested mappings and lists of those. Valid reports whether a value
// belongs to that set, so encoding and equality never hit an unknown type.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Document is a nested string-keyed mapping.
type Document map[string]interface{}

// New returns an empty document.
func New() Document {
	return Document{}
}

// Split turns a dotted path into its segments.
func Split(dotted string) []string {
	if dotted == "" {
		return nil
	}
	return strings.Split(dotted, ".")
}

// Get walks the path one key per segment. It returns (value, true) when the
// final key is present, even if its value is nil. If a key is missing, or an
// intermediate value is not itself a mapping, the result is (nil, false).
func (d Document) Get(path ...string) (interface{}, bool) {
	if d == nil || len(path) == 0 {
		return nil, false
	}

	current := map[string]interface{}(d)
	for i, key := range path {
		value, ok := current[key]
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return value, true
		}
		next, ok := asMap(value)
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// Has reports whether the path is present.
func (d Document) Has(path ...string) bool {
	_, ok := d.Get(path...)
	return ok
}

// GetString returns the string at path, or "" if absent or not a string.
func (d Document) GetString(path ...string) string {
	value, _ := d.Get(path...)
	s, _ := value.(string)
	return s
}

// GetInt64 returns the integer at path.
func (d Document) GetInt64(path ...string) (int64, bool) {
	value, ok := d.Get(path...)
	if !ok {
		return 0, false
	}
	return ToInt64(value)
}

// GetDocument returns the mapping at path.
func (d Document) GetDocument(path ...string) (Document, bool) {
	value, ok := d.Get(path...)
	if !ok {
		return nil, false
	}
	m, ok := asMap(value)
	if !ok {
		return nil, false
	}
	return Document(m), true
}

// Set stores value under a single key. A nil value removes the key.
func (d Document) Set(key string, value interface{}) {
	if value == nil {
		delete(d, key)
		return
	}
	d[key] = value
}

// SetPath stores value at path, creating intermediate mappings as needed. It
// fails if an intermediate key holds something other than a mapping.
func (d Document) SetPath(path []string, value interface{}) error {
	if len(path) == 0 {
		return fmt.Errorf("empty path")
	}

	current := map[string]interface{}(d)
	for i, key := range path[:len(path)-1] {
		next, exists := current[key]
		if !exists || next == nil {
			created := Document{}
			current[key] = created
			current = created
			continue
		}
		m, ok := asMap(next)
		if !ok {
			return fmt.Errorf("path %q: %q is not a mapping", strings.Join(path, "."), strings.Join(path[:i+1], "."))
		}
		current = m
	}

	last := path[len(path)-1]
	if value == nil {
		delete(current, last)
	} else {
		current[last] = value
	}
	return nil
}

// Marshal encodes the document as JSON.
func (d Document) Marshal() ([]byte, error) {
	return json.Marshal(map[string]interface{}(d))
}

// Parse decodes a JSON object. Numbers become int64 when integral, float64
// otherwise, and nested objects become Documents.
func Parse(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("failed to decode document: unexpected data after JSON value")
	}
	if raw == nil {
		return Document{}, nil
	}
	return normalize(raw).(Document), nil
}

func normalize(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		doc := make(Document, len(v))
		for key, inner := range v {
			doc[key] = normalize(inner)
		}
		return doc
	case []interface{}:
		list := make([]interface{}, len(v))
		for i, inner := range v {
			list[i] = normalize(inner)
		}
		return list
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	default:
		return v
	}
}

func asMap(value interface{}) (map[string]interface{}, bool) {
	switch m := value.(type) {
	case Document:
		return m, m != nil
	case map[string]interface{}:
		return m, m != nil
	default:
		return nil, false
	}
}
