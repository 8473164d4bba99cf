package document

import (
	"encoding/json"
	"math"
)

// ContainsValue is the sparse-merge predicate: a value contributes to a
// document iff it is non-nil and, for strings, non-empty.
func ContainsValue(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case Document:
		return v != nil
	case map[string]interface{}:
		return v != nil
	case []interface{}:
		return v != nil
	case []string:
		return v != nil
	default:
		return true
	}
}

// Valid reports whether value belongs to the closed value set: string,
// number, bool, mapping or list, recursively.
func Valid(value interface{}) bool {
	switch v := value.(type) {
	case string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
	case float64:
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	case []string:
		return true
	case Document:
		return validMap(v)
	case map[string]interface{}:
		return validMap(v)
	case []interface{}:
		for _, inner := range v {
			if !Valid(inner) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IsScalar reports whether value is a string, number or bool.
func IsScalar(value interface{}) bool {
	switch value.(type) {
	case Document, map[string]interface{}, []interface{}, []string, nil:
		return false
	}
	return Valid(value)
}

func validMap(m map[string]interface{}) bool {
	for _, inner := range m {
		if inner != nil && !Valid(inner) {
			return false
		}
	}
	return true
}

// Copy returns a value-wise copy of mappings and lists so the copy shares no
// mutable state with the source. Scalars are returned as is.
func Copy(value interface{}) interface{} {
	switch v := value.(type) {
	case Document:
		if v == nil {
			return nil
		}
		out := make(Document, len(v))
		for key, inner := range v {
			out[key] = Copy(inner)
		}
		return out
	case map[string]interface{}:
		if v == nil {
			return nil
		}
		out := make(Document, len(v))
		for key, inner := range v {
			out[key] = Copy(inner)
		}
		return out
	case []interface{}:
		if v == nil {
			return nil
		}
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = Copy(inner)
		}
		return out
	case []string:
		if v == nil {
			return nil
		}
		out := make([]string, len(v))
		copy(out, v)
		return out
	default:
		return v
	}
}

// CopyDocument deep-copies a mapping into a new Document.
func CopyDocument(m map[string]interface{}) Document {
	if m == nil {
		return nil
	}
	return Copy(map[string]interface{}(m)).(Document)
}

// Merge writes every entry of src that passes ContainsValue into dst, deep
// copying mappings and lists. It returns the number of entries written.
func Merge(dst Document, src map[string]interface{}) int {
	n := 0
	for key, value := range src {
		if !ContainsValue(value) {
			continue
		}
		dst[key] = Copy(value)
		n++
	}
	return n
}

// ToInt64 converts any integral number representation to int64.
func ToInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		// float64(math.MaxInt64) rounds up to 2^63
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		i, err := v.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// ToFloat64 converts any number representation to float64.
func ToFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		if i, ok := ToInt64(value); ok {
			return float64(i), true
		}
		return 0, false
	}
}
