package store

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// IDField is set on documents returned by reads when the stored data does
// not carry its own id.
const IDField = "id"

// Document is a JSON-compatible field map. Values decoded from JSON arrive
// as float64, []any and map[string]any; the accessors accept those as well
// as native Go types.
type Document map[string]any

// String returns a string field, or "" when absent or not a string.
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Has reports whether the field is present and non-nil.
func (d Document) Has(key string) bool {
	v, ok := d[key]
	return ok && v != nil
}

// Strings returns a list-of-strings field. Non-string elements are skipped.
func (d Document) Strings(key string) []string {
	switch v := d[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Int returns an integer field. Floats count only when integral; strings
// never count.
func (d Document) Int(key string) (int, bool) {
	switch v := d[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int(v), true
		}
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}

// Float returns a numeric field.
func (d Document) Float(key string) (float64, bool) {
	switch v := d[key].(type) {
	case float64:
		return v, !math.IsNaN(v)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Time returns a timestamp field stored as time.Time, an RFC 3339 string,
// or Unix seconds.
func (d Document) Time(key string) (time.Time, bool) {
	switch v := d[key].(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v != nil {
			return *v, true
		}
	case string:
		if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v)); err == nil {
			return t, true
		}
	default:
		if secs, ok := d.Float(key); ok {
			whole, frac := math.Modf(secs)
			return time.Unix(int64(whole), int64(frac*1e9)).UTC(), true
		}
	}
	return time.Time{}, false
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]any(d)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case Document:
		return Document(cloneValue(map[string]any(t)).(map[string]any))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	}
	return v
}

// FromStruct converts a JSON-tagged value into a Document.
func FromStruct(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func withID(doc Document, id string) Document {
	if doc == nil {
		doc = Document{}
	}
	if !doc.Has(IDField) {
		doc[IDField] = id
	}
	return doc
}
