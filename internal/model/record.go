package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Field is a single key/value pair of an imported row.
type Field struct {
	Key   string
	Value any
}

// RawRecord is an imported lead row with unknown schema. Column order is
// preserved through JSON round trips.
type RawRecord struct {
	Fields []Field
}

// nameKeys are probed in order when deriving a display name.
var nameKeys = []string{"name", "Name", "full_name", "Full Name", "email", "Email", "contact"}

// NewRawRecord builds a record from parallel header and value slices. Extra
// values beyond the header are dropped and missing values become "".
func NewRawRecord(header, values []string) RawRecord {
	r := RawRecord{Fields: make([]Field, 0, len(header))}
	for i, h := range header {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		r.Set(h, v)
	}
	return r
}

// Get returns the value for key and whether it was present.
func (r RawRecord) Get(key string) (any, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces the value for key, or appends it when absent.
func (r *RawRecord) Set(key string, value any) {
	for i := range r.Fields {
		if r.Fields[i].Key == key {
			r.Fields[i].Value = value
			return
		}
	}
	r.Fields = append(r.Fields, Field{Key: key, Value: value})
}

// Keys returns the column names in record order.
func (r RawRecord) Keys() []string {
	keys := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		keys[i] = f.Key
	}
	return keys
}

// Len returns the number of columns.
func (r RawRecord) Len() int { return len(r.Fields) }

// String returns the value for key rendered as text. Missing keys and nulls
// render as "".
func (r RawRecord) String(key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// DisplayName returns the best human label for the row: the first non-empty
// well-known name column, otherwise the first non-empty string value,
// otherwise fallback.
func (r RawRecord) DisplayName(fallback string) string {
	for _, k := range nameKeys {
		if v, ok := r.Get(k); ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	for _, f := range r.Fields {
		if s, ok := f.Value.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return fallback
}

// FormatValue renders a decoded JSON value as text.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// UnionKeys returns the sorted union of column names across records.
func UnionKeys(records []RawRecord) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for _, f := range r.Fields {
			seen[f.Key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON encodes the record as a JSON object in column order.
func (r RawRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, eris.Wrap(err, "model: marshal record key")
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, eris.Wrapf(err, "model: marshal record value %q", f.Key)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping key order. Numbers are kept
// as json.Number so they render exactly as supplied.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "model: decode record")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return eris.New("model: record must be a JSON object")
	}

	r.Fields = r.Fields[:0]
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "model: decode record key")
		}
		key, ok := tok.(string)
		if !ok {
			return eris.Errorf("model: unexpected record key %v", tok)
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return eris.Wrapf(err, "model: decode record value %q", key)
		}
		r.Set(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return eris.Wrap(err, "model: decode record end")
	}
	return nil
}
