package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawRecordJSONKeepsOrder(t *testing.T) {
	t.Parallel()

	input := `{"zeta":"z","alpha":"a","count":42,"flag":true,"nested":{"k":1},"none":null}`

	var r RawRecord
	require.NoError(t, json.Unmarshal([]byte(input), &r))
	assert.Equal(t, []string{"zeta", "alpha", "count", "flag", "nested", "none"}, r.Keys())

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, input, string(out))
	assert.Equal(t, `{"zeta":"z","alpha":"a"`, string(out[:len(`{"zeta":"z","alpha":"a"`)]))
}

func TestRawRecordUnmarshalRejectsNonObject(t *testing.T) {
	t.Parallel()

	var r RawRecord
	assert.Error(t, json.Unmarshal([]byte(`["a","b"]`), &r))
}

func TestRawRecordString(t *testing.T) {
	t.Parallel()

	var r RawRecord
	require.NoError(t, json.Unmarshal([]byte(`{"n":12.50,"b":false,"s":"x","o":{"a":1}}`), &r))

	assert.Equal(t, "12.50", r.String("n"))
	assert.Equal(t, "false", r.String("b"))
	assert.Equal(t, "x", r.String("s"))
	assert.Equal(t, `{"a":1}`, r.String("o"))
	assert.Equal(t, "", r.String("missing"))
}

func TestNewRawRecord(t *testing.T) {
	t.Parallel()

	r := NewRawRecord([]string{"name", "email", "company"}, []string{"Ada", "ada@example.com"})
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, "", r.String("company"))

	r.Set("email", "new@example.com")
	assert.Equal(t, "new@example.com", r.String("email"))
	assert.Equal(t, 3, r.Len())
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header []string
		values []string
		want   string
	}{
		{"name column", []string{"company", "name"}, []string{"Acme", "Ada"}, "Ada"},
		{"full name beats email", []string{"Email", "Full Name"}, []string{"a@b.c", "Ada Lovelace"}, "Ada Lovelace"},
		{"email fallback", []string{"company", "email"}, []string{"", "a@b.c"}, "a@b.c"},
		{"contact", []string{"contact"}, []string{"Grace"}, "Grace"},
		{"blank name skipped", []string{"name", "city"}, []string{"  ", "Paris"}, "Paris"},
		{"first non-empty string", []string{"x", "y"}, []string{"", "Acme"}, "Acme"},
		{"fallback", []string{"x"}, []string{""}, "there"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewRawRecord(tt.header, tt.values)
			assert.Equal(t, tt.want, r.DisplayName("there"))
		})
	}
}

func TestUnionKeys(t *testing.T) {
	t.Parallel()

	a := NewRawRecord([]string{"name", "email"}, []string{"a", "b"})
	b := NewRawRecord([]string{"company", "name"}, []string{"c", "d"})

	assert.Equal(t, []string{"company", "email", "name"}, UnionKeys([]RawRecord{a, b}))
	assert.Empty(t, UnionKeys(nil))
}
