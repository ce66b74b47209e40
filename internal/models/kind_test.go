package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_Canonical(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
		kind     Kind
		wantErr  bool
	}{
		{name: "string kept verbatim", kind: KindString, raw: "  Ana ", expected: "  Ana "},
		{name: "empty int", kind: KindInt, raw: " ", expected: ""},
		{name: "int", kind: KindInt, raw: "007", expected: "7"},
		{name: "bad int", kind: KindInt, raw: "7a", wantErr: true},
		{name: "decimal trailing zeros", kind: KindDecimal, raw: "120.50", expected: "120.5"},
		{name: "decimal integer", kind: KindDecimal, raw: "120.00", expected: "120"},
		{name: "bad decimal", kind: KindDecimal, raw: "12,5", wantErr: true},
		{name: "bool from int", kind: KindBool, raw: "1", expected: "true"},
		{name: "bool word", kind: KindBool, raw: "False", expected: "false"},
		{name: "bad bool", kind: KindBool, raw: "maybe", wantErr: true},
		{name: "date", kind: KindDate, raw: "2025-09-01", expected: "2025-09-01"},
		{name: "bad date", kind: KindDate, raw: "01/09/2025", wantErr: true},
		{name: "time without seconds", kind: KindTime, raw: "09:30", expected: "09:30:00"},
		{name: "time", kind: KindTime, raw: "17:45:10", expected: "17:45:10"},
		{name: "datetime naive is utc", kind: KindDateTime, raw: "2025-09-01T10:00:00", expected: "2025-09-01T10:00:00Z"},
		{name: "datetime offset", kind: KindDateTime, raw: "2025-09-01T12:00:00+02:00", expected: "2025-09-01T10:00:00Z"},
		{name: "datetime space separated", kind: KindDateTime, raw: "2025-09-01 10:00:00", expected: "2025-09-01T10:00:00Z"},
		{name: "datetime fraction", kind: KindDateTime, raw: "2025-09-01T10:00:00.250Z", expected: "2025-09-01T10:00:00.25Z"},
		{name: "bad datetime", kind: KindDateTime, raw: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.kind.Canonical(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)

			// каноническая форма стабильна
			again, err := tt.kind.Canonical(got)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestKind_SQLValue(t *testing.T) {
	assert.Nil(t, KindInt.SQLValue(""))
	assert.Equal(t, int64(42), KindInt.SQLValue("42"))
	assert.Equal(t, int64(1), KindBool.SQLValue("true"))
	assert.Equal(t, int64(0), KindBool.SQLValue("false"))
	assert.Equal(t, "12.5", KindDecimal.SQLValue("12.5"))
	assert.Equal(t, "x", KindString.SQLValue("x"))
}

func TestRecord_Timestamp(t *testing.T) {
	rec := Record{"updated_at": "2025-09-01T10:00:00Z", "bad": "nope", "empty": ""}

	assert.False(t, rec.Timestamp("updated_at").IsZero())
	assert.True(t, rec.Timestamp("bad").IsZero())
	assert.True(t, rec.Timestamp("empty").IsZero())
	assert.True(t, rec.Timestamp("missing").IsZero())
	assert.True(t, rec.Timestamp("").IsZero())
}

func TestRecord_ID(t *testing.T) {
	id, err := Record{"id": "12"}.ID()
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	_, err = Record{}.ID()
	assert.Error(t, err)
}
