package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Record is one row as canonical text, keyed by column name.
// A column missing from the map carries no information; an empty string is an empty value.
type Record map[string]string

// Clone returns a copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ID returns the integer merge key of the record.
func (r Record) ID() (int64, error) {
	v := r[KeyColumn]
	if v == "" {
		return 0, fmt.Errorf("empty %s", KeyColumn)
	}
	return strconv.ParseInt(v, 10, 64)
}

// Timestamp returns the modification time stored in column name.
// The zero time means the record has no usable timestamp.
func (r Record) Timestamp(name string) time.Time {
	if name == "" {
		return time.Time{}
	}
	v, ok := r[name]
	if !ok || v == "" {
		return time.Time{}
	}
	t, err := ParseDateTime(v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Subset returns the columns listed in cols that are present in r.
func (r Record) Subset(cols []string) Record {
	out := make(Record, len(cols))
	for _, c := range cols {
		if v, ok := r[c]; ok {
			out[c] = v
		}
	}
	return out
}

// String renders the record as sorted key=value pairs for logs.
func (r Record) String() string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+r[k])
	}
	return strings.Join(parts, " ")
}
