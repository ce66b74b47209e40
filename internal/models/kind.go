package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind describes how a field value is parsed and rendered as canonical text.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindDecimal
	KindBool
	KindDate
	KindTime
	KindDateTime
)

const (
	// DateLayout канонический формат даты (ISO-8601)
	DateLayout = "2006-01-02"
	// TimeLayout канонический формат времени суток
	TimeLayout = "15:04:05"
)

// dateTimeLayouts перечисляет принимаемые варианты ISO-8601 с временем.
// Значения без часового пояса считаются UTC.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

var timeLayouts = []string{
	TimeLayout,
	"15:04",
}

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindDecimal:
		return "decimal"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindDateTime:
		return "datetime"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Canonical parses raw and returns its canonical text form.
// Empty input (after trimming, for non-string kinds) is the empty value.
func (k Kind) Canonical(raw string) (string, error) {
	if k == KindString {
		return raw, nil
	}

	s := strings.TrimSpace(raw)
	if s == "" {
		return "", nil
	}

	switch k {
	case KindInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid int %q", raw)
		}
		return strconv.FormatInt(n, 10), nil
	case KindDecimal:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return "", fmt.Errorf("invalid decimal %q", raw)
		}
		return d.String(), nil
	case KindBool:
		switch strings.ToLower(s) {
		case "1", "true", "t", "yes", "y":
			return "true", nil
		case "0", "false", "f", "no", "n":
			return "false", nil
		}
		return "", fmt.Errorf("invalid bool %q", raw)
	case KindDate:
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return "", fmt.Errorf("invalid date %q", raw)
		}
		return t.Format(DateLayout), nil
	case KindTime:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(TimeLayout), nil
			}
		}
		return "", fmt.Errorf("invalid time %q", raw)
	case KindDateTime:
		t, err := ParseDateTime(s)
		if err != nil {
			return "", err
		}
		return FormatDateTime(t), nil
	}

	return "", fmt.Errorf("unsupported kind %s", k)
}

// SQLValue converts canonical text into the value bound to a SQL parameter.
// The empty value binds as NULL.
func (k Kind) SQLValue(canonical string) any {
	if canonical == "" {
		return nil
	}
	switch k {
	case KindInt:
		if n, err := strconv.ParseInt(canonical, 10, 64); err == nil {
			return n
		}
	case KindBool:
		if canonical == "true" {
			return int64(1)
		}
		return int64(0)
	}
	return canonical
}

// ParseDateTime parses any accepted ISO-8601 datetime.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q", s)
}

// FormatDateTime renders t in the canonical datetime form (RFC 3339, UTC).
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
