// Package normalize turns loosely-typed event records into typed records a
// sink can serialize.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/seb-dataworks/streamsink/pkg/common"
)

// timeLayouts are the date/time forms an upstream producer emits (ISO 8601)
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z0700",
}

// ParseTime parses an ISO 8601 date/time. The parsed offset is kept so the
// wall clock survives formatting.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Coercer decides the semantic type of a raw value. It never fails: anything
// it cannot interpret falls through to Text or Null.
type Coercer struct {
	Nulls common.NullPolicy
}

// Coerce converts v. Numeric wins over every other interpretation, so the
// string "3.14" becomes Numeric(3.14).
func (c Coercer) Coerce(v common.RawValue) common.NormalizedValue {
	if f, ok := parseNumeric(v.String()); ok {
		return common.Numeric(f)
	}

	switch v.Kind {
	case common.RawTime:
		if t, ok := ParseTime(v.Text); ok {
			return common.Timestamp(t)
		}
		return c.empty()
	case common.RawNull:
		return c.empty()
	}

	if v.Text == "" {
		return c.empty()
	}
	return common.Text(v.Text)
}

func (c Coercer) empty() common.NormalizedValue {
	if c.Nulls == common.NullAsEmptyText {
		return common.Text("")
	}
	return common.Null()
}

// parseNumeric accepts decimal and exponent notation. Hex floats and
// non-finite values are left as text.
func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "xX_") {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
