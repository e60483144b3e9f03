package common

import (
	"strconv"
	"time"
)

// RawKind tags how a field value arrived from the upstream decoder
type RawKind int

const (
	RawNull RawKind = iota
	RawBool
	RawNumber
	RawString
	// RawTime marks a value the decoder recognised as a date/time, not merely a date-like string
	RawTime
)

// RawValue is an untyped field value as received. Text holds its textual form.
type RawValue struct {
	Kind RawKind
	Text string
}

func NullValue() RawValue { return RawValue{Kind: RawNull} }
func StringValue(s string) RawValue { return RawValue{Kind: RawString, Text: s} }
func NumberValue(text string) RawValue { return RawValue{Kind: RawNumber, Text: text} }
func TimeValue(text string) RawValue { return RawValue{Kind: RawTime, Text: text} }

func BoolValue(b bool) RawValue {
	return RawValue{Kind: RawBool, Text: strconv.FormatBool(b)}
}

// String returns the textual representation of the value; empty for null
func (v RawValue) String() string {
	if v.Kind == RawNull {
		return ""
	}
	return v.Text
}

// RawField is a name/value pair as received in a batch
type RawField struct {
	Name  string
	Value RawValue
}

// Record is an ordered sequence of raw fields. Fault is set by the decoder when
// the element could not be read as a key/value object.
type Record struct {
	Fields []RawField
	Fault  error
}

// Batch is the unit of work for one invocation
type Batch []Record

// ValueKind is the semantic type assigned by coercion
type ValueKind int

const (
	KindNull ValueKind = iota
	KindNumeric
	KindText
	KindTimestamp
)

func (k ValueKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	case KindTimestamp:
		return "timestamp"
	default:
		return "null"
	}
}

// TimestampLayout is the wall-clock representation used for timestamps
const TimestampLayout = "2006-01-02 15:04:05"

// NormalizedValue is the tagged result of coercing a RawValue
type NormalizedValue struct {
	Kind ValueKind
	Num  float64
	Str  string
	Time time.Time
}

func Numeric(f float64) NormalizedValue { return NormalizedValue{Kind: KindNumeric, Num: f} }
func Text(s string) NormalizedValue { return NormalizedValue{Kind: KindText, Str: s} }
func Timestamp(t time.Time) NormalizedValue { return NormalizedValue{Kind: KindTimestamp, Time: t} }
func Null() NormalizedValue { return NormalizedValue{Kind: KindNull} }

// String is the form bound as a query parameter or written as a text column
func (v NormalizedValue) String() string {
	switch v.Kind {
	case KindNumeric:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Str
	case KindTimestamp:
		return v.Time.Format(TimestampLayout)
	default:
		return ""
	}
}

// NormalizedField is a single coerced field
type NormalizedField struct {
	Name  string
	Value NormalizedValue
}

// NormalizedRecord holds coerced fields in arrival order. Names are unique.
type NormalizedRecord struct {
	Fields []NormalizedField
}

// Lookup returns the value stored under name
func (r NormalizedRecord) Lookup(name string) (NormalizedValue, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return NormalizedValue{}, false
}

// Names returns field names in order
func (r NormalizedRecord) Names() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}

// NullPolicy decides how a sink represents missing values
type NullPolicy int

const (
	// NullOmit keeps Null so the sink can drop the field
	NullOmit NullPolicy = iota
	// NullAsEmptyText turns null and unparseable timestamps into Text("")
	NullAsEmptyText
)
