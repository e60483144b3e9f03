// Package decode reads a posted event batch into ordered records.
package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/seb-dataworks/streamsink/pkg/common"
	"github.com/seb-dataworks/streamsink/pkg/normalize"
)

// ErrNoData is returned for an absent or null body
var ErrNoData = errors.New("no data received")

// ErrTrailingData is returned when more input follows the batch value
var ErrTrailingData = errors.New("trailing data")

// ErrNotObject marks a batch element that is not a key/value object
var ErrNotObject = errors.New("element is not an object")

// Batch decodes a JSON array of objects, or a single object, keeping field
// order. Strings in ISO 8601 date/time form are tagged as time values.
func Batch(data []byte) (common.Batch, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNoData
	}

	iter := jsoniter.ParseBytes(jsoniter.ConfigDefault, data)

	var batch common.Batch
	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		return nil, ErrNoData
	case jsoniter.ObjectValue:
		batch = common.Batch{readRecord(iter)}
	case jsoniter.ArrayValue:
		batch = common.Batch{}
		iter.ReadArrayCB(func(iter *jsoniter.Iterator) bool {
			batch = append(batch, readRecord(iter))
			return iter.Error == nil
		})
	default:
		return nil, fmt.Errorf("expected a JSON array of objects")
	}

	if iter.Error != nil {
		return nil, fmt.Errorf("invalid JSON: %w", iter.Error)
	}

	// the iterator reports io.EOF once the input is exhausted
	iter.WhatIsNext()
	if iter.Error == nil {
		return nil, fmt.Errorf("invalid JSON: %w", ErrTrailingData)
	}
	if !errors.Is(iter.Error, io.EOF) {
		return nil, fmt.Errorf("invalid JSON: %w", iter.Error)
	}
	return batch, nil
}

func readRecord(iter *jsoniter.Iterator) common.Record {
	if iter.WhatIsNext() != jsoniter.ObjectValue {
		iter.Skip()
		return common.Record{Fault: ErrNotObject}
	}

	var rec common.Record
	iter.ReadObjectCB(func(iter *jsoniter.Iterator, name string) bool {
		rec.Fields = append(rec.Fields, common.RawField{Name: name, Value: readValue(iter)})
		return iter.Error == nil
	})
	return rec
}

func readValue(iter *jsoniter.Iterator) common.RawValue {
	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		iter.ReadNil()
		return common.NullValue()
	case jsoniter.BoolValue:
		return common.BoolValue(iter.ReadBool())
	case jsoniter.NumberValue:
		return common.NumberValue(string(iter.ReadNumber()))
	case jsoniter.StringValue:
		s := iter.ReadString()
		if _, ok := normalize.ParseTime(s); ok {
			return common.TimeValue(s)
		}
		return common.StringValue(s)
	default:
		// nested objects and arrays are kept as their compact JSON text
		raw := iter.SkipAndReturnBytes()
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return common.StringValue(string(raw))
		}
		return common.StringValue(buf.String())
	}
}
