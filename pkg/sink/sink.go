package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/seb-dataworks/streamsink/pkg/common"
)

// ErrConnection marks failures that make the whole batch fail
var ErrConnection = errors.New("sink connection failed")

// Sink defines a persistence target. A Connection is opened per batch.
type Sink interface {
	// Name identifies the sink kind (influx, sql, csv)
	Name() string

	// Target is the measurement, table or file prefix records go to
	Target() string

	// Nulls tells the normalizer how this sink represents missing values
	Nulls() common.NullPolicy

	// Open acquires the connection for one batch
	Open(ctx context.Context) (Connection, error)
}

// Connection is owned by exactly one batch
type Connection interface {
	// Write persists a single record. An error only affects that record.
	Write(ctx context.Context, rec common.NormalizedRecord) error

	// Close flushes buffered writes and releases the connection. An error is
	// connection-level.
	Close() error
}

// RecordError rejects a record before anything is sent to the store
type RecordError struct {
	Field  string
	Reason string
}

func (e *RecordError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}
