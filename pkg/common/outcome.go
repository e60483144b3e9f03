package common

import "fmt"

// Status is the overall result of a batch
type Status int

const (
	// StatusOK means every attempted record was written
	StatusOK Status = iota
	// StatusPartial means the connection held but some records were skipped
	StatusPartial
	// StatusFailed is a connection-level failure, fatal for the batch
	StatusFailed
	// StatusRejected means the batch was missing or empty
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusPartial:
		return "partial"
	case StatusFailed:
		return "failed"
	case StatusRejected:
		return "rejected"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// BatchOutcome is the aggregated result of one batch. Accepted counts records
// handed to the sink; Written equals Accepted unless a connection-level error
// made delivery unconfirmed, in which case it is zero.
type BatchOutcome struct {
	BatchID   string
	Sink      string
	Target    string
	Attempted int
	Accepted  int
	Written   int
	Skipped   int
	Status    Status
	Err       error
}

// Fatal reports a connection-level failure
func (o BatchOutcome) Fatal() bool {
	return o.Status == StatusFailed
}

// Summary renders the human-readable outcome line
func (o BatchOutcome) Summary() string {
	switch o.Status {
	case StatusRejected:
		return "No POST data received"
	case StatusFailed:
		if o.Accepted > 0 {
			return fmt.Sprintf("Could not write to %s: %v. %d records might have been lost", o.Sink, o.Err, o.Accepted)
		}
		return fmt.Sprintf("Could not write to %s: %v", o.Sink, o.Err)
	default:
		return fmt.Sprintf("%d of total %d records written", o.Written, o.Attempted)
	}
}
