package normalize

import (
	"errors"
	"fmt"

	"github.com/seb-dataworks/streamsink/pkg/common"
	log "github.com/sirupsen/logrus"
)

var (
	ErrEmptyFieldName = errors.New("empty field name")
	ErrDuplicateField = errors.New("duplicate field name")
)

// Error is a record-level normalization failure. It never aborts sibling
// records in the batch.
type Error struct {
	Index int
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Normalizer walks a record's fields in order and coerces each value
type Normalizer struct {
	coercer Coercer
	logger  *log.Logger
}

// NewNormalizer creates a normalizer using the null policy of the target sink
func NewNormalizer(nulls common.NullPolicy, logger *log.Logger) *Normalizer {
	return &Normalizer{
		coercer: Coercer{Nulls: nulls},
		logger:  logger,
	}
}

// Normalize converts the record at position index. Any fault, including a
// panic during the walk, comes back as *Error.
func (n *Normalizer) Normalize(index int, rec common.Record) (out common.NormalizedRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = common.NormalizedRecord{}
			err = &Error{Index: index, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	if rec.Fault != nil {
		return common.NormalizedRecord{}, &Error{Index: index, Cause: rec.Fault}
	}

	seen := make(map[string]struct{}, len(rec.Fields))
	out.Fields = make([]common.NormalizedField, 0, len(rec.Fields))

	for _, field := range rec.Fields {
		if field.Name == "" {
			return common.NormalizedRecord{}, &Error{Index: index, Cause: ErrEmptyFieldName}
		}
		if _, dup := seen[field.Name]; dup {
			return common.NormalizedRecord{}, &Error{
				Index: index,
				Cause: fmt.Errorf("%w: %q", ErrDuplicateField, field.Name),
			}
		}
		seen[field.Name] = struct{}{}

		out.Fields = append(out.Fields, common.NormalizedField{
			Name:  field.Name,
			Value: n.coercer.Coerce(field.Value),
		})
	}

	n.logger.WithField("record", index).Debugf("Parsed message: %s", common.JoinFields(out))
	return out, nil
}
