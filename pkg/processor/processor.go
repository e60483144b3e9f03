package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/seb-dataworks/streamsink/pkg/common"
	"github.com/seb-dataworks/streamsink/pkg/metrics"
	"github.com/seb-dataworks/streamsink/pkg/normalize"
	"github.com/seb-dataworks/streamsink/pkg/sink"
	log "github.com/sirupsen/logrus"
)

// ErrEmptyBatch is reported for a batch without records
var ErrEmptyBatch = errors.New("batch contains no records")

// Processor drives one sink: it normalizes each record of a batch, writes it
// through a connection opened for that batch and aggregates the outcome
type Processor struct {
	sink       sink.Sink
	normalizer *normalize.Normalizer
	recorder   *metrics.Recorder
	logger     *log.Logger
}

// NewProcessor creates a new batch processor. recorder may be nil.
func NewProcessor(outputSink sink.Sink, logger *log.Logger, recorder *metrics.Recorder) *Processor {
	return &Processor{
		sink:       outputSink,
		normalizer: normalize.NewNormalizer(outputSink.Nulls(), logger),
		recorder:   recorder,
		logger:     logger,
	}
}

// Sink returns the sink this processor writes to
func (p *Processor) Sink() sink.Sink {
	return p.sink
}

// ProcessBatch writes batch in arrival order. Record failures are counted as
// skipped; only a failure to open or close the connection fails the batch.
func (p *Processor) ProcessBatch(ctx context.Context, batch common.Batch) (outcome common.BatchOutcome) {
	start := time.Now()
	outcome = common.BatchOutcome{
		BatchID:   uuid.NewString(),
		Sink:      p.sink.Name(),
		Target:    p.sink.Target(),
		Attempted: len(batch),
	}

	logger := p.logger.WithFields(log.Fields{
		"batch_id": outcome.BatchID,
		"sink":     outcome.Sink,
	})

	defer func() {
		p.recorder.Observe(outcome, time.Since(start))
		logger.WithField("status", outcome.Status).Info(outcome.Summary())
	}()

	if len(batch) == 0 {
		outcome.Status = common.StatusRejected
		outcome.Err = ErrEmptyBatch
		return outcome
	}

	logger.Debugf("Processing %d records into %s", len(batch), outcome.Target)

	conn, err := p.sink.Open(ctx)
	if err != nil {
		outcome.Status = common.StatusFailed
		outcome.Err = err
		outcome.Skipped = len(batch)
		return outcome
	}

	for i, rec := range batch {
		if err := p.processRecord(ctx, conn, i, rec); err != nil {
			logger.WithField("record", i).Warnf("Skipping record: %v", err)
			outcome.Skipped++
			// Continue with next record instead of failing entirely
			continue
		}
		outcome.Accepted++
	}

	if err := conn.Close(); err != nil {
		outcome.Status = common.StatusFailed
		outcome.Err = err
		return outcome
	}

	outcome.Written = outcome.Accepted
	if outcome.Skipped > 0 {
		outcome.Status = common.StatusPartial
	} else {
		outcome.Status = common.StatusOK
	}
	return outcome
}

// processRecord normalizes and writes one record. A panic in the sink is
// turned into a record error so the connection is still closed.
func (p *Processor) processRecord(ctx context.Context, conn sink.Connection, index int, rec common.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("write panicked: %v", r)
		}
	}()

	normalized, err := p.normalizer.Normalize(index, rec)
	if err != nil {
		return err
	}

	return conn.Write(ctx, normalized)
}
