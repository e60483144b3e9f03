// Package metrics exports batch outcomes as Prometheus collectors.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/seb-dataworks/streamsink/pkg/common"
)

const namespace = "streamsink"

// Recorder counts records and batches per sink. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	records  *prometheus.CounterVec // streamsink_records_total
	batches  *prometheus.CounterVec // streamsink_batches_total
	duration *prometheus.HistogramVec
}

// NewRecorder creates the collectors and registers them with reg
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records per sink and result (attempted, written, skipped).",
		},
		[]string{"sink", "result"},
	)
	batches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches per sink and final status.",
		},
		[]string{"sink", "status"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time from connection open to outcome, per sink.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"sink"},
	)

	for name, c := range map[string]prometheus.Collector{
		"record counter":     records,
		"batch counter":      batches,
		"duration histogram": duration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register %s: %w", name, err)
		}
	}

	return &Recorder{
		records:  records,
		batches:  batches,
		duration: duration,
	}, nil
}

// Observe records one finished batch
func (r *Recorder) Observe(o common.BatchOutcome, elapsed time.Duration) {
	if r == nil {
		return
	}

	r.records.WithLabelValues(o.Sink, "attempted").Add(float64(o.Attempted))
	r.records.WithLabelValues(o.Sink, "written").Add(float64(o.Written))
	r.records.WithLabelValues(o.Sink, "skipped").Add(float64(o.Skipped))
	r.batches.WithLabelValues(o.Sink, o.Status.String()).Inc()
	r.duration.WithLabelValues(o.Sink).Observe(elapsed.Seconds())
}
