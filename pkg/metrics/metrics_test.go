package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/seb-dataworks/streamsink/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)

	r.Observe(common.BatchOutcome{Sink: "sql", Attempted: 3, Accepted: 2, Written: 2, Skipped: 1, Status: common.StatusPartial}, time.Second)
	r.Observe(common.BatchOutcome{Sink: "sql", Attempted: 2, Accepted: 2, Written: 2, Status: common.StatusOK}, time.Second)

	assert.Equal(t, 5.0, testutil.ToFloat64(r.records.WithLabelValues("sql", "attempted")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.records.WithLabelValues("sql", "written")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.records.WithLabelValues("sql", "skipped")))

	expected := `
# HELP streamsink_batches_total Batches per sink and final status.
# TYPE streamsink_batches_total counter
streamsink_batches_total{sink="sql",status="ok"} 1
streamsink_batches_total{sink="sql",status="partial"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "streamsink_batches_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(r.duration))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Observe(common.BatchOutcome{Sink: "influx"}, time.Second)
	})
}

func TestNewRecorder_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewRecorder(reg)
	require.NoError(t, err)

	_, err = NewRecorder(reg)
	assert.Error(t, err)
}
