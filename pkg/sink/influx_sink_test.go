package sink

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	influxlog "github.com/influxdata/influxdb-client-go/v2/log"
	"github.com/seb-dataworks/streamsink/pkg/common"
	"github.com/seb-dataworks/streamsink/pkg/config"
	"github.com/seb-dataworks/streamsink/pkg/decode"
	"github.com/seb-dataworks/streamsink/pkg/logging"
	"github.com/seb-dataworks/streamsink/pkg/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type influxRecorder struct {
	mu     sync.Mutex
	status int
	lines  []string
	query  string
	auth   string
}

func (r *influxRecorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path == "/ping" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	body, _ := io.ReadAll(req.Body)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.query = req.URL.RawQuery
	r.auth = req.Header.Get("Authorization")
	for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
		if line != "" {
			r.lines = append(r.lines, line)
		}
	}
	w.WriteHeader(r.status)
}

func (r *influxRecorder) received() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func newTestInfluxSink(t *testing.T, url string, mutate func(*config.InfluxConfig)) *InfluxSink {
	t.Helper()

	cfg := config.InfluxConfig{
		URL:           url,
		Database:      "metrics",
		Measurement:   "events",
		FlushInterval: "1h",
		CloseTimeout:  "2s",
		Timeout:       "2s",
	}
	if mutate != nil {
		mutate(&cfg)
	}

	s, err := NewInfluxSink(cfg, testLogger())
	require.NoError(t, err)
	return s
}

func TestInfluxSink_WritesBatchOnClose(t *testing.T) {
	rec := &influxRecorder{status: http.StatusNoContent}
	server := httptest.NewServer(rec)
	defer server.Close()

	s := newTestInfluxSink(t, server.URL, nil)
	assert.Equal(t, "influx", s.Name())
	assert.Equal(t, "events", s.Target())
	assert.Equal(t, common.NullOmit, s.Nulls())

	batch, err := decode.Batch([]byte(`[{"a":"1.5","time":"2024-01-01T00:00:00Z"},{"a":"not-a-number"}]`))
	require.NoError(t, err)

	n := normalize.NewNormalizer(s.Nulls(), testLogger())
	ctx := context.Background()

	conn, err := s.Open(ctx)
	require.NoError(t, err)

	for i, r := range batch {
		out, err := n.Normalize(i, r)
		require.NoError(t, err)
		require.NoError(t, conn.Write(ctx, out))
	}
	require.NoError(t, conn.Close())

	lines := rec.received()
	require.Len(t, lines, 2)
	assert.Equal(t, "events a=1.5 1704067200000000000", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `events a="not-a-number" `), lines[1])
	assert.Contains(t, rec.query, "bucket=metrics")
}

func TestInfluxSink_TagsAndRetentionPolicy(t *testing.T) {
	rec := &influxRecorder{status: http.StatusNoContent}
	server := httptest.NewServer(rec)
	defer server.Close()

	s := newTestInfluxSink(t, server.URL, func(c *config.InfluxConfig) {
		c.Tags = []string{"host"}
		c.RetentionPolicy = "week"
		c.Username = "writer"
		c.Password = "secret"
	})

	ctx := context.Background()
	conn, err := s.Open(ctx)
	require.NoError(t, err)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, conn.Write(ctx, record(
		field("host", common.Text("web-1")),
		field("load", common.Numeric(2)),
		field("missing", common.Null()),
		field("time", common.Timestamp(ts)),
	)))
	require.NoError(t, conn.Close())

	lines := rec.received()
	require.Len(t, lines, 1)
	assert.Equal(t, "events,host=web-1 load=2 1704067200000000000", lines[0])
	assert.Contains(t, rec.query, "bucket=metrics%2Fweek")
	assert.True(t, strings.HasPrefix(rec.auth, "Basic "))
}

func TestInfluxSink_RecordWithoutFieldsIsRejected(t *testing.T) {
	rec := &influxRecorder{status: http.StatusNoContent}
	server := httptest.NewServer(rec)
	defer server.Close()

	s := newTestInfluxSink(t, server.URL, func(c *config.InfluxConfig) {
		c.Tags = []string{"host"}
	})

	ctx := context.Background()
	conn, err := s.Open(ctx)
	require.NoError(t, err)

	err = conn.Write(ctx, record(field("host", common.Text("web-1")), field("time", common.Text("yesterday"))))

	var recErr *RecordError
	assert.True(t, errors.As(err, &recErr))
	require.NoError(t, conn.Close())
	assert.Empty(t, rec.received())
}

func TestInfluxSink_ServerErrorFailsClose(t *testing.T) {
	rec := &influxRecorder{status: http.StatusInternalServerError}
	server := httptest.NewServer(rec)
	defer server.Close()

	s := newTestInfluxSink(t, server.URL, nil)

	ctx := context.Background()
	conn, err := s.open(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, conn.Write(ctx, record(field("a", common.Numeric(1)))))

	err = conn.Close()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnection))
}

func TestInfluxSink_PingOnOpen(t *testing.T) {
	server := httptest.NewServer(&influxRecorder{status: http.StatusNoContent})
	s := newTestInfluxSink(t, server.URL, func(c *config.InfluxConfig) {
		c.PingOnOpen = true
	})

	conn, err := s.Open(context.Background())
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	server.Close()

	_, err = s.Open(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnection))
}

func TestNewInfluxSink_Bucket(t *testing.T) {
	s, err := NewInfluxSink(config.InfluxConfig{
		URL:         "http://localhost:8086",
		Org:         "acme",
		Bucket:      "events",
		Measurement: "m",
	}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "events", s.bucket())

	_, err = NewInfluxSink(config.InfluxConfig{Measurement: "m"}, testLogger())
	assert.Error(t, err)
}

func TestNewInfluxSink_ClientLogsThroughLogrus(t *testing.T) {
	_, err := NewInfluxSink(config.InfluxConfig{
		URL:         "http://localhost:8086",
		Database:    "metrics",
		Measurement: "m",
	}, testLogger())
	require.NoError(t, err)

	assert.IsType(t, &logging.Influx{}, influxlog.Log)
}
