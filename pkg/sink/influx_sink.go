package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	influxlog "github.com/influxdata/influxdb-client-go/v2/log"
	"github.com/seb-dataworks/streamsink/pkg/common"
	"github.com/seb-dataworks/streamsink/pkg/config"
	"github.com/seb-dataworks/streamsink/pkg/logging"
	log "github.com/sirupsen/logrus"
)

// TimeField is the field name recognised as the event timestamp
const TimeField = "time"

// The client logs through a package-level logger; it is set once, before any
// client exists.
var influxLogOnce sync.Once

// InfluxSink writes records as points of one measurement. Writes are batched
// client-side and flushed in the background.
type InfluxSink struct {
	cfg           config.InfluxConfig
	tags          map[string]struct{}
	flushInterval time.Duration
	timeout       time.Duration
	closeTimeout  time.Duration
	logger        *log.Logger
}

// NewInfluxSink creates a new time-series sink
func NewInfluxSink(cfg config.InfluxConfig, logger *log.Logger) (*InfluxSink, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("InfluxDB URL is required")
	}
	if cfg.Measurement == "" {
		return nil, fmt.Errorf("InfluxDB measurement is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = config.DefaultBatchSize
	}

	influxLogOnce.Do(func() {
		influxlog.Log = &logging.Influx{Logger: logger}
	})

	tags := make(map[string]struct{}, len(cfg.Tags))
	for _, t := range cfg.Tags {
		tags[t] = struct{}{}
	}

	return &InfluxSink{
		cfg:           cfg,
		tags:          tags,
		flushInterval: config.ParseDuration(cfg.FlushInterval, config.DefaultFlushInterval),
		timeout:       config.ParseDuration(cfg.Timeout, config.DefaultTimeout),
		closeTimeout:  config.ParseDuration(cfg.CloseTimeout, config.DefaultCloseTimeout),
		logger:        logger,
	}, nil
}

func (s *InfluxSink) Name() string { return "influx" }

func (s *InfluxSink) Target() string { return s.cfg.Measurement }

func (s *InfluxSink) Nulls() common.NullPolicy { return common.NullOmit }

// bucket addresses either a 2.x bucket or a 1.x database/retention policy
func (s *InfluxSink) bucket() string {
	if s.cfg.Bucket != "" {
		return s.cfg.Bucket
	}
	if s.cfg.RetentionPolicy != "" {
		return s.cfg.Database + "/" + s.cfg.RetentionPolicy
	}
	return s.cfg.Database
}

// Open creates the batching writer. Write failures are reported through the
// connection's error flag, never synchronously. The client itself logs them
// at error level.
func (s *InfluxSink) Open(ctx context.Context) (Connection, error) {
	return s.open(ctx, func(err error) {
		s.logger.Debugf("Recorded InfluxDB write error: %v", err)
	})
}

func (s *InfluxSink) open(ctx context.Context, onError func(error)) (*influxConn, error) {
	s.logger.Debugf("Opening connection to InfluxDB at %s with bucket %s. Data will flow into measurement %s",
		s.cfg.URL, s.bucket(), s.cfg.Measurement)

	httpClient := newInfluxHTTPClient(s.cfg.Username, s.cfg.Password, s.cfg.RetryMax, s.timeout, s.cfg.InsecureSkipVerify, s.logger)

	opts := influxdb2.DefaultOptions().
		SetBatchSize(uint(s.cfg.BatchSize)).
		SetFlushInterval(uint(s.flushInterval.Milliseconds())).
		SetMaxRetries(0).
		SetHTTPClient(httpClient)

	client := influxdb2.NewClientWithOptions(s.cfg.URL, s.cfg.Token, opts)

	if s.cfg.PingOnOpen {
		pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		ok, err := client.Ping(pingCtx)
		if err == nil && !ok {
			err = fmt.Errorf("server not ready")
		}
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: ping %s: %w", ErrConnection, s.cfg.URL, err)
		}
	}

	writeAPI := client.WriteAPI(s.cfg.Org, s.bucket())

	conn := &influxConn{
		client:       client,
		writeAPI:     writeAPI,
		measurement:  s.cfg.Measurement,
		tags:         s.tags,
		onError:      onError,
		closeTimeout: s.closeTimeout,
		drained:      make(chan struct{}),
		logger:       s.logger,
	}

	errs := writeAPI.Errors()
	go func() {
		defer close(conn.drained)
		for err := range errs {
			conn.fail(err)
		}
	}()

	return conn, nil
}

type influxConn struct {
	client       influxdb2.Client
	writeAPI     api.WriteAPI
	measurement  string
	tags         map[string]struct{}
	onError      func(error)
	closeTimeout time.Duration
	drained      chan struct{}
	logger       *log.Logger

	mu       sync.Mutex
	firstErr error
	errCount int
}

func (c *influxConn) fail(err error) {
	c.mu.Lock()
	if c.firstErr == nil {
		c.firstErr = err
	}
	c.errCount++
	c.mu.Unlock()

	if c.onError != nil {
		c.onError(err)
	}
}

// Err returns the asynchronous failure recorded so far, if any
func (c *influxConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.firstErr == nil {
		return nil
	}
	return fmt.Errorf("%w: %d InfluxDB write error(s), first: %w", ErrConnection, c.errCount, c.firstErr)
}

// Write enqueues the record; delivery happens on the next flush
func (c *influxConn) Write(ctx context.Context, rec common.NormalizedRecord) error {
	point, err := c.point(rec)
	if err != nil {
		return err
	}

	c.writeAPI.WritePoint(point)
	return nil
}

func (c *influxConn) point(rec common.NormalizedRecord) (*write.Point, error) {
	ts := time.Now()
	tags := make(map[string]string)
	fields := make(map[string]interface{}, len(rec.Fields))

	for _, f := range rec.Fields {
		v := f.Value
		if v.Kind == common.KindNull {
			continue
		}

		if f.Name == TimeField {
			if v.Kind == common.KindTimestamp {
				ts = v.Time
			} else {
				c.logger.Debugf("Dropping %s field %q: not a timestamp", TimeField, v.String())
			}
			continue
		}

		if _, ok := c.tags[f.Name]; ok {
			tags[f.Name] = v.String()
			continue
		}

		switch v.Kind {
		case common.KindNumeric:
			fields[f.Name] = v.Num
		default:
			fields[f.Name] = v.String()
		}
	}

	if len(fields) == 0 {
		return nil, &RecordError{Reason: "no field values to write"}
	}

	return influxdb2.NewPoint(c.measurement, tags, fields, ts), nil
}

// Close flushes buffered points, stops the writer and reports any error seen
// while the batch was in flight
func (c *influxConn) Close() error {
	c.logger.Debug("Closing InfluxDB connection")

	c.writeAPI.Flush()
	c.client.Close()

	select {
	case <-c.drained:
	case <-time.After(c.closeTimeout):
		c.logger.Warn("Timed out waiting for InfluxDB writer to report errors")
	}

	return c.Err()
}
