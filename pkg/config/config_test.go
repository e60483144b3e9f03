package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  listen: ":9090"
influx:
  url: https://influx.example.com:8086
  database: iot
  measurement: telemetry
  tags: [deviceId]
  flush_interval: 2s
sql:
  driver: mysql
  dsn: user:pass@tcp(localhost:3306)/iot
  table: events
  columns: [deviceId, temperature, time]
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, int64(DefaultMaxBodyBytes), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "info", cfg.Log.Level)

	require.NotNil(t, cfg.Influx)
	assert.Equal(t, "telemetry", cfg.Influx.Measurement)
	assert.Equal(t, []string{"deviceId"}, cfg.Influx.Tags)
	assert.Equal(t, DefaultBatchSize, cfg.Influx.BatchSize)

	require.NotNil(t, cfg.SQL)
	assert.Equal(t, "events", cfg.SQL.Table)
	assert.Nil(t, cfg.CSV)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("STREAMSINK_SQL_DSN", "other:secret@tcp(db:3306)/prod")
	t.Setenv("STREAMSINK_INFLUX_PASSWORD", "s3cret")
	t.Setenv("STREAMSINK_SERVER_LISTEN", ":7000")

	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "other:secret@tcp(db:3306)/prod", cfg.SQL.DSN)
	assert.Equal(t, "s3cret", cfg.Influx.Password)
	assert.Equal(t, ":7000", cfg.Server.Listen)
}

func TestParse_Validation(t *testing.T) {
	cases := map[string]string{
		"no sinks": `server: {listen: ":1"}`,
		"influx without measurement": `
influx:
  url: http://localhost:8086
  database: iot
`,
		"influx without database or bucket": `
influx:
  url: http://localhost:8086
  measurement: m
`,
		"unknown sql driver": `
sql:
  driver: oracle
  dsn: x
  table: t
`,
		"bad log level": `
log: {level: loud}
csv: {output_dir: /tmp/out}
`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestParse_BucketSatisfiesInflux(t *testing.T) {
	cfg, err := Parse([]byte(`
influx:
  url: http://localhost:8086
  org: acme
  bucket: iot
  measurement: m
`))
	require.NoError(t, err)
	assert.Equal(t, "iot", cfg.Influx.Bucket)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 3*time.Second, ParseDuration("3s", time.Second))
	assert.Equal(t, time.Second, ParseDuration("", time.Second))
	assert.Equal(t, time.Second, ParseDuration("soon", time.Second))
	assert.Equal(t, time.Second, ParseDuration("0s", time.Second))
}
