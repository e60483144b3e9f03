package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration
type Config struct {
	Server ServerConfig  `yaml:"server"`
	Log    LogConfig     `yaml:"log"`
	Influx *InfluxConfig `yaml:"influx,omitempty"`
	SQL    *SQLConfig    `yaml:"sql,omitempty"`
	CSV    *CSVConfig    `yaml:"csv,omitempty"`
}

// ServerConfig contains configuration for the HTTP listener
type ServerConfig struct {
	Listen       string `yaml:"listen"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" validate:"gte=0"`
}

// LogConfig contains logger settings
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// InfluxConfig contains configuration for the time-series sink. Database and
// RetentionPolicy address an InfluxDB 1.x server, Org and Bucket a 2.x one.
type InfluxConfig struct {
	URL                string   `yaml:"url" validate:"required,url"`
	Database           string   `yaml:"database" validate:"required_without=Bucket"`
	RetentionPolicy    string   `yaml:"retention_policy,omitempty"`
	Org                string   `yaml:"org,omitempty"`
	Bucket             string   `yaml:"bucket,omitempty"`
	Token              string   `yaml:"token,omitempty"`
	Username           string   `yaml:"username,omitempty"`
	Password           string   `yaml:"password,omitempty"`
	Measurement        string   `yaml:"measurement" validate:"required"`
	Tags               []string `yaml:"tags,omitempty"`
	FlushInterval      string   `yaml:"flush_interval"`
	BatchSize          int      `yaml:"batch_size" validate:"gte=0"`
	RetryMax           int      `yaml:"retry_max" validate:"gte=0"`
	Timeout            string   `yaml:"timeout"`
	CloseTimeout       string   `yaml:"close_timeout"`
	PingOnOpen         bool     `yaml:"ping_on_open"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
}

// SQLConfig contains configuration for the relational sink
type SQLConfig struct {
	Driver             string   `yaml:"driver" validate:"required,oneof=mysql postgres sqlserver sqlite"`
	DSN                string   `yaml:"dsn" validate:"required"`
	Table              string   `yaml:"table" validate:"required"`
	Columns            []string `yaml:"columns,omitempty"`
	Timeout            string   `yaml:"timeout"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
}

// CSVConfig contains configuration for the CSV sink
type CSVConfig struct {
	OutputDir string `yaml:"output_dir" validate:"required"`
	Name      string `yaml:"name"`
}

const (
	DefaultListen        = ":8080"
	DefaultMaxBodyBytes  = 10 << 20
	DefaultFlushInterval = 2 * time.Second
	DefaultBatchSize     = 5000
	DefaultTimeout       = 10 * time.Second
	DefaultCloseTimeout  = 5 * time.Second
	DefaultCSVName       = "events"
)

// Load reads and parses a YAML configuration file, then applies environment
// overrides and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse builds a configuration from YAML bytes
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	applyEnv(&config)
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultListen
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Influx != nil && c.Influx.BatchSize == 0 {
		c.Influx.BatchSize = DefaultBatchSize
	}
	if c.CSV != nil && c.CSV.Name == "" {
		c.CSV.Name = DefaultCSVName
	}
}

// Validate checks struct tags of every configured section
func (c *Config) Validate() error {
	if c.Influx == nil && c.SQL == nil && c.CSV == nil {
		return fmt.Errorf("at least one sink (influx, sql, csv) must be configured")
	}

	sections := []interface{}{&c.Server, &c.Log}
	if c.Influx != nil {
		sections = append(sections, c.Influx)
	}
	if c.SQL != nil {
		sections = append(sections, c.SQL)
	}
	if c.CSV != nil {
		sections = append(sections, c.CSV)
	}

	for _, s := range sections {
		if err := validateStruct(s); err != nil {
			return err
		}
	}
	return nil
}

// ParseDuration parses s, falling back to def when empty, invalid or zero
func ParseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
