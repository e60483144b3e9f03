package sink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/seb-dataworks/streamsink/pkg/common"
	"github.com/seb-dataworks/streamsink/pkg/config"
	log "github.com/sirupsen/logrus"
)

// CSVSink writes each batch to its own CSV file
type CSVSink struct {
	outputDir string
	name      string
	logger    *log.Logger
}

// NewCSVSink creates a new CSV sink
func NewCSVSink(cfg config.CSVConfig, logger *log.Logger) (*CSVSink, error) {
	// Create output directory if it doesn't exist
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %v", err)
	}

	name := cfg.Name
	if name == "" {
		name = config.DefaultCSVName
	}

	return &CSVSink{
		outputDir: cfg.OutputDir,
		name:      name,
		logger:    logger,
	}, nil
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Target() string { return s.name }

func (s *CSVSink) Nulls() common.NullPolicy { return common.NullAsEmptyText }

// Open creates the batch file. The header is written with the first record.
func (s *CSVSink) Open(ctx context.Context) (Connection, error) {
	// Create filename with timestamp, suffixed so concurrent batches never collide
	timestamp := time.Now().Format("20060102150405")
	filename := fmt.Sprintf("%s_%s_%s.csv", s.name, timestamp, uuid.NewString()[:8])
	path := filepath.Join(s.outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create CSV file: %w", ErrConnection, err)
	}

	s.logger.Debugf("Writing batch to %s", path)

	return &csvConn{
		path:   path,
		file:   file,
		writer: csv.NewWriter(file),
	}, nil
}

type csvConn struct {
	path   string
	file   *os.File
	writer *csv.Writer
	header []string
	index  map[string]int
}

func (c *csvConn) Write(ctx context.Context, rec common.NormalizedRecord) error {
	if c.header == nil {
		if len(rec.Fields) == 0 {
			return &RecordError{Reason: "record has no fields"}
		}
		if err := c.createHeaderRow(rec); err != nil {
			return err
		}
	}

	row, err := c.createDataRow(rec)
	if err != nil {
		return err
	}

	if err := c.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write CSV row: %v", err)
	}
	return nil
}

// createHeaderRow fixes the column order from the first record
func (c *csvConn) createHeaderRow(rec common.NormalizedRecord) error {
	header := rec.Names()
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	if err := c.writer.Write(header); err != nil {
		return fmt.Errorf("%w: failed to write CSV header: %w", ErrConnection, err)
	}

	c.header = header
	c.index = index
	return nil
}

// createDataRow aligns a record to the header; absent columns stay empty
func (c *csvConn) createDataRow(rec common.NormalizedRecord) ([]string, error) {
	row := make([]string, len(c.header))
	for _, f := range rec.Fields {
		i, ok := c.index[f.Name]
		if !ok {
			return nil, &RecordError{Field: f.Name, Reason: "not a column of this file"}
		}
		row[i] = f.Value.String()
	}
	return row, nil
}

// Close flushes buffered rows and closes the file
func (c *csvConn) Close() error {
	c.writer.Flush()
	if err := errors.Join(c.writer.Error(), c.file.Close()); err != nil {
		return fmt.Errorf("%w: error closing file %s: %w", ErrConnection, c.path, err)
	}
	return nil
}
