package sink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/seb-dataworks/streamsink/pkg/common"
	"github.com/seb-dataworks/streamsink/pkg/config"
	log "github.com/sirupsen/logrus"
)

// SQLSink inserts each record as one row of a predefined table
type SQLSink struct {
	dialect Dialect
	dsn     string
	table   string
	columns map[string]struct{}
	timeout time.Duration
	logger  *log.Logger
}

// NewSQLSink creates a new relational sink. No connection is made until Open.
func NewSQLSink(cfg config.SQLConfig, logger *log.Logger) (*SQLSink, error) {
	dialect, err := LookupDialect(cfg.Driver)
	if err != nil {
		return nil, err
	}

	if cfg.DSN == "" {
		return nil, fmt.Errorf("SQL DSN is required")
	}
	if !ValidIdentifier(cfg.Table) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Table)
	}

	dsn := cfg.DSN
	if dialect.Name == "mysql" {
		if dsn, err = mysqlDSN(cfg.DSN, cfg.InsecureSkipVerify); err != nil {
			return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
		}
	} else if cfg.InsecureSkipVerify {
		logger.Warnf("insecure_skip_verify has no effect for %s; set TLS options in the DSN", dialect.Name)
	}

	columns := make(map[string]struct{}, len(cfg.Columns))
	for _, c := range cfg.Columns {
		if !ValidIdentifier(c) {
			return nil, fmt.Errorf("invalid column name %q", c)
		}
		columns[c] = struct{}{}
	}

	return &SQLSink{
		dialect: dialect,
		dsn:     dsn,
		table:   cfg.Table,
		columns: columns,
		timeout: config.ParseDuration(cfg.Timeout, config.DefaultTimeout),
		logger:  logger,
	}, nil
}

// mysqlDSN validates the DSN and applies the certificate validation bypass
// when explicitly requested
func mysqlDSN(dsn string, insecureSkipVerify bool) (string, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	if insecureSkipVerify {
		mc.TLSConfig = "skip-verify"
	}
	return mc.FormatDSN(), nil
}

func (s *SQLSink) Name() string { return "sql" }

func (s *SQLSink) Target() string { return s.table }

func (s *SQLSink) Nulls() common.NullPolicy { return common.NullAsEmptyText }

// Open establishes the single connection used for the whole batch
func (s *SQLSink) Open(ctx context.Context) (Connection, error) {
	db, err := sql.Open(s.dialect.Driver, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrConnection, s.dialect.Name, err)
	}
	db.SetMaxOpenConns(1)

	openCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, err := db.Conn(openCtx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connect %s: %w", ErrConnection, s.dialect.Name, err)
	}

	if err := conn.PingContext(openCtx); err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrConnection, s.dialect.Name, err)
	}

	s.logger.Debugf("Connection to %s opened, writing into table %s", s.dialect.Name, s.table)

	return &sqlConn{
		db:      db,
		conn:    conn,
		dialect: s.dialect,
		table:   s.table,
		columns: s.columns,
		logger:  s.logger,
	}, nil
}

type sqlConn struct {
	db      *sql.DB
	conn    *sql.Conn
	dialect Dialect
	table   string
	columns map[string]struct{}
	logger  *log.Logger
}

// Write builds and executes one INSERT for rec
func (c *sqlConn) Write(ctx context.Context, rec common.NormalizedRecord) error {
	stmt, err := BuildInsert(c.table, rec, c.columns)
	if err != nil {
		return err
	}

	query, args := stmt.Render(c.dialect)
	if c.logger.IsLevelEnabled(log.TraceLevel) {
		params := make([]string, 0, len(stmt.Columns))
		for _, p := range stmt.Params() {
			params = append(params, fmt.Sprintf("%s=%v", p.Name, p.Value))
		}
		c.logger.WithField("params", strings.Join(params, ", ")).Tracef("Executing %s", stmt)
	}

	if _, err := c.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}

	return nil
}

// Close releases the connection and the underlying pool
func (c *sqlConn) Close() error {
	if err := errors.Join(c.conn.Close(), c.db.Close()); err != nil {
		return fmt.Errorf("%w: close: %w", ErrConnection, err)
	}
	return nil
}
