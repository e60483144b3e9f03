// Package logging configures the logrus logger shared by every component.
package logging

import (
	"fmt"
	"os"

	influxlog "github.com/influxdata/influxdb-client-go/v2/log"
	log "github.com/sirupsen/logrus"
)

// New builds a logger writing to stderr with the given level and format
func New(level, format string) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(os.Stderr)

	if format == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	logger.SetLevel(lvl)

	return logger, nil
}

// Leveled adapts logrus to the retryablehttp.LeveledLogger interface
type Leveled struct {
	*log.Logger
}

func (l *Leveled) fields(keysAndValues ...interface{}) log.Fields {
	fields := make(log.Fields)

	for i := 0; i < len(keysAndValues)-1; i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields[key] = keysAndValues[i+1]
	}

	return fields
}

func (l *Leveled) Error(msg string, keysAndValues ...interface{}) {
	l.WithFields(l.fields(keysAndValues...)).Error(msg)
}

func (l *Leveled) Info(msg string, keysAndValues ...interface{}) {
	l.WithFields(l.fields(keysAndValues...)).Info(msg)
}

func (l *Leveled) Debug(msg string, keysAndValues ...interface{}) {
	l.WithFields(l.fields(keysAndValues...)).Debug(msg)
}

func (l *Leveled) Warn(msg string, keysAndValues ...interface{}) {
	l.WithFields(l.fields(keysAndValues...)).Warn(msg)
}

// Influx adapts logrus to the influxdb-client-go log.Logger interface. The
// logrus level decides what is emitted; the client's own level is ignored.
type Influx struct {
	Logger *log.Logger
	prefix string
}

var _ influxlog.Logger = (*Influx)(nil)

func (l *Influx) entry() *log.Entry {
	if l.prefix == "" {
		return log.NewEntry(l.Logger)
	}
	return l.Logger.WithField("component", l.prefix)
}

func (l *Influx) SetPrefix(prefix string) { l.prefix = prefix }

func (l *Influx) SetLogLevel(uint) {}

func (l *Influx) LogLevel() uint {
	switch lvl := l.Logger.GetLevel(); {
	case lvl >= log.DebugLevel:
		return influxlog.DebugLevel
	case lvl == log.InfoLevel:
		return influxlog.InfoLevel
	case lvl == log.WarnLevel:
		return influxlog.WarningLevel
	default:
		return influxlog.ErrorLevel
	}
}

func (l *Influx) Debugf(format string, v ...interface{}) { l.entry().Debugf(format, v...) }

func (l *Influx) Debug(msg string) { l.entry().Debug(msg) }

func (l *Influx) Infof(format string, v ...interface{}) { l.entry().Infof(format, v...) }

func (l *Influx) Info(msg string) { l.entry().Info(msg) }

func (l *Influx) Warnf(format string, v ...interface{}) { l.entry().Warnf(format, v...) }

func (l *Influx) Warn(msg string) { l.entry().Warn(msg) }

func (l *Influx) Errorf(format string, v ...interface{}) { l.entry().Errorf(format, v...) }

func (l *Influx) Error(msg string) { l.entry().Error(msg) }
