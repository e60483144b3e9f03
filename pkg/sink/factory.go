package sink

import (
	"fmt"

	"github.com/seb-dataworks/streamsink/pkg/config"
	log "github.com/sirupsen/logrus"
)

// NewSink creates the sink named by kind from its configuration section
func NewSink(kind string, cfg *config.Config, logger *log.Logger) (Sink, error) {
	switch kind {
	case "influx":
		if cfg.Influx == nil {
			return nil, fmt.Errorf("sink %s is not configured", kind)
		}
		return NewInfluxSink(*cfg.Influx, logger)
	case "sql":
		if cfg.SQL == nil {
			return nil, fmt.Errorf("sink %s is not configured", kind)
		}
		return NewSQLSink(*cfg.SQL, logger)
	case "csv":
		if cfg.CSV == nil {
			return nil, fmt.Errorf("sink %s is not configured", kind)
		}
		return NewCSVSink(*cfg.CSV, logger)
	default:
		return nil, fmt.Errorf("unsupported sink type: %s", kind)
	}
}

// NewSinks creates every configured sink, keyed by name
func NewSinks(cfg *config.Config, logger *log.Logger) (map[string]Sink, error) {
	configured := map[string]bool{
		"influx": cfg.Influx != nil,
		"sql":    cfg.SQL != nil,
		"csv":    cfg.CSV != nil,
	}

	sinks := make(map[string]Sink)
	for kind, ok := range configured {
		if !ok {
			continue
		}
		s, err := NewSink(kind, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s sink: %w", kind, err)
		}
		sinks[kind] = s
	}
	return sinks, nil
}
