package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/common/version"
	"github.com/seb-dataworks/streamsink/pkg/common"
	"github.com/seb-dataworks/streamsink/pkg/config"
	"github.com/seb-dataworks/streamsink/pkg/decode"
	"github.com/seb-dataworks/streamsink/pkg/logging"
	"github.com/seb-dataworks/streamsink/pkg/metrics"
	"github.com/seb-dataworks/streamsink/pkg/processor"
	"github.com/seb-dataworks/streamsink/pkg/server"
	"github.com/seb-dataworks/streamsink/pkg/sink"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const appName = "streamsink"

const shutdownTimeout = 15 * time.Second

func main() {
	// Parse command line flags
	configPath := flag.String("config", "etc/config.yaml", "Path to configuration file")
	listen := flag.String("listen", "", "Listen address (overrides config)")
	input := flag.String("input", "", "Process a JSON batch file once instead of serving HTTP")
	sinkName := flag.String("sink", "", "Sink used with -input (influx, sql, csv)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Print(appName))
		return
	}

	// Load and parse configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *listen != "" {
		cfg.Server.Listen = *listen
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	if *input != "" {
		os.Exit(runOnce(cfg, logger, *input, *sinkName))
	}

	if err := serve(cfg, logger); err != nil {
		logger.Fatalf("Server stopped: %v", err)
	}
	logger.Info("Server stopped")
}

// runOnce processes a single batch file and returns the process exit code
func runOnce(cfg *config.Config, logger *log.Logger, path, name string) int {
	if name == "" {
		logger.Error("-sink is required with -input")
		return 2
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Errorf("Failed to read input: %v", err)
		return 1
	}

	batch, err := decode.Batch(data)
	if err != nil {
		logger.Errorf("Failed to decode input: %v", err)
		return 1
	}

	outputSink, err := sink.NewSink(name, cfg, logger)
	if err != nil {
		logger.Errorf("Failed to create output sink: %v", err)
		return 1
	}

	outcome := processor.NewProcessor(outputSink, logger, nil).ProcessBatch(context.Background(), batch)
	fmt.Println(outcome.Summary())

	if outcome.Fatal() || outcome.Status == common.StatusRejected {
		return 1
	}
	return 0
}

// serve runs the HTTP server until SIGINT or SIGTERM
func serve(cfg *config.Config, logger *log.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		versioncollector.NewCollector(appName),
	)

	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return err
	}

	sinks, err := sink.NewSinks(cfg, logger)
	if err != nil {
		return err
	}

	processors := make(map[string]*processor.Processor, len(sinks))
	for name, s := range sinks {
		processors[name] = processor.NewProcessor(s, logger, recorder)
	}

	srv := server.NewServer(processors, reg, cfg.Server.MaxBodyBytes, logger)
	httpServer := srv.HTTPServer(cfg.Server.Listen)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("version", version.Info()).Infof("HTTP server running on %s, sinks: %v", cfg.Server.Listen, srv.Sinks())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down, waiting for in-flight batches")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
