// Package server exposes the write pipeline over HTTP.
package server

import (
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/seb-dataworks/streamsink/pkg/config"
	"github.com/seb-dataworks/streamsink/pkg/processor"
	log "github.com/sirupsen/logrus"
)

// Server routes write requests to the processor of the named sink
type Server struct {
	mux          *http.ServeMux
	processors   map[string]*processor.Processor
	gatherer     prometheus.Gatherer
	maxBodyBytes int64
	logger       *log.Logger
}

// NewServer builds a server with request logging and panic recovery
// middlewares. gatherer may be nil to disable /metrics.
func NewServer(processors map[string]*processor.Processor, gatherer prometheus.Gatherer, maxBodyBytes int64, logger *log.Logger) *Server {
	if maxBodyBytes <= 0 {
		maxBodyBytes = config.DefaultMaxBodyBytes
	}

	s := &Server{
		mux:          http.NewServeMux(),
		processors:   processors,
		gatherer:     gatherer,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/write/", s.handleWrite) // POST /write/{sink}
	s.mux.HandleFunc("/healthz", s.handleHealth)
	if s.gatherer != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// Sinks lists the routable sink names
func (s *Server) Sinks() []string {
	names := make([]string, 0, len(s.processors))
	for name := range s.processors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handler returns the router wrapped in the middlewares
func (s *Server) Handler() http.Handler {
	return s.recoveryMiddleware(s.loggingMiddleware(s.mux))
}

// HTTPServer returns an http.Server for addr serving Handler
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Simple request logger middleware.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithField("duration", time.Since(start)).Infof("%s %s", r.Method, r.URL.Path)
	})
}

// recoveryMiddleware catches panics and returns 500.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Errorf("panic recovered: %v", rec)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
