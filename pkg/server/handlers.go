package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/seb-dataworks/streamsink/pkg/common"
	"github.com/seb-dataworks/streamsink/pkg/decode"
)

const noDataMessage = "No POST data received"

// handleWrite decodes the posted batch and runs it through the sink named in
// the path
func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/write/")
	p, ok := s.processors[name]
	if !ok {
		http.Error(w, "unknown sink: "+name, http.StatusNotFound)
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	batch, err := decode.Batch(body)
	if err != nil {
		if errors.Is(err, decode.ErrNoData) {
			http.Error(w, noDataMessage, http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome := p.ProcessBatch(r.Context(), batch)
	s.writeOutcome(w, name, outcome)
}

// writeOutcome renders a batch outcome as a status code and text body
func (s *Server) writeOutcome(w http.ResponseWriter, name string, outcome common.BatchOutcome) {
	w.Header().Set("X-Batch-Id", outcome.BatchID)

	switch outcome.Status {
	case common.StatusRejected:
		http.Error(w, outcome.Summary(), http.StatusBadRequest)
	case common.StatusFailed:
		http.Error(w, outcome.Summary(), http.StatusInternalServerError)
	default:
		// The relational route has never returned a body
		if name == "sql" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, outcome.Summary())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok")
}
