// Package ingest exposes the ingestion service over HTTP: gateways POST
// readings to /upload and the live feed reads them back from /latest.
package ingest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/evsense/core/ingest"
	"github.com/kilianp07/evsense/core/logger"
	inflogger "github.com/kilianp07/evsense/infra/logger"
	"github.com/kilianp07/evsense/internal/httputil"
)

// TransportHTTP labels uploads received on POST /upload.
const TransportHTTP = "http"

const maxUpload = 1 << 20

type status struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Server owns the latest-reading slot and counts uploads per transport.
type Server struct {
	slot    *ingest.Slot
	uploads *prometheus.CounterVec
	log     logger.Logger
	now     func() time.Time
}

var _ ingest.Receiver = (*Server)(nil)

// NewServer registers the upload counter on reg (nil means the default
// registerer).
func NewServer(slot *ingest.Slot, reg prometheus.Registerer, log logger.Logger) (*Server, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_uploads_total",
		Help: "Telemetry uploads accepted by the ingestion service",
	}, []string{"transport"})
	if err := reg.Register(uploads); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		uploads = are.ExistingCollector.(*prometheus.CounterVec)
	}
	if log == nil {
		log = inflogger.NopLogger{}
	}
	return &Server{slot: slot, uploads: uploads, log: log, now: time.Now}, nil
}

// Receive stamps d with the receive time and makes it the latest reading.
func (s *Server) Receive(transport string, d ingest.Document) {
	d.Timestamp = s.now().UTC().Format(time.RFC3339Nano)
	s.slot.Store(d)
	s.uploads.WithLabelValues(transport).Inc()
	s.log.Debugw("upload received", map[string]any{"transport": transport, "has_voltage": d.HasData()})
}

// Handler routes /, /upload and /latest and adds CORS headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/upload", NewUploadHandler(s))
	mux.Handle("/latest", NewLatestHandler(s.slot))
	mux.Handle("/", NewRootHandler())
	return WithCORS(mux)
}

// NewUploadHandler accepts a JSON reading via POST /upload.
func NewUploadHandler(recv ingest.Receiver) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			_ = httputil.WriteJSON(w, http.StatusMethodNotAllowed, status{Status: "error", Message: "method not allowed"})
			return
		}
		var doc ingest.Document
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpload))
		if err := dec.Decode(&doc); err != nil {
			_ = httputil.WriteJSON(w, http.StatusBadRequest, status{Status: "error", Message: err.Error()})
			return
		}
		recv.Receive(TransportHTTP, doc)
		_ = httputil.WriteJSON(w, http.StatusOK, status{Status: "success", Message: "Hardware data received successfully"})
	})
}

// NewLatestHandler serves the most recent reading via GET /latest.
func NewLatestHandler(slot *ingest.Slot) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			_ = httputil.WriteJSON(w, http.StatusMethodNotAllowed, status{Status: "error", Message: "method not allowed"})
			return
		}
		doc, ok := slot.Latest()
		if !ok {
			_ = httputil.WriteJSON(w, http.StatusNotFound, status{Status: "no_data"})
			return
		}
		_ = httputil.WriteJSON(w, http.StatusOK, doc)
	})
}

// NewRootHandler answers liveness checks on GET /.
func NewRootHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			_ = httputil.WriteJSON(w, http.StatusNotFound, status{Status: "error", Message: "not found"})
			return
		}
		_ = httputil.WriteJSON(w, http.StatusOK, status{Status: "API running"})
	})
}

// WithCORS allows any origin and answers preflight requests.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
