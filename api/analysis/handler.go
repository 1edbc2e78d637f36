// Package analysis exposes the analysis trigger over HTTP.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/kilianp07/evsense/app"
	"github.com/kilianp07/evsense/core/model"
	"github.com/kilianp07/evsense/internal/httputil"
)

const maxRequest = 64 << 10

// Analyzer runs one analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req app.Request) (app.Report, error)
}

// NewHandler returns an HTTP handler running one analysis per POST
// /api/analysis. An empty body uses the configured source.
func NewHandler(a Analyzer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			_ = httputil.WriteJSONError(w, http.StatusMethodNotAllowed, httputil.ErrorBody{Error: "method not allowed"})
			return
		}
		var req app.Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequest)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			_ = httputil.WriteJSONError(w, http.StatusBadRequest, httputil.ErrorBody{Error: "invalid request", Message: err.Error()})
			return
		}
		rep, err := a.Analyze(r.Context(), req)
		if err != nil {
			_ = httputil.WriteJSONError(w, StatusOf(err), httputil.ErrorBody{
				Error:   model.Describe(err),
				Kind:    model.KindOf(err),
				Stage:   model.StageOf(err).String(),
				Message: err.Error(),
			})
			return
		}
		_ = httputil.WriteJSON(w, http.StatusOK, rep)
	})
}

// StatusOf maps an analysis error onto an HTTP status code.
func StatusOf(err error) int {
	switch model.KindOf(err) {
	case model.KindValidation:
		return http.StatusUnprocessableEntity
	case model.KindUnavailable:
		return http.StatusServiceUnavailable
	case model.KindFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewHealthHandler answers GET /healthz.
func NewHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// Routes mounts the analysis endpoints on a new mux.
func Routes(a Analyzer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/analysis", NewHandler(a))
	mux.Handle("/healthz", NewHealthHandler())
	return mux
}
