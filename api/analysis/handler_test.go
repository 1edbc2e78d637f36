package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evsense/app"
	"github.com/kilianp07/evsense/core/model"
	"github.com/kilianp07/evsense/internal/httputil"
)

type fakeAnalyzer struct {
	got app.Request
	rep app.Report
	err error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req app.Request) (app.Report, error) {
	f.got = req
	return f.rep, f.err
}

func TestHandler_Success(t *testing.T) {
	a := &fakeAnalyzer{rep: app.Report{RunID: "abc", Source: "live", Result: model.PipelineResult{RangeKm: 120}}}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/analysis", strings.NewReader(`{"source":"live"}`))
	Routes(a).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "live", a.got.Source)
	var rep app.Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rep))
	assert.Equal(t, "abc", rep.RunID)
	assert.Equal(t, 120.0, rep.Result.RangeKm)
}

func TestHandler_EmptyBody(t *testing.T) {
	a := &fakeAnalyzer{}
	rec := httptest.NewRecorder()
	NewHandler(a).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analysis", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, a.got.Source)
}

func TestHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		kind string
	}{
		{"validation", &model.ValidationError{Field: "voltage", Value: 500, Min: 200, Max: 400}, http.StatusUnprocessableEntity, model.KindValidation},
		{"unknown source", fmt.Errorf("%w: unknown source %q", model.ErrValidation, "carrier-pigeon"), http.StatusUnprocessableEntity, model.KindValidation},
		{"unavailable", model.Unavailable(errors.New("refused")), http.StatusServiceUnavailable, model.KindUnavailable},
		{"fetch", &model.StageError{Stage: model.StageSoC, Err: &model.FetchError{Artifact: "soc_model.json", StatusCode: 404}}, http.StatusBadGateway, model.KindFetch},
		{"model", &model.ModelError{Stage: model.StageHealth, Err: errors.New("shape")}, http.StatusInternalServerError, model.KindModel},
		{"internal", errors.New("boom"), http.StatusInternalServerError, model.KindInternal},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHandler(&fakeAnalyzer{err: c.err}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analysis", nil))
			require.Equal(t, c.code, rec.Code)
			var body httputil.ErrorBody
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, c.kind, body.Kind)
			assert.Equal(t, model.Describe(c.err), body.Error)
			assert.Equal(t, model.StageOf(c.err).String(), body.Stage)
		})
	}
}

func TestHandler_BadRequest(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(&fakeAnalyzer{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analysis", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	NewHandler(&fakeAnalyzer{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analysis", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	Routes(&fakeAnalyzer{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
