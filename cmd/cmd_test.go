package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evsense/core/ingest"
	"github.com/kilianp07/evsense/internal/httputil"
)

func TestParseOverrides(t *testing.T) {
	got, err := parseOverrides([]string{"voltage=320", " road = rough", "target_distance=80.5"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"voltage": 320.0, "road": " rough", "target_distance": 80.5}, got)

	got, err = parseOverrides(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = parseOverrides([]string{"voltage"})
	assert.Error(t, err)
	_, err = parseOverrides([]string{"=1"})
	assert.Error(t, err)
}

func TestPostReading(t *testing.T) {
	var got ingest.Document
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}))
	defer srv.Close()

	doc := ingest.Document{Voltage: ingest.Num(350), Current: ingest.Num(20)}
	require.NoError(t, postReading(context.Background(), srv.Client(), srv.URL+"/", doc))
	assert.Equal(t, 350.0, got.Voltage.Value)
}

func TestPostReading_Rejected(t *testing.T) {
	doer := &httputil.MockDoer{Status: http.StatusBadRequest, Body: `{"status":"error"}`}
	err := postReading(context.Background(), doer, "http://gateway:8000", ingest.Document{})
	assert.ErrorContains(t, err, "status 400")
	assert.Equal(t, 1, doer.RequestCount())
}
