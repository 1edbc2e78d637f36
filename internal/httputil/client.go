// Package httputil holds the HTTP client seam and JSON response helpers shared
// by the live feed, the artifact fetcher and the API handlers.
package httputil

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"time"
)

// Doer sends one HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewClient returns an *http.Client bounded by timeout. A non-positive
// timeout is replaced by fallback so that no outbound call is unbounded.
func NewClient(timeout, fallback time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = fallback
	}
	return &http.Client{Timeout: timeout}
}

// MockDoer replays canned responses and records requests.
type MockDoer struct {
	mu       sync.Mutex
	DoFunc   func(req *http.Request) (*http.Response, error)
	Requests []*http.Request
	Status   int
	Body     string
	Err      error
}

func (m *MockDoer) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	fn, status, body, err := m.DoFunc, m.Status, m.Body, m.Err
	m.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	if err != nil {
		return nil, err
	}
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// RequestCount returns the number of recorded requests.
func (m *MockDoer) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
