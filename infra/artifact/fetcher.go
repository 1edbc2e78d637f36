// Package artifact implements the model registry on top of an HTTP artifact
// repository and a local disk cache.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/evsense/core/model"
	"github.com/kilianp07/evsense/internal/httputil"
)

// DefaultTimeout bounds one artifact download.
const DefaultTimeout = 60 * time.Second

// HTTPFetcher downloads artifacts anonymously from base_url + name.
type HTTPFetcher struct {
	baseURL string
	timeout time.Duration
	client  httputil.Doer
}

// NewHTTPFetcher returns a fetcher for baseURL. A nil client gets an
// *http.Client bounded by timeout.
func NewHTTPFetcher(baseURL string, timeout time.Duration, client httputil.Doer) (*HTTPFetcher, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("artifact base url required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if client == nil {
		client = httputil.NewClient(timeout, DefaultTimeout)
	}
	return &HTTPFetcher{baseURL: strings.TrimSuffix(baseURL, "/") + "/", timeout: timeout, client: client}, nil
}

// URL returns the content URL of name.
func (f *HTTPFetcher) URL(name string) string { return f.baseURL + name }

// Fetch streams the artifact into w. Every failure is a *model.FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, name string, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(name), nil)
	if err != nil {
		return &model.FetchError{Artifact: name, Err: err}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return &model.FetchError{Artifact: name, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return &model.FetchError{Artifact: name, StatusCode: resp.StatusCode}
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return &model.FetchError{Artifact: name, Err: fmt.Errorf("download: %w", err)}
	}
	return nil
}

// IsNotFound reports whether err is a repository 404.
func IsNotFound(err error) bool {
	var fe *model.FetchError
	return errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound
}
