// Package logfetcher fetches telemetry logs over HTTP so remote logs can be
// decoded like local files.
package logfetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

const defaultTimeout = 60 * time.Second

// Source is a collector source backed by a URL. Every Open issues a new GET,
// so a decode can restart from the first byte.
type Source struct {
	URL    string
	Client *http.Client
	// Context bounds each request; defaults to context.Background.
	Context context.Context
}

func New(url string) Source {
	return Source{URL: url, Client: &http.Client{Timeout: defaultTimeout}}
}

// IsURL reports whether arg names an http(s) resource rather than a path.
func IsURL(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

func (s Source) Name() string { return s.URL }

// Open fetches the log. The caller closes the returned body.
func (s Source) Open() (io.ReadCloser, error) {
	ctx := s.Context
	if ctx == nil {
		ctx = context.Background()
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", s.URL, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", s.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, s.URL, resp.StatusCode)
	}
	return resp.Body, nil
}
