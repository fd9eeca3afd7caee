package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxSourceBytes caps remote downloads.
const maxSourceBytes = 10 << 20 // 10MB

// HTTPSource fetches originals over http:// and https://. The URI path is
// everything after the scheme, so https://example.com/a.jpg is fetched as is.
type HTTPSource struct {
	client *http.Client
}

// NewHTTPSource creates a source with a 30 second timeout.
func NewHTTPSource() *HTTPSource {
	return &HTTPSource{client: &http.Client{Timeout: 30 * time.Second}}
}

// NewHTTPSourceWithClient lets tests and callers supply their own client.
func NewHTTPSourceWithClient(client *http.Client) *HTTPSource {
	return &HTTPSource{client: client}
}

func (h *HTTPSource) Name() string { return "http" }

func (h *HTTPSource) Schemes() []string { return []string{"http", "https"} }

func (h *HTTPSource) Fetch(ctx context.Context, scheme, path string) ([]byte, error) {
	url := scheme + "://" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "neo-image/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: HTTP %d for %s", ErrSourceNotFound, resp.StatusCode, url)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	// Read one byte past the limit to tell "exactly 10MB" from "too big".
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if len(data) > maxSourceBytes {
		return nil, fmt.Errorf("source %s exceeds %d bytes", url, maxSourceBytes)
	}
	return data, nil
}
