package transport

import (
	"context"
	"net/http"
	"time"
)

const DefaultTimeout = 30 * time.Second

// HTTP fetches http and https URLs.
type HTTP struct {
	Client *http.Client
}

// NewHTTP returns an HTTP transport whose requests fail after timeout.
func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{Client: &http.Client{Timeout: timeout}}
}

func (t *HTTP) Fetch(ctx context.Context, rawURL string, progress ProgressFunc) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: rawURL, Err: err}
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, classify(ctx, rawURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindHTTPStatus, URL: rawURL, Status: resp.StatusCode}
	}

	// ContentLength is the encoded size, or -1 when the client decoded it.
	body, err := readAll(ctx, resp.Body, resp.ContentLength, progress)
	if err != nil {
		return nil, classify(ctx, rawURL, err)
	}
	return &Response{Body: body, ContentType: resp.Header.Get("Content-Type")}, nil
}
