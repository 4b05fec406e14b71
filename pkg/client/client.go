// Package client opens long-lived HTTP connections to server-sent event
// endpoints. It returns the raw response body so callers can feed it to a
// stream parser of their choosing.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

type options struct {
	httpClient  *http.Client
	lastEventID string
	headers     http.Header
}

// Option configures a stream connection.
type Option func(*options)

// WithHTTPClient uses the given client instead of http.DefaultClient.
// The client is copied before use so its timeout can be cleared without
// mutating the caller's instance.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithLastEventID resumes a stream from the given event id by sending the
// Last-Event-ID request header.
func WithLastEventID(id string) Option {
	return func(o *options) {
		o.lastEventID = id
	}
}

// WithHeader adds a request header, overriding defaults of the same name.
func WithHeader(key, value string) Option {
	return func(o *options) {
		if o.headers == nil {
			o.headers = http.Header{}
		}
		o.headers.Set(key, value)
	}
}

// Connect opens a streaming GET request to the given URL and returns the
// response body. The caller owns the body and must close it.
func Connect(ctx context.Context, url string, opts ...Option) (io.ReadCloser, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building stream request: %w", err)
	}

	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if o.lastEventID != "" {
		req.Header.Set("Last-Event-ID", o.lastEventID)
	}
	for key, values := range o.headers {
		for _, value := range values {
			req.Header.Set(key, value)
		}
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	// SSE is a long-lived stream; disable whole-request timeout so the body
	// can stay open until server disconnect.
	streamHTTP := *httpClient
	streamHTTP.Timeout = 0

	resp, err := streamHTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to stream: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 2048))
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return resp.Body, nil
}
