// Package transport provides the HTTP transports used to reach an
// OpenStreetMap API server.
package transport

import (
	"context"
	"net/http"
)

// Transport fetches a URL and returns the server's response.
// A non-2xx status is not an error at this level; callers inspect
// Response.StatusCode. Errors are reserved for failures to obtain a
// response at all.
type Transport interface {
	// Name returns the transport name (e.g., "http", "mock").
	Name() string

	// Fetch issues a GET request for url.
	Fetch(ctx context.Context, url string) (*Response, error)

	// Close releases any resources held by the transport.
	Close() error
}

// Response is a complete, buffered server response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports whether the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ContentType returns the Content-Type header, or "" if unset.
func (r *Response) ContentType() string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get("Content-Type")
}

type requestIDKey struct{}

// WithRequestID attaches a correlation id that transports forward as the
// X-Request-Id header.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id set by WithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}
