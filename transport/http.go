package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/osmkit/osm-go/security"
)

// DefaultAccept is sent with every request. XML is preferred because it is
// the API's native format; JSON is accepted where the server offers it.
const DefaultAccept = "application/xml, text/xml;q=0.9, application/json;q=0.8"

// HTTP implements Transport over net/http.
type HTTP struct {
	httpClient     *http.Client
	client         *http.Client
	userAgent      string
	acceptLanguage string
	username       string
	password       string
	oauth          *security.OAuth1
}

// HTTPOption configures an HTTP transport.
type HTTPOption func(*HTTP)

// WithHTTPClient sets a custom HTTP client. TLS options applied with
// WithTLSConfig are ignored when a client is given.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(h *HTTP) {
		h.httpClient = client
	}
}

// WithTLSConfig installs a TLS configuration on a fresh client.
func WithTLSConfig(config *tls.Config) HTTPOption {
	return func(h *HTTP) {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = config
		h.httpClient = &http.Client{
			Timeout:   h.httpClient.Timeout,
			Transport: tr,
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(h *HTTP) {
		h.userAgent = ua
	}
}

// WithAcceptLanguage sets the Accept-Language header.
func WithAcceptLanguage(lang string) HTTPOption {
	return func(h *HTTP) {
		h.acceptLanguage = lang
	}
}

// WithBasicAuth authenticates requests with HTTP basic auth.
func WithBasicAuth(username, password string) HTTPOption {
	return func(h *HTTP) {
		h.username = username
		h.password = password
	}
}

// WithOAuth1 signs requests with OAuth 1.0a. It takes precedence over
// basic auth and wraps whichever client the other options settle on.
func WithOAuth1(creds security.OAuth1) HTTPOption {
	return func(h *HTTP) {
		h.oauth = &creds
	}
}

// NewHTTP creates a new HTTP transport.
func NewHTTP(opts ...HTTPOption) *HTTP {
	h := &HTTP{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.client = h.httpClient
	if h.oauth != nil {
		h.client = h.oauth.Client(h.httpClient)
	}
	return h
}

func (h *HTTP) Name() string { return "http" }

func (h *HTTP) Close() error {
	h.httpClient.CloseIdleConnections()
	return nil
}

// Fetch sends a GET request and buffers the whole body.
func (h *HTTP) Fetch(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", DefaultAccept)
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	if h.acceptLanguage != "" {
		req.Header.Set("Accept-Language", h.acceptLanguage)
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		req.Header.Set("X-Request-Id", id)
	}

	if h.oauth == nil && h.username != "" {
		req.SetBasicAuth(h.username, h.password)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
