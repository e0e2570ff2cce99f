package osm

import (
	"log/slog"
	"net/http"

	"github.com/osmkit/osm-go/transport"
)

// Option configures a Config or Client.
type Option func(*options)

// options holds construction-time configuration.
type options struct {
	settings    Settings
	transport   transport.Transport
	httpClient  *http.Client
	logger      *slog.Logger
	noNegotiate bool
}

// WithSettings applies settings when a Client is created. Later calls
// merge into earlier ones.
func WithSettings(s Settings) Option {
	return func(o *options) {
		if o.settings == nil {
			o.settings = make(Settings, len(s))
		}
		for k, v := range s {
			o.settings[k] = v
		}
	}
}

// WithTransport binds t as the adapter. Equivalent to setting the
// "adapter" key to t.
func WithTransport(t transport.Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithHTTPClient sets the *http.Client used by the built-in "http"
// adapter. The ssl_* settings are not applied to a caller-supplied client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets the logger. Without it, nothing is logged unless the
// "verbose" setting is true.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithoutNegotiation stops New from contacting the server. Capabilities
// stay absent until the server is set.
func WithoutNegotiation() Option {
	return func(o *options) {
		o.noNegotiate = true
	}
}

func buildOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
