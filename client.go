package osm

import (
	"context"
)

// Client is an OpenStreetMap API client session. It owns one Config for
// its whole lifetime.
type Client struct {
	config *Config
}

// New creates a client, applies the settings given with WithSettings and
// negotiates capabilities with the configured server.
//
// Example:
//
//	// Public server, default settings
//	client, err := osm.New(ctx)
//
//	// Development server with credentials from a password file
//	client, err := osm.New(ctx, osm.WithSettings(osm.Settings{
//	    osm.KeyServer:       "https://master.apis.dev.openstreetmap.org/",
//	    osm.KeyUser:         "fred@example.com",
//	    osm.KeyPasswordfile: "/home/fred/.osm-credentials",
//	}))
func New(ctx context.Context, opts ...Option) (*Client, error) {
	o := buildOptions(opts)
	c := &Client{config: newConfig(o)}

	negotiated, err := c.config.setMany(ctx, o.settings, !o.noNegotiate)
	if err != nil {
		return nil, err
	}
	if !negotiated && !o.noNegotiate {
		if err := c.config.negotiate(ctx, c.config.str(KeyServer)); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew creates a new client and panics on error.
// Use New() for error handling in production code.
func MustNew(ctx context.Context, opts ...Option) *Client {
	client, err := New(ctx, opts...)
	if err != nil {
		panic(err)
	}
	return client
}

// Config returns the session's configuration store.
func (c *Client) Config() *Config {
	return c.config
}

// Refresh negotiates again with the current server, picking up changes in
// its advertised limits and status.
func (c *Client) Refresh(ctx context.Context) error {
	return c.config.negotiate(ctx, c.config.str(KeyServer))
}

// Close releases the bound transport.
func (c *Client) Close() error {
	if c.config.binding != nil {
		return c.config.binding.Close()
	}
	return nil
}
