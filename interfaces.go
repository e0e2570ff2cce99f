package osm

import "context"

// Getter provides read access to settings.
type Getter interface {
	// Get returns the value of a setting.
	Get(key Key) (any, error)

	// All returns a copy of every setting.
	All() Settings
}

// Setter provides write access to settings.
type Setter interface {
	// Set assigns a single setting.
	Set(ctx context.Context, key Key, value any) error

	// SetMany assigns several settings in one call.
	SetMany(ctx context.Context, s Settings) error
}

// Store combines read and write access to settings.
type Store interface {
	Getter
	Setter
}

// CapabilityReader exposes what the server advertised during negotiation.
// Every method returns the zero value until a negotiation has succeeded.
type CapabilityReader interface {
	MinVersion() float64
	MaxVersion() float64
	Timeout() int
	MaxElements() int
	MaxNodes() int
	TracepointsPerPage() int
	MaxArea() float64
	DatabaseStatus() Status
	APIStatus() Status
	GPXStatus() Status
	Generator() string
}

// Ensure Config implements all interfaces.
var (
	_ Getter           = (*Config)(nil)
	_ Setter           = (*Config)(nil)
	_ Store            = (*Config)(nil)
	_ CapabilityReader = (*Config)(nil)
)
