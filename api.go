package osm

import (
	"fmt"
	"path"
	"sort"
	"strconv"
)

// API describes one version of the OpenStreetMap API protocol. Request
// builders use it to address endpoints for the selected version.
type API interface {
	// Version returns the version string, e.g. "0.6".
	Version() string

	// Number returns the version as a float for range checks.
	Number() float64

	// Path joins elem onto the versioned API prefix, e.g. "api/0.6/map".
	Path(elem ...string) string
}

type apiVersion struct {
	version string
	number  float64
}

func (a apiVersion) Version() string { return a.version }

func (a apiVersion) Number() float64 { return a.number }

func (a apiVersion) Path(elem ...string) string {
	return path.Join(append([]string{"api", a.version}, elem...)...)
}

// apiVersions maps every supported api_version value to its handler.
var apiVersions = map[string]func() API{
	"0.5": func() API { return apiVersion{version: "0.5", number: 0.5} },
	"0.6": func() API { return apiVersion{version: "0.6", number: 0.6} },
}

func init() {
	for v, factory := range apiVersions {
		api := factory()
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || api.Version() != v || api.Number() != n {
			panic(fmt.Sprintf("osm: api version table entry %q is inconsistent", v))
		}
	}
}

// SupportedAPIVersions lists the api_version values this package can select.
func SupportedAPIVersions() []string {
	out := make([]string, 0, len(apiVersions))
	for v := range apiVersions {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func selectAPI(version string) (API, error) {
	factory, ok := apiVersions[version]
	if !ok {
		return nil, invalidValue(KeyAPIVersion, "unsupported version %q, want one of %v", version, SupportedAPIVersions())
	}
	return factory(), nil
}
