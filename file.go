package osm

import (
	"fmt"
	"strconv"

	"github.com/BurntSushi/toml"
)

// LoadFile reads settings from a TOML file whose top-level keys are setting
// names:
//
//	server = "https://master.apis.dev.openstreetmap.org/"
//	user = "fred@example.com"
//	passwordfile = "/home/fred/.osm-credentials"
//	"User-Agent" = "my-editor/1.0"
//	ssl_verify_peer = true
//
// Unknown keys are reported as UnknownOption errors and values of the wrong
// type as InvalidValue errors.
func LoadFile(path string) (Settings, error) {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	s := make(Settings, len(raw))
	for name, v := range raw {
		k, err := ParseKey(name)
		if err != nil {
			return nil, err
		}
		// api_version = 0.6 is a TOML float.
		if f, ok := v.(float64); ok && k == KeyAPIVersion {
			v = strconv.FormatFloat(f, 'f', -1, 64)
		}
		if v, err = checkValue(k, v); err != nil {
			return nil, err
		}
		s[k] = v
	}
	return s, nil
}
