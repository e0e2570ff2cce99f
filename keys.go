package osm

import (
	"sort"

	"github.com/osmkit/osm-go/transport"
)

// Key names a configuration setting. The set of keys is closed: only the
// constants below are recognized.
type Key string

const (
	KeyAcceptLanguage   Key = "accept-language"
	KeyAdapter          Key = "adapter"
	KeyAPIVersion       Key = "api_version"
	KeyPassword         Key = "password"
	KeyPasswordfile     Key = "passwordfile"
	KeyServer           Key = "server"
	KeyUserAgent        Key = "User-Agent"
	KeyUser             Key = "user"
	KeyVerbose          Key = "verbose"
	KeyOAuthToken       Key = "oauth_token"
	KeyOAuthTokenSecret Key = "oauth_token_secret"
	KeyOAuthConsumerKey Key = "oauth_consumer_key"
	KeyConsumerSecret   Key = "consumer_secret"
	KeySSLVerifyPeer    Key = "ssl_verify_peer"
	KeySSLVerifyHost    Key = "ssl_verify_host"
	KeySSLCAFile        Key = "ssl_cafile"
	KeySSLLocalCert     Key = "ssl_local_cert"
	KeySSLPassphrase    Key = "ssl_passphrase"
)

// Defaults for settings that have a non-empty initial value.
const (
	DefaultAcceptLanguage = "en"
	DefaultAdapter        = "http"
	DefaultAPIVersion     = "0.6"
	DefaultServer         = "https://api.openstreetmap.org/"
	DefaultUserAgent      = "osm-go"
)

// kind is a bit set of the value types a key accepts.
type kind uint8

const (
	kindString kind = 1 << iota
	kindBool
	kindNull
	kindFalse     // bool false only, used as "unset" for OAuth secrets
	kindTransport // transport.Transport value
)

type option struct {
	def    any
	kinds  kind
	secret bool // never logged
	// renegotiate marks keys whose change in a multi-key write forces a
	// fresh negotiation against the current server.
	renegotiate bool
}

// schema is the closed option set with defaults and accepted kinds.
var schema = map[Key]option{
	KeyAcceptLanguage:   {def: DefaultAcceptLanguage, kinds: kindString},
	KeyAdapter:          {def: DefaultAdapter, kinds: kindString | kindTransport},
	KeyAPIVersion:       {def: DefaultAPIVersion, kinds: kindString},
	KeyPassword:         {def: nil, kinds: kindString | kindNull, secret: true},
	KeyPasswordfile:     {def: nil, kinds: kindString | kindNull},
	KeyServer:           {def: DefaultServer, kinds: kindString},
	KeyUserAgent:        {def: DefaultUserAgent, kinds: kindString},
	KeyUser:             {def: nil, kinds: kindString | kindNull},
	KeyVerbose:          {def: false, kinds: kindBool},
	KeyOAuthToken:       {def: false, kinds: kindString | kindFalse | kindNull, secret: true, renegotiate: true},
	KeyOAuthTokenSecret: {def: false, kinds: kindString | kindFalse | kindNull, secret: true, renegotiate: true},
	KeyOAuthConsumerKey: {def: false, kinds: kindString | kindFalse | kindNull, secret: true, renegotiate: true},
	KeyConsumerSecret:   {def: false, kinds: kindString | kindFalse | kindNull, secret: true, renegotiate: true},
	KeySSLVerifyPeer:    {def: true, kinds: kindBool, renegotiate: true},
	KeySSLVerifyHost:    {def: true, kinds: kindBool, renegotiate: true},
	KeySSLCAFile:        {def: nil, kinds: kindString | kindNull, renegotiate: true},
	KeySSLLocalCert:     {def: nil, kinds: kindString | kindNull, renegotiate: true},
	KeySSLPassphrase:    {def: nil, kinds: kindString | kindNull, secret: true, renegotiate: true},
}

// Keys returns every recognized key in sorted order.
func Keys() []Key {
	keys := make([]Key, 0, len(schema))
	for k := range schema {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ParseKey returns the Key for name, or an UnknownOption error. Matching is
// exact: case and punctuation variants are rejected.
func ParseKey(name string) (Key, error) {
	k := Key(name)
	if _, ok := schema[k]; !ok {
		return "", unknownOption(name)
	}
	return k, nil
}

// Valid reports whether k is a recognized key.
func (k Key) Valid() bool {
	_, ok := schema[k]
	return ok
}

// Secret reports whether values of k must not be logged.
func (k Key) Secret() bool {
	return schema[k].secret
}

// checkValue verifies v against the kinds accepted by k.
func checkValue(k Key, v any) (any, error) {
	opt := schema[k]
	switch val := v.(type) {
	case nil:
		if opt.kinds&kindNull != 0 {
			return nil, nil
		}
	case string:
		if opt.kinds&kindString != 0 {
			return val, nil
		}
	case bool:
		if opt.kinds&kindBool != 0 || (!val && opt.kinds&kindFalse != 0) {
			return val, nil
		}
	case transport.Transport:
		if opt.kinds&kindTransport != 0 {
			return val, nil
		}
	}
	if opt.secret {
		return nil, invalidValue(k, "unsupported value of type %T", v)
	}
	return nil, invalidValue(k, "unsupported value %v (%T)", v, v)
}

// Settings is a set of key/value assignments.
type Settings map[Key]any

func defaults() Settings {
	s := make(Settings, len(schema))
	for k, opt := range schema {
		s[k] = opt.def
	}
	return s
}
