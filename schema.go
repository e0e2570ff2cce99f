package osm

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// settingsDoc describes the option set for schema generation. Its JSON
// names must match the Key constants.
type settingsDoc struct {
	AcceptLanguage   string  `json:"accept-language,omitempty" jsonschema:"default=en,description=Language tags sent as Accept-Language"`
	Adapter          string  `json:"adapter,omitempty" jsonschema:"enum=http,default=http,description=Transport used for requests"`
	APIVersion       string  `json:"api_version,omitempty" jsonschema:"enum=0.5,enum=0.6,default=0.6,description=API version requested from the server"`
	Password         *string `json:"password,omitempty" jsonschema:"description=Password for basic authentication"`
	Passwordfile     *string `json:"passwordfile,omitempty" jsonschema:"description=File of user:password lines"`
	Server           string  `json:"server,omitempty" jsonschema:"format=uri,default=https://api.openstreetmap.org/,description=Base URL of the API server"`
	UserAgent        string  `json:"User-Agent,omitempty" jsonschema:"default=osm-go,description=User-Agent header value"`
	User             *string `json:"user,omitempty" jsonschema:"description=Username for authentication"`
	Verbose          bool    `json:"verbose,omitempty" jsonschema:"default=false,description=Log to stderr at debug level"`
	OAuthToken       *string `json:"oauth_token,omitempty" jsonschema:"description=OAuth 1.0a access token"`
	OAuthTokenSecret *string `json:"oauth_token_secret,omitempty" jsonschema:"description=OAuth 1.0a access token secret"`
	ConsumerKey      *string `json:"oauth_consumer_key,omitempty" jsonschema:"description=OAuth 1.0a consumer key"`
	ConsumerSecret   *string `json:"consumer_secret,omitempty" jsonschema:"description=OAuth 1.0a consumer secret"`
	SSLVerifyPeer    bool    `json:"ssl_verify_peer,omitempty" jsonschema:"default=true,description=Verify the server certificate chain"`
	SSLVerifyHost    bool    `json:"ssl_verify_host,omitempty" jsonschema:"default=true,description=Verify the server host name"`
	SSLCAFile        *string `json:"ssl_cafile,omitempty" jsonschema:"description=PEM bundle of trusted CAs"`
	SSLLocalCert     *string `json:"ssl_local_cert,omitempty" jsonschema:"description=Client certificate as PEM or PKCS#12"`
	SSLPassphrase    *string `json:"ssl_passphrase,omitempty" jsonschema:"description=Passphrase of the client certificate"`
}

// Schema returns a JSON Schema of the settings accepted by LoadFile and
// SetMany. Additional properties are rejected.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(new(settingsDoc))
	s.Title = "osm-go settings"
	return s
}

// SchemaJSON returns Schema encoded as indented JSON.
func SchemaJSON() ([]byte, error) {
	return json.MarshalIndent(Schema(), "", "  ")
}
