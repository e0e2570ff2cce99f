package osm

import (
	"errors"
	"strconv"

	"github.com/joeshaw/envdecode"
)

// envSettings maps OSM_* environment variables to keys. Booleans are read
// as strings so an unset variable can be told apart from "false".
type envSettings struct {
	AcceptLanguage   string `env:"OSM_ACCEPT_LANGUAGE"`
	APIVersion       string `env:"OSM_API_VERSION"`
	Password         string `env:"OSM_PASSWORD"`
	Passwordfile     string `env:"OSM_PASSWORDFILE"`
	Server           string `env:"OSM_SERVER"`
	UserAgent        string `env:"OSM_USER_AGENT"`
	User             string `env:"OSM_USER"`
	Verbose          string `env:"OSM_VERBOSE"`
	OAuthToken       string `env:"OSM_OAUTH_TOKEN"`
	OAuthTokenSecret string `env:"OSM_OAUTH_TOKEN_SECRET"`
	ConsumerKey      string `env:"OSM_OAUTH_CONSUMER_KEY"`
	ConsumerSecret   string `env:"OSM_CONSUMER_SECRET"`
	SSLVerifyPeer    string `env:"OSM_SSL_VERIFY_PEER"`
	SSLVerifyHost    string `env:"OSM_SSL_VERIFY_HOST"`
	SSLCAFile        string `env:"OSM_SSL_CAFILE"`
	SSLLocalCert     string `env:"OSM_SSL_LOCAL_CERT"`
	SSLPassphrase    string `env:"OSM_SSL_PASSPHRASE"`
}

// LoadEnv reads settings from OSM_* environment variables. Only variables
// that are set and non-empty appear in the result. The result can be passed
// to WithSettings or SetMany.
func LoadEnv() (Settings, error) {
	var env envSettings
	if err := envdecode.Decode(&env); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, err
	}

	s := Settings{}
	strs := []struct {
		key Key
		val string
	}{
		{KeyAcceptLanguage, env.AcceptLanguage},
		{KeyAPIVersion, env.APIVersion},
		{KeyPassword, env.Password},
		{KeyPasswordfile, env.Passwordfile},
		{KeyServer, env.Server},
		{KeyUserAgent, env.UserAgent},
		{KeyUser, env.User},
		{KeyOAuthToken, env.OAuthToken},
		{KeyOAuthTokenSecret, env.OAuthTokenSecret},
		{KeyOAuthConsumerKey, env.ConsumerKey},
		{KeyConsumerSecret, env.ConsumerSecret},
		{KeySSLCAFile, env.SSLCAFile},
		{KeySSLLocalCert, env.SSLLocalCert},
		{KeySSLPassphrase, env.SSLPassphrase},
	}
	for _, e := range strs {
		if e.val != "" {
			s[e.key] = e.val
		}
	}

	bools := []struct {
		key Key
		env string
		val string
	}{
		{KeyVerbose, "OSM_VERBOSE", env.Verbose},
		{KeySSLVerifyPeer, "OSM_SSL_VERIFY_PEER", env.SSLVerifyPeer},
		{KeySSLVerifyHost, "OSM_SSL_VERIFY_HOST", env.SSLVerifyHost},
	}
	for _, e := range bools {
		if e.val == "" {
			continue
		}
		b, err := strconv.ParseBool(e.val)
		if err != nil {
			return nil, invalidValue(e.key, "%s: %v", e.env, err)
		}
		s[e.key] = b
	}
	return s, nil
}
