package security

import (
	"context"
	"net/http"

	"github.com/dghubble/oauth1"
)

// OAuth1 holds OAuth 1.0a consumer and access token credentials.
type OAuth1 struct {
	ConsumerKey    string
	ConsumerSecret string
	Token          string
	TokenSecret    string

	noncer oauth1.Noncer
}

// Complete reports whether every credential is present.
func (o OAuth1) Complete() bool {
	return o.ConsumerKey != "" && o.ConsumerSecret != "" && o.Token != "" && o.TokenSecret != ""
}

// Client returns a client that signs every request with HMAC-SHA1 and sends
// it through base's transport. The timeout of base is kept.
func (o OAuth1) Client(base *http.Client) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, base)
	client := o.config().Client(ctx, oauth1.NewToken(o.Token, o.TokenSecret))
	client.Timeout = base.Timeout
	return client
}

func (o OAuth1) config() *oauth1.Config {
	cfg := oauth1.NewConfig(o.ConsumerKey, o.ConsumerSecret)
	cfg.Noncer = o.noncer
	if cfg.Noncer == nil {
		cfg.Noncer = oauth1.HexNoncer{}
	}
	return cfg
}
