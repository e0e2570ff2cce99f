package osm

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"

	"github.com/google/uuid"

	"github.com/osmkit/osm-go/security"
	"github.com/osmkit/osm-go/transport"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Config is the configuration store of one client session. It holds the
// value of every recognized setting and the capabilities negotiated with the
// configured server.
//
// Setting "server" contacts the server, so Set, SetMany and SetServer take a
// context. Config does no locking; callers sharing one Config between
// goroutines must serialize access.
type Config struct {
	values     Settings
	api        API
	caps       *Capabilities
	binding    transport.Transport
	httpClient *http.Client
	logger     *slog.Logger
	verboseLog *slog.Logger
}

// NewConfig creates a Config holding default settings. It does not contact
// any server; WithSettings and WithoutNegotiation only affect New.
func NewConfig(opts ...Option) *Config {
	return newConfig(buildOptions(opts))
}

func newConfig(o *options) *Config {
	api, err := selectAPI(DefaultAPIVersion)
	if err != nil {
		panic(err)
	}
	c := &Config{
		values:     defaults(),
		api:        api,
		httpClient: o.httpClient,
		logger:     o.logger,
	}
	if o.transport != nil {
		c.binding = o.transport
		c.values[KeyAdapter] = o.transport
	}
	return c
}

// Get returns the value of key.
func (c *Config) Get(key Key) (any, error) {
	if !key.Valid() {
		return nil, unknownOption(string(key))
	}
	return c.values[key], nil
}

// All returns a copy of every setting.
func (c *Config) All() Settings {
	out := make(Settings, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Set assigns a single setting.
//
// Setting "server" stores the new URL and negotiates with it; the URL stays
// stored even when negotiation fails. "passwordfile" reads the file and
// merges the username and password it supplies. "accept-language" and
// "api_version" are validated and left unchanged on error.
func (c *Config) Set(ctx context.Context, key Key, value any) error {
	if !key.Valid() {
		return unknownOption(string(key))
	}
	if key == KeyServer {
		v, err := checkValue(KeyServer, value)
		if err != nil {
			return err
		}
		return c.setServer(ctx, v.(string))
	}
	ch, err := c.prepare(key, value, c.str(KeyUser))
	if err != nil {
		return err
	}
	c.commit(ch)
	return nil
}

// SetMany assigns several settings at once. Unknown keys and invalid values
// are reported before anything is changed. "adapter" is applied first and
// "server" last. If "server" is absent but an OAuth or SSL setting is
// present, the current server is negotiated with again.
func (c *Config) SetMany(ctx context.Context, s Settings) error {
	_, err := c.setMany(ctx, s, true)
	return err
}

// setMany applies s. With negotiate false the server is stored without
// contacting it.
func (c *Config) setMany(ctx context.Context, s Settings, negotiate bool) (negotiated bool, err error) {
	keys := orderKeys(s)
	for _, k := range keys {
		if !k.Valid() {
			return false, unknownOption(string(k))
		}
	}

	user := c.str(KeyUser)
	if v, ok := s[KeyUser]; ok {
		user, _ = v.(string)
	}

	var (
		changes   []change
		server    string
		hasServer bool
	)
	for _, k := range keys {
		if k == KeyServer {
			v, err := checkValue(KeyServer, s[k])
			if err != nil {
				return false, err
			}
			server, hasServer = v.(string), true
			continue
		}
		ch, err := c.prepare(k, s[k], user)
		if err != nil {
			return false, err
		}
		changes = append(changes, ch)
	}

	for _, ch := range changes {
		c.commit(ch)
	}

	switch {
	case !negotiate:
		if hasServer {
			c.values[KeyServer] = server
		}
	case hasServer:
		return true, c.setServer(ctx, server)
	case renegotiates(s):
		return true, c.negotiate(ctx, c.str(KeyServer))
	}
	return false, nil
}

// orderKeys puts adapter first, passwordfile after the plain keys so a user
// set in the same call is in place, and server last.
func orderKeys(s Settings) []Key {
	rank := func(k Key) int {
		switch k {
		case KeyAdapter:
			return 0
		case KeyPasswordfile:
			return 2
		case KeyServer:
			return 3
		default:
			return 1
		}
	}
	keys := make([]Key, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := rank(keys[i]), rank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func renegotiates(s Settings) bool {
	for k := range s {
		if schema[k].renegotiate {
			return true
		}
	}
	return false
}

// change is a validated setting ready to be committed.
type change struct {
	key      Key
	value    any
	api      API
	creds    Credentials
	hasCreds bool
}

func (c *Config) prepare(key Key, value any, user string) (change, error) {
	v, err := checkValue(key, value)
	if err != nil {
		return change{}, err
	}
	ch := change{key: key, value: v}
	switch key {
	case KeyAcceptLanguage:
		if err := ValidateLanguage(v.(string)); err != nil {
			return change{}, err
		}
	case KeyAPIVersion:
		if ch.api, err = selectAPI(v.(string)); err != nil {
			return change{}, err
		}
	case KeyAdapter:
		if name, ok := v.(string); ok && name != DefaultAdapter {
			return change{}, invalidValue(KeyAdapter, "unknown adapter %q", name)
		}
	case KeyPasswordfile:
		if path, ok := v.(string); ok {
			if ch.creds, err = ResolveCredentials(path, user); err != nil {
				return change{}, err
			}
			ch.hasCreds = true
		}
	}
	return ch, nil
}

func (c *Config) commit(ch change) {
	c.values[ch.key] = ch.value
	switch ch.key {
	case KeyAPIVersion:
		c.api = ch.api
	case KeyAdapter:
		c.binding, _ = ch.value.(transport.Transport)
	case KeyPasswordfile:
		if ch.hasCreds {
			if ch.creds.Username != nil {
				c.values[KeyUser] = *ch.creds.Username
			}
			if ch.creds.Password != nil {
				c.values[KeyPassword] = *ch.creds.Password
			}
			c.log().Debug("credentials.resolved",
				slog.String("passwordfile", ch.value.(string)),
				slog.Bool("username", ch.creds.Username != nil),
				slog.Bool("password", ch.creds.Password != nil))
		}
	}
	if ch.key.Secret() {
		c.log().Debug("config.set", slog.String("key", string(ch.key)))
		return
	}
	c.log().Debug("config.set", slog.String("key", string(ch.key)), slog.Any("value", ch.value))
}

// SetServer stores url as the server and negotiates capabilities with it.
// The url is stored even if negotiation fails; in that case the previously
// negotiated capabilities, if any, are kept.
func (c *Config) SetServer(ctx context.Context, url string) error {
	return c.setServer(ctx, url)
}

func (c *Config) setServer(ctx context.Context, server string) error {
	c.values[KeyServer] = server
	return c.negotiate(ctx, server)
}

// SetPasswordfile reads credentials from path. See ResolveCredentials for
// the file format and precedence rules.
func (c *Config) SetPasswordfile(path string) error {
	ch, err := c.prepare(KeyPasswordfile, path, c.str(KeyUser))
	if err != nil {
		return err
	}
	c.commit(ch)
	return nil
}

// SetAcceptLanguage validates and stores the language sent with requests.
func (c *Config) SetAcceptLanguage(tag string) error {
	ch, err := c.prepare(KeyAcceptLanguage, tag, "")
	if err != nil {
		return err
	}
	c.commit(ch)
	return nil
}

// API returns the handler of the configured api_version.
func (c *Config) API() API {
	return c.api
}

// Transport returns the bound adapter, or an HTTP transport built from the
// current settings when the adapter is "http".
func (c *Config) Transport() (transport.Transport, error) {
	if c.binding != nil {
		return c.binding, nil
	}
	return c.buildHTTP()
}

func (c *Config) buildHTTP() (*transport.HTTP, error) {
	opts := []transport.HTTPOption{
		transport.WithUserAgent(c.str(KeyUserAgent)),
		transport.WithAcceptLanguage(c.str(KeyAcceptLanguage)),
	}
	if c.httpClient != nil {
		opts = append(opts, transport.WithHTTPClient(c.httpClient))
	} else {
		tlsConfig, err := c.tlsOptions().Config()
		if err != nil {
			return nil, err
		}
		opts = append(opts, transport.WithTLSConfig(tlsConfig))
	}

	if oauth := c.oauth(); oauth.Complete() {
		opts = append(opts, transport.WithOAuth1(oauth))
	} else if user, pwd := c.str(KeyUser), c.str(KeyPassword); user != "" && pwd != "" {
		opts = append(opts, transport.WithBasicAuth(user, pwd))
	}
	return transport.NewHTTP(opts...), nil
}

func (c *Config) tlsOptions() security.TLSOptions {
	return security.TLSOptions{
		VerifyPeer: c.boolean(KeySSLVerifyPeer),
		VerifyHost: c.boolean(KeySSLVerifyHost),
		CAFile:     c.str(KeySSLCAFile),
		LocalCert:  c.str(KeySSLLocalCert),
		Passphrase: c.str(KeySSLPassphrase),
	}
}

func (c *Config) oauth() security.OAuth1 {
	return security.OAuth1{
		ConsumerKey:    c.str(KeyOAuthConsumerKey),
		ConsumerSecret: c.str(KeyConsumerSecret),
		Token:          c.str(KeyOAuthToken),
		TokenSecret:    c.str(KeyOAuthTokenSecret),
	}
}

func (c *Config) negotiate(ctx context.Context, server string) error {
	id := uuid.NewString()
	log := c.log().With(slog.String("negotiation_id", id), slog.String("server", server))
	ctx = transport.WithRequestID(ctx, id)

	t := c.binding
	if t == nil {
		h, err := c.buildHTTP()
		if err != nil {
			log.WarnContext(ctx, "negotiate.failed", slog.String("err", err.Error()))
			return newError(CodeTransport, ErrTransport.Message, server, err)
		}
		defer h.Close()
		t = h
	}

	log.DebugContext(ctx, "negotiate.start",
		slog.String("transport", t.Name()),
		slog.String("api_version", c.api.Version()))

	caps, err := Negotiate(ctx, server, t, c.api.Version())
	if err != nil {
		log.WarnContext(ctx, "negotiate.failed", slog.String("err", err.Error()))
		return err
	}
	c.caps = caps

	log.InfoContext(ctx, "negotiate.ok",
		slog.String("generator", caps.Generator),
		slog.Float64("min_version", caps.MinVersion),
		slog.Float64("max_version", caps.MaxVersion),
		slog.String("api_status", string(caps.APIStatus)))
	return nil
}

func (c *Config) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	if c.boolean(KeyVerbose) {
		if c.verboseLog == nil {
			c.verboseLog = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
		return c.verboseLog
	}
	return discardLogger
}

func (c *Config) str(k Key) string {
	s, _ := c.values[k].(string)
	return s
}

func (c *Config) boolean(k Key) bool {
	b, _ := c.values[k].(bool)
	return b
}

// Capabilities returns the last successfully negotiated capabilities.
// The bool is false until a negotiation has succeeded.
func (c *Config) Capabilities() (Capabilities, bool) {
	if c.caps == nil {
		return Capabilities{}, false
	}
	return *c.caps, true
}

func (c *Config) current() Capabilities {
	caps, _ := c.Capabilities()
	return caps
}

// MinVersion returns the lowest API version the server supports.
func (c *Config) MinVersion() float64 { return c.current().MinVersion }

// MaxVersion returns the highest API version the server supports.
func (c *Config) MaxVersion() float64 { return c.current().MaxVersion }

// Timeout returns the server's request timeout in seconds.
func (c *Config) Timeout() int { return c.current().Timeout }

// MaxElements returns the maximum number of elements per changeset.
func (c *Config) MaxElements() int { return c.current().MaxElements }

// MaxNodes returns the maximum number of nodes per way. Longer ways must be
// split.
func (c *Config) MaxNodes() int { return c.current().MaxNodes }

// TracepointsPerPage returns how many GPS points the server pages by.
func (c *Config) TracepointsPerPage() int { return c.current().TracepointsPerPage }

// MaxArea returns the largest area that can be downloaded in one request.
func (c *Config) MaxArea() float64 { return c.current().MaxArea }

// DatabaseStatus returns the status of the server's database.
func (c *Config) DatabaseStatus() Status { return c.current().DatabaseStatus }

// APIStatus returns the status of the main API.
func (c *Config) APIStatus() Status { return c.current().APIStatus }

// GPXStatus returns the status of the GPX API.
func (c *Config) GPXStatus() Status { return c.current().GPXStatus }

// Generator returns what produced the capabilities document.
func (c *Config) Generator() string { return c.current().Generator }
