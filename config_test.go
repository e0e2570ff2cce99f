package osm

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmkit/osm-go/transport"
)

// newMockConfig returns a Config bound to a mock that answers with each of
// the named testdata capability files in turn.
func newMockConfig(t *testing.T, files ...string) (*Config, *transport.Mock) {
	t.Helper()
	mock := transport.NewMock()
	for _, f := range files {
		mock.AddResponse(200, "text/xml; charset=utf-8", readTestdata(t, f))
	}
	return NewConfig(WithTransport(mock)), mock
}

func TestConfigDefaults(t *testing.T) {
	want := Settings{
		KeyAcceptLanguage:   "en",
		KeyAdapter:          "http",
		KeyAPIVersion:       "0.6",
		KeyPassword:         nil,
		KeyPasswordfile:     nil,
		KeyServer:           "https://api.openstreetmap.org/",
		KeyUserAgent:        "osm-go",
		KeyUser:             nil,
		KeyVerbose:          false,
		KeyOAuthToken:       false,
		KeyOAuthTokenSecret: false,
		KeyOAuthConsumerKey: false,
		KeyConsumerSecret:   false,
		KeySSLVerifyPeer:    true,
		KeySSLVerifyHost:    true,
		KeySSLCAFile:        nil,
		KeySSLLocalCert:     nil,
		KeySSLPassphrase:    nil,
	}
	cfg := NewConfig()
	if diff := cmp.Diff(want, cfg.All()); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, cfg.All(), len(Keys()))

	_, ok := cfg.Capabilities()
	assert.False(t, ok)
	assert.Equal(t, "0.6", cfg.API().Version())
	assert.Zero(t, cfg.MaxNodes())
	assert.Empty(t, cfg.Generator())
}

func TestConfigAllIsCopy(t *testing.T) {
	cfg := NewConfig()
	all := cfg.All()
	all[KeyUser] = "mallory"
	v, err := cfg.Get(KeyUser)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestConfigUnknownKey(t *testing.T) {
	ctx := context.Background()
	cfg, mock := newMockConfig(t)

	for _, name := range []string{"UserAgent", "user-agent", "colour", ""} {
		_, err := cfg.Get(Key(name))
		assert.True(t, IsUnknownOption(err), "get %q", name)

		err = cfg.Set(ctx, Key(name), "x")
		assert.True(t, IsUnknownOption(err), "set %q", name)
	}

	err := cfg.SetMany(ctx, Settings{
		KeyUser:          "fred",
		KeyServer:        "http://example.com",
		Key("UserAgent"): "Acme 1.2",
	})
	require.Error(t, err)
	assert.True(t, IsUnknownOption(err))
	assert.Contains(t, err.Error(), "'UserAgent'")

	v, _ := cfg.Get(KeyUser)
	assert.Nil(t, v, "no key may be applied when one is unknown")
	v, _ = cfg.Get(KeyServer)
	assert.Equal(t, DefaultServer, v)
	assert.Empty(t, mock.Requests())
}

func TestConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg, _ := newMockConfig(t, "capabilities.xml")

	values := Settings{
		KeyAcceptLanguage:   "en-GB,fr",
		KeyAPIVersion:       "0.5",
		KeyPassword:         "Wilma4evah",
		KeyServer:           "http://example.com",
		KeyUserAgent:        "Acme 1.2",
		KeyUser:             "fred@example.com",
		KeyVerbose:          false,
		KeyOAuthToken:       "token",
		KeyOAuthTokenSecret: "token-secret",
		KeyOAuthConsumerKey: "consumer",
		KeyConsumerSecret:   "consumer-secret",
		KeySSLVerifyPeer:    false,
		KeySSLVerifyHost:    false,
		KeySSLCAFile:        "/etc/ssl/certs/ca-certificates.crt",
		KeySSLLocalCert:     "/home/fred/client.p12",
		KeySSLPassphrase:    "secret",
	}
	for _, k := range Keys() {
		v, ok := values[k]
		if !ok {
			continue
		}
		t.Run(string(k), func(t *testing.T) {
			require.NoError(t, cfg.Set(ctx, k, v))
			got, err := cfg.Get(k)
			require.NoError(t, err)
			assert.Equal(t, v, got)
		})
	}
}

func TestConfigSetServer(t *testing.T) {
	ctx := context.Background()
	cfg, mock := newMockConfig(t, "capabilities.xml")

	require.NoError(t, cfg.SetServer(ctx, "http://example.com"))
	assert.Equal(t, []string{"http://example.com/api/capabilities"}, mock.Requests())

	caps, ok := cfg.Capabilities()
	require.True(t, ok)
	assert.Equal(t, publicCapabilities, caps)
	assert.Equal(t, 0.1, cfg.MinVersion())
	assert.Equal(t, 0.6, cfg.MaxVersion())
	assert.Equal(t, 300, cfg.Timeout())
	assert.Equal(t, 50000, cfg.MaxElements())
	assert.Equal(t, 2000, cfg.MaxNodes())
	assert.Equal(t, 5000, cfg.TracepointsPerPage())
	assert.Equal(t, 0.25, cfg.MaxArea())
	assert.Equal(t, StatusOnline, cfg.DatabaseStatus())
	assert.Equal(t, StatusOnline, cfg.APIStatus())
	assert.Equal(t, StatusOnline, cfg.GPXStatus())
	assert.Equal(t, "OpenStreetMap server", cfg.Generator())
}

func TestConfigSetServerNotFound(t *testing.T) {
	ctx := context.Background()
	mock := transport.NewMock().
		AddResponse(404, "text/html", []byte("Not Found")).
		AddResponse(404, "text/html", []byte("Not Found"))
	cfg := NewConfig(WithTransport(mock))

	err := cfg.Set(ctx, KeyServer, "http://example.com")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, 404, e.StatusCode)
	assert.Contains(t, err.Error(), "could not get a valid response from server")

	v, err := cfg.Get(KeyServer)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", v)
	_, ok := cfg.Capabilities()
	assert.False(t, ok)

	err = cfg.SetServer(ctx, "http://example.org")
	assert.True(t, IsTransport(err))
	v, _ = cfg.Get(KeyServer)
	assert.Equal(t, "http://example.org", v)
}

func TestConfigFailedNegotiationKeepsCapabilities(t *testing.T) {
	ctx := context.Background()
	mock := transport.NewMock().
		AddResponse(200, "text/xml", readTestdata(t, "capabilities_jxapi.xml")).
		AddResponse(200, "text/xml", []byte("<osm><api>")).
		AddError(errors.New("connection reset"))
	cfg := NewConfig(WithTransport(mock))

	require.NoError(t, cfg.SetServer(ctx, "http://xapi.example.com"))
	assert.Equal(t, "Java XAPI Server", cfg.Generator())

	err := cfg.SetServer(ctx, "http://broken.example.com")
	assert.ErrorIs(t, err, ErrMalformedCapabilities)
	assert.Equal(t, "Java XAPI Server", cfg.Generator())

	err = cfg.SetServer(ctx, "http://down.example.com")
	assert.True(t, IsTransport(err))
	assert.Equal(t, "Java XAPI Server", cfg.Generator())

	v, _ := cfg.Get(KeyServer)
	assert.Equal(t, "http://down.example.com", v)
}

func TestConfigIncompatibleVersion(t *testing.T) {
	ctx := context.Background()
	cfg, _ := newMockConfig(t, "capabilities_readonly.xml")

	require.NoError(t, cfg.Set(ctx, KeyAPIVersion, "0.5"))
	err := cfg.SetServer(ctx, "http://example.com")
	require.Error(t, err)
	assert.True(t, IsIncompatibleVersion(err))
	assert.True(t, IsNegotiation(err))
	_, ok := cfg.Capabilities()
	assert.False(t, ok)
}

func TestConfigAPIVersion(t *testing.T) {
	ctx := context.Background()
	cfg := NewConfig()

	require.NoError(t, cfg.Set(ctx, KeyAPIVersion, "0.5"))
	assert.Equal(t, "0.5", cfg.API().Version())
	assert.Equal(t, "api/0.5/map", cfg.API().Path("map"))

	err := cfg.Set(ctx, KeyAPIVersion, "0.7")
	assert.ErrorIs(t, err, ErrInvalidValue)
	v, _ := cfg.Get(KeyAPIVersion)
	assert.Equal(t, "0.5", v)
	assert.Equal(t, "0.5", cfg.API().Version())
}

func TestConfigAcceptLanguage(t *testing.T) {
	ctx := context.Background()
	cfg := NewConfig()

	require.NoError(t, cfg.SetAcceptLanguage("en-GB,fr"))
	v, _ := cfg.Get(KeyAcceptLanguage)
	assert.Equal(t, "en-GB,fr", v)

	// Subtags of up to eight letters are fine, so both of these are accepted.
	require.NoError(t, cfg.Set(ctx, KeyAcceptLanguage, "english"))
	require.NoError(t, cfg.Set(ctx, KeyAcceptLanguage, "english-language"))
	require.NoError(t, cfg.SetAcceptLanguage("en-GB,fr"))

	err := cfg.Set(ctx, KeyAcceptLanguage, "englishes")
	assert.ErrorIs(t, err, ErrInvalidLanguage)
	err = cfg.SetAcceptLanguage("en-123")
	assert.ErrorIs(t, err, ErrInvalidLanguage)

	v, _ = cfg.Get(KeyAcceptLanguage)
	assert.Equal(t, "en-GB,fr", v)
}

func TestConfigAdapter(t *testing.T) {
	ctx := context.Background()
	cfg := NewConfig()

	tr, err := cfg.Transport()
	require.NoError(t, err)
	assert.Equal(t, "http", tr.Name())
	_, isHTTP := tr.(*transport.HTTP)
	assert.True(t, isHTTP)

	err = cfg.Set(ctx, KeyAdapter, "curl")
	assert.ErrorIs(t, err, ErrInvalidValue)

	mock := transport.NewMock()
	require.NoError(t, cfg.Set(ctx, KeyAdapter, mock))
	tr, err = cfg.Transport()
	require.NoError(t, err)
	assert.Same(t, mock, tr)

	require.NoError(t, cfg.Set(ctx, KeyAdapter, "http"))
	tr, _ = cfg.Transport()
	assert.Equal(t, "http", tr.Name())
}

func TestConfigPasswordfile(t *testing.T) {
	ctx := context.Background()

	t.Run("one line", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, cfg.Set(ctx, KeyPasswordfile, "testdata/pwd_1line"))
		assertSetting(t, cfg, KeyPasswordfile, "testdata/pwd_1line")
		assertSetting(t, cfg, KeyUser, "fred@example.com")
		assertSetting(t, cfg, KeyPassword, "Wilma4evah")
	})

	t.Run("explicit method", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, cfg.SetPasswordfile("testdata/pwd_comment"))
		assertSetting(t, cfg, KeyUser, "fred@example.com")
		assertSetting(t, cfg, KeyPassword, "Wilma4evah")
	})

	t.Run("multi line uses current user", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, cfg.Set(ctx, KeyUser, "barney@example.net"))
		assertSetting(t, cfg, KeyPassword, nil)
		require.NoError(t, cfg.SetPasswordfile("testdata/pwd_multi"))
		assertSetting(t, cfg, KeyUser, "barney@example.net")
		assertSetting(t, cfg, KeyPassword, "B3tty4evah")
	})

	t.Run("two comments", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, cfg.SetPasswordfile("testdata/pwd_2comments"))
		assertSetting(t, cfg, KeyPasswordfile, "testdata/pwd_2comments")
		assertSetting(t, cfg, KeyUser, nil)
		assertSetting(t, cfg, KeyPassword, nil)
	})

	for _, file := range []string{"testdata/credentels", "testdata/pwd_empty"} {
		t.Run("unreadable "+file, func(t *testing.T) {
			cfg := NewConfig()
			err := cfg.Set(ctx, KeyPasswordfile, file)
			assert.ErrorIs(t, err, ErrUnreadableFile)
			err = cfg.SetPasswordfile(file)
			assert.ErrorIs(t, err, ErrUnreadableFile)
			assertSetting(t, cfg, KeyPasswordfile, nil)
			assertSetting(t, cfg, KeyUser, nil)
			assertSetting(t, cfg, KeyPassword, nil)
		})
	}

	t.Run("unset", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, cfg.SetPasswordfile("testdata/pwd_1line"))
		require.NoError(t, cfg.Set(ctx, KeyPasswordfile, nil))
		assertSetting(t, cfg, KeyPasswordfile, nil)
		assertSetting(t, cfg, KeyUser, "fred@example.com")
	})
}

func assertSetting(t *testing.T, cfg *Config, k Key, want any) {
	t.Helper()
	got, err := cfg.Get(k)
	require.NoError(t, err)
	assert.Equal(t, want, got, string(k))
}

func TestConfigSetMany(t *testing.T) {
	ctx := context.Background()

	t.Run("user applied before passwordfile", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, cfg.SetMany(ctx, Settings{
			KeyPasswordfile: "testdata/pwd_multi",
			KeyUser:         "fred@example.com",
		}))
		assertSetting(t, cfg, KeyUser, "fred@example.com")
		assertSetting(t, cfg, KeyPassword, "Pebbles")
	})

	t.Run("explicit nil user", func(t *testing.T) {
		cfg := NewConfig()
		require.NoError(t, cfg.Set(ctx, KeyUser, "fred@example.com"))
		require.NoError(t, cfg.SetMany(ctx, Settings{
			KeyPasswordfile: "testdata/pwd_multi",
			KeyUser:         nil,
		}))
		assertSetting(t, cfg, KeyUser, nil)
		assertSetting(t, cfg, KeyPassword, nil)
	})

	t.Run("adapter applied before server", func(t *testing.T) {
		cfg := NewConfig()
		mock := transport.NewMock().AddResponse(200, "text/xml", readTestdata(t, "capabilities.xml"))
		require.NoError(t, cfg.SetMany(ctx, Settings{
			KeyServer:     "http://api06.dev.openstreetmap.org/",
			KeyAdapter:    mock,
			KeyAPIVersion: "0.5",
			KeyUserAgent:  "Acme 1.2",
		}))
		assert.Equal(t, []string{"http://api06.dev.openstreetmap.org/api/capabilities"}, mock.Requests())
		assertSetting(t, cfg, KeyAPIVersion, "0.5")
		assertSetting(t, cfg, KeyUserAgent, "Acme 1.2")
		assert.Equal(t, "OpenStreetMap server", cfg.Generator())
	})

	t.Run("invalid value changes nothing", func(t *testing.T) {
		cfg, mock := newMockConfig(t)
		err := cfg.SetMany(ctx, Settings{
			KeyUser:           "fred@example.com",
			KeyAcceptLanguage: "en-123",
			KeyServer:         "http://example.com",
		})
		assert.ErrorIs(t, err, ErrInvalidLanguage)
		assertSetting(t, cfg, KeyUser, nil)
		assertSetting(t, cfg, KeyServer, DefaultServer)
		assert.Empty(t, mock.Requests())
	})

	t.Run("unreadable file changes nothing", func(t *testing.T) {
		cfg := NewConfig()
		err := cfg.SetMany(ctx, Settings{
			KeyUser:         "fred@example.com",
			KeyPasswordfile: "testdata/credentels",
		})
		assert.ErrorIs(t, err, ErrUnreadableFile)
		assertSetting(t, cfg, KeyUser, nil)
	})

	t.Run("wrong type", func(t *testing.T) {
		cfg := NewConfig()
		err := cfg.SetMany(ctx, Settings{KeyVerbose: "yes"})
		assert.ErrorIs(t, err, ErrInvalidValue)
		assertSetting(t, cfg, KeyVerbose, false)
	})
}

func TestConfigRenegotiation(t *testing.T) {
	ctx := context.Background()

	t.Run("ssl settings renegotiate with current server", func(t *testing.T) {
		cfg, mock := newMockConfig(t, "capabilities.xml", "capabilities_jxapi.xml")
		require.NoError(t, cfg.SetServer(ctx, "http://example.com"))

		require.NoError(t, cfg.SetMany(ctx, Settings{
			KeySSLVerifyPeer: false,
			KeySSLVerifyHost: false,
		}))
		assert.Equal(t, []string{
			"http://example.com/api/capabilities",
			"http://example.com/api/capabilities",
		}, mock.Requests())
		assert.Equal(t, "Java XAPI Server", cfg.Generator())
	})

	t.Run("oauth settings renegotiate", func(t *testing.T) {
		cfg, mock := newMockConfig(t, "capabilities.xml")
		require.NoError(t, cfg.SetMany(ctx, Settings{
			KeyOAuthToken:       "token",
			KeyOAuthTokenSecret: "token-secret",
			KeyUserAgent:        "Acme 1.2",
		}))
		assert.Equal(t, []string{"https://api.openstreetmap.org/api/capabilities"}, mock.Requests())
	})

	t.Run("server given once", func(t *testing.T) {
		cfg, mock := newMockConfig(t, "capabilities.xml")
		require.NoError(t, cfg.SetMany(ctx, Settings{
			KeyServer:           "http://example.com",
			KeyOAuthConsumerKey: "consumer",
			KeyConsumerSecret:   "consumer-secret",
		}))
		assert.Equal(t, []string{"http://example.com/api/capabilities"}, mock.Requests())
	})

	t.Run("plain settings do not renegotiate", func(t *testing.T) {
		cfg, mock := newMockConfig(t)
		require.NoError(t, cfg.SetMany(ctx, Settings{
			KeyUserAgent: "Acme 1.2",
			KeyVerbose:   false,
		}))
		assert.Empty(t, mock.Requests())
	})

	t.Run("single set does not renegotiate", func(t *testing.T) {
		cfg, mock := newMockConfig(t)
		require.NoError(t, cfg.Set(ctx, KeySSLVerifyPeer, false))
		assert.Empty(t, mock.Requests())
	})

	t.Run("failed renegotiation is surfaced", func(t *testing.T) {
		mock := transport.NewMock().AddResponse(500, "text/plain", []byte("oops"))
		cfg := NewConfig(WithTransport(mock))
		err := cfg.SetMany(ctx, Settings{KeySSLCAFile: "/etc/ssl/ca.pem"})
		assert.True(t, IsTransport(err))
		assertSetting(t, cfg, KeySSLCAFile, "/etc/ssl/ca.pem")
	})
}

func TestConfigLogging(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	mock := transport.NewMock().AddResponse(200, "text/xml", readTestdata(t, "capabilities.xml"))
	cfg := NewConfig(WithTransport(mock), WithLogger(logger))

	require.NoError(t, cfg.SetMany(ctx, Settings{
		KeyPassword:      "hunter2",
		KeySSLPassphrase: "open sesame",
		KeyUser:          "fred",
		KeyServer:        "http://example.com",
	}))

	out := buf.String()
	assert.Contains(t, out, `"msg":"config.set"`)
	assert.Contains(t, out, `"msg":"negotiate.start"`)
	assert.Contains(t, out, `"msg":"negotiate.ok"`)
	assert.Contains(t, out, `"negotiation_id":"`)
	assert.Contains(t, out, `"value":"fred"`)
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "open sesame")
}
