// Package osm provides the configuration store and capability negotiation of
// an OpenStreetMap API client.
//
// A session holds a closed set of settings (server URL, API version,
// credentials, user agent, TLS and OAuth parameters) and the limits the
// server advertised in its capabilities document. Setting the server fetches
// /api/capabilities and checks that the configured API version is within the
// advertised range.
//
// # Quick Start
//
//	client, err := osm.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(client.Config().MaxNodes()) // 2000 on the public server
//
// # Configuration
//
// Settings are applied at construction with WithSettings, or later through
// the Config:
//
//	cfg := client.Config()
//	err := cfg.SetMany(ctx, osm.Settings{
//	    osm.KeyUser:         "fred@example.com",
//	    osm.KeyPasswordfile: "/home/fred/.osm-credentials",
//	})
//
// Settings can also be read from OSM_* environment variables with LoadEnv
// and from TOML files with LoadFile.
//
// # Password Files
//
// A password file holds "user:password" lines. Lines starting with '#' are
// comments. A file with a single entry supplies both the username and the
// password; with several entries, the password of the entry matching the
// current user is used.
//
// # Error Handling
//
// Errors are typed and can be checked with errors.Is:
//
//	err := cfg.Set(ctx, "colour", "red")
//	if errors.Is(err, osm.ErrUnknownOption) {
//	    // Not a recognized key
//	}
//	if osm.IsNegotiation(err) {
//	    // Server unreachable or incompatible; the URL is still stored
//	}
//
// # Thread Safety
//
// Config and Client are not safe for concurrent use. Serialize access when
// sharing them between goroutines.
package osm
