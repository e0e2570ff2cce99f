package osm

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/elnormous/contenttype"

	"github.com/osmkit/osm-go/transport"
)

// CapabilitiesPath is fetched relative to the server URL during negotiation.
const CapabilitiesPath = "/api/capabilities"

// DefaultGenerator is reported when a capabilities document names no generator.
const DefaultGenerator = "OpenStreetMap server"

// Status is the availability of a server component.
type Status string

const (
	StatusOnline   Status = "online"
	StatusReadonly Status = "readonly"
	StatusOffline  Status = "offline"
)

// Valid reports whether s is one of the known statuses. The empty Status
// means the server did not report one.
func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusReadonly, StatusOffline:
		return true
	default:
		return false
	}
}

// Capabilities are the limits and status a server advertised during
// negotiation. A value is only ever produced whole by Negotiate.
type Capabilities struct {
	MinVersion         float64 // Lowest supported API version
	MaxVersion         float64 // Highest supported API version
	Timeout            int     // Seconds before a request is considered timed out
	MaxElements        int     // Elements allowed per changeset
	MaxNodes           int     // Nodes allowed per way
	TracepointsPerPage int     // GPS points returned per page
	MaxArea            float64 // Largest area downloadable in one request, square degrees
	DatabaseStatus     Status
	APIStatus          Status
	GPXStatus          Status
	Generator          string // What produced the document
}

// Writable reports whether both the API and its database accept edits.
func (c Capabilities) Writable() bool {
	return c.APIStatus == StatusOnline && c.DatabaseStatus == StatusOnline
}

// Supports reports whether version lies within the advertised range.
func (c Capabilities) Supports(version float64) bool {
	return c.MinVersion <= version && version <= c.MaxVersion
}

var jsonMediaType = contenttype.NewMediaType("application/json")

// Negotiate fetches the capabilities document of server with t and checks
// that apiVersion is within the supported range. Exactly one request is
// made; nothing is retried.
func Negotiate(ctx context.Context, server string, t transport.Transport, apiVersion string) (*Capabilities, error) {
	url := capabilitiesURL(server)

	resp, err := t.Fetch(ctx, url)
	if err != nil {
		return nil, newError(CodeTransport, ErrTransport.Message, url, err)
	}
	if resp == nil {
		return nil, newError(CodeTransport, ErrTransport.Message, url, errors.New("empty response"))
	}
	if !resp.IsSuccess() {
		e := newError(CodeTransport, ErrTransport.Message, url, fmt.Errorf("http status %d", resp.StatusCode))
		e.StatusCode = resp.StatusCode
		return nil, e
	}

	caps, err := ParseCapabilities(resp.Body, resp.ContentType())
	if err != nil {
		return nil, err
	}

	want, err := strconv.ParseFloat(apiVersion, 64)
	if err != nil || !caps.Supports(want) {
		return nil, newError(CodeIncompatibleVersion, ErrIncompatibleVersion.Message,
			fmt.Sprintf("specified API version %s not supported by server (%g-%g)", apiVersion, caps.MinVersion, caps.MaxVersion), nil)
	}
	return caps, nil
}

func capabilitiesURL(server string) string {
	return strings.TrimRight(server, "/") + CapabilitiesPath
}

// ParseCapabilities decodes a capabilities document. JSON is assumed when
// contentType says so, or when it is empty and the body starts with '{';
// everything else is read as XML.
func ParseCapabilities(body []byte, contentType string) (*Capabilities, error) {
	var (
		doc *capabilityDoc
		err error
	)
	if isJSON(body, contentType) {
		doc, err = decodeJSONCapabilities(body)
	} else {
		doc, err = decodeXMLCapabilities(body)
	}
	if err != nil {
		return nil, malformed(err)
	}
	caps, err := doc.capabilities()
	if err != nil {
		return nil, malformed(err)
	}
	return caps, nil
}

func malformed(err error) *Error {
	return newError(CodeMalformedCapabilities, ErrMalformedCapabilities.Message, "", err)
}

func isJSON(body []byte, contentType string) bool {
	if contentType != "" {
		mt := contenttype.NewMediaType(contentType)
		return mt.Matches(jsonMediaType) || strings.HasSuffix(mt.Subtype, "+json")
	}
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// capabilityDoc is the format-neutral view of a capabilities document:
// the attributes of the first occurrence of each element.
type capabilityDoc struct {
	generator string
	elements  map[string]map[string]string
}

func (d *capabilityDoc) attr(element, name string) (string, bool) {
	attrs, ok := d.elements[element]
	if !ok {
		return "", false
	}
	v, ok := attrs[name]
	return v, ok
}

func (d *capabilityDoc) floatAttr(element, name string) (float64, error) {
	v, ok := d.attr(element, name)
	if !ok || v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s@%s: %w", element, name, err)
	}
	return f, nil
}

func (d *capabilityDoc) intAttr(element, name string) (int, error) {
	v, ok := d.attr(element, name)
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s@%s: %w", element, name, err)
	}
	return n, nil
}

func (d *capabilityDoc) status(name string) (Status, error) {
	v, _ := d.attr("status", name)
	s := Status(v)
	if s != "" && !s.Valid() {
		return "", fmt.Errorf("status@%s: unknown status %q", name, v)
	}
	return s, nil
}

func (d *capabilityDoc) capabilities() (*Capabilities, error) {
	if _, ok := d.elements["version"]; !ok {
		return nil, errors.New("no version element")
	}
	if _, ok := d.attr("version", "minimum"); !ok {
		return nil, errors.New("version@minimum missing")
	}
	if _, ok := d.attr("version", "maximum"); !ok {
		return nil, errors.New("version@maximum missing")
	}

	var (
		c    Capabilities
		errs []error
	)
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	var err error
	c.MinVersion, err = d.floatAttr("version", "minimum")
	collect(err)
	c.MaxVersion, err = d.floatAttr("version", "maximum")
	collect(err)
	c.Timeout, err = d.intAttr("timeout", "seconds")
	collect(err)
	c.MaxElements, err = d.intAttr("changesets", "maximum_elements")
	collect(err)
	c.MaxNodes, err = d.intAttr("waynodes", "maximum")
	collect(err)
	c.TracepointsPerPage, err = d.intAttr("tracepoints", "per_page")
	collect(err)
	c.MaxArea, err = d.floatAttr("area", "maximum")
	collect(err)
	c.DatabaseStatus, err = d.status("database")
	collect(err)
	c.APIStatus, err = d.status("api")
	collect(err)
	c.GPXStatus, err = d.status("gpx")
	collect(err)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	c.Generator = d.generator
	if c.Generator == "" {
		c.Generator = DefaultGenerator
	}
	return &c, nil
}

var capabilityElements = map[string]bool{
	"version":     true,
	"timeout":     true,
	"changesets":  true,
	"waynodes":    true,
	"tracepoints": true,
	"area":        true,
	"status":      true,
}

func decodeXMLCapabilities(body []byte) (*capabilityDoc, error) {
	doc := &capabilityDoc{elements: make(map[string]map[string]string)}
	dec := xml.NewDecoder(bytes.NewReader(body))
	sawRoot := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !sawRoot {
			sawRoot = true
			for _, a := range se.Attr {
				if a.Name.Local == "generator" {
					doc.generator = a.Value
				}
			}
		}
		name := se.Name.Local
		if !capabilityElements[name] {
			continue
		}
		if _, seen := doc.elements[name]; seen {
			continue
		}
		attrs := make(map[string]string, len(se.Attr))
		for _, a := range se.Attr {
			attrs[a.Name.Local] = a.Value
		}
		doc.elements[name] = attrs
	}
	if !sawRoot {
		return nil, errors.New("xml: empty document")
	}
	return doc, nil
}

// decodeJSONCapabilities reads the capabilities.json layout, where each
// element is an object under "api" and attributes are its members.
func decodeJSONCapabilities(body []byte) (*capabilityDoc, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	doc := &capabilityDoc{elements: make(map[string]map[string]string)}
	if raw, ok := root["generator"]; ok {
		if err := json.Unmarshal(raw, &doc.generator); err != nil {
			return nil, fmt.Errorf("json: generator: %w", err)
		}
	}

	scopes := []map[string]json.RawMessage{}
	if raw, ok := root["api"]; ok {
		var api map[string]json.RawMessage
		if err := json.Unmarshal(raw, &api); err != nil {
			return nil, fmt.Errorf("json: api: %w", err)
		}
		scopes = append(scopes, api)
	}
	scopes = append(scopes, root)

	for _, scope := range scopes {
		for name := range capabilityElements {
			raw, ok := scope[name]
			if !ok {
				continue
			}
			if _, seen := doc.elements[name]; seen {
				continue
			}
			var members map[string]json.RawMessage
			if err := json.Unmarshal(raw, &members); err != nil {
				// "version" is also a top-level string in this format.
				continue
			}
			attrs := make(map[string]string, len(members))
			for k, v := range members {
				attrs[k] = jsonScalar(v)
			}
			doc.elements[name] = attrs
		}
	}
	return doc, nil
}

// jsonScalar renders a JSON string or number as the text an XML attribute
// would carry.
func jsonScalar(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
