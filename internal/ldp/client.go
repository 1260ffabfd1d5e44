// Package ldp talks to a live LDP repository (Fedora-style) and enumerates
// its containment tree. Resources are discovered breadth-first by following
// ldp:contains; binaries are recognized by their NonRDFSource type link and
// carry a companion fcr:metadata description resource.
package ldp

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"fixity/internal/rdf"
)

const (
	ldpNonRDFSource = "http://www.w3.org/ns/ldp#NonRDFSource"
	ldpContains     = "http://www.w3.org/ns/ldp#contains"

	// Repositories record binary checksums in the companion metadata
	// under this predicate, as urn:sha1:<hex> object IRIs.
	premisHasMessageDigest = "http://www.loc.gov/premis/rdf/v1#hasMessageDigest"

	metadataSuffix = "/fcr:metadata"
)

// Options configures the repository client.
type Options struct {
	// User and Pass are HTTP basic-auth credentials; empty User disables
	// authentication.
	User string
	Pass string

	// RDFLang is the media type requested for RDF sources.
	RDFLang string

	// Timeout bounds each single request.
	Timeout time.Duration

	Logger *zap.Logger
}

// Client is a minimal read-only LDP client. Safe for concurrent use: all
// state is set at construction.
type Client struct {
	base    *url.URL
	httpc   *http.Client
	user    string
	pass    string
	rdfLang string
	log     *zap.Logger
}

// NewClient validates the endpoint and builds a client. Redirects are not
// followed: a 307 from a binary marks externally hosted content, which the
// caller must see rather than chase.
func NewClient(endpoint string, opts Options) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid repository URI %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("invalid repository URI %q", endpoint)
	}

	rdfLang := opts.RDFLang
	if rdfLang == "" {
		rdfLang = "text/turtle"
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		base: u,
		httpc: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		user:    opts.User,
		pass:    opts.Pass,
		rdfLang: rdfLang,
		log:     log,
	}, nil
}

// Root returns the repository root URI the client was built with.
func (c *Client) Root() string { return c.base.String() }

// ID derives the logical identifier for a repository URI: its URL-decoded
// path. The archive walker produces identifiers in the same namespace.
func (c *Client) ID(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	return u.Path
}

// Preflight checks that the repository root answers. Called once before a
// run; an unreachable endpoint makes the whole run pointless.
func (c *Client) Preflight(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodHead, c.base.String(), "")
	if err != nil {
		return fmt.Errorf("repository %s not reachable: %w", c.base, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("repository %s not reachable: %s", c.base, resp.Status)
	}
	return nil
}

// Info describes one repository resource as seen by a HEAD request.
type Info struct {
	URI         string
	Binary      bool
	External    bool
	ContentType string
}

// Describe HEADs a resource and reads its type links. A 307 marks a binary
// whose content lives outside the repository.
func (c *Client) Describe(ctx context.Context, uri string) (*Info, error) {
	resp, err := c.do(ctx, http.MethodHead, uri, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTemporaryRedirect {
		return &Info{URI: uri, Binary: true, External: true}, nil
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HEAD %s: %s", uri, resp.Status)
	}

	info := &Info{
		URI:         uri,
		Binary:      hasTypeLink(resp.Header, ldpNonRDFSource),
		ContentType: mediaType(resp.Header.Get("Content-Type")),
	}
	// A NonRDFSource is opaque bytes even when its upload type happens to
	// be an RDF media type; keep the declared type honest for routing.
	if info.Binary && rdf.IsRDFType(info.ContentType) {
		info.ContentType = "application/octet-stream"
	}
	return info, nil
}

// Open streams resource content. The caller owns the returned body.
func (c *Client) Open(ctx context.Context, uri, accept string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, http.MethodGet, uri, accept)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", uri, resp.Status)
	}
	return resp.Body, nil
}

// Source streams an RDF resource in the configured serialization.
func (c *Client) Source(ctx context.Context, uri string) (io.ReadCloser, error) {
	return c.Open(ctx, uri, c.rdfLang)
}

// RecordedDigest looks up the SHA-1 the repository recorded for a binary in
// its companion metadata. ok is false when no digest triple is present.
func (c *Client) RecordedDigest(ctx context.Context, uri string) (string, bool, error) {
	body, err := c.Source(ctx, uri+metadataSuffix)
	if err != nil {
		return "", false, err
	}
	defer body.Close()

	g, err := rdf.Decode(body, c.rdfLang)
	if err != nil {
		return "", false, fmt.Errorf("metadata for %s: %w", uri, err)
	}
	for _, obj := range g.Objects(uri, premisHasMessageDigest) {
		if obj.Kind == rdf.TermIRI && strings.HasPrefix(obj.Value, "urn:sha1:") {
			return strings.TrimPrefix(obj.Value, "urn:sha1:"), true, nil
		}
	}
	return "", false, nil
}

func (c *Client) do(ctx context.Context, method, uri, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("bad request for %s: %w", uri, err)
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return c.httpc.Do(req)
}

// hasTypeLink scans Link headers for <target>; rel="type".
func hasTypeLink(h http.Header, target string) bool {
	for _, header := range h.Values("Link") {
		for _, field := range strings.Split(header, ",") {
			parts := strings.Split(field, ";")
			if len(parts) < 2 {
				continue
			}
			uri := strings.TrimSpace(parts[0])
			if uri != "<"+target+">" {
				continue
			}
			for _, p := range parts[1:] {
				k, v, _ := strings.Cut(strings.TrimSpace(p), "=")
				if strings.TrimSpace(k) == "rel" && strings.Trim(strings.TrimSpace(v), `"`) == "type" {
					return true
				}
			}
		}
	}
	return false
}

// mediaType strips parameters such as charset from a Content-Type value.
func mediaType(ct string) string {
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		base, _, _ := strings.Cut(ct, ";")
		return strings.TrimSpace(base)
	}
	return mt
}
