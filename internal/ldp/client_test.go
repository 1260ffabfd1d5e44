package ldp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDigest = "9a79be611e0267e1d943da0737c6c51be67865a0"

func serveRDF(w http.ResponseWriter, r *http.Request, body string) {
	w.Header().Set("Content-Type", "text/turtle;charset=utf-8")
	w.Header().Add("Link", `<http://www.w3.org/ns/ldp#Resource>; rel="type"`)
	w.Header().Add("Link", `<http://www.w3.org/ns/ldp#RDFSource>; rel="type"`)
	if r.Method == http.MethodHead {
		return
	}
	io.WriteString(w, body)
}

func serveBinary(w http.ResponseWriter, r *http.Request, contentType, content string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Add("Link", `<http://www.w3.org/ns/ldp#Resource>; rel="type"`)
	w.Header().Add("Link", `<http://www.w3.org/ns/ldp#NonRDFSource>; rel="type"`)
	if r.Method == http.MethodHead {
		return
	}
	io.WriteString(w, content)
}

// testRepoMux serves a small containment tree:
//
//	/rest
//	├── /rest/obj1                  rdf
//	├── /rest/bin1 (+fcr:metadata)  binary, digest recorded
//	└── /rest/ext1 (+fcr:metadata)  externally hosted binary
func testRepoMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		serveRDF(w, r, fmt.Sprintf(
			"<%[1]s/rest> <http://www.w3.org/ns/ldp#contains> <%[1]s/rest/obj1>, <%[1]s/rest/bin1>, <%[1]s/rest/ext1> .\n",
			base))
	})
	mux.HandleFunc("/rest/obj1", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		serveRDF(w, r, fmt.Sprintf(
			"<%s/rest/obj1> <http://purl.org/dc/terms/title> \"first object\" .\n", base))
	})
	mux.HandleFunc("/rest/bin1", func(w http.ResponseWriter, r *http.Request) {
		serveBinary(w, r, "text/plain", "hello, fixity")
	})
	mux.HandleFunc("/rest/bin1/fcr:metadata", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		serveRDF(w, r, fmt.Sprintf(
			"<%s/rest/bin1> <http://www.loc.gov/premis/rdf/v1#hasMessageDigest> <urn:sha1:%s> .\n",
			base, testDigest))
	})
	mux.HandleFunc("/rest/ext1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "http://elsewhere.example/data.bin")
		w.WriteHeader(http.StatusTemporaryRedirect)
	})
	mux.HandleFunc("/rest/ext1/fcr:metadata", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		serveRDF(w, r, fmt.Sprintf(
			"<%s/rest/ext1> <http://purl.org/dc/terms/title> \"external content\" .\n", base))
	})
	// Not in the containment tree; exercises digest-less metadata.
	mux.HandleFunc("/rest/bin2/fcr:metadata", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		serveRDF(w, r, fmt.Sprintf(
			"<%s/rest/bin2> <http://purl.org/dc/terms/title> \"no digest\" .\n", base))
	})
	return mux
}

func newTestRepo(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(testRepoMux())
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server, opts Options) *Client {
	t.Helper()
	c, err := NewClient(srv.URL+"/rest", opts)
	require.NoError(t, err)
	return c
}

func requireAuth(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("ftp://example.org/rest", Options{})
	assert.Error(t, err)

	_, err = NewClient("not a url", Options{})
	assert.Error(t, err)

	c, err := NewClient("http://example.org/rest", Options{})
	require.NoError(t, err)
	assert.Equal(t, "http://example.org/rest", c.Root())
}

func TestClient_ID(t *testing.T) {
	c, err := NewClient("http://example.org:8080/rest", Options{})
	require.NoError(t, err)

	assert.Equal(t, "/rest/a b/c", c.ID("http://example.org:8080/rest/a%20b/c"))
	assert.Equal(t, "/rest/bin1/fcr:metadata", c.ID("http://example.org:8080/rest/bin1/fcr:metadata"))
}

func TestClient_Preflight(t *testing.T) {
	srv := newTestRepo(t)
	c := newTestClient(t, srv, Options{})
	assert.NoError(t, c.Preflight(context.Background()))
}

func TestClient_PreflightUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	c, err := NewClient(srv.URL+"/rest", Options{})
	require.NoError(t, err)

	assert.ErrorContains(t, c.Preflight(context.Background()), "not reachable")

	srv.Close()
	assert.Error(t, c.Preflight(context.Background()))
}

func TestClient_Auth(t *testing.T) {
	srv := httptest.NewServer(requireAuth("fedoraAdmin", "secret", testRepoMux()))
	t.Cleanup(srv.Close)

	anon, err := NewClient(srv.URL+"/rest", Options{})
	require.NoError(t, err)
	assert.ErrorContains(t, anon.Preflight(context.Background()), "401")

	c, err := NewClient(srv.URL+"/rest", Options{User: "fedoraAdmin", Pass: "secret"})
	require.NoError(t, err)
	assert.NoError(t, c.Preflight(context.Background()))
}

func TestClient_Describe(t *testing.T) {
	srv := newTestRepo(t)
	c := newTestClient(t, srv, Options{})
	ctx := context.Background()

	t.Run("rdf source", func(t *testing.T) {
		info, err := c.Describe(ctx, srv.URL+"/rest/obj1")
		require.NoError(t, err)
		assert.False(t, info.Binary)
		assert.False(t, info.External)
		assert.Equal(t, "text/turtle", info.ContentType, "charset parameter should be stripped")
	})

	t.Run("binary keeps an opaque content type", func(t *testing.T) {
		info, err := c.Describe(ctx, srv.URL+"/rest/bin1")
		require.NoError(t, err)
		assert.True(t, info.Binary)
		assert.Equal(t, "application/octet-stream", info.ContentType)
	})

	t.Run("external binary", func(t *testing.T) {
		info, err := c.Describe(ctx, srv.URL+"/rest/ext1")
		require.NoError(t, err)
		assert.True(t, info.Binary)
		assert.True(t, info.External)
	})

	t.Run("missing resource", func(t *testing.T) {
		_, err := c.Describe(ctx, srv.URL+"/rest/nope")
		assert.ErrorContains(t, err, "404")
	})
}

func TestClient_RecordedDigest(t *testing.T) {
	srv := newTestRepo(t)
	c := newTestClient(t, srv, Options{})
	ctx := context.Background()

	digest, ok, err := c.RecordedDigest(ctx, srv.URL+"/rest/bin1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, testDigest, digest)

	_, ok, err = c.RecordedDigest(ctx, srv.URL+"/rest/bin2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = c.RecordedDigest(ctx, srv.URL+"/rest/nope")
	assert.Error(t, err)
}
