package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func text(body string) HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, body)
	}
}

func do(r *Router, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestExactAndWildcardRoutes(t *testing.T) {
	r := New(nil)
	r.GET("/api/v1/exports", text("list"))
	r.GET("/api/v1/exports/runs", text("runs"))
	r.GET("/api/v1/exports/runs/*", text("run"))
	r.GET("/swagger/*", text("docs"))

	assert.Equal(t, "list", do(r, "GET", "/api/v1/exports").Body.String())
	assert.Equal(t, "runs", do(r, "GET", "/api/v1/exports/runs").Body.String())
	assert.Equal(t, "run", do(r, "GET", "/api/v1/exports/runs/abc").Body.String())
	assert.Equal(t, "docs", do(r, "GET", "/swagger/index.html").Body.String())
	assert.Equal(t, "docs", do(r, "GET", "/swagger/a/b.js").Body.String())

	assert.Equal(t, http.StatusNotFound, do(r, "GET", "/api/v1/nope").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(r, "POST", "/api/v1/exports").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(r, "DELETE", "/api/v1/exports/runs/abc").Code)
}

func TestWildcardsMatchInRegistrationOrder(t *testing.T) {
	r := New(nil)
	r.GET("/items/*/errors", text("errors"))
	r.GET("/items/*", text("item"))

	for i := 0; i < 20; i++ {
		require.Equal(t, "errors", do(r, "GET", "/items/7/errors").Body.String())
		require.Equal(t, "item", do(r, "GET", "/items/7").Body.String())
	}
}

func TestMatchWildcardRoute(t *testing.T) {
	cases := []struct {
		path, pattern string
		want          bool
	}{
		{"/a/b", "/a/*", true},
		{"/a/b/c", "/a/*", true},
		{"/a", "/a/*", false},
		{"/a/b/c", "/a/*/c", true},
		{"/a/b/d", "/a/*/c", false},
		{"/a//c", "/a/*/c", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, matchWildcardRoute(tc.path, tc.pattern), "%s ~ %s", tc.path, tc.pattern)
	}
}

func TestRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := New(zap.New(core).Sugar())
	r.GET("/teapot", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "short and stout")
	})

	do(r, "GET", "/teapot")

	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.EqualValues(t, len("short and stout"), fields["bytes"])
	assert.Equal(t, "/teapot", fields["path"])
}

func TestAbortedHandlerIsLoggedAndRepanics(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := New(zap.New(core).Sugar())
	r.GET("/abort", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "partial")
		panic(http.ErrAbortHandler)
	})

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() { do(r, "GET", "/abort") })
	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 0, entries[0].ContextMap()["status"])
}

func TestResponseControllerReachesUnderlyingWriter(t *testing.T) {
	r := New(nil)
	r.GET("/flush", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "x")
		require.NoError(t, http.NewResponseController(w).Flush())
	})

	rec := do(r, "GET", "/flush")
	assert.True(t, rec.Flushed)
}

func TestServer(t *testing.T) {
	r := New(nil)
	srv := r.Server(":0")
	assert.Equal(t, ":0", srv.Addr)
	assert.Same(t, r, srv.Handler)
}
