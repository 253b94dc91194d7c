package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-friend-circle/internal/fetch"
)

const rssSample = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>t</title>
    <link>https://ex.example</link>
    <item><title>a</title><link>https://ex.example/a</link><pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate></item>
  </channel>
</rss>`

// probeRecorder 记录被请求的路径，并按 routes 返回内容。
type probeRecorder struct {
	mu     sync.Mutex
	paths  []string
	routes map[string]func(w http.ResponseWriter)
}

func (p *probeRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.paths = append(p.paths, r.URL.Path)
	p.mu.Unlock()
	if h, ok := p.routes[r.URL.Path]; ok {
		h(w)
		return
	}
	http.NotFound(w, r)
}

func newService(t *testing.T) *Service {
	t.Helper()
	cl, err := fetch.New(fetch.Options{Timeout: 3 * time.Second})
	require.NoError(t, err)
	return NewService(cl, 2*time.Second)
}

func TestDiscover_FirstMatchWinsAndStops(t *testing.T) {
	rec := &probeRecorder{routes: map[string]func(w http.ResponseWriter){
		"/rss.xml": func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = w.Write([]byte(rssSample))
		},
		"/index.xml": func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "application/rss+xml")
			_, _ = w.Write([]byte(rssSample))
		},
	}}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	typ, u := newService(t).Discover(context.Background(), srv.URL+"/")
	require.Equal(t, Type("rss"), typ)
	require.Equal(t, srv.URL+"/rss.xml", u)
	require.Equal(t, []string{"/atom.xml", "/rss.xml"}, rec.paths)
}

func TestDiscover_SniffsBodyWhenContentTypeAmbiguous(t *testing.T) {
	rec := &probeRecorder{routes: map[string]func(w http.ResponseWriter){
		// HTML 页面不含订阅标记，不应命中
		"/feed": func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<!doctype html><p>hi</p>"))
		},
		"/feed.xml": func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
		},
	}}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	typ, u := newService(t).Discover(context.Background(), srv.URL)
	require.Equal(t, Type("feed2"), typ)
	require.Equal(t, srv.URL+"/feed.xml", u)
}

func TestDiscover_NoneReturnsSite(t *testing.T) {
	rec := &probeRecorder{routes: map[string]func(w http.ResponseWriter){}}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	typ, u := newService(t).Discover(context.Background(), srv.URL)
	require.Equal(t, TypeNone, typ)
	require.Equal(t, srv.URL, u)
	require.Len(t, rec.paths, len(candidates))
}

func TestDiscover_TransportErrorsAreSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	site := srv.URL
	srv.Close()

	typ, u := newService(t).Discover(context.Background(), site)
	require.Equal(t, TypeNone, typ)
	require.Equal(t, site, u)
}

func TestDiscover_Deterministic(t *testing.T) {
	rec := &probeRecorder{routes: map[string]func(w http.ResponseWriter){
		"/feed/": func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(rssSample))
		},
	}}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	s := newService(t)
	t1, u1 := s.Discover(context.Background(), srv.URL)
	t2, u2 := s.Discover(context.Background(), srv.URL)
	require.Equal(t, t1, t2)
	require.Equal(t, u1, u2)
	require.Equal(t, srv.URL+"/feed/", u1)
}
