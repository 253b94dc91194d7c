package friends

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"go-friend-circle/internal/rules"
)

func TestParseFriendsPage(t *testing.T) {
	var accept, lang string
	mux := http.NewServeMux()
	mux.HandleFunc("/links", func(w http.ResponseWriter, r *http.Request) {
		accept, lang = r.Header.Get("Accept"), r.Header.Get("Accept-Language")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<!doctype html><ul>
			<li class="it"><a class="nm" href="/s1">A</a><img src="/a.png"></li>
			<li class="it"><a class="nm" href="https://b.example/">B</a><img src="/b.png"></li>
			<li class="it"><img src="/nobody.png"></li>
		</ul>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	preset := rules.Preset{FriendsPage: &rules.FriendsPage{
		Item: ".it", Name: ".nm", Link: "a@href", Avatar: "img@src",
	}}
	list, err := ParseFriendsPage(context.Background(), newClient(t), srv.URL+"/links", preset)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, srv.URL+"/s1", list[0].Link)
	require.Equal(t, srv.URL+"/a.png", list[0].Avatar)
	require.Equal(t, "https://b.example/", list[1].Link)
	require.Equal(t, "B", list[1].Name)
	require.Contains(t, accept, "text/html")
	require.Contains(t, lang, "zh-CN")
}

func TestParseFriendsPage_FallbackExpressions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/l", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!doctype html><ul>
		<li class="it" data-href="/x"><span class="nm1">X</span></li>
		</ul>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	preset := rules.Preset{FriendsPage: &rules.FriendsPage{
		Item:   ".it",
		Name:   ".nm0||.nm1||.",
		Link:   "a@href||@data-href",
		Avatar: ".missing||img@src",
	}}
	list, err := ParseFriendsPage(context.Background(), newClient(t), srv.URL+"/l", preset)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "X", list[0].Name)
	require.Equal(t, srv.URL+"/x", list[0].Link)
	require.Empty(t, list[0].Avatar)
}

func TestParseFriendsPage_NoPreset(t *testing.T) {
	_, err := ParseFriendsPage(context.Background(), newClient(t), "http://unused.example", rules.Preset{})
	require.Error(t, err)
}
