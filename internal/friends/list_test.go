package friends

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-friend-circle/internal/fetch"
	"go-friend-circle/internal/model"
)

func newClient(t *testing.T) *fetch.Client {
	t.Helper()
	cl, err := fetch.New(fetch.Options{Timeout: 3 * time.Second})
	require.NoError(t, err)
	return cl
}

func TestFetchList_SkipsMalformedEntries(t *testing.T) {
	var gotMark string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMark = r.Header.Get("X-Friend-Circle")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"friends":[
			["A","http://a.example","av.png"],
			["broken"],
			{"name":"obj"},
			["", "http://x.example", ""],
			["B","http://b.example","b.png"]
		]}`))
	}))
	defer srv.Close()

	list, err := FetchList(context.Background(), newClient(t), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "1.0", gotMark)
	require.Equal(t, []model.Friend{
		{Name: "A", Link: "http://a.example", Avatar: "av.png"},
		{Name: "B", Link: "http://b.example", Avatar: "b.png"},
	}, list)
}

func TestFetchList_FailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, err := FetchList(context.Background(), newClient(t), srv.URL)
	require.Error(t, err)

	notObject := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer notObject.Close()
	_, err = FetchList(context.Background(), newClient(t), notObject.URL)
	require.Error(t, err)
}

func TestMerge_FirstNameWins(t *testing.T) {
	a := []model.Friend{{Name: "A", Link: "1"}, {Name: "B", Link: "2"}}
	b := []model.Friend{{Name: "A", Link: "3"}, {Name: "C", Link: "4"}}
	require.Equal(t, []model.Friend{{Name: "A", Link: "1"}, {Name: "B", Link: "2"}, {Name: "C", Link: "4"}}, Merge(a, b))
}

func TestMerge_SkipsIncomplete(t *testing.T) {
	got := Merge([]model.Friend{{Name: "", Link: "1"}, {Name: "B"}, {Name: "C", Link: "3"}})
	require.Equal(t, []model.Friend{{Name: "C", Link: "3"}}, got)
}
