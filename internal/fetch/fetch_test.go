package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGet_HeadersByProfile(t *testing.T) {
	t.Setenv("COF_UA", "test-agent/1.0")
	var gotUA, gotAccept, gotMark string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		gotMark = r.Header.Get("X-Friend-Circle")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cl, err := New(Options{Timeout: 2 * time.Second})
	require.NoError(t, err)
	resp, err := cl.Get(context.Background(), srv.URL, XML)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, "test-agent/1.0", gotUA)
	require.Equal(t, "1.0", gotMark)
	require.Contains(t, gotAccept, "application/atom+xml")

	resp, err = cl.Get(context.Background(), srv.URL, JSON)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Empty(t, gotAccept)

	resp, err = cl.Get(context.Background(), srv.URL, HTML)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Contains(t, gotAccept, "text/html")
}

func TestGet_RetryOnStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cl, err := New(Options{Retry: 1, Timeout: 2 * time.Second})
	require.NoError(t, err)
	resp, err := cl.Get(context.Background(), srv.URL, JSON)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestProbe_NoRetryAndRawStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cl, err := New(Options{Retry: 3})
	require.NoError(t, err)
	resp, err := cl.Probe(context.Background(), srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestGet_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	cl, err := New(Options{Timeout: 100 * time.Millisecond})
	require.NoError(t, err)
	_, err = cl.Get(context.Background(), srv.URL, XML)
	require.Error(t, err)
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"a":1}`))
	}))
	defer srv.Close()

	cl, err := New(Options{})
	require.NoError(t, err)
	var v struct {
		A int `json:"a"`
	}
	require.NoError(t, cl.GetJSON(context.Background(), srv.URL, &v))
	require.Equal(t, 1, v.A)

	require.Error(t, cl.GetJSON(context.Background(), srv.URL+"/missing\x7f", &v))
}
