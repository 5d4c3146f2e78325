package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetcher_FetchReturnsBodyOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"jobs":[]}`))
	}))
	defer srv.Close()

	f := New("", 0, nil, nil)
	body, status, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, `{"jobs":[]}`, string(body))
}

func TestFetcher_FetchReturnsNilBodyOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New("", 0, nil, nil)
	body, status, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status)
	require.Nil(t, body)
}

func TestFetcher_HeadFollowsRedirect(t *testing.T) {
	var finalHit bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/final", http.StatusFound)
			return
		}
		finalHit = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := New("", 0, nil, nil)
	status, finalURL, err := f.Head(context.Background(), srv.URL+"/start")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, finalURL, "/final")
	require.True(t, finalHit)
}
