package feedsource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# openphish\nhttp://bad.example/login\n\n  https://evil.test/verify  \r\n"))
	}))
	defer srv.Close()

	lines, err := New(nil).FetchList(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, []string{"http://bad.example/login", "https://evil.test/verify"}, lines)
}

func TestFetchList_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(nil).FetchList(context.Background(), srv.URL)

	assert.ErrorContains(t, err, "unexpected status 502")
}
