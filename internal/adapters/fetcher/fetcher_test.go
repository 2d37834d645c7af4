package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><form><input type="password"></form></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page, err := NewHTTPFetcher(nil, time.Second, nil).Fetch(context.Background(), srv.URL+"/start")

	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/login", page.FinalURL)
	assert.Contains(t, page.HTML, `type="password"`)
}

func TestHTTPFetcher_Errors(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		expectError string
	}{
		{
			name: "Server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			expectError: "unexpected status 500",
		},
		{
			name: "Not HTML",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/pdf")
				_, _ = w.Write([]byte("%PDF"))
			},
			expectError: "not an HTML page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewHTTPFetcher(nil, time.Second, nil).Fetch(context.Background(), srv.URL)

			assert.ErrorContains(t, err, tt.expectError)
		})
	}
}

func TestNew(t *testing.T) {
	f, err := New("", time.Second, nil)
	require.NoError(t, err)
	assert.IsType(t, &HTTPFetcher{}, f)

	f, err = New("ChromeDP", time.Second, nil)
	require.NoError(t, err)
	assert.IsType(t, &ChromeFetcher{}, f)

	_, err = New("lynx", time.Second, nil)
	assert.Error(t, err)
}
