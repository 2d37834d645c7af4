package rdap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stoik/phish-verdict/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(WithEndpoints(map[string]string{"com": srv.URL + "/com/v1/"}, srv.URL+"/fallback/"))
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name        string
		domain      string
		status      int
		body        string
		expected    *time.Time
		expectError bool
	}{
		{
			name:     "Registration event",
			domain:   "example.com",
			status:   http.StatusOK,
			body:     `{"events":[{"eventAction":"last changed","eventDate":"2024-01-01T00:00:00Z"},{"eventAction":"registration","eventDate":"1995-08-14T04:00:00Z"}]}`,
			expected: ptr(time.Date(1995, 8, 14, 4, 0, 0, 0, time.UTC)),
		},
		{
			name:   "No registration event",
			domain: "example.com",
			status: http.StatusOK,
			body:   `{"events":[{"eventAction":"expiration","eventDate":"2030-01-01T00:00:00Z"}]}`,
		},
		{
			name:   "Unknown domain",
			domain: "nothing-here.com",
			status: http.StatusNotFound,
		},
		{
			name:        "Registry error",
			domain:      "example.com",
			status:      http.StatusServiceUnavailable,
			expectError: true,
		},
		{
			name:        "Broken JSON",
			domain:      "example.com",
			status:      http.StatusOK,
			body:        `{"events":`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/com/v1/domain/"+tt.domain, r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			created, err := c.Lookup(context.Background(), tt.domain)

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, created)
		})
	}
}

func TestLookup_FallbackEndpoint(t *testing.T) {
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"events":[]}`))
	})

	_, err := c.Lookup(context.Background(), "paypal-secure-login.tk")

	require.NoError(t, err)
	assert.Equal(t, "/fallback/domain/paypal-secure-login.tk", path)
}

func TestLookup_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Lookup(ctx, "example.com")

	require.Error(t, err)
	assert.True(t, domain.IsTimeout(err))
}

func ptr(t time.Time) *time.Time { return &t }
