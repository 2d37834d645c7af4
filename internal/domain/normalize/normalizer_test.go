package normalize

import (
	"testing"

	"github.com/stoik/phish-verdict/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name              string
		raw               string
		normalizedURL     string
		host              string
		registrableDomain string
		domainName        string
		publicSuffix      string
		isIP              bool
	}{
		{
			name:              "Bare host gets http scheme",
			raw:               "example.com",
			normalizedURL:     "http://example.com",
			host:              "example.com",
			registrableDomain: "example.com",
			domainName:        "example",
			publicSuffix:      "com",
		},
		{
			name:              "Multi-label public suffix",
			raw:               "https://sub.example.co.uk/login",
			normalizedURL:     "https://sub.example.co.uk/login",
			host:              "sub.example.co.uk",
			registrableDomain: "example.co.uk",
			domainName:        "example",
			publicSuffix:      "co.uk",
		},
		{
			name:              "Host is lower-cased",
			raw:               "HTTP://PayPal-Secure-Login.TK/verify",
			normalizedURL:     "http://paypal-secure-login.tk/verify",
			host:              "paypal-secure-login.tk",
			registrableDomain: "paypal-secure-login.tk",
			domainName:        "paypal-secure-login",
			publicSuffix:      "tk",
		},
		{
			name:              "IP literal",
			raw:               "http://192.168.10.5:8080/admin",
			normalizedURL:     "http://192.168.10.5:8080/admin",
			host:              "192.168.10.5",
			registrableDomain: "192.168.10.5",
			domainName:        "192.168.10.5",
			isIP:              true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := Normalize(tt.raw)
			require.NoError(t, err)

			assert.Equal(t, tt.raw, target.Raw)
			assert.Equal(t, tt.normalizedURL, target.NormalizedURL)
			assert.Equal(t, tt.host, target.Host)
			assert.Equal(t, tt.registrableDomain, target.RegistrableDomain)
			assert.Equal(t, tt.domainName, target.DomainName)
			assert.Equal(t, tt.publicSuffix, target.PublicSuffix)
			assert.Equal(t, tt.isIP, target.IsIP)
		})
	}
}

func TestNormalize_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"not a url",
		"http://",
		"ftp://example.com/file",
		"http://localhost",
		"http://com",
		"http://exa_mple.com",
		"http://example.123",
		"http://example.com:99999",
	}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			_, err := Normalize(raw)
			assert.ErrorIs(t, err, domain.ErrInvalidURL)
		})
	}
}

func TestRegistrableDomain(t *testing.T) {
	assert.Equal(t, "example.co.uk", RegistrableDomain("https://a.b.example.co.uk/x"))
	assert.Equal(t, "paypal.com", RegistrableDomain("paypal.com"))
	assert.Equal(t, "", RegistrableDomain("::::"))
}
