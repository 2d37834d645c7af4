package detection

import (
	"context"
	"strings"
	"testing"

	"github.com/stoik/phish-verdict/internal/domain/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexicalDetector_Evaluate(t *testing.T) {
	detector := NewLexicalDetector(DefaultRules())

	tests := []struct {
		name          string
		url           string
		expectedScore int
		expectReason  string
	}{
		{
			name:          "Clean URL - no hits",
			url:           "https://example.com",
			expectedScore: 0,
		},
		{
			name:          "Three keywords",
			url:           "http://paypal-secure-login.tk/verify",
			expectedScore: 35, // 3 keywords + plain http
			expectReason:  "Contains phishing-related keyword 'login'",
		},
		{
			name:          "Keyword hits are capped",
			url:           "http://login-verify-secure-account-update.example.com",
			expectedScore: 45, // 3 keywords capped + hyphens + plain http
			expectReason:  "URL contains many hyphens (4)",
		},
		{
			name:          "IP address host",
			url:           "http://192.168.10.5/admin",
			expectedScore: 25,
			expectReason:  "Uses an IP address instead of a domain name",
		},
		{
			name:          "URL shortener",
			url:           "https://bit.ly/3abcd",
			expectedScore: 10,
			expectReason:  "Uses a URL shortener (bit.ly)",
		},
		{
			name:          "At sign",
			url:           "http://www.example.com@evil.com/",
			expectedScore: 15,
			expectReason:  "URL contains an '@' symbol",
		},
		{
			name:          "Long URL",
			url:           "https://example.com/" + strings.Repeat("a", 130),
			expectedScore: 10,
		},
		{
			name:          "Plain HTTP",
			url:           "http://example.com",
			expectedScore: 5,
			expectReason:  "Does not use HTTPS",
		},
		{
			name:          "Non-standard port",
			url:           "https://example.com:8443/",
			expectedScore: 5,
			expectReason:  "Uses a non-standard port (8443)",
		},
		{
			name:          "Allowed alternate port",
			url:           "https://example.com:8080/",
			expectedScore: 0,
		},
		{
			name:          "Redirect-style query parameters",
			url:           "https://example.com/out?URL=https%3A%2F%2Fevil.test&next=%2F&id=4",
			expectedScore: 5,
			expectReason:  "URL carries redirect-style query parameters (next, url)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := normalize.Normalize(tt.url)
			require.NoError(t, err)

			res := detector.Evaluate(context.Background(), target, nil)

			assert.Equal(t, NameLexical, res.Detector)
			assert.False(t, res.Failed)
			assert.Equal(t, tt.expectedScore, res.Subscore)
			if tt.expectReason != "" {
				assert.Contains(t, res.Reasons, tt.expectReason)
			}
		})
	}
}

func TestLexicalDetector_Multiplier(t *testing.T) {
	rules := DefaultRules()
	rules.Multipliers[NameLexical] = 0.5
	detector := NewLexicalDetector(rules)

	target, err := normalize.Normalize("http://192.168.10.5/login")
	require.NoError(t, err)

	res := detector.Evaluate(context.Background(), target, nil)
	assert.Equal(t, 18, res.Subscore) // (20 + 10 + 5) * 0.5, rounded
	assert.Equal(t, 0.5, res.Weight)
}
