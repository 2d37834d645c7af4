package detection

import (
	"context"
	"testing"

	"github.com/stoik/phish-verdict/internal/domain/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrandDetector_Evaluate(t *testing.T) {
	detector := NewBrandDetector(DefaultRules())

	tests := []struct {
		name          string
		url           string
		expectedScore int
		expectReason  string
	}{
		{
			name:          "Exact brand domain - no detection",
			url:           "https://paypal.com/signin",
			expectedScore: 0,
		},
		{
			name:          "Brand subdomain - no detection",
			url:           "https://accounts.google.com",
			expectedScore: 0,
		},
		{
			name:          "Homoglyph - paypa1.com",
			url:           "http://paypa1.com",
			expectedScore: 35,
			expectReason:  "Homoglyph lookalike of brand 'paypal' (paypa1)",
		},
		{
			name:          "Homoglyph - micros0ft.com",
			url:           "http://micros0ft.com",
			expectedScore: 35,
		},
		{
			name:          "Edit distance - paypall.com",
			url:           "http://paypall.com",
			expectedScore: 35,
			expectReason:  "Lookalike of brand 'paypal' (paypall, similarity 0.86)",
		},
		{
			name:          "Brand embedded in hyphenated domain",
			url:           "http://paypal-secure-login.tk/verify",
			expectedScore: 30,
			expectReason:  "Brand name 'paypal' embedded in unrelated domain paypal-secure-login.tk",
		},
		{
			name:          "Brand as subdomain of unrelated domain",
			url:           "http://paypal.account-check.com",
			expectedScore: 30,
		},
		{
			name:          "Unrelated domain",
			url:           "https://example.com",
			expectedScore: 0,
		},
		{
			name:          "IP address is skipped",
			url:           "http://10.0.0.1/paypal",
			expectedScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := normalize.Normalize(tt.url)
			require.NoError(t, err)

			res := detector.Evaluate(context.Background(), target, nil)

			assert.Equal(t, NameBrand, res.Detector)
			assert.Equal(t, tt.expectedScore, res.Subscore)
			if tt.expectReason != "" {
				assert.Contains(t, res.Reasons, tt.expectReason)
			}
		})
	}
}

func TestHomoglyphMatch(t *testing.T) {
	glyphs := DefaultRules().Brand.Homoglyphs

	tests := []struct {
		cand     string
		brand    string
		expected bool
	}{
		{"paypa1", "paypal", true},
		{"g00gle", "google", true},
		{"rnicrosoft", "microsoft", true},
		{"pаypal", "paypal", true}, // Cyrillic а
		{"paypal", "paypal", false},
		{"paypol", "paypal", false},
		{"paypa", "paypal", false},
	}

	for _, tt := range tests {
		t.Run(tt.cand, func(t *testing.T) {
			assert.Equal(t, tt.expected, homoglyphMatch(tt.cand, tt.brand, glyphs))
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, similarity("paypal", "paypal"), 0.001)
	assert.InDelta(t, 0.857, similarity("paypall", "paypal"), 0.001)
	assert.InDelta(t, 0.0, similarity("abc", "xyz"), 0.001)
}
