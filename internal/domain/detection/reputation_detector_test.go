package detection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stoik/phish-verdict/internal/domain"
	"github.com/stoik/phish-verdict/internal/domain/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReputationDetector_Evaluate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	target, err := normalize.Normalize("https://shop.example.com")
	require.NoError(t, err)

	expiring := validCert(now)
	soon := now.Add(5 * 24 * time.Hour)
	expiring.NotAfter = &soon

	expired := validCert(now)
	past := now.Add(-24 * time.Hour)
	expired.NotAfter = &past

	tests := []struct {
		name          string
		whois         *fakeWhois
		certs         *fakeCerts
		expectedScore int
		expectFailed  bool
		expectReason  string
		expectNote    string
	}{
		{
			name:          "Old domain with valid certificate",
			whois:         &fakeWhois{created: daysAgo(now, 4000)},
			certs:         &fakeCerts{info: validCert(now)},
			expectedScore: 0,
		},
		{
			name:          "Brand new domain",
			whois:         &fakeWhois{created: daysAgo(now, 3)},
			certs:         &fakeCerts{info: validCert(now)},
			expectedScore: 15,
			expectReason:  "Domain was registered very recently (3 days ago)",
		},
		{
			name:          "Young domain",
			whois:         &fakeWhois{created: daysAgo(now, 90)},
			certs:         &fakeCerts{info: validCert(now)},
			expectedScore: 5,
		},
		{
			name:          "No certificate",
			whois:         &fakeWhois{created: daysAgo(now, 4000)},
			certs:         &fakeCerts{info: &domain.CertificateInfo{Present: false}},
			expectedScore: 15,
			expectReason:  "No TLS certificate is served",
		},
		{
			name:          "Untrusted certificate",
			whois:         &fakeWhois{created: daysAgo(now, 4000)},
			certs:         &fakeCerts{info: &domain.CertificateInfo{Present: true, Problem: "x509: certificate signed by unknown authority"}},
			expectedScore: 15,
			expectReason:  "TLS certificate is invalid: x509: certificate signed by unknown authority",
		},
		{
			name:          "Expired certificate",
			whois:         &fakeWhois{created: daysAgo(now, 4000)},
			certs:         &fakeCerts{info: expired},
			expectedScore: 15,
			expectReason:  "TLS certificate has expired",
		},
		{
			name:          "Certificate expiring soon",
			whois:         &fakeWhois{created: daysAgo(now, 4000)},
			certs:         &fakeCerts{info: expiring},
			expectedScore: 10,
			expectReason:  "TLS certificate expires soon (5 days left)",
		},
		{
			name:          "WHOIS timeout keeps the certificate score",
			whois:         &fakeWhois{err: domain.ErrLookupTimeout},
			certs:         &fakeCerts{info: &domain.CertificateInfo{Present: false}},
			expectedScore: 15,
			expectNote:    "WHOIS lookup timed out",
		},
		{
			name:          "Every lookup fails",
			whois:         &fakeWhois{err: context.DeadlineExceeded},
			certs:         &fakeCerts{err: errors.New("no such host")},
			expectedScore: 0,
			expectFailed:  true,
			expectNote:    "WHOIS lookup timed out; certificate lookup failed: no such host",
		},
		{
			name:          "Creation date not published",
			whois:         &fakeWhois{},
			certs:         &fakeCerts{info: validCert(now)},
			expectedScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detector := NewReputationDetector(DefaultRules(), tt.whois, tt.certs)
			detector.now = func() time.Time { return now }

			res := detector.Evaluate(context.Background(), target, nil)

			assert.Equal(t, NameReputation, res.Detector)
			assert.Equal(t, tt.expectedScore, res.Subscore)
			assert.Equal(t, tt.expectFailed, res.Failed)
			assert.Equal(t, tt.expectNote, res.FailureNote)
			if tt.expectReason != "" {
				assert.Contains(t, res.Reasons, tt.expectReason)
			}
			require.NotNil(t, res.DomainAge)
			assert.Equal(t, "example.com", res.DomainAge.Domain)
		})
	}
}

func TestReputationDetector_AgeIsReported(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	detector := NewReputationDetector(DefaultRules(), &fakeWhois{created: daysAgo(now, 12)}, nil)
	detector.now = func() time.Time { return now }

	target, err := normalize.Normalize("http://fresh-domain.com")
	require.NoError(t, err)

	res := detector.Evaluate(context.Background(), target, nil)
	require.True(t, res.DomainAge.Known())
	assert.Equal(t, 12, *res.DomainAge.AgeDays)
	assert.Nil(t, res.Certificate)
}

func TestReputationDetector_SkipsWhoisForIP(t *testing.T) {
	whois := &fakeWhois{err: errors.New("must not be called")}
	detector := NewReputationDetector(DefaultRules(), whois, nil)

	target, err := normalize.Normalize("http://10.1.2.3")
	require.NoError(t, err)

	res := detector.Evaluate(context.Background(), target, nil)
	assert.False(t, res.Failed)
	assert.Nil(t, res.DomainAge)
}

func TestReputationDetector_PartialFailure(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	target, err := normalize.Normalize("https://shop.example.com")
	require.NoError(t, err)

	t.Run("WHOIS times out, certificate answers", func(t *testing.T) {
		detector := NewReputationDetector(DefaultRules(), &fakeWhois{delay: time.Second}, &fakeCerts{info: validCert(now)})
		detector.now = func() time.Time { return now }

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		res := detector.Evaluate(ctx, target, nil)

		assert.False(t, res.Failed)
		assert.Equal(t, 0, res.Subscore)
		assert.Equal(t, "WHOIS lookup timed out", res.FailureNote)
		assert.Contains(t, res.Reasons, "WHOIS lookup timed out")
		require.NotNil(t, res.Certificate)
		assert.True(t, res.Certificate.Valid)
		require.NotNil(t, res.DomainAge)
		assert.False(t, res.DomainAge.Known())
		assert.Equal(t, "WHOIS lookup timed out", res.DomainAge.Error)
	})

	t.Run("Certificate fails, WHOIS answers", func(t *testing.T) {
		detector := NewReputationDetector(DefaultRules(), &fakeWhois{created: daysAgo(now, 3)}, &fakeCerts{err: errors.New("no such host")})
		detector.now = func() time.Time { return now }

		res := detector.Evaluate(context.Background(), target, nil)

		assert.False(t, res.Failed)
		assert.Equal(t, 15, res.Subscore)
		assert.Equal(t, "certificate lookup failed: no such host", res.FailureNote)
		assert.Nil(t, res.Certificate)
		assert.True(t, res.DomainAge.Known())
	})
}
