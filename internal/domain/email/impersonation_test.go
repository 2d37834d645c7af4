package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreImpersonation(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name          string
		sender        string
		replyTo       string
		expectedScore int
		expectReason  string
	}{
		{
			name:          "Bare address",
			sender:        "alice@example.com",
			expectedScore: 0,
		},
		{
			name:          "Matching display name",
			sender:        `"John Smith" <john.smith@example.com>`,
			expectedScore: 0,
		},
		{
			name:          "Unrelated display name",
			sender:        `"Accounts Department" <xk92@example.com>`,
			expectedScore: 8,
			expectReason:  "Display name and email local part do not match (possible impersonation)",
		},
		{
			name:          "Brand claim from the brand's own domain",
			sender:        `"PayPal" <paypal@paypal.com>`,
			expectedScore: 0,
		},
		{
			name:          "Brand claim from another domain",
			sender:        `"Amazon" <amazon@deliveries-amzn.com>`,
			expectedScore: 15,
			expectReason:  "Display name claims to be amazon but the sender domain is deliveries-amzn.com",
		},
		{
			name:          "Reply-To to a free provider",
			sender:        "ceo@corp.com",
			replyTo:       "ceo.private@gmail.com",
			expectedScore: 15,
			expectReason:  "Reply-To redirects responses to a free email provider (ceo.private@gmail.com)",
		},
		{
			name:          "Reply-To within the same free provider",
			sender:        "bob@gmail.com",
			replyTo:       "bob2@gmail.com",
			expectedScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, reasons := scoreImpersonation(ParseSender(tt.sender), HeaderFindings{ReplyTo: tt.replyTo}, rules)

			assert.Equal(t, tt.expectedScore, score)
			if tt.expectReason != "" {
				assert.Contains(t, reasons, tt.expectReason)
			}
		})
	}
}

func TestClaimedBrand(t *testing.T) {
	brands := DefaultRules().Brands

	assert.Equal(t, "microsoft", claimedBrand(ParseSender(`"Microsoft Support" <help@ms-helpdesk.net>`), brands))
	assert.Equal(t, "", claimedBrand(ParseSender(`"Microsoft Support" <help@microsoft.com>`), brands))
	assert.Equal(t, "", claimedBrand(ParseSender("microsoft@gmail.com"), brands))
}
