package email

import (
	"fmt"
	"regexp"
)

// Weights are the blend weights of the non-URL components
type Weights struct {
	Sender        float64 `yaml:"sender"`
	Attachment    float64 `yaml:"attachment"`
	Content       float64 `yaml:"content"`
	Impersonation float64 `yaml:"impersonation"`
}

// Rules holds the email scoring tables
//
// Component scores are raw points; each is rescaled against ComponentScale
// (points that map to 100) before blending.
type Rules struct {
	MaxURLs        int `yaml:"max_urls"`
	URLConcurrency int `yaml:"url_concurrency"`

	FreeProviders []string `yaml:"free_providers"`

	NewSenderDays         int `yaml:"new_sender_days"`
	NewSenderScore        int `yaml:"new_sender_score"`
	YoungSenderDays       int `yaml:"young_sender_days"`
	YoungSenderScore      int `yaml:"young_sender_score"`
	SingleAuthFailScore   int `yaml:"single_auth_fail_score"`
	MultipleAuthFailScore int `yaml:"multiple_auth_fail_score"`

	ExecutableExtensions []string `yaml:"executable_extensions"`
	ExecutableScore      int      `yaml:"executable_score"`
	MacroExtensions      []string `yaml:"macro_extensions"`
	MacroScore           int      `yaml:"macro_score"`
	ArchiveExtensions    []string `yaml:"archive_extensions"`
	ArchiveScore         int      `yaml:"archive_score"`

	UrgencyPattern    string   `yaml:"urgency_pattern"`
	UrgencyScore      int      `yaml:"urgency_score"`
	CredentialPattern string   `yaml:"credential_pattern"`
	CredentialScore   int      `yaml:"credential_score"`
	Keywords          []string `yaml:"keywords"`
	KeywordScore      int      `yaml:"keyword_score"`
	MaxKeywordScore   int      `yaml:"max_keyword_score"`

	DisplayNameMismatchScore int      `yaml:"display_name_mismatch_score"`
	ReplyToFreeProviderScore int      `yaml:"reply_to_free_provider_score"`
	BrandClaimScore          int      `yaml:"brand_claim_score"`
	Brands                   []string `yaml:"brands"`

	ComponentScale int     `yaml:"component_scale"`
	Weights        Weights `yaml:"weights"`

	PhishingLinkBoost       int      `yaml:"phishing_link_boost"`
	PhishingLinkScore       int      `yaml:"phishing_link_score"`
	DomainMismatchBoost     int      `yaml:"domain_mismatch_boost"`
	ExecutableBoost         int      `yaml:"executable_boost"`
	ExecutableBoostSuffixes []string `yaml:"executable_boost_suffixes"`
}

// DefaultRules returns the built-in email tables
func DefaultRules() Rules {
	return Rules{
		MaxURLs:        20,
		URLConcurrency: 4,

		FreeProviders: []string{
			"gmail.com", "yahoo.com", "hotmail.com", "outlook.com",
			"live.com", "icloud.com", "aol.com", "proton.me",
		},

		NewSenderDays:         30,
		NewSenderScore:        30,
		YoungSenderDays:       180,
		YoungSenderScore:      15,
		SingleAuthFailScore:   15,
		MultipleAuthFailScore: 30,

		ExecutableExtensions: []string{"exe", "scr", "js", "hta", "vbs", "bat", "msi", "cmd", "jar"},
		ExecutableScore:      30,
		MacroExtensions:      []string{"docm", "xlsm", "pptm"},
		MacroScore:           20,
		ArchiveExtensions:    []string{"zip", "rar", "7z"},
		ArchiveScore:         12,

		UrgencyPattern:    `\burgent\b|\bimmediate\b|\bverify\b|\baction required\b|\bsuspend(ed)?\b`,
		UrgencyScore:      15,
		CredentialPattern: `enter (your )?password|provide (your )?password|confirm (your )?account|update billing|verify payment`,
		CredentialScore:   25,
		Keywords:          []string{"password", "bank", "billing", "invoice", "verify", "suspend", "secure", "confirm"},
		KeywordScore:      3,
		MaxKeywordScore:   10,

		DisplayNameMismatchScore: 8,
		ReplyToFreeProviderScore: 15,
		BrandClaimScore:          15,
		Brands: []string{
			"paypal", "amazon", "microsoft", "apple", "google", "netflix",
			"facebook", "instagram", "linkedin", "ebay", "dhl", "fedex",
			"bankofamerica", "chase", "wellsfargo", "hsbc",
		},

		ComponentScale: 30,
		Weights: Weights{
			Sender:        0.35,
			Attachment:    0.25,
			Content:       0.25,
			Impersonation: 0.15,
		},

		PhishingLinkBoost:       20,
		PhishingLinkScore:       80,
		DomainMismatchBoost:     10,
		ExecutableBoost:         20,
		ExecutableBoostSuffixes: []string{".exe", ".js", ".hta", ".scr", ".vbs", ".msi"},
	}
}

type patterns struct {
	urgency    *regexp.Regexp
	credential *regexp.Regexp
}

// Validate compiles the text patterns
func (r Rules) Validate() error {
	_, err := r.compile()
	return err
}

func (r Rules) compile() (patterns, error) {
	urgency, err := regexp.Compile(r.UrgencyPattern)
	if err != nil {
		return patterns{}, fmt.Errorf("urgency pattern: %w", err)
	}
	credential, err := regexp.Compile(r.CredentialPattern)
	if err != nil {
		return patterns{}, fmt.Errorf("credential pattern: %w", err)
	}
	return patterns{urgency: urgency, credential: credential}, nil
}
