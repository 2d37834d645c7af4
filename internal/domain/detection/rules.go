package detection

// Rules holds every tunable weight, threshold and keyword table used by the URL detectors
//
// The zero value is not useful; start from DefaultRules and overlay a rules
// file on top of it (see config.LoadRules). Weights are score points on the
// 0-100 scale, Multipliers scale a detector's whole subscore.
type Rules struct {
	Multipliers map[string]float64 `yaml:"multipliers"`
	Lexical     LexicalRules       `yaml:"lexical"`
	Brand       BrandRules         `yaml:"brand"`
	TLD         TLDRules           `yaml:"tld"`
	DOM         DOMRules           `yaml:"dom"`
	Blocklist   BlocklistRules     `yaml:"blocklist"`
	Reputation  ReputationRules    `yaml:"reputation"`
}

// LexicalRules configures the URL string heuristics
type LexicalRules struct {
	MaxURLLength    int      `yaml:"max_url_length"`
	LongURLWeight   int      `yaml:"long_url_weight"`
	MaxHyphens      int      `yaml:"max_hyphens"`
	HyphenWeight    int      `yaml:"hyphen_weight"`
	AtSignWeight    int      `yaml:"at_sign_weight"`
	Keywords        []string `yaml:"keywords"`
	KeywordWeight   int      `yaml:"keyword_weight"`
	MaxKeywordHits  int      `yaml:"max_keyword_hits"`
	IPAddressWeight int      `yaml:"ip_address_weight"`
	Shorteners      []string `yaml:"shorteners"`
	ShortenerWeight int      `yaml:"shortener_weight"`

	PlainHTTPWeight       int      `yaml:"plain_http_weight"`
	StandardPorts         []int    `yaml:"standard_ports"`
	NonStandardPortWeight int      `yaml:"non_standard_port_weight"`
	RedirectParams        []string `yaml:"redirect_params"`
	RedirectParamWeight   int      `yaml:"redirect_param_weight"`
}

// BrandRules configures lookalike detection against known brands
type BrandRules struct {
	Brands          []string            `yaml:"brands"`
	SimilarityMin   float64             `yaml:"similarity_min"`
	SimilarityMax   float64             `yaml:"similarity_max"`
	LookalikeWeight int                 `yaml:"lookalike_weight"`
	HomoglyphWeight int                 `yaml:"homoglyph_weight"`
	EmbeddedWeight  int                 `yaml:"embedded_weight"`
	MinTokenLength  int                 `yaml:"min_token_length"`
	Homoglyphs      map[string][]string `yaml:"homoglyphs"`
}

// TLDRules configures the high-abuse TLD list
type TLDRules struct {
	RiskyTLDs []string `yaml:"risky_tlds"`
	Weight    int      `yaml:"weight"`
}

// DOMRules configures page structure heuristics; each Max*Hits caps one category
type DOMRules struct {
	PasswordFieldWeight       int `yaml:"password_field_weight"`
	MaxPasswordHits           int `yaml:"max_password_hits"`
	ExternalFormWeight        int `yaml:"external_form_weight"`
	MaxExternalFormHits       int `yaml:"max_external_form_hits"`
	HiddenIframeWeight        int `yaml:"hidden_iframe_weight"`
	MaxHiddenIframeHits       int `yaml:"max_hidden_iframe_hits"`
	ThirdPartyScriptThreshold int `yaml:"third_party_script_threshold"`
	ThirdPartyScriptWeight    int `yaml:"third_party_script_weight"`
}

// BlocklistRules configures the feed and remote threat-list weights
type BlocklistRules struct {
	FeedWeight       int `yaml:"feed_weight"`
	ThreatListWeight int `yaml:"threat_list_weight"`
}

// ReputationRules configures domain age and certificate bands
type ReputationRules struct {
	NewDomainDays            int `yaml:"new_domain_days"`
	NewDomainWeight          int `yaml:"new_domain_weight"`
	YoungDomainDays          int `yaml:"young_domain_days"`
	YoungDomainWeight        int `yaml:"young_domain_weight"`
	CertificateProblemWeight int `yaml:"certificate_problem_weight"`
	CertificateExpiryDays    int `yaml:"certificate_expiry_days"`
	CertificateExpiryWeight  int `yaml:"certificate_expiry_weight"`
}

// DefaultRules returns the built-in tables
func DefaultRules() Rules {
	return Rules{
		Multipliers: map[string]float64{},
		Lexical: LexicalRules{
			MaxURLLength:  120,
			LongURLWeight: 10,
			MaxHyphens:    3,
			HyphenWeight:  10,
			AtSignWeight:  10,
			Keywords: []string{
				"login", "signin", "verify", "secure", "account", "suspend",
				"update", "confirm", "banking", "password", "webscr", "unlock",
			},
			KeywordWeight:   10,
			MaxKeywordHits:  3,
			IPAddressWeight: 20,
			Shorteners: []string{
				"bit.ly", "tinyurl.com", "goo.gl", "t.co", "ow.ly", "is.gd",
				"buff.ly", "rebrand.ly", "cutt.ly", "short.link", "rb.gy", "tiny.cc",
			},
			ShortenerWeight:       10,
			PlainHTTPWeight:       5,
			StandardPorts:         []int{80, 443, 8080},
			NonStandardPortWeight: 5,
			RedirectParams:        []string{"redirect", "return", "next", "goto", "url", "link", "target"},
			RedirectParamWeight:   5,
		},
		Brand: BrandRules{
			Brands: []string{
				"google", "paypal", "amazon", "icloud", "microsoft", "apple",
				"facebook", "instagram", "twitter", "linkedin", "ebay", "walmart",
				"netflix", "bankofamerica", "chase", "wellsfargo", "citibank", "hsbc",
			},
			SimilarityMin:   0.70,
			SimilarityMax:   0.95,
			LookalikeWeight: 35,
			HomoglyphWeight: 35,
			EmbeddedWeight:  30,
			MinTokenLength:  3,
			// ASCII lookalikes plus the Cyrillic letters most used in IDN spoofs
			Homoglyphs: map[string][]string{
				"o": {"0", "о"},
				"l": {"1", "i", "ӏ"},
				"i": {"1", "l", "і"},
				"s": {"5", "ѕ"},
				"a": {"4", "а"},
				"e": {"3", "е"},
				"t": {"7"},
				"b": {"6"},
				"g": {"9"},
				"z": {"2"},
				"m": {"rn"},
				"w": {"vv"},
				"c": {"с"},
				"p": {"р"},
				"y": {"у"},
				"x": {"х"},
			},
		},
		TLD: TLDRules{
			RiskyTLDs: []string{
				"tk", "ml", "xyz", "zip", "top", "click", "cf", "ga", "gq",
				"biz", "loan", "work", "country", "kim", "men", "mov",
			},
			Weight: 15,
		},
		DOM: DOMRules{
			PasswordFieldWeight:       10,
			MaxPasswordHits:           2,
			ExternalFormWeight:        25,
			MaxExternalFormHits:       2,
			HiddenIframeWeight:        20,
			MaxHiddenIframeHits:       2,
			ThirdPartyScriptThreshold: 5,
			ThirdPartyScriptWeight:    10,
		},
		Blocklist: BlocklistRules{
			FeedWeight:       60,
			ThreatListWeight: 60,
		},
		Reputation: ReputationRules{
			NewDomainDays:            30,
			NewDomainWeight:          15,
			YoungDomainDays:          180,
			YoungDomainWeight:        5,
			CertificateProblemWeight: 15,
			CertificateExpiryDays:    15,
			CertificateExpiryWeight:  10,
		},
	}
}

// Multiplier returns the subscore multiplier for a detector, 1 when unset
func (r Rules) Multiplier(detector string) float64 {
	if m, ok := r.Multipliers[detector]; ok && m >= 0 {
		return m
	}
	return 1.0
}
