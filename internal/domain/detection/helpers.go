package detection

import (
	"net/url"
	"strings"

	"github.com/stoik/phish-verdict/internal/domain/normalize"
)

// matchedKeywords returns the keywords found in text, in list order
func matchedKeywords(text string, keywords []string) []string {
	found := make([]string, 0)
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(text, keyword) {
			found = append(found, keyword)
		}
	}
	return found
}

// containsString checks if list holds s, ignoring case
func containsString(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

// resolveRegistrable resolves ref against base and returns its registrable domain
//
// Relative references inherit the base domain. Non-web schemes return "".
func resolveRegistrable(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return normalize.RegistrableDomain(u.String())
}
