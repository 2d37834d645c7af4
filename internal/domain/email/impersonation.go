package email

import (
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/stoik/phish-verdict/internal/domain/normalize"
)

// scoreImpersonation checks the display name, brand claims and Reply-To redirection
func scoreImpersonation(sender Sender, headers HeaderFindings, rules Rules) (int, []string) {
	component := 0
	reasons := make([]string, 0)

	if sender.Address != "" && sender.LocalPart != "" && len([]rune(sender.DisplayName)) >= 4 {
		name, local := squash(sender.DisplayName), squash(sender.LocalPart)
		dist := fuzzy.LevenshteinDistance(name, local)
		limit := max(3, int(0.2*float64(max(len([]rune(sender.DisplayName)), len([]rune(sender.LocalPart))))))
		if dist > limit {
			component += rules.DisplayNameMismatchScore
			reasons = append(reasons, "Display name and email local part do not match (possible impersonation)")
		}
	}

	if brand := claimedBrand(sender, rules.Brands); brand != "" {
		component += rules.BrandClaimScore
		reasons = append(reasons, fmt.Sprintf("Display name claims to be %s but the sender domain is %s", brand, sender.Domain))
	}

	if headers.ReplyTo != "" && sender.Address != "" {
		replyDomain := headers.ReplyTo[strings.LastIndex(headers.ReplyTo, "@")+1:]
		if replyDomain != sender.Domain && contains(rules.FreeProviders, replyDomain) {
			component += rules.ReplyToFreeProviderScore
			reasons = append(reasons, fmt.Sprintf("Reply-To redirects responses to a free email provider (%s)", headers.ReplyTo))
		}
	}

	return component, reasons
}

// claimedBrand returns the brand named in the display name when the sender domain is not that brand's
func claimedBrand(sender Sender, brands []string) string {
	if sender.Domain == "" || sender.DisplayName == sender.LocalPart {
		return ""
	}
	words := strings.Fields(strings.ToLower(nonWordRe.ReplaceAllString(sender.DisplayName, " ")))
	squashed := squash(sender.DisplayName)

	label := sender.Domain
	if t, err := normalize.Normalize(sender.Domain); err == nil {
		label = t.DomainName
	}

	for _, brand := range brands {
		brand = strings.ToLower(brand)
		named := squashed == brand
		for _, w := range words {
			if w == brand {
				named = true
			}
		}
		if named && label != brand {
			return brand
		}
	}
	return ""
}
