package email

import "strings"

// scoreContent looks for urgency, credential requests and risky keywords in subject and body
func scoreContent(subject, body string, rules Rules, p patterns) (int, []string) {
	text := strings.ToLower(subject + "\n" + body)
	component := 0
	reasons := make([]string, 0)

	if p.urgency.MatchString(text) {
		component += rules.UrgencyScore
		reasons = append(reasons, "Urgency language detected")
	}
	if p.credential.MatchString(text) {
		component += rules.CredentialScore
		reasons = append(reasons, "Explicit credential/payment request language detected")
	}

	hits := 0
	for _, kw := range rules.Keywords {
		if kw != "" && strings.Contains(text, kw) {
			hits++
		}
	}
	component += min(rules.MaxKeywordScore, hits*rules.KeywordScore)

	return component, reasons
}
