package email

import (
	"net/mail"
	"regexp"
	"strings"
)

var (
	urlRe         = regexp.MustCompile(`https?://[^\s'"<>]+`)
	displayNameRe = regexp.MustCompile(`^(.*)<([^>]+)>`)
	nonWordRe     = regexp.MustCompile(`\W+`)
)

// ExtractURLs collects candidate URLs from the explicit links, the subject and the body
//
// Order is links, subject, body; duplicates keep their first position and
// the result is capped at limit (no cap when limit <= 0).
func ExtractURLs(links []string, subject, body string, limit int) []string {
	candidates := make([]string, 0, len(links))
	for _, l := range links {
		candidates = append(candidates, strings.TrimSpace(l))
	}
	for _, text := range []string{subject, body} {
		for _, m := range urlRe.FindAllString(text, -1) {
			candidates = append(candidates, strings.TrimRight(m, ".,;:!?)]}"))
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, u := range candidates {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Sender is a parsed From value
type Sender struct {
	DisplayName string
	Address     string
	LocalPart   string
	Domain      string
}

// ParseSender splits `"Name" <local@domain>` or a bare address
//
// Without an explicit display name the local part stands in for it, which
// makes the display-name check a no-op for bare addresses.
func ParseSender(raw string) Sender {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Sender{}
	}

	var s Sender
	if addr, err := mail.ParseAddress(raw); err == nil {
		s.DisplayName = strings.TrimSpace(addr.Name)
		s.Address = strings.ToLower(addr.Address)
	} else if m := displayNameRe.FindStringSubmatch(raw); m != nil {
		s.DisplayName = strings.Trim(strings.TrimSpace(m[1]), `"`)
		s.Address = strings.ToLower(strings.TrimSpace(m[2]))
	} else {
		s.Address = strings.ToLower(raw)
	}

	if at := strings.LastIndex(s.Address, "@"); at >= 0 {
		s.LocalPart = s.Address[:at]
		s.Domain = strings.TrimSuffix(s.Address[at+1:], ".")
	}
	if s.DisplayName == "" {
		s.DisplayName = s.LocalPart
	}
	return s
}

func squash(s string) string {
	return nonWordRe.ReplaceAllString(strings.ToLower(s), "")
}
