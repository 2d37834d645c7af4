package normalize

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/stoik/phish-verdict/internal/domain"
)

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)

// Normalize parses a raw URL or bare host into a ScanTarget
//
// Input without a scheme gets "http://" prepended. Anything that is not a
// well-formed http(s) URL with a public hostname or IP literal returns an
// error wrapping domain.ErrInvalidURL; callers turn that into the terminal
// "invalid" verdict rather than treating it as a failure.
func Normalize(raw string) (domain.ScanTarget, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.ScanTarget{}, fmt.Errorf("%w: empty input", domain.ErrInvalidURL)
	}

	withScheme := trimmed
	if !schemeRe.MatchString(trimmed) {
		withScheme = "http://" + trimmed
	}

	u, err := url.Parse(withScheme)
	if err != nil {
		return domain.ScanTarget{}, fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return domain.ScanTarget{}, fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidURL, u.Scheme)
	}
	if strings.ContainsAny(u.Host, " \t\r\n") {
		return domain.ScanTarget{}, fmt.Errorf("%w: whitespace in host", domain.ErrInvalidURL)
	}
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return domain.ScanTarget{}, fmt.Errorf("%w: bad port %q", domain.ErrInvalidURL, p)
		}
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return domain.ScanTarget{}, fmt.Errorf("%w: missing host", domain.ErrInvalidURL)
	}

	target := domain.ScanTarget{Raw: raw}

	if ip := net.ParseIP(host); ip != nil {
		target.Host = host
		target.RegistrableDomain = host
		target.DomainName = host
		target.IsIP = true
	} else {
		ascii, err := idna.Lookup.ToASCII(host)
		if err != nil {
			return domain.ScanTarget{}, fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
		}
		registrable, suffix, err := SplitDomain(ascii)
		if err != nil {
			return domain.ScanTarget{}, err
		}
		target.Host = ascii
		target.RegistrableDomain = registrable
		target.PublicSuffix = suffix
		target.DomainName = strings.TrimSuffix(registrable, "."+suffix)
	}

	u.Scheme = scheme
	u.Host = hostWithPort(target.Host, u.Port())
	target.NormalizedURL = u.String()

	return target, nil
}

// SplitDomain returns the registrable domain (eTLD+1) and public suffix of an ASCII host
func SplitDomain(host string) (string, string, error) {
	if !strings.Contains(host, ".") {
		return "", "", fmt.Errorf("%w: host %q has no public suffix", domain.ErrInvalidURL, host)
	}
	labels := strings.Split(host, ".")
	for _, l := range labels {
		if l == "" || len(l) > 63 {
			return "", "", fmt.Errorf("%w: bad label in %q", domain.ErrInvalidURL, host)
		}
	}
	if !validTLD(labels[len(labels)-1]) {
		return "", "", fmt.Errorf("%w: bad top-level domain in %q", domain.ErrInvalidURL, host)
	}

	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}
	suffix, _ := publicsuffix.PublicSuffix(host)
	return registrable, suffix, nil
}

// RegistrableDomain returns the eTLD+1 of a URL or host, or "" when it has none
func RegistrableDomain(rawURLOrHost string) string {
	t, err := Normalize(rawURLOrHost)
	if err != nil {
		return ""
	}
	return t.RegistrableDomain
}

func validTLD(tld string) bool {
	if strings.HasPrefix(tld, "xn--") {
		return true
	}
	for _, r := range tld {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return len(tld) >= 2
}

func hostWithPort(host, port string) string {
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port == "" {
		return host
	}
	return host + ":" + port
}
