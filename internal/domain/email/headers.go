package email

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/stoik/phish-verdict/internal/domain"
)

// Authentication states reported in a SenderReport
const (
	AuthPass    = "pass"
	AuthFail    = "fail"
	AuthPresent = "present"
	AuthMissing = "missing"
	AuthUnknown = "unknown"
)

var authResultRe = regexp.MustCompile(`\b(spf|dkim|dmarc)\s*=\s*([a-z]+)`)

// HeaderFindings is what the raw headers say about the message origin
//
// A zero AuthStatus means the headers carry no verdict for that mechanism.
type HeaderFindings struct {
	ReplyTo  string
	SPF      domain.AuthStatus
	DKIM     domain.AuthStatus
	DMARC    domain.AuthStatus
	Failures []string
	Warning  string
}

// AnalyzeHeaders reads Reply-To and authentication verdicts from a raw header block
func AnalyzeHeaders(raw string) HeaderFindings {
	var f HeaderFindings
	if strings.TrimSpace(raw) == "" {
		return f
	}

	block := strings.TrimRight(raw, "\r\n") + "\r\n\r\n"
	env, err := enmime.ReadEnvelope(strings.NewReader(block))
	if err != nil {
		f.Warning = fmt.Sprintf("Raw headers could not be parsed: %v", err)
		return f
	}

	if rt := strings.TrimSpace(env.GetHeader("Reply-To")); rt != "" {
		if addr, err := mail.ParseAddress(rt); err == nil {
			f.ReplyTo = strings.ToLower(addr.Address)
		} else {
			f.ReplyTo = strings.ToLower(rt)
		}
	}

	for _, v := range env.GetHeaderValues("Authentication-Results") {
		for _, m := range authResultRe.FindAllStringSubmatch(strings.ToLower(v), -1) {
			f.set(m[1], m[2], "Authentication-Results")
		}
	}

	if spf := strings.Fields(strings.ToLower(env.GetHeader("Received-SPF"))); len(spf) > 0 {
		f.set("spf", strings.Trim(spf[0], "();"), "Received-SPF")
	}

	for _, mech := range []struct {
		name   string
		status domain.AuthStatus
	}{{"SPF", f.SPF}, {"DKIM", f.DKIM}, {"DMARC", f.DMARC}} {
		if mech.status.Status == AuthFail {
			f.Failures = append(f.Failures, mech.name)
		}
	}
	return f
}

// set records the first verdict seen for a mechanism
func (f *HeaderFindings) set(mechanism, result, header string) {
	var target *domain.AuthStatus
	switch mechanism {
	case "spf":
		target = &f.SPF
	case "dkim":
		target = &f.DKIM
	case "dmarc":
		target = &f.DMARC
	default:
		return
	}
	if target.Status != "" {
		return
	}

	status := AuthUnknown
	switch result {
	case "pass":
		status = AuthPass
	case "fail", "softfail", "permerror":
		status = AuthFail
	}
	*target = domain.AuthStatus{
		Status:  status,
		Details: fmt.Sprintf("%s: %s=%s", header, mechanism, result),
	}
}
