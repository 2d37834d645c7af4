package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeHeaders(t *testing.T) {
	raw := "From: \"PayPal\" <service@paypa1.com>\n" +
		"Reply-To: Refunds <refunds.desk@gmail.com>\n" +
		"Received-SPF: fail (domain of paypa1.com does not designate 203.0.113.9 as permitted sender)\n" +
		"Authentication-Results: mx.example.net;\n" +
		" dkim=fail header.d=paypa1.com;\n" +
		" dmarc=pass header.from=paypa1.com\n"

	f := AnalyzeHeaders(raw)

	assert.Equal(t, "refunds.desk@gmail.com", f.ReplyTo)
	assert.Equal(t, AuthFail, f.SPF.Status)
	assert.Equal(t, AuthFail, f.DKIM.Status)
	assert.Equal(t, AuthPass, f.DMARC.Status)
	assert.Equal(t, []string{"SPF", "DKIM"}, f.Failures)
	assert.Empty(t, f.Warning)
}

func TestAnalyzeHeaders_AuthenticationResultsWins(t *testing.T) {
	raw := "Authentication-Results: mx.example.net; spf=pass smtp.mailfrom=example.com\r\n" +
		"Received-SPF: softfail\r\n"

	f := AnalyzeHeaders(raw)

	assert.Equal(t, AuthPass, f.SPF.Status)
	assert.Empty(t, f.Failures)
	assert.Equal(t, "", f.DKIM.Status)
}

func TestAnalyzeHeaders_Empty(t *testing.T) {
	f := AnalyzeHeaders("  ")
	assert.Equal(t, HeaderFindings{}, f)
}
