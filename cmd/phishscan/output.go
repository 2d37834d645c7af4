package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/stoik/phish-verdict/internal/domain"
)

var (
	bold  = color.New(color.Bold)
	faint = color.New(color.Faint)
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func labelColor(label domain.Label) *color.Color {
	switch label {
	case domain.LabelPhishing:
		return color.New(color.FgRed, color.Bold)
	case domain.LabelSuspicious:
		return color.New(color.FgYellow, color.Bold)
	case domain.LabelSafe:
		return color.New(color.FgGreen, color.Bold)
	default:
		return color.New(color.FgMagenta, color.Bold)
	}
}

func statusColor(status int) *color.Color {
	switch {
	case status >= 200 && status < 300:
		return color.New(color.FgGreen)
	case status >= 300 && status < 400:
		return color.New(color.FgCyan)
	case status >= 400:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}

func printLabel(w io.Writer, label domain.Label, score int) {
	labelColor(label).Fprintf(w, "%-10s", label)
	fmt.Fprintf(w, " score %d/%d\n", score, domain.MaxScore)
}

func printReasons(w io.Writer, reasons []string) {
	for _, r := range reasons {
		fmt.Fprintf(w, "  - %s\n", r)
	}
}

func printVerdict(w io.Writer, v domain.RiskVerdict) {
	bold.Fprintln(w, v.URL)
	printLabel(w, v.Label, v.Score)
	printReasons(w, v.Reasons)

	if v.DomainAge.Known() {
		fmt.Fprintf(w, "  domain age: %d days\n", *v.DomainAge.AgeDays)
	}
	if c := v.Certificate; c != nil && c.Present {
		fmt.Fprintf(w, "  certificate: valid=%t issuer=%q\n", c.Valid, c.Issuer)
	}
	if c := v.RedirectChain; c != nil && len(c.Chain) > 1 {
		last := c.Chain[len(c.Chain)-1]
		fmt.Fprintf(w, "  redirects: %d hops, ends at %s\n", len(c.Chain)-1, last.URL)
	}
	for _, d := range v.Breakdown {
		if d.Failed {
			faint.Fprintf(w, "  [%s] %s\n", d.Detector, d.FailureNote)
		}
	}
}

func printChain(w io.Writer, chain domain.RedirectChain) {
	bold.Fprintln(w, chain.Target)
	for i, hop := range chain.Chain {
		fmt.Fprintf(w, "  %2d. ", i+1)
		if hop.Error != "" {
			color.New(color.FgRed).Fprintf(w, "ERR ")
			fmt.Fprintf(w, "%s (%s)\n", hop.URL, hop.Error)
			continue
		}
		statusColor(hop.StatusCode).Fprintf(w, "%d ", hop.StatusCode)
		fmt.Fprintf(w, "%s %s\n", hop.URL, faint.Sprintf("%dms", hop.DurationMs))
	}
	if chain.LoopDetected {
		color.New(color.FgRed).Fprintln(w, "  redirect loop detected")
	}
	if chain.Truncated {
		color.New(color.FgYellow).Fprintln(w, "  chain truncated at the hop limit")
	}
}

func printEmail(w io.Writer, v domain.EmailVerdict) {
	bold.Fprintln(w, v.Summary)
	printLabel(w, v.FinalLabel, v.FinalScore)
	printReasons(w, v.RuleBasedReasons)

	if s := v.SenderDomainReport; s.Present {
		fmt.Fprintf(w, "\nsender %s (%s)  spf=%s dmarc=%s dkim=%s\n",
			s.Address, s.EmailType, s.SPF.Status, s.DMARC.Status, s.DKIM.Status)
		for _, warn := range s.Warnings {
			color.New(color.FgYellow).Fprintf(w, "  ! %s\n", warn)
		}
	}

	if len(v.PerURLReports) > 0 {
		fmt.Fprintln(w, "\nlinks")
		for _, r := range v.PerURLReports {
			fmt.Fprint(w, "  ")
			labelColor(r.Label).Fprintf(w, "%-10s", r.Label)
			fmt.Fprintf(w, " %3d  %s\n", r.Score, r.URL)
		}
	}

	if len(v.Recommendations) > 0 {
		fmt.Fprintln(w, "\nrecommendations")
		printReasons(w, v.Recommendations)
	}
}

func printQR(w io.Writer, v domain.QRVerdict) {
	bold.Fprintln(w, v.Message)
	printLabel(w, v.Label, v.Score)
	printReasons(w, v.Reasons)
}
