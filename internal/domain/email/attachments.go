package email

import (
	"fmt"
	"path"
	"strings"

	"github.com/stoik/phish-verdict/internal/domain"
)

// scoreAttachments returns the highest tier reached and a reason per risky file
func scoreAttachments(attachments []domain.Attachment, rules Rules) (int, []string) {
	component := 0
	reasons := make([]string, 0)

	for _, a := range attachments {
		name := strings.ToLower(strings.TrimSpace(a.Filename))
		ext := strings.TrimPrefix(path.Ext(name), ".")
		if ext == "" {
			continue
		}

		switch {
		case contains(rules.ExecutableExtensions, ext):
			component = max(component, rules.ExecutableScore)
			if inner := strings.TrimPrefix(path.Ext(strings.TrimSuffix(name, "."+ext)), "."); inner != "" {
				reasons = append(reasons, fmt.Sprintf("Double extension hides executable: %s", a.Filename))
			} else {
				reasons = append(reasons, fmt.Sprintf("Suspicious attachment type: .%s", ext))
			}
		case contains(rules.MacroExtensions, ext):
			component = max(component, rules.MacroScore)
			reasons = append(reasons, fmt.Sprintf("Macro-enabled document attached: .%s", ext))
		case contains(rules.ArchiveExtensions, ext):
			component = max(component, rules.ArchiveScore)
			reasons = append(reasons, fmt.Sprintf("Archive attachment: .%s", ext))
		}
	}
	return component, reasons
}

func hasExecutable(attachments []domain.Attachment, suffixes []string) bool {
	for _, a := range attachments {
		name := strings.ToLower(strings.TrimSpace(a.Filename))
		for _, suffix := range suffixes {
			if strings.HasSuffix(name, suffix) {
				return true
			}
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimPrefix(item, "."), s) {
			return true
		}
	}
	return false
}
