package mimeparse

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jaytaylor/html2text"
	"github.com/jhillyerd/enmime"

	"github.com/stoik/phish-verdict/internal/domain"
)

const maxMessageBytes = 25 << 20

// Parse reads an RFC 5322 message (.eml) into the input of an email scan
//
// The plain-text part is used as the body; HTML-only messages are converted
// to text. Anchors in the HTML part become explicit links so that URLs
// hidden behind link text are still scanned.
func Parse(r io.Reader) (domain.EmailContext, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxMessageBytes))
	if err != nil {
		return domain.EmailContext{}, fmt.Errorf("read message: %w", err)
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return domain.EmailContext{}, fmt.Errorf("parse message: %w", err)
	}

	msg := domain.EmailContext{
		Subject:    env.GetHeader("Subject"),
		Sender:     env.GetHeader("From"),
		Body:       env.Text,
		RawHeaders: headerBlock(raw),
	}

	if env.HTML != "" {
		if strings.TrimSpace(msg.Body) == "" {
			text, err := html2text.FromString(env.HTML, html2text.Options{OmitLinks: false})
			if err == nil {
				msg.Body = text
			}
		}
		msg.Links = anchorLinks(env.HTML)
	}

	for _, part := range env.Attachments {
		msg.Attachments = append(msg.Attachments, domain.Attachment{
			Filename:    part.FileName,
			ContentType: part.ContentType,
			Size:        int64(len(part.Content)),
		})
	}
	return msg, nil
}

// headerBlock returns everything before the first empty line
func headerBlock(raw []byte) string {
	for _, sep := range []string{"\r\n\r\n", "\n\n"} {
		if i := bytes.Index(raw, []byte(sep)); i >= 0 {
			return string(raw[:i])
		}
	}
	return string(raw)
}

func anchorLinks(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		lower := strings.ToLower(href)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			links = append(links, href)
		}
	})
	return links
}
