package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stoik/phish-verdict/internal/adapters/mimeparse"
	"github.com/stoik/phish-verdict/internal/domain"
)

func newURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "url <url>",
		Short: "Score a single URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			v := a.service.ScanURL(cmd.Context(), "", args[0])
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), v)
			}
			printVerdict(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func newTraceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trace <url>",
		Short: "Follow the redirect chain of a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			chain := a.service.TraceRedirects(cmd.Context(), args[0])
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), chain)
			}
			printChain(cmd.OutOrStdout(), chain)
			return nil
		},
	}
}

func newQRCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "qr <decoded content>",
		Short: "Score content decoded from a QR code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			v := a.service.ScanQRContent(cmd.Context(), "", args[0])
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), v)
			}
			printQR(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

type emailFlags struct {
	file        string
	subject     string
	sender      string
	body        string
	links       []string
	attachments []string
}

func newEmailCmd() *cobra.Command {
	var f emailFlags
	cmd := &cobra.Command{
		Use:   "email",
		Short: "Score an email, from a .eml file or from flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := f.message(cmd.InOrStdin())
			if err != nil {
				return err
			}

			a, err := buildApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			v := a.service.ScanEmail(cmd.Context(), "", msg)
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), v)
			}
			printEmail(cmd.OutOrStdout(), v)
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.file, "file", "f", "", "raw RFC 5322 message (.eml), - for stdin")
	cmd.Flags().StringVar(&f.subject, "subject", "", "subject line")
	cmd.Flags().StringVar(&f.sender, "sender", "", `sender, e.g. "PayPal <support@paypa1.com>"`)
	cmd.Flags().StringVar(&f.body, "body", "", "plain-text body")
	cmd.Flags().StringSliceVar(&f.links, "link", nil, "link found in the message (repeatable)")
	cmd.Flags().StringSliceVar(&f.attachments, "attachment", nil, "attachment file name (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("file", "subject")
	cmd.MarkFlagsMutuallyExclusive("file", "body")
	return cmd
}

// message builds the EmailContext from the .eml file when given, else from the flags
func (f emailFlags) message(stdin io.Reader) (domain.EmailContext, error) {
	if f.file == "" {
		if f.subject == "" && f.body == "" && len(f.links) == 0 && len(f.attachments) == 0 {
			return domain.EmailContext{}, fmt.Errorf("nothing to scan: pass --file or at least one of --subject, --body, --link, --attachment")
		}
		msg := domain.EmailContext{
			Subject: f.subject,
			Sender:  f.sender,
			Body:    f.body,
			Links:   f.links,
		}
		for _, name := range f.attachments {
			msg.Attachments = append(msg.Attachments, domain.Attachment{Filename: strings.TrimSpace(name)})
		}
		return msg, nil
	}

	r := stdin
	if f.file != "-" {
		file, err := os.Open(f.file)
		if err != nil {
			return domain.EmailContext{}, err
		}
		defer file.Close()
		r = file
	}

	msg, err := mimeparse.Parse(r)
	if err != nil {
		return domain.EmailContext{}, fmt.Errorf("parse %s: %w", f.file, err)
	}
	if f.sender != "" {
		msg.Sender = f.sender
	}
	return msg, nil
}
