package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:           "phishscan",
	Short:         "Score URLs, emails and QR payloads for phishing risk",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func execute() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	rootCmd.AddCommand(newServeCmd(), newURLCmd(), newEmailCmd(), newTraceCmd(), newQRCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
