// Package main provides the entry point for the trace-attach CLI, which
// downloads Trace attachments for local viewing.
package main

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/mindjig/trace-tools/internal/fetch"
	"github.com/mindjig/trace-tools/internal/mcp"
)

var (
	// Version as provided by goreleaser.
	Version = ""

	apiKey   string
	endpoint string

	rootCmd = &cobra.Command{
		Use:   "trace-attach <attachment-id>",
		Short: "Download a Trace attachment for local viewing",
		Long: "\nFetch a signed URL for an attachment from the Trace API and download the\n" +
			"file to a temp directory. The local path is printed on stdout so it can\n" +
			"be captured by the caller; progress goes to stderr.",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE:         execute,
	}
)

// environ is ambient environment configuration.
type environ struct {
	APIKey string `env:"TRACE_API_KEY"`
}

func execute(cmd *cobra.Command, args []string) error {
	attachmentID := args[0]

	if apiKey == "" {
		envCfg, err := env.ParseAs[environ]()
		if err != nil {
			return fmt.Errorf("error parsing environment: %v", err)
		}
		apiKey = envCfg.APIKey
	}
	if apiKey == "" {
		return fmt.Errorf("API key required: use --api-key or set TRACE_API_KEY")
	}

	client := mcp.NewClient(endpoint, apiKey)

	log.Info("Getting signed URL", "attachment", attachmentID)
	signedURL, err := client.AttachmentURL(cmd.Context(), attachmentID)
	if err != nil {
		return err
	}

	log.Info("Downloading")
	localPath, n, err := fetch.NewDownloader("").Download(cmd.Context(), signedURL, attachmentID)
	if err != nil {
		return err
	}
	log.Info("Download complete", "size", humanize.Bytes(uint64(n)), "path", localPath)

	// The path is the only stdout output, so callers can capture it.
	fmt.Println(localPath)
	return nil
}

func main() {
	log.SetOutput(os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version

	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "Trace API key (or set TRACE_API_KEY)")
	rootCmd.Flags().StringVar(&endpoint, "endpoint", "", fmt.Sprintf("Trace API endpoint (default %s)", mcp.DefaultEndpoint))
}
