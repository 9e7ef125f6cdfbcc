// Package cli implements the docchat command line client.
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/docchat/internal/collab"
	"github.com/capitalize-ai/docchat/internal/config"
	"github.com/capitalize-ai/docchat/internal/service"
	"github.com/capitalize-ai/docchat/pkg/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

// globalOptions are the flags shared by every command.
type globalOptions struct {
	apiURL   string
	token    string
	timeout  time.Duration
	nameTTL  time.Duration
	logLevel string
}

// newSession builds a session against the configured document service.
func (o *globalOptions) newSession() (*service.Session, error) {
	client, err := collab.NewClient(o.apiURL,
		collab.WithToken(o.token),
		collab.WithTimeout(o.timeout),
	)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(o.logLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return service.NewSession(client, o.nameTTL, log), nil
}

// NewRootCommand creates the docchat command tree reading from in and
// writing to out.
func NewRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	cfg := config.Load()
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "docchat",
		Short: "Chat with your PDF documents",
		Long: `docchat uploads PDF documents to a document chat service and lets you
ask questions about them, keeping one conversation thread per document.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)

	// Disable completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Global flags, defaulting to the environment
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", cfg.ServiceURL, "document service base URL")
	flags.StringVar(&opts.token, "token", cfg.ServiceToken, "bearer token for the document service")
	flags.DurationVar(&opts.timeout, "timeout", cfg.ServiceTimeout, "per-request timeout")
	flags.DurationVar(&opts.nameTTL, "name-ttl", cfg.DocumentNameTTL, "how long document names are cached")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newDocumentsCommand(opts),
		newThreadsCommand(opts),
		newChatCommand(opts),
	)
	return rootCmd
}

// Execute runs the command tree against the process's standard streams.
// This is called by main.main().
func Execute() {
	if err := NewRootCommand(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
