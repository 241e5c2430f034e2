// Package cmd provides the CLI commands for studyrag.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/studydeck/studyrag/internal/logging"
	"github.com/studydeck/studyrag/pkg/version"
)

var (
	debugMode      bool
	modelOverride  string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the studyrag CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "studyrag",
		Short: "Local-first retrieval and Q&A over study material",
		Long: `studyrag ingests study notes, indexes them in a vector store,
and answers questions grounded in the ingested material with
bracketed source citations.

It runs fully locally by default (static embeddings, embedded
store); set OPENAI_API_KEY to enable remote embeddings and
answer synthesis.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("studyrag version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.studyrag/logs/")
	cmd.PersistentFlags().StringVar(&modelOverride, "model", "", "Embedding model for this invocation")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRun = stopLogging

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newSourcesCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging enables file logging when --debug is set. Without the
// flag, commands configure stderr logging from the loaded config.
func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}

	cfg := logging.DefaultConfig()
	cfg.Level = "debug"
	cfg.WriteToStderr = false
	cleanup, err := logging.SetupDefault(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup

	slog.Debug("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
