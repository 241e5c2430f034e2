package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/studydeck/studyrag/internal/output"
)

func newSourcesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "sources <deck-id>",
		Short: "List the stored chunks of a deck",
		Long: `Sources scrolls every indexed chunk of a deck, grouped by the
document it came from.

Examples:
  studyrag sources deck-a1b2c3d4
  studyrag sources deck-a1b2c3d4 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSources(cmd, args[0], format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSources(cmd *cobra.Command, deckID, format string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	result, err := engine.Sources(cmd.Context(), deckID)
	if err != nil {
		return err
	}

	if format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
	}

	out := output.New(cmd.OutOrStdout())
	if len(result.Entries) == 0 {
		out.Infof("deck %s has no chunks", deckID)
		return nil
	}

	byOrigin := make(map[string]int)
	for _, entry := range result.Entries {
		byOrigin[entry.Origin]++
	}

	out.Infof("deck %s: %d chunks", deckID, len(result.Entries))
	for origin, count := range byOrigin {
		out.Infof("  %s: %d chunks", origin, count)
	}
	if result.Skipped > 0 {
		out.Warningf("%d records skipped (malformed)", result.Skipped)
	}
	return nil
}
