package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/studydeck/studyrag/internal/output"
	"github.com/studydeck/studyrag/internal/rag"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit  int
	deck   string
	hybrid bool
	format string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed study material",
		Long: `Search returns the chunks most similar to the query, ranked
by similarity score.

Examples:
  studyrag search "krebs cycle"
  studyrag search "cell membrane transport" --deck deck-a1b2c3d4 -n 3
  studyrag search "photosynthesis" --hybrid --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringVarP(&opts.deck, "deck", "d", "", "Restrict to one deck")
	cmd.Flags().BoolVar(&opts.hybrid, "hybrid", false, "Fuse vector and keyword retrieval")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	var callOpts []rag.CallOption
	if opts.deck != "" {
		callOpts = append(callOpts, rag.WithDeck(opts.deck))
	}
	if opts.limit > 0 {
		callOpts = append(callOpts, rag.K(opts.limit))
	}
	if opts.hybrid {
		callOpts = append(callOpts, rag.Hybrid())
	}

	hits, err := engine.Query(cmd.Context(), query, callOpts...)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(hits)
	}

	out := output.New(cmd.OutOrStdout())
	if len(hits) == 0 {
		out.Info("no results")
		return nil
	}
	for i, hit := range hits {
		out.Infof("%d. [%.3f] %s (%s)", i+1, hit.Score, hit.ID, hit.Payload.Source)
		out.Quote(hit.Payload.Text)
	}
	return nil
}
