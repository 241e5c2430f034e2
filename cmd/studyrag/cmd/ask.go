package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/studydeck/studyrag/internal/output"
	"github.com/studydeck/studyrag/internal/rag"
)

// askOptions holds CLI flags for ask.
type askOptions struct {
	deck    string
	k       int
	budget  int
	format  string // "text", "json"
	verbose bool
}

func newAskCmd() *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from indexed material",
		Long: `Ask retrieves the most relevant chunks, packs them under the
context token budget, and synthesizes an answer grounded in them
with bracketed citations. Without an OPENAI_API_KEY the answer is
always "I don't know." but sources are still listed.

Examples:
  studyrag ask "what drives osmosis"
  studyrag ask "define entropy" --deck deck-a1b2c3d4 --k 3
  studyrag ask "summarize chapter 2" --budget 800 --verbose`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.deck, "deck", "d", "", "Restrict to one deck")
	cmd.Flags().IntVarP(&opts.k, "k", "k", 0, "Retrieval depth (default from config)")
	cmd.Flags().IntVarP(&opts.budget, "budget", "b", 0, "Context token budget (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show the full text of cited sources")

	return cmd
}

func runAsk(cmd *cobra.Command, question string, opts askOptions) error {
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
	if opts.k > 0 {
		callOpts = append(callOpts, rag.K(opts.k))
	}
	if opts.budget > 0 {
		callOpts = append(callOpts, rag.ContextBudget(opts.budget))
	}

	result, err := engine.Answer(cmd.Context(), question, callOpts...)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
	}

	out := output.New(cmd.OutOrStdout())
	out.Quote(result.Answer)
	if len(result.Sources) == 0 {
		return nil
	}

	out.Newline()
	out.Info("sources:")
	for _, src := range result.Sources {
		out.Infof("  [%d] %s (%s, score %.3f)", src.Index, src.ID, src.Origin, src.Score)
		if opts.verbose {
			out.Quote(src.Text)
		}
	}
	return nil
}
