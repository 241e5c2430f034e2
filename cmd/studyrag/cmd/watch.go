package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/studydeck/studyrag/internal/output"
	"github.com/studydeck/studyrag/internal/rag"
	"github.com/studydeck/studyrag/internal/watch"
)

// watchOptions holds CLI flags for watch.
type watchOptions struct {
	deck     string
	debounce time.Duration
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-ingest note files as they change",
		Long: `Watch observes a directory tree and re-ingests .md, .markdown,
and .txt files whenever they are created or modified. Chunks are
keyed by content, so repeated saves update the index in place.
Deleted files stay indexed until the deck is re-ingested.

Runs until interrupted.

Examples:
  studyrag watch ./lecture-notes --deck biology
  studyrag watch . --debounce 2s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.deck, "deck", "d", "", "Deck id to ingest into (generated when empty)")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "Event coalescing window")

	return cmd
}

func runWatch(cmd *cobra.Command, dir string, opts watchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	watcher, err := watch.New(dir, watch.Options{DebounceWindow: opts.debounce}, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Stop() }()

	deck := opts.deck
	if deck == "" {
		deck = "deck-" + filepath.Base(watcher.Root())
	}

	out := output.New(cmd.OutOrStdout())
	out.Infof("watching %s (deck: %s), press Ctrl-C to stop", watcher.Root(), deck)

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			ingestBatch(cmd, engine, deck, batch, out)
		}
	}
}

// ingestBatch re-ingests the changed files of one debounced batch.
// Failures are reported and skipped so the watch loop keeps running.
func ingestBatch(cmd *cobra.Command, engine *rag.Engine, deck string, batch []watch.Event, out *output.Writer) {
	var docs []rag.Document
	for _, event := range batch {
		if event.Op == watch.OpDelete {
			out.Warningf("%s deleted; its chunks stay until the deck is re-ingested", filepath.Base(event.Path))
			continue
		}
		data, err := os.ReadFile(event.Path)
		if err != nil {
			out.Errorf("cannot read %s: %v", event.Path, err)
			continue
		}
		docs = append(docs, rag.Document{
			Source: filepath.Base(event.Path),
			Text:   string(data),
		})
	}
	if len(docs) == 0 {
		return
	}

	stats, err := engine.Ingest(cmd.Context(), docs, rag.WithDeck(deck))
	if err != nil {
		out.Errorf("ingest failed: %v", err)
		return
	}
	out.Successf("re-indexed %d chunks from %d files", stats.Indexed, stats.Documents)
}
