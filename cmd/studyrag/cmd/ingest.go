package cmd

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/studydeck/studyrag/internal/output"
	"github.com/studydeck/studyrag/internal/rag"
)

// ingestOptions holds CLI flags for ingest.
type ingestOptions struct {
	deck   string
	format string // "text", "json"
}

func newIngestCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest <file-or-dir>...",
		Short: "Chunk, embed, and index study material",
		Long: `Ingest reads text or markdown files, splits them into
overlapping chunks, embeds each chunk, and indexes them under a
deck id. The deck id is printed so later searches and questions
can be scoped to it. Directories are walked recursively for
.md, .markdown, and .txt files.

Examples:
  studyrag ingest notes.md
  studyrag ingest chapter1.md chapter2.md --deck biology
  studyrag ingest ./lecture-notes/ --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.deck, "deck", "d", "", "Deck id to ingest into (generated when empty)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runIngest(cmd *cobra.Command, paths []string, opts ingestOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	files, err := expandNoteFiles(paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no note files found in %v", paths)
	}

	docs := make([]rag.Document, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}
		docs = append(docs, rag.Document{
			Source: filepath.Base(path),
			Text:   string(data),
		})
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

	stats, err := engine.Ingest(cmd.Context(), docs, callOpts...)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(stats)
	}

	out := output.New(cmd.OutOrStdout())
	out.Successf("indexed %d chunks from %d documents", stats.Indexed, stats.Documents)
	out.Infof("deck: %s", stats.DeckID)
	return nil
}

// noteExts are the file extensions ingested when walking directories.
var noteExts = map[string]bool{".md": true, ".markdown": true, ".txt": true}

// expandNoteFiles resolves the argument list: plain files pass
// through unchanged, directories are walked recursively for note
// files, skipping hidden directories.
func expandNoteFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != path && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if noteExts[strings.ToLower(filepath.Ext(p))] {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", path, err)
		}
	}
	return files, nil
}
