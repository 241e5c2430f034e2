package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/studydeck/studyrag/internal/output"
	"github.com/studydeck/studyrag/internal/store"
)

// statusInfo is the JSON shape of the status command.
type statusInfo struct {
	StoreBackend string         `json:"store_backend"`
	StoreHealthy bool           `json:"store_healthy"`
	Provider     string         `json:"embeddings_provider"`
	Model        string         `json:"embeddings_model"`
	Collections  map[string]int `json:"collections,omitempty"`
}

func newStatusCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show store health and index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runStatus(cmd *cobra.Command, format string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Close() }()

	ctx := cmd.Context()
	info := statusInfo{
		StoreBackend: cfg.Store.Backend,
		StoreHealthy: engine.Health(ctx) == nil,
		Provider:     resolveProvider(cfg),
		Model:        engine.EmbedderModel(),
	}

	// Per-collection counts are only available on the embedded store
	if local, ok := engine.Store().(*store.LocalStore); ok {
		names, err := local.Collections(ctx)
		if err == nil && len(names) > 0 {
			info.Collections = make(map[string]int, len(names))
			for _, name := range names {
				n, err := local.Count(ctx, name)
				if err != nil {
					continue
				}
				info.Collections[name] = n
			}
		}
	}

	if format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(info)
	}

	out := output.New(cmd.OutOrStdout())
	if info.StoreHealthy {
		out.Successf("store (%s) reachable", info.StoreBackend)
	} else {
		out.Errorf("store (%s) unreachable", info.StoreBackend)
	}
	out.Infof("embeddings: %s (%s)", info.Provider, info.Model)
	for name, count := range info.Collections {
		out.Infof("collection %s: %d chunks", name, count)
	}
	return nil
}
