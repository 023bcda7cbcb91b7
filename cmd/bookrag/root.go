package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bookrag/internal/chunker"
	"bookrag/internal/config"
	"bookrag/internal/embedding"
	openaiembed "bookrag/internal/embedding/openai"
	"bookrag/internal/embedding/wordhash"
	"bookrag/internal/logger"
	"bookrag/internal/service"
	"bookrag/internal/store"
)

type app struct {
	cfgPath string
	verbose bool
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "bookrag",
		Short:         "Upload books and chat with their characters",
		Long:          "bookrag splits plain-text books into passages, embeds them into a local\nvector store and retrieves the most relevant passages to ground a\ncharacter chat.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logger.SetVerbose(a.verbose)
		},
	}
	cmd.PersistentFlags().StringVar(&a.cfgPath, "config", "", "path to YAML config (default ./config.yaml, then ~/.config/bookrag/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose diagnostics on stderr")
	cmd.AddCommand(newIngestCmd(a), newQueryCmd(a), newChatCmd(a))
	return cmd
}

func (a *app) loadConfig() (*config.AppConfig, error) {
	if a.cfgPath != "" {
		return config.Load(a.cfgPath)
	}
	cfg, path, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	logger.Debug("using config %s", path)
	return cfg, nil
}

func (a *app) buildService(cfg *config.AppConfig) (*service.Service, error) {
	splitter, err := chunker.New(cfg.Chunker.ChunkSize, cfg.Chunker.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	emb, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("embedder %s (dimension %d), data dir %s", emb.ModelID(), emb.Dimension(), cfg.DataDir)
	return service.New(splitter, emb, store.New(cfg.DataDir), cfg.Embedder.BatchSize, cfg.Retrieval.TopK), nil
}

func buildEmbedder(cfg *config.AppConfig) (embedding.Embedder, error) {
	switch cfg.Embedder.Type {
	case "wordhash", "":
		dim := 0
		if cfg.Embedder.Wordhash != nil {
			dim = cfg.Embedder.Wordhash.Dimension
		}
		return wordhash.New(dim), nil
	case "openai":
		oc := cfg.Embedder.OpenAI
		if oc == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return openaiembed.New(openaiembed.Config{Model: oc.Model, BaseURL: oc.BaseURL, APIKeyEnv: oc.APIKeyEnv})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}
