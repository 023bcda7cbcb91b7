package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"bookrag/internal/summarizer"
)

func newIngestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file.txt> [file.txt ...]",
		Short: "Split, embed and store plain-text books",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			svc, err := a.buildService(cfg)
			if err != nil {
				return err
			}
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				source := filepath.Base(path)
				if err := svc.Ingest(cmd.Context(), string(data), source); err != nil {
					return fmt.Errorf("ingest %s: %w", source, err)
				}
				fmt.Printf("Stored %q.\n", source)
				if digest := summarizer.Digest(string(data), 3); digest != "" {
					fmt.Printf("  %s\n", digest)
				}
			}
			return nil
		},
	}
}
