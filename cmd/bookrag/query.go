package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newQueryCmd(a *app) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Retrieve the stored passages nearest to a query",
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
			results, err := svc.Retrieve(cmd.Context(), strings.Join(args, " "), topK)
			if err != nil {
				return err
			}
			for i, text := range results {
				fmt.Printf("%d. %s\n", i+1, text)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top", "k", 0, "number of passages to retrieve (default from config)")
	return cmd
}
