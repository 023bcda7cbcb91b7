package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"bookrag/internal/agent"
	"bookrag/internal/tui"
)

func newChatCmd(a *app) *cobra.Command {
	var character string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a book character in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			svc, err := a.buildService(cfg)
			if err != nil {
				return err
			}
			ag, err := agent.New(agent.Config{
				Model:     cfg.Chat.Model,
				BaseURL:   cfg.Chat.BaseURL,
				APIKeyEnv: cfg.Chat.APIKeyEnv,
			})
			if err != nil {
				return err
			}
			if character == "" {
				character = cfg.Chat.Character
			}
			m := tui.New(svc, ag, character, cfg.Retrieval.TopK)
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&character, "character", "", "character persona (default from config)")
	return cmd
}
