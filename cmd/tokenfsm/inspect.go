package main

import (
	"github.com/spf13/cobra"
)

func newInspectCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the compiled transition table as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			logger := initLogger(cfg.Log)
			defer func() { _ = logger.Sync() }()

			choices, err := compile(cfg, logger)
			if err != nil {
				return err
			}
			return choices.Automaton().WriteYAML(cmd.OutOrStdout())
		},
	}
}
