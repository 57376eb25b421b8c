package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jrenaldi79/writing-style-pipeline/internal/state"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the data directory and a fresh workflow state at phase setup",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}

		st := state.New(cfg.Data.Dir)
		if err := st.Init(); err != nil {
			return fmt.Errorf("init workflow state: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "initialized data directory at %s\n", cfg.Data.Dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
