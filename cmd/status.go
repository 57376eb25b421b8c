package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jrenaldi79/writing-style-pipeline/internal/orchestrator"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the current workflow phase and which artefacts exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := orchestrator.New(cfg.Data.Dir)
		out, err := r.Status()
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), out)

		check, _ := cmd.Flags().GetBool("check")
		if check {
			fmt.Fprint(cmd.OutOrStdout(), "\nstage readiness:\n")
			for _, stage := range orchestrator.StageNames() {
				if err := r.CheckStage(stage); err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-10s not ready: %v\n", stage, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %-10s ready\n", stage)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
