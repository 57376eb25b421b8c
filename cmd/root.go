package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jrenaldi79/writing-style-pipeline/internal/config"
	"github.com/jrenaldi79/writing-style-pipeline/internal/pipelineerrors"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "writing-style",
	Short: "Mine an authentic writing voice from your own emails and LinkedIn posts",
	Long:  "Filters, enriches, clusters, and analyses a user's own messages into persona profiles validated against held-out data, then unifies a single LinkedIn voice — entirely against a local, file-based data directory.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
			cfg.Data.Dir = dir
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("data-dir", "", "override the pipeline's data directory (default: $WRITING_STYLE_DATA or ~/Documents/my-writing-style)")
	rootCmd.PersistentFlags().Bool("dry-run", false, "batch ingest: run the merge and coverage check without writing the persona registry (other commands ignore it)")
	rootCmd.PersistentFlags().Bool("check", false, "status: also report whether each stage's required artefacts are present (other commands ignore it)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(pipelineerrors.ExitCode(err))
	}
}
