package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jrenaldi79/writing-style-pipeline/internal/cluster"
	"github.com/jrenaldi79/writing-style-pipeline/internal/embed"
	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/orchestrator"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Group embedded messages into clusters (§4.5)",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := orchestrator.New(cfg.Data.Dir)
		if err := r.CheckStage("cluster"); err != nil {
			return err
		}

		matrix, err := embed.Load(cfg.Data.Dir, cfg.Embed.Backend)
		if err != nil {
			return fmt.Errorf("read embedding matrix: %w", err)
		}

		clusterCfg := cfg.Cluster
		if algo, _ := cmd.Flags().GetString("algorithm"); algo != "" {
			clusterCfg.Algorithm = algo
		}
		if k, _ := cmd.Flags().GetInt("k"); k > 0 {
			clusterCfg.PartitionalK = k
		}
		if minPoints, _ := cmd.Flags().GetInt("min-cluster"); minPoints > 0 {
			clusterCfg.DensityMinPoints = minPoints
		}

		run := cluster.New(clusterCfg).Run(matrix)
		if err := writeJSONAtomic(clustersPath(cfg.Data.Dir), run); err != nil {
			return fmt.Errorf("write cluster run: %w", err)
		}

		if _, err := r.Store().Transition(model.PhaseAnalysis, "cluster"); err != nil {
			return fmt.Errorf("advance workflow: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "clustered %d messages into %d clusters (algorithm=%s, noise=%.1f%%)\n",
			len(matrix.Index.IDs), run.ClusterCount, run.Algorithm, run.NoiseRatio*100)
		return nil
	},
}

func init() {
	clusterCmd.Flags().String("algorithm", "", "override the configured clustering algorithm (density|partitional)")
	clusterCmd.Flags().Int("k", 0, "override the partitional algorithm's cluster count")
	clusterCmd.Flags().Int("min-cluster", 0, "override the density algorithm's minimum-points parameter")
	rootCmd.AddCommand(clusterCmd)
}

func clustersPath(dataDir string) string {
	return filepath.Join(dataDir, orchestrator.ClustersFile)
}
