package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jrenaldi79/writing-style-pipeline/internal/batch"
	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/orchestrator"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Prepare and ingest caller-LLM analysis batches (§4.6-§4.7)",
}

var batchPrepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Render the calibration prompt, batch schema, and a cluster's unanalyzed members",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := orchestrator.New(cfg.Data.Dir).CheckStage("batch"); err != nil {
			return err
		}

		clusterID, _ := cmd.Flags().GetInt("cluster")
		all, _ := cmd.Flags().GetBool("all")
		reportCoverage, _ := cmd.Flags().GetBool("coverage")
		targetCoverage, _ := cmd.Flags().GetFloat64("target-coverage")
		if targetCoverage == 0 {
			targetCoverage = cfg.Batch.CoverageTarget
		}

		var run model.ClusterRun
		if err := readJSON(clustersPath(cfg.Data.Dir), &run); err != nil {
			return fmt.Errorf("read cluster run: %w", err)
		}

		registry, err := loadPersonaRegistry(cfg.Data.Dir)
		if err != nil {
			return fmt.Errorf("load persona registry: %w", err)
		}

		// --coverage: report required-vs-ingested counts per cluster and exit,
		// without rendering any batch prompt (§4.6, "reports required counts").
		if reportCoverage {
			for _, c := range run.NonNoiseClusters() {
				need := batch.NewPreparer(targetCoverage).RequiredCount(len(c.MemberIDs))
				fmt.Fprintf(cmd.OutOrStdout(), "cluster %d: %d/%d ingested, need %d for %.0f%% coverage\n",
					c.ClusterID, registry.ClusterCoverage[c.ClusterID], len(c.MemberIDs), need, targetCoverage*100)
			}
			return nil
		}

		enriched, err := loadEnrichedMessages(filepath.Join(cfg.Data.Dir, orchestrator.EnrichedSamplesDir))
		if err != nil {
			return fmt.Errorf("load enriched samples: %w", err)
		}
		byID := make(map[string]model.EnrichedMessage, len(enriched))
		for _, em := range enriched {
			byID[em.ID()] = em
		}

		clusters := run.NonNoiseClusters()
		if !all {
			target, ok := run.ByID(clusterID)
			if !ok {
				return fmt.Errorf("cluster %d not found", clusterID)
			}
			clusters = []model.Cluster{target}
		}

		preparer := batch.NewPreparer(targetCoverage)
		for _, target := range clusters {
			members := make([]model.EnrichedMessage, 0, len(target.MemberIDs))
			for _, id := range target.MemberIDs {
				if em, ok := byID[id]; ok {
					members = append(members, em)
				}
			}

			alreadyIngested := make(map[string]bool)
			for id, name := range registry.IngestedIDs {
				if registry.Personas[name] != nil && registry.Personas[name].ClusterID == target.ClusterID {
					alreadyIngested[id] = true
				}
			}

			if err := preparer.Write(cmd.OutOrStdout(), target, members, alreadyIngested); err != nil {
				return fmt.Errorf("write batch prompt for cluster %d: %w", target.ClusterID, err)
			}
		}
		return nil
	},
}

var batchIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a caller-submitted batch file into the persona registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		batchPath, _ := cmd.Flags().GetString("file")
		force, _ := cmd.Flags().GetBool("force")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		var submitted batch.SubmittedBatch
		if err := readJSON(batchPath, &submitted); err != nil {
			return fmt.Errorf("read submitted batch: %w", err)
		}
		submitted.Force = submitted.Force || force

		var run model.ClusterRun
		if err := readJSON(clustersPath(cfg.Data.Dir), &run); err != nil {
			return fmt.Errorf("read cluster run: %w", err)
		}

		registry, err := loadPersonaRegistry(cfg.Data.Dir)
		if err != nil {
			return fmt.Errorf("load persona registry: %w", err)
		}
		personaCountBefore := len(registry.Order)

		ingester := batch.NewIngester(cfg.Batch.CoverageTarget)
		updated, err := ingester.Ingest(submitted, registry, run)
		if err != nil {
			return fmt.Errorf("ingest batch: %w", err)
		}

		// §12 SUPPLEMENT: --dry-run runs the merge and coverage check without
		// persisting, so a caller-LLM can see what batch ingest would do
		// before committing.
		if dryRun {
			clusterSize := 0
			if target, ok := run.ByID(submitted.ClusterID); ok {
				clusterSize = len(target.MemberIDs)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dry run: batch %s into cluster %d would bring persona count from %d to %d (coverage %.2f)\n",
				submitted.BatchID, submitted.ClusterID, personaCountBefore, len(updated.Order),
				updated.CoveragePct(submitted.ClusterID, clusterSize))
			return nil
		}

		if err := writeJSONAtomic(personaRegistryPath(cfg.Data.Dir), updated); err != nil {
			return fmt.Errorf("write persona registry: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "ingested batch %s into cluster %d; registry now has %d personas\n",
			submitted.BatchID, submitted.ClusterID, len(updated.Order))
		return nil
	},
}

func init() {
	batchPrepareCmd.Flags().Int("cluster", 0, "cluster ID to prepare a batch for")
	batchPrepareCmd.Flags().Bool("all", false, "prepare a batch for every non-noise cluster instead of just --cluster")
	batchPrepareCmd.Flags().Bool("coverage", false, "report required-vs-ingested member counts per cluster and exit")
	batchPrepareCmd.Flags().Float64("target-coverage", 0, "override the configured coverage target for this invocation")
	batchIngestCmd.Flags().String("file", "", "path to the caller-submitted batch JSON file")
	batchIngestCmd.Flags().Bool("force", false, "accept a batch below the coverage target")
	batchCmd.AddCommand(batchPrepareCmd, batchIngestCmd)
	rootCmd.AddCommand(batchCmd)
}

func personaRegistryPath(dataDir string) string {
	return filepath.Join(dataDir, orchestrator.PersonaRegistryFile)
}

func loadPersonaRegistry(dataDir string) (*model.PersonaRegistry, error) {
	path := personaRegistryPath(dataDir)
	buf, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return model.NewPersonaRegistry(), nil
	}
	if err != nil {
		return nil, err
	}
	var registry model.PersonaRegistry
	if err := json.Unmarshal(buf, &registry); err != nil {
		return nil, err
	}
	return &registry, nil
}
