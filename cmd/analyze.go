package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jrenaldi79/writing-style-pipeline/internal/batch"
	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/orchestrator"
	"github.com/jrenaldi79/writing-style-pipeline/internal/refdata"
	"github.com/jrenaldi79/writing-style-pipeline/pkg/llm"
)

// analyzeCmd is the non-interactive alternative to the console-driven
// batch prepare/ingest loop (§4.6-§4.7, §11.7): it renders the same
// calibration+schema+member prompt BatchPreparer writes for a human-in-
// the-loop caller-LLM, sends it to a configured backend directly, and
// ingests the parsed response without a human copy/paste round trip.
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Drive the caller-LLM analysis step directly against a configured backend instead of the console loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := orchestrator.New(cfg.Data.Dir)
		if err := r.CheckStage("batch"); err != nil {
			return err
		}

		clusterID, _ := cmd.Flags().GetInt("cluster")
		all, _ := cmd.Flags().GetBool("all")

		client, modelID := analyzeClient()
		if client == nil {
			return fmt.Errorf("analyze requires anthropic.key or openrouter.key to be configured")
		}

		var run model.ClusterRun
		if err := readJSON(clustersPath(cfg.Data.Dir), &run); err != nil {
			return fmt.Errorf("read cluster run: %w", err)
		}
		registry, err := loadPersonaRegistry(cfg.Data.Dir)
		if err != nil {
			return fmt.Errorf("load persona registry: %w", err)
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

		preparer := batch.NewPreparer(cfg.Batch.CoverageTarget)
		ingester := batch.NewIngester(cfg.Batch.CoverageTarget)

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

			var prompt bytes.Buffer
			if err := preparer.Write(&prompt, target, members, alreadyIngested); err != nil {
				return fmt.Errorf("render batch prompt for cluster %d: %w", target.ClusterID, err)
			}

			resp, err := client.Chat(cmd.Context(), llm.ChatRequest{
				Model:  modelID,
				System: "You analyse writing samples into a caller-LLM batch submission. Respond with a single JSON object matching the schema contract exactly, and nothing else.",
				Prompt: prompt.String(),
			})
			if err != nil {
				return fmt.Errorf("analyze cluster %d: %w", target.ClusterID, err)
			}

			submitted, err := decodeBatchResponse(resp.Text)
			if err != nil {
				return fmt.Errorf("decode analysis for cluster %d: %w", target.ClusterID, err)
			}
			submitted.ClusterID = target.ClusterID

			registry, err = ingester.Ingest(submitted, registry, run)
			if err != nil {
				return fmt.Errorf("ingest analysis for cluster %d: %w", target.ClusterID, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "analyzed cluster %d: %d samples, registry now has %d personas\n",
				target.ClusterID, len(submitted.Samples), len(registry.Order))
		}

		return writeJSONAtomic(personaRegistryPath(cfg.Data.Dir), registry)
	},
}

func init() {
	analyzeCmd.Flags().Int("cluster", 0, "cluster ID to analyze")
	analyzeCmd.Flags().Bool("all", false, "analyze every non-noise cluster instead of just --cluster")
	rootCmd.AddCommand(analyzeCmd)
}

// analyzeClient selects the same backend --auto's buildLLMClient would,
// since analyze has no heuristic fallback: there is no human in the loop
// to read a placeholder reply (§11.7).
func analyzeClient() (llm.ChatClient, string) {
	return buildLLMClient(true)
}

// decodeBatchResponse parses the model's JSON reply against
// refdata.BatchFile's wire shape and adapts it into batch.SubmittedBatch.
func decodeBatchResponse(text string) (batch.SubmittedBatch, error) {
	var file refdata.BatchFile
	if err := json.Unmarshal(jsonObject(text), &file); err != nil {
		return batch.SubmittedBatch{}, fmt.Errorf("parse batch JSON: %w", err)
	}

	submitted := batch.SubmittedBatch{
		BatchID:               file.BatchID,
		ClusterID:             file.ClusterID,
		CalibrationReferenced: file.CalibrationReferenced,
	}
	for _, np := range file.NewPersonas {
		submitted.NewPersonas = append(submitted.NewPersonas, batch.NewPersona{
			Name:       np.Name,
			ToneVector: toneVectorOf(np.ToneVector),
		})
	}
	for _, s := range file.Samples {
		submitted.Samples = append(submitted.Samples, batch.Sample{
			MessageID:   s.MessageID,
			PersonaName: s.PersonaName,
			Confidence:  s.Confidence,
			ToneVector:  toneVectorOf(s.ToneVector),
		})
	}
	return submitted, nil
}

func toneVectorOf(t refdata.ToneVectorJSON) model.ToneVector {
	return model.ToneVector{Formality: t.Formality, Warmth: t.Warmth, Authority: t.Authority, Directness: t.Directness}
}

// jsonObject trims any prose a model wraps around its JSON object, taking
// the text between the first '{' and the last '}'.
func jsonObject(text string) []byte {
	start := -1
	end := -1
	for i, r := range text {
		if r == '{' && start == -1 {
			start = i
		}
		if r == '}' {
			end = i
		}
	}
	if start == -1 || end == -1 || end < start {
		return []byte(text)
	}
	return []byte(text[start : end+1])
}
