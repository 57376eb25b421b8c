package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jrenaldi79/writing-style-pipeline/internal/config"
	"github.com/jrenaldi79/writing-style-pipeline/internal/cost"
	"github.com/jrenaldi79/writing-style-pipeline/internal/enrich"
	"github.com/jrenaldi79/writing-style-pipeline/internal/filter"
	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/orchestrator"
	"github.com/jrenaldi79/writing-style-pipeline/internal/validate"
	"github.com/jrenaldi79/writing-style-pipeline/pkg/anthropic"
	"github.com/jrenaldi79/writing-style-pipeline/pkg/llm"
	"github.com/jrenaldi79/writing-style-pipeline/pkg/llm/anthropicllm"
	"github.com/jrenaldi79/writing-style-pipeline/pkg/llm/openrouter"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Score persona replies against held-out messages and record human feedback (§4.9)",
}

var validateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate and score a reply for every held-out message (phase 1)",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := orchestrator.New(cfg.Data.Dir)
		if err := r.CheckStage("validate"); err != nil {
			return err
		}

		auto, _ := cmd.Flags().GetBool("auto")

		raw, err := loadRawMessages(filepath.Join(cfg.Data.Dir, orchestrator.ValidationSetDir))
		if err != nil {
			return fmt.Errorf("load validation set: %w", err)
		}

		ownAddress, _ := cmd.Flags().GetString("own-address")
		f := filter.New(cfg.Filter, ownAddress)
		enricher := enrich.New(enrich.FromConfig(cfg.Enrich, ownAddress))

		holdout := make([]model.EnrichedMessage, 0, len(raw))
		for _, msg := range raw {
			filtered := f.Evaluate(msg)
			if !filtered.Accepted {
				continue
			}
			holdout = append(holdout, enricher.Enrich(filtered))
		}

		matrix, err := embedMessages(cmd.Context(), cfg.Data.Dir, holdout)
		if err != nil {
			return fmt.Errorf("embed validation set: %w", err)
		}
		embedded := make(map[string]model.Vector, len(matrix.Index.IDs))
		for i, id := range matrix.Index.IDs {
			embedded[id] = matrix.Rows[i]
		}

		var run model.ClusterRun
		if err := readJSON(clustersPath(cfg.Data.Dir), &run); err != nil {
			return fmt.Errorf("read cluster run: %w", err)
		}

		registry, err := loadPersonaRegistry(cfg.Data.Dir)
		if err != nil {
			return fmt.Errorf("load persona registry: %w", err)
		}

		pairs := validate.BuildPairs(holdout, embedded, run, registry)
		if err := writeJSONAtomic(validationPairsPath(cfg.Data.Dir), pairs); err != nil {
			return fmt.Errorf("write validation pairs: %w", err)
		}

		client, modelID := buildLLMClient(auto)
		calc := cost.NewCalculator(cost.RatesFromConfig(pricingFromConfig(cfg.Pricing)))
		validationRun := validate.New(cfg.Validation, client, modelID, calc).Run(cmd.Context(), pairs, registry)
		if err := writeJSONAtomic(validationResultsPath(cfg.Data.Dir), validationRun); err != nil {
			return fmt.Errorf("write validation results: %w", err)
		}

		coverage := 0.0
		if len(holdout) > 0 {
			coverage = float64(len(pairs)) / float64(len(holdout))
		}
		report := model.ValidationReport{
			HoldoutCount:    len(holdout),
			PairCount:       len(pairs),
			Coverage:        coverage,
			MeanComposite:   validationRun.MeanComposite,
			AcceptThreshold: cfg.Validation.AcceptThreshold,
			TotalCostUSD:    validationRun.TotalCostUSD,
		}
		if err := writeJSONAtomic(filepath.Join(cfg.Data.Dir, orchestrator.ValidationReportFile), report); err != nil {
			return fmt.Errorf("write validation report: %w", err)
		}

		toPhase := model.PhaseLinkedIn
		reason := "validate run"
		if validationRun.MeanComposite < cfg.Validation.AcceptThreshold {
			toPhase = model.PhaseAnalysis
			reason = "validate run: below accept threshold, returning for another batch round"
		}
		if _, err := r.Store().Transition(model.PhaseValidation, "validate run"); err != nil {
			return fmt.Errorf("advance workflow: %w", err)
		}
		if _, err := r.Store().Transition(toPhase, reason); err != nil {
			return fmt.Errorf("advance workflow: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "scored %d/%d held-out messages, mean composite %.3f (threshold %.2f)\n",
			len(pairs), len(holdout), validationRun.MeanComposite, cfg.Validation.AcceptThreshold)
		return nil
	},
}

var validateFeedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record one human judgment against a scored validation pair (phase 2)",
	RunE: func(cmd *cobra.Command, args []string) error {
		messageID, _ := cmd.Flags().GetString("feedback")
		if messageID == "" {
			return fmt.Errorf("--feedback <message_id> is required")
		}
		soundsLikeMe, _ := cmd.Flags().GetString("sounds-like-me")
		notes, _ := cmd.Flags().GetString("notes")

		var run model.ValidationRun
		if err := readJSON(validationResultsPath(cfg.Data.Dir), &run); err != nil {
			return fmt.Errorf("read validation results: %w", err)
		}

		kind := model.FeedbackSuggestion
		switch soundsLikeMe {
		case "true":
			kind = model.FeedbackAccept
		case "false":
			kind = model.FeedbackReject
		case "":
			if notes == "" {
				return fmt.Errorf("either --sounds-like-me or --notes is required")
			}
		default:
			return fmt.Errorf("--sounds-like-me must be \"true\" or \"false\", got %q", soundsLikeMe)
		}

		if err := validate.RecordFeedback(&run, messageID, kind, notes); err != nil {
			return fmt.Errorf("record feedback: %w", err)
		}
		if err := writeJSONAtomic(validationResultsPath(cfg.Data.Dir), run); err != nil {
			return fmt.Errorf("write validation results: %w", err)
		}
		if err := writeJSONAtomic(filepath.Join(cfg.Data.Dir, orchestrator.ValidationFeedbackFile), run.Suggestions()); err != nil {
			return fmt.Errorf("write validation feedback: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "recorded %s feedback for %s; accept rate now %.2f\n", kind, messageID, validate.AcceptRate(run))
		return nil
	},
}

var validateSuggestionsCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "List every recorded suggestion-kind feedback note",
	RunE: func(cmd *cobra.Command, args []string) error {
		var run model.ValidationRun
		if err := readJSON(validationResultsPath(cfg.Data.Dir), &run); err != nil {
			return fmt.Errorf("read validation results: %w", err)
		}

		review, _ := cmd.Flags().GetBool("review")
		if review {
			for _, r := range run.Results {
				if r.Feedback != nil {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: persona=%s composite=%.3f\n",
					r.Pair.MessageID, r.Pair.PersonaName, r.Score.Composite)
			}
			return nil
		}

		for _, s := range run.Suggestions() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", s.MessageID, s.Note)
		}
		return nil
	},
}

var validateModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available OpenRouter models, or persist a selected model ID",
	RunE: func(cmd *cobra.Command, args []string) error {
		listModels, _ := cmd.Flags().GetBool("list-models")
		setModel, _ := cmd.Flags().GetString("set-model")

		if setModel != "" {
			if err := openrouter.SaveSelectedModel(cfg.Data.Dir, setModel); err != nil {
				return fmt.Errorf("set model: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "selected model %s for future --auto validation runs\n", setModel)
			return nil
		}

		if listModels {
			if cfg.OpenRouter.Key == "" {
				return fmt.Errorf("openrouter.key is required to list models")
			}
			client := openrouter.New(cfg.OpenRouter.Key, cfg.OpenRouter.BaseURL)
			models, err := client.ListModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("list models: %w", err)
			}
			for _, m := range models {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", m.ID, m.Description)
			}
			return nil
		}

		return fmt.Errorf("one of --list-models or --set-model is required")
	},
}

func init() {
	validateRunCmd.Flags().Bool("auto", false, "use the configured external-LLM backend instead of the heuristic fallback")
	validateRunCmd.Flags().String("own-address", "", "the user's own email address, used to classify internal vs. external recipients")

	validateFeedbackCmd.Flags().String("feedback", "", "message ID of the validation pair to record feedback against")
	validateFeedbackCmd.Flags().String("sounds-like-me", "", "\"true\" or \"false\": binary accept/reject judgment")
	validateFeedbackCmd.Flags().String("notes", "", "free-text editorial note; recorded as a suggestion when no accept/reject is given")

	validateSuggestionsCmd.Flags().Bool("review", false, "list scored pairs still awaiting phase-2 feedback instead of recorded suggestions")

	validateModelsCmd.Flags().Bool("list-models", false, "list every model OpenRouter advertises")
	validateModelsCmd.Flags().String("set-model", "", "persist a model ID for future --auto validation runs")

	validateCmd.AddCommand(validateRunCmd, validateFeedbackCmd, validateSuggestionsCmd, validateModelsCmd)
	rootCmd.AddCommand(validateCmd)
}

func validationPairsPath(dataDir string) string {
	return filepath.Join(dataDir, orchestrator.ValidationPairsFile)
}

func validationResultsPath(dataDir string) string {
	return filepath.Join(dataDir, orchestrator.ValidationResultsFile)
}

// buildLLMClient selects the Validator's reply-generation backend: nil (the
// heuristic fallback) unless --auto is set and at least one external
// backend is configured. OpenRouter is preferred when both are configured,
// since it carries a persisted model selection (§11.7, "no implicit
// defaults"); Anthropic falls back to its configured default model.
func buildLLMClient(auto bool) (llm.ChatClient, string) {
	if !auto {
		return nil, ""
	}
	if cfg.OpenRouter.Key != "" {
		selected, err := openrouter.LoadSelectedModel(cfg.Data.Dir)
		if err != nil {
			selected = cfg.OpenRouter.Model
		}
		return openrouter.New(cfg.OpenRouter.Key, cfg.OpenRouter.BaseURL), selected
	}
	if cfg.Anthropic.Key != "" {
		return anthropicllm.New(anthropic.NewClient(cfg.Anthropic.Key)), cfg.Anthropic.Model
	}
	return nil, ""
}

// pricingFromConfig converts the loaded config's pricing table into
// cost.PricingConfig, which mirrors it field-for-field to avoid an import
// cycle between internal/cost and internal/config (§10.6).
func pricingFromConfig(p config.PricingConfig) cost.PricingConfig {
	out := cost.PricingConfig{Anthropic: make(map[string]cost.ModelPricing, len(p.Anthropic))}
	for modelID, mp := range p.Anthropic {
		out.Anthropic[modelID] = cost.ModelPricing{
			Input:         mp.Input,
			Output:        mp.Output,
			BatchDiscount: mp.BatchDiscount,
			CacheWriteMul: mp.CacheWriteMul,
			CacheReadMul:  mp.CacheReadMul,
		}
	}
	return out
}
