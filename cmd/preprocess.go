package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jrenaldi79/writing-style-pipeline/internal/embed"
	"github.com/jrenaldi79/writing-style-pipeline/internal/enrich"
	"github.com/jrenaldi79/writing-style-pipeline/internal/filter"
	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/orchestrator"
	"github.com/jrenaldi79/writing-style-pipeline/internal/resilience"
	"github.com/jrenaldi79/writing-style-pipeline/internal/store"
)

// embedBreaker guards each per-message embedding call, so a string of model
// failures trips independently of the MCP fetchers and the validator LLM
// (§10.5). The bundled feature-hashing encoder never fails, but a real
// sentence-transformer backend swapped in for embed.Embedder could.
var embedBreaker = resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig()).Get("embed_model")

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Filter, enrich, and embed every raw sample (§4.2-§4.4)",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := orchestrator.New(cfg.Data.Dir)
		if err := r.CheckStage("preprocess"); err != nil {
			return err
		}

		raw, err := loadRawMessages(filepath.Join(cfg.Data.Dir, orchestrator.RawSamplesDir))
		if err != nil {
			return fmt.Errorf("load raw samples: %w", err)
		}

		ownAddress, _ := cmd.Flags().GetString("own-address")
		f := filter.New(cfg.Filter, ownAddress)
		enrichCfg := enrich.FromConfig(cfg.Enrich, ownAddress)
		enricher := enrich.New(enrichCfg)

		enriched := make([]model.EnrichedMessage, 0, len(raw))
		for _, msg := range raw {
			filtered := f.Evaluate(msg)
			if err := writeJSONAtomic(filteredPath(cfg.Data.Dir, filtered), filtered); err != nil {
				return fmt.Errorf("write filtered sample: %w", err)
			}
			if !filtered.Accepted {
				continue
			}

			em := enricher.Enrich(filtered)
			if err := writeJSONAtomic(enrichedPath(cfg.Data.Dir, em), em); err != nil {
				return fmt.Errorf("write enriched sample: %w", err)
			}
			enriched = append(enriched, em)
		}

		matrix, err := embedMessages(cmd.Context(), cfg.Data.Dir, enriched)
		if err != nil {
			return fmt.Errorf("embed messages: %w", err)
		}
		if err := embed.Persist(cfg.Data.Dir, cfg.Embed.Backend, matrix); err != nil {
			return fmt.Errorf("write embedding matrix: %w", err)
		}

		if _, err := orchestrator.New(cfg.Data.Dir).Store().Transition(model.PhasePreprocessing, "preprocess"); err != nil {
			return fmt.Errorf("advance workflow: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "preprocessed %d raw samples, %d accepted, %d embedded\n",
			len(raw), len(enriched), len(matrix.Index.IDs))
		return nil
	},
}

func init() {
	preprocessCmd.Flags().String("own-address", "", "the user's own email address, used to classify internal vs. external recipients")
	rootCmd.AddCommand(preprocessCmd)
}

func filteredPath(dataDir string, fm model.FilteredMessage) string {
	return filepath.Join(dataDir, orchestrator.FilteredSamplesDir, sampleFileName(fm.Message))
}

func enrichedPath(dataDir string, em model.EnrichedMessage) string {
	return filepath.Join(dataDir, orchestrator.EnrichedSamplesDir, sampleFileName(em.Filtered.Message))
}

func sampleFileName(msg model.RawMessage) string {
	switch msg.Platform {
	case model.PlatformEmail:
		return "email_" + msg.ID() + ".json"
	case model.PlatformLinkedIn:
		return "linkedin_post_" + msg.ID() + ".json"
	default:
		return msg.ID() + ".json"
	}
}

// embedMessages embeds every enriched message, consulting the SQLite
// embedding cache before recomputing a vector (§4.4).
func embedMessages(ctx context.Context, dataDir string, messages []model.EnrichedMessage) (model.EmbeddingMatrix, error) {
	embedder := embed.New(cfg.Embed.ModelID)

	cachePath := filepath.Join(dataDir, "cache.db")
	cache, err := store.NewSQLite(cachePath)
	if err != nil {
		return model.EmbeddingMatrix{}, fmt.Errorf("open embedding cache: %w", err)
	}
	defer cache.Close()
	if err := cache.Migrate(ctx); err != nil {
		return model.EmbeddingMatrix{}, fmt.Errorf("migrate embedding cache: %w", err)
	}

	modelID := embedder.ModelID()
	ids := make([]string, len(messages))
	rows := make([]model.Vector, len(messages))

	for i, msg := range messages {
		id := msg.ID()
		ids[i] = id

		if cached, ok, err := cache.GetEmbedding(ctx, modelID, id); err == nil && ok {
			rows[i] = cached
			continue
		}

		retryCfg := resilience.DefaultRetryConfig()
		retryCfg.ShouldRetry = func(error) bool { return true }
		retryCfg.OnRetry = resilience.RetryLogger("embed_model", "embed")
		body := msg.Body()
		vec, err := resilience.ExecuteVal(ctx, embedBreaker, func(cbCtx context.Context) (model.Vector, error) {
			return resilience.DoVal(cbCtx, retryCfg, func(context.Context) (model.Vector, error) {
				return embedder.Embed(body), nil
			})
		})
		if err != nil {
			return model.EmbeddingMatrix{}, fmt.Errorf("embed message %s: %w", id, err)
		}
		if err := cache.SetEmbedding(ctx, store.EmbeddingCacheEntry{ModelID: modelID, MessageID: id, Vector: vec}); err != nil {
			return model.EmbeddingMatrix{}, fmt.Errorf("cache embedding: %w", err)
		}
		rows[i] = vec
	}

	return model.EmbeddingMatrix{
		Index: model.EmbeddingIndex{ModelID: modelID, ModelHash: embedder.ModelHash(), IDs: ids},
		Rows:  rows,
	}, nil
}
