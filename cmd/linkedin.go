package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jrenaldi79/writing-style-pipeline/internal/linkedin"
	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/orchestrator"
)

var linkedinCmd = &cobra.Command{
	Use:   "linkedin",
	Short: "Unify fetched LinkedIn posts into a single persona (§4.8)",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := orchestrator.New(cfg.Data.Dir)
		if err := r.CheckStage("linkedin"); err != nil {
			return err
		}

		raw, err := loadRawMessages(filepath.Join(cfg.Data.Dir, orchestrator.RawSamplesDir))
		if err != nil {
			return fmt.Errorf("load raw samples: %w", err)
		}

		posts := make([]model.RawLinkedInPost, 0, len(raw))
		for _, msg := range raw {
			if msg.Platform == model.PlatformLinkedIn && msg.LinkedInPost != nil {
				posts = append(posts, *msg.LinkedInPost)
			}
		}

		persona := linkedin.New(cfg.LinkedIn).Unify(posts)
		if err := writeJSONAtomic(filepath.Join(cfg.Data.Dir, orchestrator.LinkedInPersonaFile), persona); err != nil {
			return fmt.Errorf("write linkedin persona: %w", err)
		}

		if _, err := r.Store().Transition(model.PhaseLinkedIn, "linkedin"); err != nil {
			return fmt.Errorf("advance workflow: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "unified %d linkedin posts into one persona (confidence=%.2f)\n",
			persona.SampleSize, persona.Confidence)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(linkedinCmd)
}
