package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/orchestrator"
	"github.com/jrenaldi79/writing-style-pipeline/internal/validate"
	"github.com/jrenaldi79/writing-style-pipeline/pkg/fetcher/subprocess"
)

var fetchEmailsCmd = &cobra.Command{
	Use:   "fetch-emails",
	Short: "Fetch recent authored emails via the configured Gmail MCP subprocess",
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		holdout, _ := cmd.Flags().GetFloat64("holdout")

		client := subprocess.NewEmailClient(cfg.Fetcher.GmailCommand)
		emails, err := client.FetchEmails(cmd.Context(), count)
		if err != nil {
			return fmt.Errorf("fetch emails: %w", err)
		}

		messages := make([]model.RawMessage, len(emails))
		for i, email := range emails {
			email := email
			messages[i] = model.RawMessage{Platform: model.PlatformEmail, Email: &email}
		}

		trained, held, err := splitAndWriteRawMessages(cfg.Data.Dir, messages, holdout)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "fetched %d emails: %d into %s, %d held out into %s\n",
			len(emails), trained, filepath.Join(cfg.Data.Dir, orchestrator.RawSamplesDir),
			held, filepath.Join(cfg.Data.Dir, orchestrator.ValidationSetDir))
		return nil
	},
}

var fetchLinkedInCmd = &cobra.Command{
	Use:   "fetch-linkedin",
	Short: "Fetch recent LinkedIn posts via the configured LinkedIn MCP subprocess",
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		holdout, _ := cmd.Flags().GetFloat64("holdout")

		client := subprocess.NewLinkedInClient(cfg.Fetcher.LinkedInCommand, cfg.Fetcher.LinkedInCommand, cfg.Fetcher.LinkedInScrapeRate)
		ctx, cancel := context.WithTimeout(cmd.Context(), fetchTimeout(cfg.Fetcher.TimeoutSecs))
		defer cancel()

		posts, err := client.FetchPosts(ctx, count)
		if err != nil {
			return fmt.Errorf("fetch linkedin posts: %w", err)
		}

		messages := make([]model.RawMessage, len(posts))
		for i, post := range posts {
			post := post
			messages[i] = model.RawMessage{Platform: model.PlatformLinkedIn, LinkedInPost: &post}
		}

		trained, held, err := splitAndWriteRawMessages(cfg.Data.Dir, messages, holdout)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "fetched %d linkedin posts: %d into %s, %d held out into %s\n",
			len(posts), trained, filepath.Join(cfg.Data.Dir, orchestrator.RawSamplesDir),
			held, filepath.Join(cfg.Data.Dir, orchestrator.ValidationSetDir))
		return nil
	},
}

func init() {
	fetchEmailsCmd.Flags().Int("count", 200, "number of recent emails to fetch")
	fetchEmailsCmd.Flags().Float64("holdout", 0, "fraction of fetched messages to hold out into validation_set/ instead of raw_samples/ (E6)")
	fetchLinkedInCmd.Flags().Int("count", 50, "number of recent LinkedIn posts to fetch")
	fetchLinkedInCmd.Flags().Float64("holdout", 0, "fraction of fetched messages to hold out into validation_set/ instead of raw_samples/ (E6)")
	rootCmd.AddCommand(fetchEmailsCmd, fetchLinkedInCmd)
}

// splitAndWriteRawMessages partitions messages by ID via validate.Split and
// writes the training share to raw_samples/ and the held-out share to
// validation_set/, so held-out messages never enter the training corpus
// that preprocess/cluster operate on (§6, E6, §8 item 8). holdoutFraction
// of 0 writes every message to raw_samples/.
func splitAndWriteRawMessages(dataDir string, messages []model.RawMessage, holdoutFraction float64) (trained, held int, err error) {
	if holdoutFraction <= 0 {
		for _, msg := range messages {
			if err := writeJSONAtomic(rawMessagePath(dataDir, msg), msg); err != nil {
				return 0, 0, fmt.Errorf("write raw message %s: %w", msg.ID(), err)
			}
		}
		return len(messages), 0, nil
	}

	byID := make(map[string]model.RawMessage, len(messages))
	ids := make([]string, len(messages))
	for i, msg := range messages {
		ids[i] = msg.ID()
		byID[msg.ID()] = msg
	}

	training, holdout := validate.Split(ids, holdoutFraction)
	for _, id := range training {
		msg := byID[id]
		if err := writeJSONAtomic(rawMessagePath(dataDir, msg), msg); err != nil {
			return 0, 0, fmt.Errorf("write raw message %s: %w", id, err)
		}
	}
	for _, id := range holdout {
		msg := byID[id]
		if err := writeJSONAtomic(validationSetMessagePath(dataDir, msg), msg); err != nil {
			return 0, 0, fmt.Errorf("write held-out message %s: %w", id, err)
		}
	}
	return len(training), len(holdout), nil
}

func fetchTimeout(timeoutSecs int) time.Duration {
	if timeoutSecs <= 0 {
		timeoutSecs = 60
	}
	return time.Duration(timeoutSecs) * time.Second
}
