// Package testfetcher provides in-memory fetcher.EmailClient and
// fetcher.LinkedInClient doubles for tests that exercise fetch-dependent
// commands without a real MCP subprocess.
package testfetcher

import (
	"context"

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
)

// Emails is a canned fetcher.EmailClient.
type Emails struct {
	Posts []model.RawEmail
	Err   error
}

func (f Emails) FetchEmails(ctx context.Context, count int) ([]model.RawEmail, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if count < len(f.Posts) {
		return f.Posts[:count], nil
	}
	return f.Posts, nil
}

// LinkedIn is a canned fetcher.LinkedInClient.
type LinkedIn struct {
	Posts []model.RawLinkedInPost
	Err   error
}

func (f LinkedIn) FetchPosts(ctx context.Context, count int) ([]model.RawLinkedInPost, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if count < len(f.Posts) {
		return f.Posts[:count], nil
	}
	return f.Posts, nil
}
