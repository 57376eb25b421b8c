// Package fetcher defines the narrow interface for pulling raw messages
// from external, user-authenticated sources (Gmail, LinkedIn), each
// reachable only through a subprocess MCP server the user has configured
// (§6, §11.9). Modeled the way the teacher wraps external API clients
// (pkg/notion, pkg/firecrawl): a small interface, a real subprocess
// implementation, and a test double satisfying the same interface.
package fetcher

import (
	"context"

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
)

// EmailClient fetches raw email messages via a configured Gmail MCP
// subprocess.
type EmailClient interface {
	FetchEmails(ctx context.Context, count int) ([]model.RawEmail, error)
}

// LinkedInClient fetches raw LinkedIn posts via a configured LinkedIn MCP
// subprocess.
type LinkedInClient interface {
	FetchPosts(ctx context.Context, count int) ([]model.RawLinkedInPost, error)
}
