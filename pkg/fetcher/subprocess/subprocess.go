// Package subprocess implements fetcher.EmailClient and
// fetcher.LinkedInClient against externally configured MCP server
// subprocesses: each invocation writes a JSON request to stdin and blocks
// on reading one JSON document from stdout (§6, §11.9).
package subprocess

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/pipelineerrors"
	"github.com/jrenaldi79/writing-style-pipeline/internal/resilience"
)

const linkedInScrapeConcurrency = 5

// breakers holds one circuit breaker per MCP subprocess service ("gmail_mcp",
// "linkedin_mcp"), shared by every client so a run of failures against one
// service trips independently of the other (§10.5, §11.9).
var breakers = resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig())

// EmailClient fetches raw emails by invoking a configured Gmail MCP command.
type EmailClient struct {
	command []string
}

// NewEmailClient builds an EmailClient. command[0] is the binary, the rest
// are fixed arguments (e.g. ["gmail-mcp", "fetch"]).
func NewEmailClient(command []string) *EmailClient {
	return &EmailClient{command: command}
}

// FetchEmails requests up to count recent sent/received emails.
func (c *EmailClient) FetchEmails(ctx context.Context, count int) ([]model.RawEmail, error) {
	var emails []model.RawEmail
	call := func(callCtx context.Context) error {
		return runJSON(callCtx, c.command, map[string]any{"count": count}, &emails)
	}
	if err := callWithResilience(ctx, "gmail_mcp", call); err != nil {
		return nil, pipelineerrors.NewExternalError("fetcher.email", true, err)
	}
	return emails, nil
}

// LinkedInClient lists recent post URLs, then scrapes each post's full
// content and engagement with bounded concurrency (§5: 5 concurrent
// scrapes, no shared mutable state — each goroutine only appends to its own
// slot).
type LinkedInClient struct {
	listCommand   []string
	scrapeCommand []string
	limiter       *rate.Limiter
}

// NewLinkedInClient builds a LinkedInClient. listCommand enumerates recent
// post URLs; scrapeCommand, invoked once per URL (appended as the final
// argument), returns one post's full content. scrapesPerSec throttles the
// scrape fan-out independently of the fixed worker-pool width, so a scraper
// that is generous with concurrency but still rate-limited server-side
// doesn't trip its own throttling; <= 0 means unlimited (§5, §11.9).
func NewLinkedInClient(listCommand, scrapeCommand []string, scrapesPerSec float64) *LinkedInClient {
	c := &LinkedInClient{listCommand: listCommand, scrapeCommand: scrapeCommand}
	if scrapesPerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(scrapesPerSec), 1)
	}
	return c
}

// FetchPosts lists up to count recent post URLs, then scrapes each with a
// bounded worker pool.
func (c *LinkedInClient) FetchPosts(ctx context.Context, count int) ([]model.RawLinkedInPost, error) {
	var urls []string
	listCall := func(callCtx context.Context) error {
		return runJSON(callCtx, c.listCommand, map[string]any{"count": count}, &urls)
	}
	if err := callWithResilience(ctx, "linkedin_mcp", listCall); err != nil {
		return nil, pipelineerrors.NewExternalError("fetcher.linkedin.list", true, err)
	}

	posts := make([]model.RawLinkedInPost, len(urls))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(linkedInScrapeConcurrency)

	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			if c.limiter != nil {
				if err := c.limiter.Wait(gCtx); err != nil {
					return eris.Wrapf(err, "fetcher.linkedin.scrape: rate limiter: %s", url)
				}
			}
			cmd := append(append([]string{}, c.scrapeCommand...), url)
			var post model.RawLinkedInPost
			scrapeCall := func(callCtx context.Context) error {
				return runJSON(callCtx, cmd, map[string]any{"url": url}, &post)
			}
			if err := callWithResilience(gCtx, "linkedin_mcp", scrapeCall); err != nil {
				return eris.Wrapf(err, "fetcher.linkedin.scrape: %s", url)
			}
			posts[i] = post // each goroutine owns a distinct slice index
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, pipelineerrors.NewExternalError("fetcher.linkedin.scrape", false, err)
	}
	return posts, nil
}

// callWithResilience runs fn through the named service's circuit breaker,
// retrying transient subprocess failures with backoff (§10.5).
func callWithResilience(ctx context.Context, service string, fn func(context.Context) error) error {
	cb := breakers.Get(service)
	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger(service, "fetch")
	retryCfg.ShouldRetry = func(error) bool { return true } // subprocess failures are treated as transient: the MCP server may be momentarily busy
	return cb.Execute(ctx, func(cbCtx context.Context) error {
		return resilience.Do(cbCtx, retryCfg, fn)
	})
}

// runJSON invokes command with request marshaled to stdin and unmarshals
// exactly one JSON document from stdout into out.
func runJSON(ctx context.Context, command []string, request any, out any) error {
	if len(command) == 0 {
		return eris.New("fetcher: empty command")
	}

	reqBuf, err := json.Marshal(request)
	if err != nil {
		return eris.Wrap(err, "fetcher: marshal request")
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Stdin = bytes.NewReader(reqBuf)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return eris.Wrapf(err, "fetcher: %s failed: %s", command[0], stderr.String())
	}

	if err := json.Unmarshal(stdout.Bytes(), out); err != nil {
		return eris.Wrap(err, "fetcher: decode response")
	}
	return nil
}
