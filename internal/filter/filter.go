// Package filter implements the EmailFilter stage: a deterministic,
// no-external-calls quality gate over raw messages (§4.2).
package filter

import (
	"strings"
	"unicode"

	"github.com/jrenaldi79/writing-style-pipeline/internal/config"
	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
)

// Rejection reason codes (§4.2, E1).
const (
	ReasonAutoReply    = "auto_reply"
	ReasonForward      = "forward"
	ReasonBroadcast    = "broadcast"
	ReasonTooShort     = "too_short"
	ReasonWrongSender  = "wrong_sender"
	ReasonLowQuality   = "low_quality"
)

var quoteMarkers = []string{">", "On ", "-----Original Message-----", "wrote:"}
var forwardMarkers = []string{"fwd:", "fw:", "forwarded message"}

// Filter evaluates raw messages against the configured thresholds.
type Filter struct {
	cfg        config.FilterConfig
	ownAddress string
}

// New returns a Filter that only accepts messages authored by ownAddress.
func New(cfg config.FilterConfig, ownAddress string) *Filter {
	return &Filter{cfg: cfg, ownAddress: strings.ToLower(ownAddress)}
}

// Evaluate classifies one raw message, deterministically (§4.2, §8 item 1).
func (f *Filter) Evaluate(msg model.RawMessage) model.FilteredMessage {
	result := model.FilteredMessage{Message: msg}

	if msg.Platform != model.PlatformEmail || msg.Email == nil {
		// Only emails pass through the quality gate; LinkedIn posts have
		// their own filtering in the LinkedInUnifier (§4.8).
		result.Accepted = true
		return result
	}
	email := msg.Email

	if f.ownAddress != "" && !strings.EqualFold(email.Sender, f.ownAddress) {
		result.RejectionReason = ReasonWrongSender
		return result
	}
	if email.Headers.AutoReply {
		result.RejectionReason = ReasonAutoReply
		return result
	}
	if hasForwardMarker(email.Subject) || hasForwardMarker(firstLine(email.Body)) {
		result.RejectionReason = ReasonForward
		return result
	}

	recipientCount := len(email.To) + len(email.CC) + len(email.BCC)
	if recipientCount > f.cfg.BroadcastThreshold {
		result.RejectionReason = ReasonBroadcast
		return result
	}

	body := stripQuotedLines(email.Body)
	words := wordsOf(body)
	minWords := f.cfg.MinWordCount
	if minWords <= 0 {
		minWords = 20
	}
	if len(words) < minWords {
		result.RejectionReason = ReasonTooShort
		return result
	}

	result.LengthScore = lengthScore(len(words))
	result.OriginalityScore = originalityScore(email.Body)
	result.VocabularyScore = vocabularyScore(words)

	lw, ow, vw := f.cfg.LengthWeight, f.cfg.OriginalityWeight, f.cfg.VocabularyWeight
	if lw == 0 && ow == 0 && vw == 0 {
		lw, ow, vw = 0.3, 0.4, 0.3
	}
	result.QualityScore = lw*result.LengthScore + ow*result.OriginalityScore + vw*result.VocabularyScore

	threshold := f.cfg.QualityThreshold
	if threshold <= 0 {
		threshold = 0.35
	}
	if result.QualityScore < threshold {
		result.RejectionReason = ReasonLowQuality
		return result
	}

	result.Accepted = true
	return result
}

// lengthScore ramps linearly from 0 at <=20 words to 1 at >=60 words (§4.2).
func lengthScore(wordCount int) float64 {
	const lo, hi = 20.0, 60.0
	if wordCount <= lo {
		return 0
	}
	if wordCount >= hi {
		return 1
	}
	return (float64(wordCount) - lo) / (hi - lo)
}

// originalityScore is 1 - quoted_ratio, the fraction of body lines that
// begin with a quote marker or are otherwise recognised as quoted content.
func originalityScore(body string) float64 {
	lines := strings.Split(body, "\n")
	nonEmpty := 0
	quoted := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		nonEmpty++
		if isQuotedLine(trimmed) {
			quoted++
		}
	}
	if nonEmpty == 0 {
		return 0
	}
	ratio := float64(quoted) / float64(nonEmpty)
	score := 1 - ratio
	if score < 0 {
		score = 0
	}
	return score
}

// vocabularyScore is the type-token ratio over the non-quoted body, floored
// at 0.
func vocabularyScore(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[strings.ToLower(w)] = struct{}{}
	}
	score := float64(len(seen)) / float64(len(words))
	if score < 0 {
		score = 0
	}
	return score
}

func isQuotedLine(line string) bool {
	for _, marker := range quoteMarkers {
		if strings.HasPrefix(line, marker) || strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

func stripQuotedLines(body string) string {
	lines := strings.Split(body, "\n")
	var kept []string
	for _, line := range lines {
		if isQuotedLine(strings.TrimSpace(line)) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func hasForwardMarker(s string) bool {
	lower := strings.ToLower(s)
	for _, marker := range forwardMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func wordsOf(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}
