package filter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrenaldi79/writing-style-pipeline/internal/config"
	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
)

func defaultCfg() config.FilterConfig {
	return config.FilterConfig{
		MinWordCount:       20,
		QualityThreshold:   0.35,
		LengthWeight:       0.3,
		OriginalityWeight:  0.4,
		VocabularyWeight:   0.3,
		BroadcastThreshold: 20,
	}
}

func emailMessage(body string) model.RawMessage {
	return model.RawMessage{
		Platform: model.PlatformEmail,
		Email: &model.RawEmail{
			ID:        "m1",
			Sender:    "me@example.com",
			To:        []string{"friend@example.com"},
			Subject:   "catching up",
			Body:      body,
			Timestamp: time.Unix(0, 0),
		},
	}
}

func words(n int) string {
	base := []string{"the", "quick", "brown", "fox", "jumps", "over", "lazy", "dog", "while",
		"thinking", "about", "next", "quarter", "strategy", "and", "how", "teams", "should",
		"collaborate", "more", "effectively", "across", "functions", "every", "single", "week"}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = base[i%len(base)]
	}
	return strings.Join(out, " ")
}

// E1: a 19-word non-quoted body is rejected as too_short; 20 words clears
// the length gate and is scored against the quality threshold.
func TestEvaluate_E1_WordCountBoundary(t *testing.T) {
	f := New(defaultCfg(), "me@example.com")

	short := f.Evaluate(emailMessage(words(19)))
	assert.False(t, short.Accepted)
	assert.Equal(t, ReasonTooShort, short.RejectionReason)

	atBoundary := f.Evaluate(emailMessage(words(20)))
	assert.NotEqual(t, ReasonTooShort, atBoundary.RejectionReason)
}

// §8 invariant 1: filtering the same message twice yields identical results.
func TestEvaluate_Deterministic(t *testing.T) {
	f := New(defaultCfg(), "me@example.com")
	msg := emailMessage(words(40))

	first := f.Evaluate(msg)
	second := f.Evaluate(msg)
	assert.Equal(t, first, second)
}

func TestEvaluate_RejectsAutoReply(t *testing.T) {
	f := New(defaultCfg(), "me@example.com")
	msg := emailMessage(words(40))
	msg.Email.Headers.AutoReply = true

	result := f.Evaluate(msg)
	assert.False(t, result.Accepted)
	assert.Equal(t, ReasonAutoReply, result.RejectionReason)
}

func TestEvaluate_RejectsForward(t *testing.T) {
	f := New(defaultCfg(), "me@example.com")
	msg := emailMessage(words(40))
	msg.Email.Subject = "Fwd: quarterly update"

	result := f.Evaluate(msg)
	assert.Equal(t, ReasonForward, result.RejectionReason)
}

func TestEvaluate_RejectsBroadcast(t *testing.T) {
	f := New(defaultCfg(), "me@example.com")
	msg := emailMessage(words(40))
	recipients := make([]string, 25)
	for i := range recipients {
		recipients[i] = "r@example.com"
	}
	msg.Email.To = recipients

	result := f.Evaluate(msg)
	assert.Equal(t, ReasonBroadcast, result.RejectionReason)
}

func TestEvaluate_RejectsWrongSender(t *testing.T) {
	f := New(defaultCfg(), "me@example.com")
	msg := emailMessage(words(40))
	msg.Email.Sender = "someone-else@example.com"

	result := f.Evaluate(msg)
	assert.Equal(t, ReasonWrongSender, result.RejectionReason)
}

func TestEvaluate_StripsQuotedContentBeforeCounting(t *testing.T) {
	f := New(defaultCfg(), "me@example.com")
	body := words(25) + "\n> " + words(40)
	msg := emailMessage(body)

	result := f.Evaluate(msg)
	require.NotEqual(t, ReasonTooShort, result.RejectionReason)
	assert.Greater(t, result.OriginalityScore, 0.0)
}

func TestEvaluate_LinkedInPostsPassThrough(t *testing.T) {
	f := New(defaultCfg(), "me@example.com")
	msg := model.RawMessage{
		Platform: model.PlatformLinkedIn,
		LinkedInPost: &model.RawLinkedInPost{
			ID:   "p1",
			Text: "short",
		},
	}

	result := f.Evaluate(msg)
	assert.True(t, result.Accepted)
}

func TestEvaluate_QualityScoreWithinRange(t *testing.T) {
	f := New(defaultCfg(), "me@example.com")
	result := f.Evaluate(emailMessage(words(80)))
	assert.GreaterOrEqual(t, result.QualityScore, 0.0)
	assert.LessOrEqual(t, result.QualityScore, 1.0)
}
