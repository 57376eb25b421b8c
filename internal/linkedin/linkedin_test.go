package linkedin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrenaldi79/writing-style-pipeline/internal/config"
	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
)

func longText(words int) string {
	out := make([]string, words)
	for i := range out {
		out[i] = "word"
	}
	return strings.Join(out, " ")
}

func postWithLikes(id string, likes int) model.RawLinkedInPost {
	return model.RawLinkedInPost{
		ID: id, URL: "https://linkedin.com/posts/" + id,
		Text:       longText(60),
		Engagement: model.LinkedInEngagement{Likes: likes},
	}
}

// E5: five posts, likes [10,10,10,10,500]; one post has a much higher
// formality score (9) than the rest (5). Weighted mean must land strictly
// between 5 and 7 thanks to log weighting.
func TestUnify_E5_EngagementWeightingBoundsOutlierInfluence(t *testing.T) {
	u := New(config.LinkedInConfig{})

	// 48 short "word" tokens + 12 long tokens -> longWordRate 0.2 -> raw
	// formality score 9 (5 + 0.2*20), matching the scenario's "score 9".
	formalText := longText(48) + " " + strings.Repeat("extraordinarily ", 12)
	plainText := longText(60)

	posts := []model.RawLinkedInPost{
		{ID: "p1", URL: "u1", Text: plainText, Engagement: model.LinkedInEngagement{Likes: 10}},
		{ID: "p2", URL: "u2", Text: plainText, Engagement: model.LinkedInEngagement{Likes: 10}},
		{ID: "p3", URL: "u3", Text: plainText, Engagement: model.LinkedInEngagement{Likes: 10}},
		{ID: "p4", URL: "u4", Text: plainText, Engagement: model.LinkedInEngagement{Likes: 10}},
		{ID: "p5", URL: "u5", Text: formalText, Engagement: model.LinkedInEngagement{Likes: 500}},
	}

	persona := u.Unify(posts)
	assert.Greater(t, persona.ToneVector.Formality, 5)
	assert.Less(t, persona.ToneVector.Formality, 7)
}

func TestUnify_FiltersShortOriginalText(t *testing.T) {
	u := New(config.LinkedInConfig{})
	posts := []model.RawLinkedInPost{
		{ID: "p1", URL: "u1", Text: "too short"},
		{ID: "p2", URL: "u2", Text: longText(60)},
	}
	persona := u.Unify(posts)
	assert.Equal(t, 1, persona.SampleSize)
}

func TestUnify_FiltersDuplicateURLs(t *testing.T) {
	u := New(config.LinkedInConfig{})
	posts := []model.RawLinkedInPost{
		{ID: "p1", URL: "dup", Text: longText(60)},
		{ID: "p2", URL: "dup", Text: longText(60)},
	}
	persona := u.Unify(posts)
	assert.Equal(t, 1, persona.SampleSize)
}

func TestUnify_RepostWithoutCommentaryContributesNothing(t *testing.T) {
	u := New(config.LinkedInConfig{})
	posts := []model.RawLinkedInPost{
		postWithLikes("p1", 10),
		{ID: "p2", URL: "u2", IsRepost: true, OriginalText: "ok", Text: longText(60)},
	}
	persona := u.Unify(posts)
	assert.Nil(t, persona.Editorial)
}

func TestUnify_RepostWithCommentaryBuildsEditorialVoice(t *testing.T) {
	u := New(config.LinkedInConfig{})
	commentary := longText(60)
	posts := []model.RawLinkedInPost{
		postWithLikes("p1", 10),
		{ID: "p2", URL: "u2", IsRepost: true, OriginalText: commentary, Text: commentary},
	}
	persona := u.Unify(posts)
	require.NotNil(t, persona.Editorial)
	assert.Equal(t, 1, persona.Editorial.SampleCount)
}

func TestUnify_ExampleBankCappedAndOrderedByEngagement(t *testing.T) {
	u := New(config.LinkedInConfig{PositiveExampleCount: 3})
	posts := []model.RawLinkedInPost{
		postWithLikes("p1", 5),
		postWithLikes("p2", 500),
		postWithLikes("p3", 50),
		postWithLikes("p4", 20),
	}
	persona := u.Unify(posts)
	require.Len(t, persona.Examples, 3)
	assert.Equal(t, "p2", persona.Examples[0].PostID)
}

func TestConfidence_HealthHeuristic(t *testing.T) {
	assert.InDelta(t, 0.045, confidence(3), 0.001) // min(1, 3/20) * 0.3
	assert.Equal(t, 1.0, confidence(20))           // min(1, 20/20) * 1.0
}

func TestEngagementWeight_MonotonicInLikes(t *testing.T) {
	low := engagementWeight(model.LinkedInEngagement{Likes: 1})
	high := engagementWeight(model.LinkedInEngagement{Likes: 1000})
	assert.Greater(t, high, low)
}
