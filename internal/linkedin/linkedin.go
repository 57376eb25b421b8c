// Package linkedin implements the LinkedInUnifier stage: a single,
// log-weighted brand-voice persona built from a user's posts (§4.8).
package linkedin

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/jrenaldi79/writing-style-pipeline/internal/config"
	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
)

const minOriginalChars = 200
const editorialCommentaryThreshold = 50

var contractionPattern = regexp.MustCompile(`\b\w+'\w+\b`)
var hashtagPattern = regexp.MustCompile(`#\w+`)
var sentenceSplit = regexp.MustCompile(`[.!?]+\s*`)
var gratitudeLexicon = []string{"thank", "thanks", "grateful", "appreciate"}
var hedgeLexicon = []string{"maybe", "perhaps", "might", "could be", "i think", "possibly"}

// Unifier builds a LinkedInPersona from raw posts.
type Unifier struct {
	cfg config.LinkedInConfig
}

// New returns a Unifier configured per cfg.
func New(cfg config.LinkedInConfig) *Unifier {
	return &Unifier{cfg: cfg}
}

// postView is a post plus its derived per-post signal, computed once and
// reused across every weighted aggregate.
type postView struct {
	post       model.RawLinkedInPost
	weight     float64
	tone       model.ToneVector
	isEditorial bool
}

// Unify filters and aggregates posts into a single LinkedInPersona (§4.8).
func (u *Unifier) Unify(posts []model.RawLinkedInPost) model.LinkedInPersona {
	filtered := filterPosts(posts)

	views := make([]postView, 0, len(filtered))
	var editorialViews []postView
	for _, p := range filtered {
		text := p.Text
		isEditorial := p.IsRepost && len(strings.TrimSpace(p.Text)) >= editorialCommentaryThreshold
		v := postView{
			post:        p,
			weight:      engagementWeight(p.Engagement),
			tone:        toneOfText(text),
			isEditorial: isEditorial,
		}
		if p.IsRepost && !isEditorial {
			continue // repost with no original commentary contributes nothing
		}
		if isEditorial {
			editorialViews = append(editorialViews, v)
		}
		views = append(views, v)
	}

	persona := model.LinkedInPersona{SchemaVersion: model.PersonaSchemaVersion, SampleSize: len(filtered)}

	// views already excludes reposts without significant original
	// commentary (§4.8, Repost handling): only ordinary posts and reposts
	// carrying >=50 chars of commentary reach the primary aggregates.
	persona.ToneVector = weightedMeanTone(views)
	persona.Linguistic = linguisticPatterns(views)
	persona.Platform = platformRules(views)
	persona.Length = lengthStats(views)
	persona.Examples = exampleBank(filtered, u.positiveExampleCount())
	persona.Editorial = editorialVoice(editorialViews)
	persona.Confidence = confidence(len(filtered))

	return persona
}

func (u *Unifier) positiveExampleCount() int {
	if u.cfg.PositiveExampleCount > 0 {
		return u.cfg.PositiveExampleCount
	}
	return 3
}

// filterPosts drops short-original-text and duplicate-URL posts (§4.8).
func filterPosts(posts []model.RawLinkedInPost) []model.RawLinkedInPost {
	seen := map[string]bool{}
	var out []model.RawLinkedInPost
	for _, p := range posts {
		original := p.Text
		if p.IsRepost {
			original = p.OriginalText
		}
		if len(strings.TrimSpace(original)) < minOriginalChars {
			continue
		}
		if p.URL != "" {
			if seen[p.URL] {
				continue
			}
			seen[p.URL] = true
		}
		out = append(out, p)
	}
	return out
}

// engagementWeight computes w = 1 + log(1 + likes + 2*comments) (§4.8).
func engagementWeight(e model.LinkedInEngagement) float64 {
	return 1 + math.Log(1+float64(e.Likes)+2*float64(e.Comments))
}

// toneOfText applies deterministic heuristics per dimension (§4.8).
func toneOfText(text string) model.ToneVector {
	return model.ToneVector{
		Formality:  formalityScore(text),
		Warmth:     warmthScore(text),
		Authority:  authorityScore(text),
		Directness: directnessScore(text),
	}
}

func formalityScore(text string) int {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 5
	}
	contractions := len(contractionPattern.FindAllString(text, -1))
	contractionRate := float64(contractions) / float64(len(words))

	longWords := 0
	for _, w := range words {
		if len(w) >= 8 {
			longWords++
		}
	}
	longWordRate := float64(longWords) / float64(len(words))

	score := 5 + (longWordRate-contractionRate)*20
	return clamp1to10(score)
}

func warmthScore(text string) int {
	lower := strings.ToLower(text)
	words := strings.Fields(text)
	if len(words) == 0 {
		return 5
	}
	secondPerson := strings.Count(lower, " you ") + strings.Count(lower, " your ")
	gratitude := 0
	for _, g := range gratitudeLexicon {
		gratitude += strings.Count(lower, g)
	}
	exclamations := strings.Count(text, "!")

	score := 5 + float64(secondPerson)*0.5 + float64(gratitude)*1.2 + float64(exclamations)*0.5
	return clamp1to10(score)
}

func authorityScore(text string) int {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return 5
	}
	lower := strings.ToLower(text)
	hedges := 0
	for _, h := range hedgeLexicon {
		hedges += strings.Count(lower, h)
	}
	declarative := 0
	for _, s := range sentences {
		if !strings.HasSuffix(strings.TrimSpace(s), "?") {
			declarative++
		}
	}
	declarativeRatio := float64(declarative) / float64(len(sentences))
	hedgeRate := float64(hedges) / float64(len(sentences))

	score := 5 + (declarativeRatio-0.5)*6 - hedgeRate*4
	return clamp1to10(score)
}

func directnessScore(text string) int {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return 5
	}
	short := 0
	for _, s := range sentences {
		if len(strings.Fields(s)) <= 8 {
			short++
		}
	}
	shortRatio := float64(short) / float64(len(sentences))

	imperative := 0
	for _, s := range sentences {
		fields := strings.Fields(s)
		if len(fields) > 0 && isImperativeVerb(fields[0]) {
			imperative++
		}
	}
	imperativeRate := float64(imperative) / float64(len(sentences))

	score := 5 + shortRatio*4 + imperativeRate*3
	return clamp1to10(score)
}

var imperativeVerbs = map[string]bool{
	"do": true, "go": true, "start": true, "stop": true, "try": true, "build": true,
	"push": true, "send": true, "focus": true, "remember": true, "consider": true,
}

func isImperativeVerb(word string) bool {
	return imperativeVerbs[strings.ToLower(strings.TrimFunc(word, func(r rune) bool { return !isLetter(r) }))]
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func splitSentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	var out []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func clamp1to10(f float64) int {
	v := int(math.Round(f))
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

// weightedMeanTone computes the engagement-weighted mean tone vector.
func weightedMeanTone(views []postView) model.ToneVector {
	var totalWeight float64
	var formality, warmth, authority, directness float64
	for _, v := range views {
		totalWeight += v.weight
		formality += v.weight * float64(v.tone.Formality)
		warmth += v.weight * float64(v.tone.Warmth)
		authority += v.weight * float64(v.tone.Authority)
		directness += v.weight * float64(v.tone.Directness)
	}
	if totalWeight == 0 {
		return model.ToneVector{Formality: 5, Warmth: 5, Authority: 5, Directness: 5}
	}
	tv := model.ToneVector{
		Formality:  int(math.Round(formality / totalWeight)),
		Warmth:     int(math.Round(warmth / totalWeight)),
		Authority:  int(math.Round(authority / totalWeight)),
		Directness: int(math.Round(directness / totalWeight)),
	}
	tv.Clamp()
	return tv
}

func linguisticPatterns(views []postView) model.LinguisticPatterns {
	var totalWeight float64
	var avgLen, shortRatio, question, exclaim, emoji float64
	for _, v := range views {
		text := v.post.Text
		sentences := splitSentences(text)
		n := float64(len(sentences))
		if n == 0 {
			n = 1
		}
		var lens float64
		var short float64
		for _, s := range sentences {
			words := len(strings.Fields(s))
			lens += float64(words)
			if words <= 8 {
				short++
			}
		}
		avgLen += v.weight * (lens / n)
		shortRatio += v.weight * (short / n)
		if strings.Contains(text, "?") {
			question += v.weight
		}
		if strings.Contains(text, "!") {
			exclaim += v.weight
		}
		emoji += v.weight * float64(countEmoji(text))
		totalWeight += v.weight
	}
	if totalWeight == 0 {
		return model.LinguisticPatterns{}
	}
	return model.LinguisticPatterns{
		AverageSentenceLength: avgLen / totalWeight,
		ShortSentenceRatio:    shortRatio / totalWeight,
		EmojiPerPostMin:       0,
		EmojiPerPostMax:       emoji / totalWeight * 2,
		QuestionRate:          question / totalWeight,
		ExclamationRate:       exclaim / totalWeight,
	}
}

func countEmoji(text string) int {
	count := 0
	for _, r := range text {
		if r >= 0x1F300 && r <= 0x1FAFF {
			count++
		}
	}
	return count
}

func platformRules(views []postView) model.PlatformRules {
	var totalWeight float64
	var hashtagWeight float64
	minCount, maxCount := -1, 0
	hookCounts := map[model.HookStyle]float64{}
	closingCounts := map[string]float64{}
	var inlineWeight, trailingWeight float64

	for _, v := range views {
		text := v.post.Text
		hashtags := hashtagPattern.FindAllStringIndex(text, -1)
		count := len(hashtags)
		if count > 0 {
			hashtagWeight += v.weight
		}
		if minCount == -1 || count < minCount {
			minCount = count
		}
		if count > maxCount {
			maxCount = count
		}
		if count > 0 {
			lastIdx := hashtags[len(hashtags)-1][0]
			if lastIdx > len(text)-40 {
				trailingWeight += v.weight
			} else {
				inlineWeight += v.weight
			}
		}

		hookCounts[hookStyleOf(text)] += v.weight
		closingCounts[closingStyleOf(text)] += v.weight
		totalWeight += v.weight
	}

	if minCount == -1 {
		minCount = 0
	}
	placement := model.HashtagNone
	if inlineWeight > 0 || trailingWeight > 0 {
		if inlineWeight >= trailingWeight {
			placement = model.HashtagInline
		} else {
			placement = model.HashtagTrailing
		}
	}

	dominant := model.HookObservation
	best := -1.0
	for style, w := range hookCounts {
		if w > best {
			best, dominant = w, style
		}
	}

	normalize := func(m map[string]float64) {
		if totalWeight == 0 {
			return
		}
		for k := range m {
			m[k] /= totalWeight
		}
	}
	hookDist := map[model.HookStyle]float64{}
	for k, v := range hookCounts {
		if totalWeight > 0 {
			hookDist[k] = v / totalWeight
		}
	}
	normalize(closingCounts)

	freq := 0.0
	if totalWeight > 0 {
		freq = hashtagWeight / totalWeight
	}

	return model.PlatformRules{
		HashtagFrequency:  freq,
		HashtagCountMin:   minCount,
		HashtagCountMax:   maxCount,
		HashtagPlacement:  placement,
		HookStyleDist:     hookDist,
		DominantHookStyle: dominant,
		ClosingStyleDist:  closingCounts,
	}
}

func hookStyleOf(text string) model.HookStyle {
	trimmed := strings.TrimSpace(text)
	first := firstSentence(trimmed)
	if strings.HasSuffix(first, "?") {
		return model.HookQuestion
	}
	lower := strings.ToLower(first)
	fields := strings.Fields(lower)
	if len(fields) > 0 && isImperativeVerb(fields[0]) {
		return model.HookCallToAction
	}
	return model.HookObservation
}

func firstSentence(text string) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return text
	}
	return sentences[0]
}

func closingStyleOf(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 0 {
		return "none"
	}
	last := strings.ToLower(strings.TrimSpace(lines[len(lines)-1]))
	switch {
	case strings.Contains(last, "?"):
		return "question"
	case strings.Contains(last, "thoughts") || strings.Contains(last, "agree") || strings.Contains(last, "comment"):
		return "engagement_prompt"
	default:
		return "statement"
	}
}

func lengthStats(views []postView) model.LengthStats {
	if len(views) == 0 {
		return model.LengthStats{}
	}
	type weighted struct {
		length int
		weight float64
	}
	entries := make([]weighted, len(views))
	var totalWeight float64
	for i, v := range views {
		entries[i] = weighted{length: len([]rune(v.post.Text)), weight: v.weight}
		totalWeight += v.weight
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].length < entries[j].length })

	percentile := func(p float64) int {
		target := p * totalWeight
		var cum float64
		for _, e := range entries {
			cum += e.weight
			if cum >= target {
				return e.length
			}
		}
		return entries[len(entries)-1].length
	}

	return model.LengthStats{
		TargetChars: percentile(0.5),
		MinChars:    percentile(0.10),
		MaxChars:    percentile(0.90),
	}
}

// exampleBank keeps the top posts by engagement, ties broken by length,
// capped at n (§4.8).
func exampleBank(posts []model.RawLinkedInPost, n int) []model.PositiveExample {
	sorted := append([]model.RawLinkedInPost{}, posts...)
	sort.Slice(sorted, func(i, j int) bool {
		wi := engagementWeight(sorted[i].Engagement)
		wj := engagementWeight(sorted[j].Engagement)
		if wi != wj {
			return wi > wj
		}
		return len(sorted[i].Text) > len(sorted[j].Text)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]model.PositiveExample, len(sorted))
	for i, p := range sorted {
		out[i] = model.PositiveExample{PostID: p.ID, Text: p.Text, Engagement: p.Engagement}
	}
	return out
}

// editorialVoice aggregates repost commentary into a sub-record, nil if
// there is none (§4.8, Repost handling).
func editorialVoice(views []postView) *model.EditorialVoice {
	if len(views) == 0 {
		return nil
	}
	tone := weightedMeanTone(views)
	return &model.EditorialVoice{SampleCount: len(views), ToneVector: tone}
}

// confidence implements sample_size_factor = min(1, n/20) * quality_factor
// (§4.8).
func confidence(n int) float64 {
	sizeFactor := math.Min(1, float64(n)/20)
	var qualityFactor float64
	switch {
	case n < 5:
		qualityFactor = 0.3
	case n < 10:
		qualityFactor = 0.5
	case n < 15:
		qualityFactor = 0.7
	default:
		qualityFactor = 1.0
	}
	return sizeFactor * qualityFactor
}
