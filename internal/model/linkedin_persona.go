package model

// HashtagPolicy describes typical hashtag placement (§4.8).
type HashtagPolicy string

const (
	HashtagInline HashtagPolicy = "inline"
	HashtagTrailing HashtagPolicy = "trailing"
	HashtagNone     HashtagPolicy = "none"
)

// HookStyle categorizes how a post opens (§4.8).
type HookStyle string

const (
	HookObservation   HookStyle = "observation"
	HookQuestion      HookStyle = "question"
	HookCallToAction  HookStyle = "call_to_action"
)

// LengthStats holds weighted-percentile character-length statistics.
type LengthStats struct {
	TargetChars int `json:"target_chars"`
	MinChars    int `json:"min_chars"`
	MaxChars    int `json:"max_chars"`
}

// LinguisticPatterns are platform-specific structural statistics (§4.8).
type LinguisticPatterns struct {
	AverageSentenceLength float64 `json:"average_sentence_length"`
	ShortSentenceRatio    float64 `json:"short_sentence_ratio"`
	EmojiPerPostMin       float64 `json:"emoji_per_post_min"`
	EmojiPerPostMax       float64 `json:"emoji_per_post_max"`
	QuestionRate          float64 `json:"question_rate"`
	ExclamationRate       float64 `json:"exclamation_rate"`
}

// PlatformRules capture LinkedIn-specific stylistic conventions.
type PlatformRules struct {
	HashtagFrequency   float64          `json:"hashtag_frequency"`
	HashtagCountMin    int              `json:"hashtag_count_min"`
	HashtagCountMax    int              `json:"hashtag_count_max"`
	HashtagPlacement   HashtagPolicy    `json:"hashtag_placement"`
	HookStyleDist      map[HookStyle]float64 `json:"hook_style_distribution"`
	DominantHookStyle  HookStyle        `json:"dominant_hook_style"`
	ClosingStyleDist   map[string]float64 `json:"closing_style_distribution"`
}

// PositiveExample is a retained high-engagement post used as an exemplar.
type PositiveExample struct {
	PostID     string `json:"post_id"`
	Text       string `json:"text"`
	Engagement LinkedInEngagement `json:"engagement"`
}

// EditorialVoice captures the sub-record contributed by reposts carrying
// significant original commentary (§4.8, Repost handling).
type EditorialVoice struct {
	SampleCount int     `json:"sample_count"`
	ToneVector  ToneVector `json:"tone_vector"`
}

// LinkedInPersona is the single, unified professional-voice persona (§3).
type LinkedInPersona struct {
	ToneVector         ToneVector          `json:"tone_vector"`
	Structural         StructuralProfile   `json:"structural"`
	Linguistic         LinguisticPatterns  `json:"linguistic"`
	Platform           PlatformRules       `json:"platform"`
	Length             LengthStats         `json:"length"`
	Examples           []PositiveExample   `json:"examples"`
	Editorial          *EditorialVoice     `json:"editorial,omitempty"`

	Guardrails         []string `json:"guardrails"`
	OffLimitsTopics    []string `json:"off_limits_topics"`
	SignaturePhrases   []string `json:"signature_phrases"`
	WhatMakesItWork    []string `json:"what_makes_it_work"`

	Confidence  float64 `json:"confidence"`
	SampleSize  int     `json:"sample_size"`
	SchemaVersion int   `json:"schema_version"`
}
