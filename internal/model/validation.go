package model

import "time"

// ValidationPair holds a held-out message and the reply synthesized from its
// persona, scored against the authentic original (§3, §4.9).
type ValidationPair struct {
	MessageID   string  `json:"message_id"`
	PersonaName string  `json:"persona_name"`
	ClusterID   int      `json:"cluster_id"`
	Prompt      string   `json:"prompt"`
	Authentic   string   `json:"authentic"`
	Generated   string   `json:"generated"`
}

// ScoreBreakdown is the four-dimension composite score, canonical weights
// 0.5 tone / 0.2 greeting / 0.2 closing / 0.1 contraction-rate (§4.9).
type ScoreBreakdown struct {
	ToneMatch        float64 `json:"tone_match"`
	GreetingMatch    float64 `json:"greeting_match"`
	ClosingMatch     float64 `json:"closing_match"`
	ContractionMatch float64 `json:"contraction_match"`
	Composite        float64 `json:"composite"`
}

// FeedbackKind distinguishes binary acceptance from a softer editorial note
// (SPEC_FULL §12, SUPPLEMENT: suggestions-as-distinct-feedback-kind).
type FeedbackKind string

const (
	FeedbackAccept     FeedbackKind = "accept"
	FeedbackReject     FeedbackKind = "reject"
	FeedbackSuggestion FeedbackKind = "suggestion"
)

// UserFeedback is one human-in-the-loop judgment recorded during phase 2 of
// validation (§4.9).
type UserFeedback struct {
	MessageID string       `json:"message_id"`
	Kind      FeedbackKind `json:"kind"`
	Note      string       `json:"note,omitempty"`
	RecordedAt time.Time   `json:"recorded_at"`
}

// ValidationResult is one scored validation pair plus any recorded feedback.
type ValidationResult struct {
	Pair     ValidationPair  `json:"pair"`
	Score    ScoreBreakdown  `json:"score"`
	CostUSD  float64         `json:"cost_usd,omitempty"`
	Feedback *UserFeedback   `json:"feedback,omitempty"`
}

// ValidationRun is the complete, overwrite-on-rerun output of a validation
// pass across every held-out message (§3, §4.9).
type ValidationRun struct {
	Results       []ValidationResult `json:"results"`
	MeanComposite float64            `json:"mean_composite"`
	AcceptRate    float64            `json:"accept_rate"`
	TotalCostUSD  float64            `json:"total_cost_usd,omitempty"`
	GeneratedAt   time.Time          `json:"generated_at"`
}

// ValidationReport summarizes one validation run for `validate run`'s
// console output and for --status to read back without re-scanning the full
// result set (§4.9, §6).
type ValidationReport struct {
	HoldoutCount    int     `json:"holdout_count"`
	PairCount       int     `json:"pair_count"`
	Coverage        float64 `json:"coverage"`
	MeanComposite   float64 `json:"mean_composite"`
	AcceptThreshold float64 `json:"accept_threshold"`
	TotalCostUSD    float64 `json:"total_cost_usd,omitempty"`
}

// Suggestions returns every recorded suggestion-kind note, distinct from the
// binary accept/reject tally.
func (r ValidationRun) Suggestions() []UserFeedback {
	var out []UserFeedback
	for _, res := range r.Results {
		if res.Feedback != nil && res.Feedback.Kind == FeedbackSuggestion {
			out = append(out, *res.Feedback)
		}
	}
	return out
}
