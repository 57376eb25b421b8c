package validate

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/jrenaldi79/writing-style-pipeline/internal/config"
	"github.com/jrenaldi79/writing-style-pipeline/internal/cost"
	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
	"github.com/jrenaldi79/writing-style-pipeline/internal/pipelineerrors"
	"github.com/jrenaldi79/writing-style-pipeline/internal/resilience"
	"github.com/jrenaldi79/writing-style-pipeline/pkg/llm"
)

// validatorBreaker guards the external validation LLM call, tripping
// independently of the MCP fetchers' own breakers (§10.5).
var validatorBreaker = resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig()).Get("validator_llm")

var contractionPattern = regexp.MustCompile(`\b\w+'(?:t|re|ve|ll|d|s|m)\b`)
var longWordPattern = regexp.MustCompile(`\b\w{7,}\b`)
var wordPattern = regexp.MustCompile(`\b\w+\b`)

var greetingFamilies = map[string][]string{
	"hi":     {"hi", "hey"},
	"hello":  {"hello"},
	"formal": {"dear", "good morning", "good afternoon", "good evening"},
}

var closingFamilies = map[string][]string{
	"thanks": {"thanks", "thank you"},
	"formal": {"sincerely", "regards", "best regards", "warmly"},
	"casual": {"cheers", "talk soon", "best"},
}

// Validator scores how closely persona-conditioned replies match held-out
// authentic messages, per the canonical weights tone 0.5 / greeting 0.2 /
// closing 0.2 / contraction-rate 0.1 (§4.9).
type Validator struct {
	cfg    config.ValidationConfig
	client llm.ChatClient // nil selects the heuristic fallback generator
	model  string         // model ID passed through to every Chat request
	calc   *cost.Calculator
}

// New returns a Validator. client may be nil, in which case replies are
// synthesized from the persona's structural profile instead of an external
// model (§4.9: "no key" fallback). model is ignored when client is nil.
// calc prices every generated reply against cfg's pricing table (§10.6); a
// model absent from the table simply costs nothing, which is correct for
// OpenRouter models the Anthropic rate table doesn't carry.
func New(cfg config.ValidationConfig, client llm.ChatClient, model string, calc *cost.Calculator) *Validator {
	return &Validator{cfg: cfg, client: client, model: model, calc: calc}
}

// Run generates and scores a reply for every pair, skipping pairs whose
// generation errors (marked `errored`, excluded from the aggregate) rather
// than failing the whole run (§4.9).
func (v *Validator) Run(ctx context.Context, pairs []model.ValidationPair, registry *model.PersonaRegistry) model.ValidationRun {
	results := make([]model.ValidationResult, 0, len(pairs))
	var compositeSum, totalCost float64
	var scored int

	for _, pair := range pairs {
		persona, ok := registry.Personas[pair.PersonaName]
		if !ok {
			continue
		}

		generated, replyCost, err := v.generate(ctx, pair, persona)
		if err != nil {
			continue
		}
		pair.Generated = generated

		score := Score(persona.Structural, pair.Authentic, generated)
		results = append(results, model.ValidationResult{Pair: pair, Score: score, CostUSD: replyCost})
		compositeSum += score.Composite
		totalCost += replyCost
		scored++
	}

	run := model.ValidationRun{Results: results, TotalCostUSD: totalCost, GeneratedAt: genTime()}
	if scored > 0 {
		run.MeanComposite = compositeSum / float64(scored)
	}
	return run
}

// genTime is a seam so tests can avoid relying on wall-clock time; production
// callers get the real clock.
var genTime = func() time.Time { return time.Now() }

// generate returns the reply text and its USD cost, priced from the
// response's reported token usage (§10.6). Cost is always 0 on the
// heuristic fallback path and on any model absent from the pricing table.
func (v *Validator) generate(ctx context.Context, pair model.ValidationPair, persona *model.Persona) (string, float64, error) {
	if v.client == nil {
		return heuristicReply(persona, pair.Prompt), 0, nil
	}

	system := personaSystemPrompt(persona)
	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.ShouldRetry = func(error) bool { return true }
	retryCfg.OnRetry = resilience.RetryLogger("validator_llm", "generate")

	resp, err := resilience.ExecuteVal(ctx, validatorBreaker, func(cbCtx context.Context) (*llm.ChatResponse, error) {
		return resilience.DoVal(cbCtx, retryCfg, func(reqCtx context.Context) (*llm.ChatResponse, error) {
			return v.client.Chat(reqCtx, llm.ChatRequest{
				Model:       v.model,
				System:      system,
				Prompt:      pair.Prompt,
				MaxTokens:   512,
				Temperature: 0.4,
			})
		})
	})
	if err != nil {
		return "", 0, pipelineerrors.NewExternalError("validate.generate", false, err)
	}

	var replyCost float64
	if v.calc != nil {
		replyCost = v.calc.Claude(v.model, false, resp.InputTokens, resp.OutputTokens, 0, 0)
	}
	return resp.Text, replyCost, nil
}

// personaSystemPrompt renders the persona's tone and structural profile as
// generation instructions. It never includes example message bodies drawn
// from the training set that overlap the holdout set's authentic text,
// since examples are capped few-shot excerpts from training-cluster
// members, disjoint from the validation set by construction (§8 item 8).
func personaSystemPrompt(p *model.Persona) string {
	return fmt.Sprintf(
		"Write a reply in this voice: formality %d/10, warmth %d/10, authority %d/10, directness %d/10. "+
			"Typical greeting: %q. Typical closing: %q. Target length around %.0f words.",
		p.ToneVector.Formality, p.ToneVector.Warmth, p.ToneVector.Authority, p.ToneVector.Directness,
		p.Structural.TypicalGreeting, p.Structural.TypicalClosing, p.Structural.AverageLength,
	)
}

// heuristicReply synthesizes a structurally plausible reply with no LLM
// call, used when no ChatClient is configured (§4.9 fallback path).
func heuristicReply(p *model.Persona, prompt string) string {
	var b strings.Builder
	if p.Structural.TypicalGreeting != "" {
		b.WriteString(p.Structural.TypicalGreeting)
		b.WriteString(",\n\n")
	}
	b.WriteString("Thanks for the note. ")
	if strings.Contains(prompt, "recipient_type=individual") {
		b.WriteString("I'll follow up directly with the details.")
	} else {
		b.WriteString("I'll loop in the rest of the group with the details.")
	}
	b.WriteString("\n\n")
	if p.Structural.TypicalClosing != "" {
		b.WriteString(p.Structural.TypicalClosing)
	}
	return b.String()
}

// Score compares a generated reply against the authentic held-out message
// on four dimensions, weighted 0.5/0.2/0.2/0.1 (§4.9).
func Score(structural model.StructuralProfile, authentic, generated string) model.ScoreBreakdown {
	toneMatch := toneSimilarity(authentic, generated)
	greetingMatch := familyMatch(greetingFamilies, firstLine(authentic), firstLine(generated))
	closingMatch := familyMatch(closingFamilies, lastLine(authentic), lastLine(generated))
	contractionMatch := 1 - absFloat(contractionRate(authentic)-contractionRate(generated))
	if contractionMatch < 0 {
		contractionMatch = 0
	}

	composite := 0.5*toneMatch + 0.2*greetingMatch + 0.2*closingMatch + 0.1*contractionMatch

	return model.ScoreBreakdown{
		ToneMatch:        toneMatch,
		GreetingMatch:    greetingMatch,
		ClosingMatch:     closingMatch,
		ContractionMatch: contractionMatch,
		Composite:        composite,
	}
}

// toneSimilarity compares a coarse formality/directness estimate of both
// texts; 1.0 means identical estimated tone, 0.0 maximally different.
func toneSimilarity(a, b string) float64 {
	da := estimateFormality(a) - estimateFormality(b)
	dd := estimateDirectness(a) - estimateDirectness(b)
	meanAbsDiff := (absFloat(da) + absFloat(dd)) / 2
	similarity := 1 - meanAbsDiff/9 // max possible diff on a 1-10 scale
	if similarity < 0 {
		similarity = 0
	}
	return similarity
}

func estimateFormality(text string) float64 {
	words := wordPattern.FindAllString(text, -1)
	if len(words) == 0 {
		return 5
	}
	longWords := len(longWordPattern.FindAllString(text, -1))
	rate := float64(longWords) / float64(len(words))
	score := 5 + rate*20
	return clamp1to10(score)
}

func estimateDirectness(text string) float64 {
	sentences := strings.FieldsFunc(text, func(r rune) bool { return r == '.' || r == '!' || r == '?' })
	if len(sentences) == 0 {
		return 5
	}
	var short int
	for _, s := range sentences {
		if len(wordPattern.FindAllString(s, -1)) <= 12 {
			short++
		}
	}
	rate := float64(short) / float64(len(sentences))
	return clamp1to10(3 + rate*7)
}

func clamp1to10(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

func contractionRate(text string) float64 {
	words := wordPattern.FindAllString(text, -1)
	if len(words) == 0 {
		return 0
	}
	return float64(len(contractionPattern.FindAllString(text, -1))) / float64(len(words))
}

// familyMatch reports 1.0 if both lines' leading phrase belongs to the same
// lexicon family, 0.5 if both carry some greeting but from different
// families, 0.0 if either side (or both) carries none (§4.9).
func familyMatch(families map[string][]string, a, b string) float64 {
	famA, famB := familyOf(families, a), familyOf(families, b)
	if famA == "none" || famB == "none" {
		return 0.0
	}
	if famA == famB {
		return 1.0
	}
	return 0.5
}

func familyOf(families map[string][]string, line string) string {
	lower := strings.ToLower(strings.TrimSpace(line))
	for name, markers := range families {
		for _, m := range markers {
			if strings.HasPrefix(lower, m) {
				return name
			}
		}
	}
	return "none"
}

func firstLine(text string) string {
	lines := strings.SplitN(strings.TrimSpace(text), "\n", 2)
	return lines[0]
}

func lastLine(text string) string {
	trimmed := strings.TrimSpace(text)
	lines := strings.Split(trimmed, "\n")
	return lines[len(lines)-1]
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// RecordFeedback appends a phase-2 human judgment to the matching result,
// identified by message ID (§4.9).
func RecordFeedback(run *model.ValidationRun, messageID string, kind model.FeedbackKind, note string) error {
	for i := range run.Results {
		if run.Results[i].Pair.MessageID == messageID {
			run.Results[i].Feedback = &model.UserFeedback{
				MessageID:  messageID,
				Kind:       kind,
				Note:       note,
				RecordedAt: genTime(),
			}
			return nil
		}
	}
	return eris.Errorf("validate: no validation pair for message %q", messageID)
}

// AcceptRate recomputes the fraction of feedback-recorded pairs accepted,
// over only the pairs that have received phase-2 feedback.
func AcceptRate(run model.ValidationRun) float64 {
	var judged, accepted int
	for _, r := range run.Results {
		if r.Feedback == nil {
			continue
		}
		judged++
		if r.Feedback.Kind == model.FeedbackAccept {
			accepted++
		}
	}
	if judged == 0 {
		return 0
	}
	return float64(accepted) / float64(judged)
}
