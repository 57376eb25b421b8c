// Package enrich implements the EmailEnricher stage: deterministic,
// no-external-calls derivation of the Context record attached to every
// accepted message (§4.3).
package enrich

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/jrenaldi79/writing-style-pipeline/internal/config"
	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
)

var greetingPrefixes = []string{"hi", "hello", "hey", "dear", "good morning", "good afternoon", "good evening"}
var closingLexicon = []string{"best", "regards", "thanks", "thank you", "cheers", "sincerely", "talk soon", "warmly"}
var replyMarkers = []string{"re:", "re :"}
var forwardMarkers = []string{"fwd:", "fw:"}

var executiveTitles = []string{"ceo", "cfo", "coo", "cto", "vp", "vice president", "president", "founder", "director", "chief"}
var peerTitles = []string{"manager", "lead", "engineer", "analyst", "associate", "specialist"}
var reportTitles = []string{"intern", "coordinator", "assistant"}

// Enricher computes Context records from FilteredMessage bodies.
type Enricher struct {
	cfg EnrichConfig
}

// EnrichConfig mirrors config.EnrichConfig plus the user's own domain,
// needed to classify internal vs. external addresses.
type EnrichConfig struct {
	SmallGroupMaxRecipients int
	TeamMaxRecipients       int
	InternalDomains         []string
	ExecutiveTitleMarkers   []string
	ReportTitleMarkers      []string
	OwnDomain               string
}

// FromConfig adapts config.EnrichConfig into EnrichConfig, folding in the
// user's own address domain as an implicit internal domain.
func FromConfig(cfg config.EnrichConfig, ownAddress string) EnrichConfig {
	domains := append([]string{}, cfg.InternalDomains...)
	if at := strings.LastIndex(ownAddress, "@"); at >= 0 {
		domains = append(domains, strings.ToLower(ownAddress[at+1:]))
	}
	return EnrichConfig{
		SmallGroupMaxRecipients: cfg.SmallGroupMaxRecipients,
		TeamMaxRecipients:       cfg.TeamMaxRecipients,
		InternalDomains:         domains,
		ExecutiveTitleMarkers:   cfg.ExecutiveTitleMarkers,
		ReportTitleMarkers:      cfg.ReportTitleMarkers,
	}
}

// New returns an Enricher configured per cfg.
func New(cfg EnrichConfig) *Enricher {
	return &Enricher{cfg: cfg}
}

// Enrich derives the Context for an accepted FilteredMessage. Callers are
// expected to only invoke this on accepted messages, but it is defined for
// any platform and never errors: the heuristics are advisory (§4.3).
func (e *Enricher) Enrich(msg model.FilteredMessage) model.EnrichedMessage {
	ctx := model.Context{RecipientSeniority: model.SeniorityUnknown}

	if msg.Message.Platform == model.PlatformEmail && msg.Message.Email != nil {
		email := msg.Message.Email
		ctx.RecipientType = e.recipientType(email)
		ctx.Audience = e.audience(email)
		ctx.ThreadPosition = threadPosition(email)
		ctx.TimeOfDay = timeOfDay(email.Timestamp.Hour())
		ctx.Weekday = isWeekday(email.Timestamp.Weekday())
		ctx.Structural = structuralFeatures(email.Body)
		ctx.RecipientSeniority = e.seniority(email)
	}

	return model.EnrichedMessage{Filtered: msg, Context: ctx}
}

// recipientType classifies by total-recipient count (§4.3, E2).
func (e *Enricher) recipientType(email *model.RawEmail) model.RecipientType {
	total := len(email.To) + len(email.CC)
	smallGroupMax := e.cfg.SmallGroupMaxRecipients
	if smallGroupMax <= 0 {
		smallGroupMax = 5
	}
	teamMax := e.cfg.TeamMaxRecipients
	if teamMax <= 0 {
		teamMax = 20
	}

	switch {
	case len(email.To) == 1 && len(email.CC) == 0:
		return model.RecipientIndividual
	case total <= smallGroupMax:
		return model.RecipientSmallGroup
	case total <= teamMax:
		return model.RecipientTeam
	default:
		return model.RecipientBroadcast
	}
}

// audience partitions every recipient address by domain membership (§4.3).
func (e *Enricher) audience(email *model.RawEmail) model.Audience {
	internal := make(map[string]bool, len(e.cfg.InternalDomains))
	for _, d := range e.cfg.InternalDomains {
		internal[strings.ToLower(d)] = true
	}

	var sawInternal, sawExternal bool
	for _, addr := range append(append([]string{}, email.To...), email.CC...) {
		if internal[domainOf(addr)] {
			sawInternal = true
		} else {
			sawExternal = true
		}
	}

	switch {
	case sawInternal && sawExternal:
		return model.AudienceMixed
	case sawExternal:
		return model.AudienceExternal
	default:
		return model.AudienceInternal
	}
}

func domainOf(addr string) string {
	if at := strings.LastIndex(addr, "@"); at >= 0 {
		return strings.ToLower(addr[at+1:])
	}
	return ""
}

// threadPosition (§4.3): forward markers take priority over reply markers
// since a forwarded-and-replied-to subject still carries the fwd: prefix
// closest to the start.
func threadPosition(email *model.RawEmail) model.ThreadPosition {
	subject := strings.ToLower(strings.TrimSpace(email.Subject))
	for _, m := range forwardMarkers {
		if strings.HasPrefix(subject, m) {
			return model.ThreadForward
		}
	}
	for _, m := range replyMarkers {
		if strings.HasPrefix(subject, m) {
			return model.ThreadReply
		}
	}
	if email.Headers.InReplyTo != "" || email.Headers.References != "" {
		return model.ThreadReply
	}
	return model.ThreadInitiating
}

func timeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 21:
		return "evening"
	default:
		return "night"
	}
}

func isWeekday(d time.Weekday) bool {
	return d != time.Saturday && d != time.Sunday
}

// structuralFeatures computes cheap lexical counts over the body (§4.3).
func structuralFeatures(body string) model.StructuralFeatures {
	lines := strings.Split(norm.NFC.String(body), "\n")

	var bullets int
	var paragraphs int
	inParagraph := false
	var nonEmpty []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			inParagraph = false
			continue
		}
		nonEmpty = append(nonEmpty, trimmed)
		if !inParagraph {
			paragraphs++
			inParagraph = true
		}
		if isBulletLine(trimmed) {
			bullets++
		}
	}

	greeting := len(nonEmpty) > 0 && matchesGreeting(nonEmpty[0])
	closing := len(nonEmpty) > 0 && matchesClosing(nonEmpty[len(nonEmpty)-1])
	if len(nonEmpty) > 1 {
		closing = closing || matchesClosing(nonEmpty[len(nonEmpty)-2])
	}

	return model.StructuralFeatures{
		BulletLines:     bullets,
		ParagraphCount:  paragraphs,
		GreetingPresent: greeting,
		ClosingPresent:  closing,
	}
}

func isBulletLine(line string) bool {
	if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") || strings.HasPrefix(line, "•") {
		return true
	}
	if len(line) > 1 && (line[0] >= '0' && line[0] <= '9') {
		for i := 0; i < len(line); i++ {
			if line[i] == '.' || line[i] == ')' {
				return true
			}
			if line[i] < '0' || line[i] > '9' {
				break
			}
		}
	}
	return false
}

func matchesGreeting(line string) bool {
	lower := strings.ToLower(line)
	for _, g := range greetingPrefixes {
		if strings.HasPrefix(lower, g) {
			return true
		}
	}
	return false
}

func matchesClosing(line string) bool {
	lower := strings.ToLower(line)
	for _, c := range closingLexicon {
		if strings.HasPrefix(lower, c) {
			return true
		}
	}
	return false
}

// seniority is advisory only; downstream consumers must not require it
// (§4.3).
func (e *Enricher) seniority(email *model.RawEmail) model.Seniority {
	signature := strings.ToLower(email.Body)

	executiveMarkers := e.cfg.ExecutiveTitleMarkers
	if len(executiveMarkers) == 0 {
		executiveMarkers = executiveTitles
	}
	reportMarkers := e.cfg.ReportTitleMarkers
	if len(reportMarkers) == 0 {
		reportMarkers = reportTitles
	}

	if containsAny(signature, executiveMarkers) {
		return model.SeniorityExecutive
	}
	if containsAny(signature, peerTitles) {
		return model.SeniorityPeer
	}
	if containsAny(signature, reportMarkers) {
		return model.SeniorityReport
	}
	if e.audience(email) == model.AudienceExternal {
		return model.SeniorityExternalClient
	}
	return model.SeniorityUnknown
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
