package enrich

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jrenaldi79/writing-style-pipeline/internal/config"
	"github.com/jrenaldi79/writing-style-pipeline/internal/model"
)

func testCfg() EnrichConfig {
	return EnrichConfig{
		SmallGroupMaxRecipients: 5,
		TeamMaxRecipients:       20,
		InternalDomains:         []string{"example.com"},
	}
}

func acceptedEmail(to, cc []string, subject, body string, ts time.Time) model.FilteredMessage {
	return model.FilteredMessage{
		Accepted: true,
		Message: model.RawMessage{
			Platform: model.PlatformEmail,
			Email: &model.RawEmail{
				ID: "m1", Sender: "me@example.com", To: to, CC: cc,
				Subject: subject, Body: body, Timestamp: ts,
			},
		},
	}
}

// E2: 1 To, no CC -> individual/internal. 8 To + 3 CC -> team (11 total).
func TestEnrich_E2_RecipientClassification(t *testing.T) {
	e := New(testCfg())

	individual := e.Enrich(acceptedEmail([]string{"a@example.com"}, nil, "hi", "hello there, quick note", time.Now()))
	assert.Equal(t, model.RecipientIndividual, individual.Context.RecipientType)
	assert.Equal(t, model.AudienceInternal, individual.Context.Audience)

	to8 := make([]string, 8)
	for i := range to8 {
		to8[i] = "a@example.com"
	}
	cc3 := make([]string, 3)
	for i := range cc3 {
		cc3[i] = "b@example.com"
	}
	team := e.Enrich(acceptedEmail(to8, cc3, "update", "status update for everyone", time.Now()))
	assert.Equal(t, model.RecipientTeam, team.Context.RecipientType)
}

// §8 invariant 2: recipient_type is a strict function of recipient counts.
func TestEnrich_RecipientTypeIsPureFunctionOfCounts(t *testing.T) {
	e := New(testCfg())

	to2 := []string{"a@example.com", "b@example.com"}
	first := e.Enrich(acceptedEmail(to2, nil, "hi", "body one here", time.Now()))
	second := e.Enrich(acceptedEmail(to2, nil, "totally different subject", "a completely different body", time.Now()))

	assert.Equal(t, first.Context.RecipientType, second.Context.RecipientType)
	assert.Equal(t, model.RecipientSmallGroup, first.Context.RecipientType)
}

func TestEnrich_AudienceMixed(t *testing.T) {
	e := New(testCfg())
	msg := acceptedEmail([]string{"a@example.com", "b@other.com"}, nil, "hi", "hello", time.Now())
	result := e.Enrich(msg)
	assert.Equal(t, model.AudienceMixed, result.Context.Audience)
}

func TestEnrich_ThreadPositionReply(t *testing.T) {
	e := New(testCfg())
	msg := acceptedEmail([]string{"a@example.com"}, nil, "Re: project status", "sure thing", time.Now())
	result := e.Enrich(msg)
	assert.Equal(t, model.ThreadReply, result.Context.ThreadPosition)
}

func TestEnrich_ThreadPositionForward(t *testing.T) {
	e := New(testCfg())
	msg := acceptedEmail([]string{"a@example.com"}, nil, "Fwd: project status", "see below", time.Now())
	result := e.Enrich(msg)
	assert.Equal(t, model.ThreadForward, result.Context.ThreadPosition)
}

func TestEnrich_StructuralFeatures(t *testing.T) {
	e := New(testCfg())
	body := "Hi team,\n\n- first point\n- second point\n\nBest,\nJordan"
	msg := acceptedEmail([]string{"a@example.com"}, nil, "notes", body, time.Now())

	result := e.Enrich(msg)
	assert.Equal(t, 2, result.Context.Structural.BulletLines)
	assert.True(t, result.Context.Structural.GreetingPresent)
	assert.True(t, result.Context.Structural.ClosingPresent)
}

func TestEnrich_SeniorityExecutive(t *testing.T) {
	e := New(testCfg())
	body := "Following up on the roadmap.\n\nBest,\nSam Lee\nVP of Engineering"
	msg := acceptedEmail([]string{"a@example.com"}, nil, "roadmap", body, time.Now())

	result := e.Enrich(msg)
	assert.Equal(t, model.SeniorityExecutive, result.Context.RecipientSeniority)
}

func TestEnrich_TimeOfDayAndWeekday(t *testing.T) {
	e := New(testCfg())
	monday9am := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	msg := acceptedEmail([]string{"a@example.com"}, nil, "hi", "good morning team", monday9am)

	result := e.Enrich(msg)
	assert.Equal(t, "morning", result.Context.TimeOfDay)
	assert.True(t, result.Context.Weekday)
}

func TestFromConfig_IncludesOwnDomainAsInternal(t *testing.T) {
	cfg := FromConfig(config.EnrichConfig{}, "me@myco.com")
	assert.Contains(t, cfg.InternalDomains, "myco.com")
}
