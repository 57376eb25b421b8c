package model

// RecipientType classifies how broadly a message was addressed (§4.3).
type RecipientType string

const (
	RecipientIndividual  RecipientType = "individual"
	RecipientSmallGroup  RecipientType = "small_group"
	RecipientTeam        RecipientType = "team"
	RecipientBroadcast   RecipientType = "broadcast"
)

// Audience partitions recipients by domain membership (§4.3).
type Audience string

const (
	AudienceInternal Audience = "internal"
	AudienceExternal Audience = "external"
	AudienceMixed    Audience = "mixed"
)

// ThreadPosition describes where a message sits in its conversation (§4.3).
type ThreadPosition string

const (
	ThreadInitiating ThreadPosition = "initiating"
	ThreadReply      ThreadPosition = "reply"
	ThreadForward    ThreadPosition = "forward"
)

// Seniority is an advisory classification of the dominant recipient's rank.
// Downstream consumers must not require it (§4.3).
type Seniority string

const (
	SeniorityExecutive      Seniority = "executive"
	SeniorityPeer           Seniority = "peer"
	SeniorityReport         Seniority = "report"
	SeniorityExternalClient Seniority = "external_client"
	SeniorityUnknown        Seniority = "unknown"
)

// StructuralFeatures are cheap lexical counts over a message body (§4.3).
type StructuralFeatures struct {
	BulletLines     int  `json:"bullet_lines"`
	ParagraphCount  int  `json:"paragraph_count"`
	GreetingPresent bool `json:"greeting_present"`
	ClosingPresent  bool `json:"closing_present"`
}

// Context is the enrichment payload attached to a FilteredMessage (§3).
type Context struct {
	RecipientType       RecipientType      `json:"recipient_type"`
	Audience            Audience           `json:"audience"`
	ThreadPosition      ThreadPosition     `json:"thread_position"`
	TimeOfDay           string             `json:"time_of_day"` // "morning", "afternoon", "evening", "night"
	Weekday             bool               `json:"weekday"`
	Structural          StructuralFeatures `json:"structural"`
	RecipientSeniority  Seniority          `json:"recipient_seniority"`
}

// EnrichedMessage is a FilteredMessage plus its derived Context (§3).
type EnrichedMessage struct {
	Filtered FilteredMessage `json:"filtered"`
	Context  Context         `json:"context"`
}

// ID returns the identifier of the underlying message.
func (e EnrichedMessage) ID() string { return e.Filtered.ID() }

// Body returns the text the embedder and clusterer operate on. LinkedIn
// posts carry their text directly; emails return the body exactly as
// fetched, quoted lines included: the filter strips quoted content only for
// its own word count and does not store the stripped text.
func (e EnrichedMessage) Body() string {
	msg := e.Filtered.Message
	if msg.Platform == PlatformEmail && msg.Email != nil {
		return msg.Email.Body
	}
	if msg.Platform == PlatformLinkedIn && msg.LinkedInPost != nil {
		return msg.LinkedInPost.Text
	}
	return ""
}
