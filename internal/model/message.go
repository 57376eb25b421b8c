// Package model defines the data records exchanged between pipeline stages.
package model

import "time"

// Platform identifies the originating source of a RawMessage.
type Platform string

const (
	PlatformEmail    Platform = "email"
	PlatformLinkedIn Platform = "linkedin"
)

// EmailHeaders carries the subset of RFC 5322 headers the pipeline cares about.
type EmailHeaders struct {
	AutoReply    bool   `json:"auto_reply,omitempty"`
	InReplyTo    string `json:"in_reply_to,omitempty"`
	References   string `json:"references,omitempty"`
	ThreadTopic  string `json:"thread_topic,omitempty"`
	MessageID    string `json:"message_id,omitempty"`
}

// RawEmail is an authored or received email exactly as delivered by the
// external Gmail fetcher. It is never mutated after creation.
type RawEmail struct {
	ID          string       `json:"id"`
	Sender      string       `json:"sender"`
	To          []string     `json:"to"`
	CC          []string     `json:"cc,omitempty"`
	BCC         []string     `json:"bcc,omitempty"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Timestamp   time.Time    `json:"timestamp"`
	ThreadID    string       `json:"thread_id,omitempty"`
	Headers     EmailHeaders `json:"headers,omitempty"`
}

// LinkedInComment is one of the top comments attached to a post.
type LinkedInComment struct {
	Author string `json:"author"`
	Text   string `json:"text"`
	Likes  int    `json:"likes,omitempty"`
}

// LinkedInEngagement tallies the reactions a post received.
type LinkedInEngagement struct {
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Reposts  int `json:"reposts,omitempty"`
}

// RawLinkedInPost is a published LinkedIn post exactly as delivered by the
// external LinkedIn fetcher/scraper. It is never mutated after creation.
type RawLinkedInPost struct {
	ID             string              `json:"id"`
	URL            string              `json:"url"`
	Text           string              `json:"text"`
	PostedAt       time.Time           `json:"posted_at"`
	Engagement     LinkedInEngagement  `json:"engagement"`
	TopComments    []LinkedInComment   `json:"top_comments,omitempty"`
	TaggedEntities []string            `json:"tagged_entities,omitempty"`
	AuthorName     string              `json:"author_name"`
	IsRepost       bool                `json:"is_repost"`
	OriginalText   string              `json:"original_text,omitempty"`
	OriginalAuthor string              `json:"original_author,omitempty"`
}

// RawMessage is the tagged union of everything the external fetchers
// produce. Exactly one of Email or LinkedInPost is set, selected by
// Platform. RawMessage is never mutated after creation; it may be copied
// into the validation set by the fetcher (§3, RawMessage lifecycle).
type RawMessage struct {
	Platform     Platform         `json:"platform"`
	Email        *RawEmail        `json:"email,omitempty"`
	LinkedInPost *RawLinkedInPost `json:"linkedin_post,omitempty"`
}

// ID returns the stable, content-derived identifier of the underlying record.
func (m RawMessage) ID() string {
	switch m.Platform {
	case PlatformEmail:
		if m.Email != nil {
			return m.Email.ID
		}
	case PlatformLinkedIn:
		if m.LinkedInPost != nil {
			return m.LinkedInPost.ID
		}
	}
	return ""
}
