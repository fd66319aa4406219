package model

// Source identifies which receiver delivered an event.
type Source string

const (
	SourceSocket Source = "socket"
	SourceHTTP   Source = "http"
)

// MentionEvent is a normalized app_mention delivery.
type MentionEvent struct {
	// EventID is the platform's delivery id (event_id or envelope id).
	EventID   string `json:"event_id"`
	ChannelID string `json:"channel_id"`
	// TS is the timestamp of the mentioning message itself.
	TS string `json:"ts"`
	// ThreadTS is the thread root timestamp, empty for top-level mentions.
	ThreadTS string `json:"thread_ts,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Text     string `json:"text"`

	Source       Source `json:"source"`
	IsRedelivery bool   `json:"is_redelivery"`
	RetryReason  string `json:"retry_reason,omitempty"`
}

// IsReply reports whether the mention was posted inside an existing thread.
func (e MentionEvent) IsReply() bool {
	return e.ThreadTS != "" && e.ThreadTS != e.TS
}
