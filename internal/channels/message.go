package channels

import "time"

// ChannelType identifies a channel adapter's transport kind. It is an
// alias of ChatChannelID so the capability-set types in this file and
// the channel catalog in registry.go share one vocabulary.
type ChannelType = ChatChannelID

// Attachment references a file or media item carried alongside a
// Message.
type Attachment struct {
	ID          string `json:"id,omitempty"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Filename    string `json:"filename,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
}

// Message is a transport-level chat message: what a Channel sends and
// receives, distinct from the agent's conversation models.Message.
type Message struct {
	ID          string            `json:"id"`
	ChannelType ChannelType       `json:"channel_type"`
	ChannelID   string            `json:"channel_id"`
	ThreadID    string            `json:"thread_id,omitempty"`
	SenderID    string            `json:"sender_id"`
	SenderName  string            `json:"sender_name,omitempty"`
	Text        string            `json:"text"`
	Attachments []Attachment      `json:"attachments,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	Meta        map[string]string `json:"meta,omitempty"`
}

// MessageID is the identifier a Channel.SendMessage returns.
type MessageID string
