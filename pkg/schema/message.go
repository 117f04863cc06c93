package schema

import "time"

// SystemSender is the reserved sender ID for system-notice messages.
const SystemSender = "system"

// MessageKind distinguishes plain text, shared locations and system notices.
type MessageKind string

const (
	MessageText     MessageKind = "text"
	MessageLocation MessageKind = "location"
	MessageSystem   MessageKind = "system"
)

// ChatMessage is one entry in a request's append-only conversation log.
// A message belongs to exactly one request and is never edited or deleted.
type ChatMessage struct {
	ID         string      `json:"id"`
	RequestID  string      `json:"request_id"`
	SenderID   string      `json:"sender_id"`
	SenderName string      `json:"sender_name"`
	Body       string      `json:"body"`
	Kind       MessageKind `json:"kind"`
	CreatedAt  time.Time   `json:"created_at"`
}
