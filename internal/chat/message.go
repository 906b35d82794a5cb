package chat

import (
	"encoding/json"
	"time"
)

// ChatMessage is the envelope used for system-originated events. Direct
// command replies are sent as plain text instead.
type ChatMessage struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// NewChatMessage stamps text with at, in milliseconds since the Unix epoch.
func NewChatMessage(text string, at time.Time) ChatMessage {
	return ChatMessage{Message: text, Timestamp: at.UnixMilli()}
}

// Encode serializes the envelope for the wire.
func (m ChatMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}
