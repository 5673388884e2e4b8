// ABOUTME: Session and Message types for multi-turn conversation state
// ABOUTME: A session owns an ordered message list and its active namespace
package models

import (
	"errors"
	"strings"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation entry. Assistant messages may carry the
// chunk ids cited by the answer.
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Citations []string  `json:"citations,omitempty"`
}

// NewMessage creates a Message with validation.
func NewMessage(role Role, text string, citations []string) (*Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("message text cannot be empty")
	}
	if role != RoleUser && role != RoleAssistant {
		return nil, errors.New("invalid message role")
	}
	return &Message{
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
		Citations: citations,
	}, nil
}

// Session holds per-conversation state: the namespace documents are indexed
// under and the ordered message history.
type Session struct {
	SessionID string    `json:"session_id"`
	Namespace string    `json:"namespace"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
