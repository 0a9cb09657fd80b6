package model

import "time"

// Memory record types the promotion paths use. Type is free-form;
// these are the ones the CLI knows about.
const (
	MemoryConversation = "conversation"
	MemoryFact         = "fact"
	MemoryPreference   = "preference"
)

// MemoryRecord is a long-lived memory promoted out of a conversation.
type MemoryRecord struct {
	ID             string            `json:"id"`
	Type           string            `json:"type,omitempty"`
	Content        string            `json:"content"`
	Embedding      []float32         `json:"embedding,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	Importance     float64           `json:"importance"`
	AccessCount    int               `json:"access_count"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}
