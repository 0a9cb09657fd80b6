// Package store persists conversation and memory snapshots so each CLI
// invocation can rebuild the in-process context and memory stores.
package store

import (
	"context"
	"time"

	"github.com/rcliao/agent-context/internal/model"
)

// ConversationInfo summarizes a saved conversation.
type ConversationInfo struct {
	ID        string    `json:"id"`
	Items     int       `json:"items"`
	Tokens    int       `json:"tokens"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExportedMemory is a memory record tagged with the agent that owns it.
type ExportedMemory struct {
	Agent string `json:"agent"`
	model.MemoryRecord
}

// SearchParams holds parameters for a substring search over saved memories.
type SearchParams struct {
	Agent string
	Query string
	Type  string
	Limit int
}

// Store defines snapshot persistence for conversations and memories.
type Store interface {
	// SaveConversation replaces the saved items of a conversation, in order.
	SaveConversation(ctx context.Context, id string, items []model.ContextItem) error

	// LoadConversation returns a conversation's items in saved order.
	// Returns a *model.NotFoundError if the conversation was never saved.
	LoadConversation(ctx context.Context, id string) ([]model.ContextItem, error)

	ListConversations(ctx context.Context) ([]ConversationInfo, error)
	DeleteConversation(ctx context.Context, id string) error

	// SaveMemories replaces the saved memory records of an agent.
	SaveMemories(ctx context.Context, agent string, records []model.MemoryRecord) error
	LoadMemories(ctx context.Context, agent string) ([]model.MemoryRecord, error)

	SearchMemories(ctx context.Context, p SearchParams) ([]model.MemoryRecord, error)
	ExportMemories(ctx context.Context, agent string) ([]ExportedMemory, error)
	ImportMemories(ctx context.Context, memories []ExportedMemory) (int, error)

	// Close closes the store.
	Close() error
}
