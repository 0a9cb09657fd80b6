// Package model defines the context item and memory record types shared by
// the stores and the budgeting engine.
package model

import (
	"fmt"
	"time"
)

// Kind is the closed category of a context item.
type Kind string

const (
	KindSystem        Kind = "system"
	KindUser          Kind = "user"
	KindAgentReply    Kind = "agent_reply"
	KindToolResult    Kind = "tool_result"
	KindMemory        Kind = "memory"
	KindCollaboration Kind = "collaboration"
)

// Kinds lists every valid kind in default presentation order.
var Kinds = []Kind{
	KindSystem,
	KindCollaboration,
	KindToolResult,
	KindMemory,
	KindAgentReply,
	KindUser,
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSystem, KindUser, KindAgentReply, KindToolResult, KindMemory, KindCollaboration:
		return true
	}
	return false
}

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown kind %q (use system, user, agent_reply, tool_result, memory or collaboration)", s)
	}
	return k, nil
}

// DefaultImportance is used when a caller does not supply one.
const DefaultImportance = 0.5

// ContextItem is one piece of prompt content. Items are immutable once
// created; replacing one means adding a new item and removing the old.
type ContextItem struct {
	ID         string            `json:"id"`
	Kind       Kind              `json:"kind"`
	Content    string            `json:"content"`
	Embedding  []float32         `json:"embedding,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	TokenCount int               `json:"token_count"`
	Importance float64           `json:"importance"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	// ExpiresAt is optional; a zero value never expires.
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Expired reports whether the item has an expiry at or before now.
func (it ContextItem) Expired(now time.Time) bool {
	return !it.ExpiresAt.IsZero() && !now.Before(it.ExpiresAt)
}

// HasEmbedding reports whether the item takes part in redundancy checks.
func (it ContextItem) HasEmbedding() bool {
	return len(it.Embedding) > 0
}
