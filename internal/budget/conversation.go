package budget

import (
	"fmt"

	"github.com/rcliao/agent-context/internal/contextstore"
	"github.com/rcliao/agent-context/internal/model"
)

// Conversation binds an engine to one conversation's Context Store.
// Admit is the only path that changes the store. Calls for the same
// conversation must not overlap.
type Conversation struct {
	ID     string
	engine *Engine
	store  *contextstore.Store
}

// NewConversation returns a conversation over store. A nil store starts
// empty.
func (e *Engine) NewConversation(id string, store *contextstore.Store) *Conversation {
	if store == nil {
		store = contextstore.New()
	}
	return &Conversation{ID: id, engine: e, store: store}
}

// Store exposes the conversation's Context Store for reading.
func (c *Conversation) Store() *contextstore.Store { return c.store }

// Admit runs an admission over the store's items plus offered and
// reconciles the store with the result. On error the store is unchanged.
func (c *Conversation) Admit(offered []model.ContextItem, cfg Config) (*AdmissionResult, error) {
	current := c.store.Items()
	res, err := c.engine.Admit(current, offered, cfg)
	if err != nil {
		return nil, err
	}

	keep := make(map[string]bool, len(res.Items))
	for _, it := range res.Items {
		keep[it.ID] = true
	}
	for _, it := range current {
		if keep[it.ID] {
			continue
		}
		if err := c.store.Remove(it.ID); err != nil {
			return nil, fmt.Errorf("reconcile conversation %s: %w", c.ID, err)
		}
	}
	for _, it := range res.Items {
		if c.store.Has(it.ID) {
			continue
		}
		it.Metadata = cloneMetadata(it.Metadata)
		if err := c.store.Add(it); err != nil {
			return nil, fmt.Errorf("reconcile conversation %s: %w", c.ID, err)
		}
	}

	c.engine.log.Info("conversation admitted",
		"conversation", c.ID,
		"offered", len(offered),
		"items", c.store.Len(),
		"tokens", c.store.TotalTokens(),
		"dropped", len(res.DroppedIDs))
	return res, nil
}

// Clear removes every item of one kind and returns how many were removed.
func (c *Conversation) Clear(kind model.Kind) int {
	var ids []string
	for it := range c.store.ByKind(kind) {
		ids = append(ids, it.ID)
	}
	for _, id := range ids {
		_ = c.store.Remove(id)
	}
	return len(ids)
}

// Reset empties the conversation.
func (c *Conversation) Reset() {
	c.store = contextstore.New()
}
