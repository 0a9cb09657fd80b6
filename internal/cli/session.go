package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rcliao/agent-context/internal/budget"
	"github.com/rcliao/agent-context/internal/contextstore"
	"github.com/rcliao/agent-context/internal/memory"
	"github.com/rcliao/agent-context/internal/model"
	"github.com/rcliao/agent-context/internal/store"
)

// loadConversation rebuilds a conversation from its saved snapshot. A
// conversation that was never saved starts empty.
func loadConversation(ctx context.Context, s store.Store, e *budget.Engine, id string) (*budget.Conversation, error) {
	items, err := s.LoadConversation(ctx, id)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}
	cs := contextstore.New()
	for _, it := range items {
		if err := cs.Add(it); err != nil {
			return nil, err
		}
	}
	return e.NewConversation(id, cs), nil
}

func saveConversation(ctx context.Context, s store.Store, c *budget.Conversation) error {
	return s.SaveConversation(ctx, c.ID, c.Store().Items())
}

// loadMemory rebuilds an agent's memory store from its saved snapshot.
func loadMemory(ctx context.Context, s store.Store, agent string) (*memory.Store, error) {
	records, err := s.LoadMemories(ctx, agent)
	if err != nil {
		return nil, err
	}
	m := memory.New(memory.WithLogger(slog.Default().With("agent", agent)))
	for _, r := range records {
		if _, err := m.Add(r); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func saveMemory(ctx context.Context, s store.Store, agent string, m *memory.Store) error {
	return s.SaveMemories(ctx, agent, m.All())
}
