package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rcliao/agent-context/internal/budget"
	"github.com/rcliao/agent-context/internal/model"
	"github.com/rcliao/agent-context/internal/store"
)

type wordCounter struct{}

func (wordCounter) CountTokens(text string) int { return len(strings.Fields(text)) }

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "cli.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConversationSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	engine := budget.New(wordCounter{}, budget.WithClock(func() time.Time { return now }))
	cfg := budget.DefaultConfig(5)

	conv, err := loadConversation(ctx, s, engine, "c1")
	if err != nil {
		t.Fatalf("load new conversation: %v", err)
	}
	sys, _ := engine.NewItem(model.KindSystem, "be brief")
	first, _ := engine.NewItem(model.KindUser, "hello there friend")
	if _, err := conv.Admit([]model.ContextItem{sys, first}, cfg); err != nil {
		t.Fatalf("admit: %v", err)
	}
	if err := saveConversation(ctx, s, conv); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A later invocation rebuilds the store and admits more.
	now = now.Add(time.Minute)
	conv, err = loadConversation(ctx, s, engine, "c1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if conv.Store().Len() != 2 {
		t.Fatalf("expected 2 items after reload, got %d", conv.Store().Len())
	}
	second, _ := engine.NewItem(model.KindUser, "bye now")
	res, err := conv.Admit([]model.ContextItem{second}, cfg)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if !res.WasDropped(first.ID) || res.WasDropped(second.ID) {
		t.Errorf("older user item should give way: dropped %v", res.Dropped())
	}
	saveConversation(ctx, s, conv)

	items, _ := s.LoadConversation(ctx, "c1")
	if len(items) != 2 || items[0].ID != sys.ID || items[1].ID != second.ID {
		t.Errorf("saved snapshot = %+v", items)
	}
}

func TestMemorySurvivesRestart(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	mem, err := loadMemory(ctx, s, "agent-a")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	mem.Add(model.MemoryRecord{ID: "m1", Content: "likes tea", Importance: 0.7, Embedding: []float32{1, 0}})
	mem.Add(model.MemoryRecord{ID: "m2", Content: "uses vim", Importance: 0.6, Embedding: []float32{0, 1}})
	mem.Query([]float32{1, 0}, 1, 0)
	if err := saveMemory(ctx, s, "agent-a", mem); err != nil {
		t.Fatalf("save: %v", err)
	}

	mem, err = loadMemory(ctx, s, "agent-a")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if mem.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", mem.Len())
	}
	m1, _ := mem.Get("m1")
	if m1.AccessCount != 1 {
		t.Errorf("access count should persist, got %d", m1.AccessCount)
	}
}
