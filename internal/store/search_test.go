package store

import (
	"context"
	"testing"
	"time"

	"github.com/rcliao/agent-context/internal/model"
)

func TestSearchMemories(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.SaveMemories(ctx, "a", []model.MemoryRecord{
		{ID: "go", Type: model.MemoryFact, Content: "Go is a compiled language with goroutines", CreatedAt: t0, LastAccessedAt: t0, Importance: 0.5},
		{ID: "py", Type: model.MemoryFact, Content: "Python is an interpreted language", CreatedAt: t0.Add(time.Minute), LastAccessedAt: t0, Importance: 0.5},
		{ID: "pct", Type: model.MemoryPreference, Content: "wants 100% coverage", CreatedAt: t0, LastAccessedAt: t0, Importance: 0.5},
	})
	s.SaveMemories(ctx, "b", []model.MemoryRecord{
		{ID: "rs", Content: "Rust is a language with a borrow checker", CreatedAt: t0, LastAccessedAt: t0, Importance: 0.5},
	})

	results, err := s.SearchMemories(ctx, SearchParams{Query: "language"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].ID != "py" {
		t.Errorf("newest first, got %s", results[0].ID)
	}

	results, _ = s.SearchMemories(ctx, SearchParams{Agent: "a", Query: "language"})
	if len(results) != 2 {
		t.Fatalf("expected 2 results for agent a, got %d", len(results))
	}

	results, _ = s.SearchMemories(ctx, SearchParams{Agent: "a", Query: "", Type: model.MemoryPreference})
	if len(results) != 1 || results[0].ID != "pct" {
		t.Fatalf("type filter: %+v", results)
	}

	// LIKE wildcards in the query are matched literally.
	results, _ = s.SearchMemories(ctx, SearchParams{Query: "100%"})
	if len(results) != 1 {
		t.Fatalf("expected literal %% match, got %d", len(results))
	}
	results, _ = s.SearchMemories(ctx, SearchParams{Query: "_"})
	if len(results) != 0 {
		t.Fatalf("underscore should not act as a wildcard, got %d", len(results))
	}

	results, _ = s.SearchMemories(ctx, SearchParams{Query: "javascript"})
	if len(results) != 0 {
		t.Fatalf("expected 0 results, got %d", len(results))
	}
}
