package contextstore

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/rcliao/agent-context/internal/model"
)

func item(id string, kind model.Kind, tokens int) model.ContextItem {
	return model.ContextItem{ID: id, Kind: kind, Content: id, TokenCount: tokens, Importance: model.DefaultImportance}
}

func ids(s *Store) []string {
	var out []string
	for it := range s.All() {
		out = append(out, it.ID)
	}
	return out
}

func TestAddRemove(t *testing.T) {
	s := New()
	if err := s.Add(item("a", model.KindSystem, 10)); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(item("b", model.KindUser, 5)); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(item("c", model.KindUser, 7)); err != nil {
		t.Fatal(err)
	}
	if s.TotalTokens() != 22 {
		t.Errorf("total = %d, want 22", s.TotalTokens())
	}

	if err := s.Remove("b"); err != nil {
		t.Fatal(err)
	}
	if s.TotalTokens() != 17 {
		t.Errorf("total after remove = %d, want 17", s.TotalTokens())
	}
	got := ids(s)
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("order = %v", got)
	}
	// index must still resolve items that shifted
	if it, err := s.Get("c"); err != nil || it.TokenCount != 7 {
		t.Errorf("get c: %v %+v", err, it)
	}
}

func TestAddDuplicate(t *testing.T) {
	s := New()
	s.Add(item("a", model.KindUser, 1))
	err := s.Add(item("a", model.KindUser, 1))
	if !errors.Is(err, model.ErrDuplicateID) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if s.TotalTokens() != 1 || s.Len() != 1 {
		t.Errorf("failed add changed the store: len=%d tokens=%d", s.Len(), s.TotalTokens())
	}
}

func TestRemoveMissing(t *testing.T) {
	s := New()
	err := s.Remove("nope")
	var nf *model.NotFoundError
	if !errors.As(err, &nf) || nf.ID != "nope" {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestAllRestartable(t *testing.T) {
	s := New()
	s.Add(item("a", model.KindUser, 1))
	s.Add(item("b", model.KindUser, 1))

	first := ids(s)
	second := ids(s)
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected two passes of 2 items, got %v and %v", first, second)
	}

	// early break must not disturb later iteration
	for range s.All() {
		break
	}
	if s.Len() != 2 {
		t.Errorf("iteration mutated store")
	}
}

func TestSummary(t *testing.T) {
	s := New()
	s.Add(item("s", model.KindSystem, 10))
	s.Add(item("u1", model.KindUser, 3))
	s.Add(item("u2", model.KindUser, 4))

	sum := s.Summary()
	if sum.Items != 3 || sum.Tokens != 17 {
		t.Errorf("summary = %+v", sum)
	}
	if u := sum.ByKind[model.KindUser]; u.Count != 2 || u.Tokens != 7 {
		t.Errorf("user summary = %+v", u)
	}

	n := 0
	for range s.ByKind(model.KindUser) {
		n++
	}
	if n != 2 {
		t.Errorf("ByKind(user) yielded %d", n)
	}
}

func TestSince(t *testing.T) {
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	s := New()
	for i, id := range []string{"a", "b", "c", "d"} {
		it := item(id, model.KindUser, 1)
		it.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		s.Add(it)
	}

	var got []string
	for it := range s.Since(base.Add(2 * time.Minute)) {
		got = append(got, it.ID)
	}
	if !slices.Equal(got, []string{"c", "d"}) {
		t.Errorf("Since = %v, want [c d]", got)
	}

	if n := len(slices.Collect(s.Since(base.Add(time.Hour)))); n != 0 {
		t.Errorf("expected nothing after the last item, got %d", n)
	}
	if n := len(slices.Collect(s.Since(time.Time{}))); n != 4 {
		t.Errorf("zero cutoff should yield everything, got %d", n)
	}
}
