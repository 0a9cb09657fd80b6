// Package contextstore holds the context items currently admitted to one
// conversation.
//
// A Store has no locking. Each conversation owns its own Store and callers
// serialize mutations for it.
package contextstore

import (
	"iter"
	"time"

	"github.com/rcliao/agent-context/internal/model"
)

// Store is an insertion-ordered set of context items.
type Store struct {
	items  []model.ContextItem
	index  map[string]int
	tokens int
}

// New returns an empty store.
func New() *Store {
	return &Store{index: map[string]int{}}
}

// Add inserts item. It does not check the token budget.
func (s *Store) Add(item model.ContextItem) error {
	if _, ok := s.index[item.ID]; ok {
		return &model.DuplicateIDError{ID: item.ID}
	}
	s.index[item.ID] = len(s.items)
	s.items = append(s.items, item)
	s.tokens += item.TokenCount
	return nil
}

// Remove deletes the item with the given id.
func (s *Store) Remove(id string) error {
	pos, ok := s.index[id]
	if !ok {
		return &model.NotFoundError{ID: id}
	}
	s.tokens -= s.items[pos].TokenCount
	s.items = append(s.items[:pos], s.items[pos+1:]...)
	delete(s.index, id)
	for i := pos; i < len(s.items); i++ {
		s.index[s.items[i].ID] = i
	}
	return nil
}

// All yields the items in insertion order. The sequence can be ranged over
// any number of times.
func (s *Store) All() iter.Seq[model.ContextItem] {
	return func(yield func(model.ContextItem) bool) {
		for _, it := range s.items {
			if !yield(it) {
				return
			}
		}
	}
}

// Items returns a copy of the items in insertion order.
func (s *Store) Items() []model.ContextItem {
	out := make([]model.ContextItem, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the item with the given id.
func (s *Store) Get(id string) (model.ContextItem, error) {
	pos, ok := s.index[id]
	if !ok {
		return model.ContextItem{}, &model.NotFoundError{ID: id}
	}
	return s.items[pos], nil
}

// Has reports whether id is present.
func (s *Store) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Len returns the number of items.
func (s *Store) Len() int { return len(s.items) }

// TotalTokens returns the summed token count of all items.
func (s *Store) TotalTokens() int { return s.tokens }

// ByKind yields the items of one kind in insertion order.
func (s *Store) ByKind(kind model.Kind) iter.Seq[model.ContextItem] {
	return func(yield func(model.ContextItem) bool) {
		for _, it := range s.items {
			if it.Kind != kind {
				continue
			}
			if !yield(it) {
				return
			}
		}
	}
}

// Since yields the items created at or after cutoff, in insertion order.
func (s *Store) Since(cutoff time.Time) iter.Seq[model.ContextItem] {
	return func(yield func(model.ContextItem) bool) {
		for _, it := range s.items {
			if it.CreatedAt.Before(cutoff) {
				continue
			}
			if !yield(it) {
				return
			}
		}
	}
}

// KindSummary holds per-kind counts.
type KindSummary struct {
	Count  int `json:"count"`
	Tokens int `json:"tokens"`
}

// Summary describes the store contents.
type Summary struct {
	Items  int                        `json:"items"`
	Tokens int                        `json:"tokens"`
	ByKind map[model.Kind]KindSummary `json:"by_kind"`
}

// Summary returns item and token totals, overall and per kind.
func (s *Store) Summary() Summary {
	sum := Summary{Items: len(s.items), Tokens: s.tokens, ByKind: map[model.Kind]KindSummary{}}
	for _, it := range s.items {
		ks := sum.ByKind[it.Kind]
		ks.Count++
		ks.Tokens += it.TokenCount
		sum.ByKind[it.Kind] = ks
	}
	return sum
}
