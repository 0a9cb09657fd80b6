package budget

import (
	"fmt"
	"maps"
	"math"
	"time"

	"github.com/rcliao/agent-context/internal/model"
)

// ItemOption sets an optional field on a new item.
type ItemOption func(*model.ContextItem)

// WithImportance sets the item's importance.
func WithImportance(v float64) ItemOption {
	return func(it *model.ContextItem) { it.Importance = v }
}

// WithEmbedding attaches an embedding, which makes the item subject to
// redundancy resolution.
func WithEmbedding(v []float32) ItemOption {
	return func(it *model.ContextItem) { it.Embedding = v }
}

// WithExpiry makes the item expire at t. Expired items are dropped at the
// next admission.
func WithExpiry(t time.Time) ItemOption {
	return func(it *model.ContextItem) { it.ExpiresAt = t }
}

// WithMetadata adds a metadata key, e.g. the tool or agent that produced
// the item.
func WithMetadata(key, value string) ItemOption {
	return func(it *model.ContextItem) {
		if it.Metadata == nil {
			it.Metadata = map[string]string{}
		}
		it.Metadata[key] = value
	}
}

// NewItem creates a context item with a fresh id, the engine clock's
// timestamp and the exact token count of content.
func (e *Engine) NewItem(kind model.Kind, content string, opts ...ItemOption) (model.ContextItem, error) {
	if !kind.Valid() {
		return model.ContextItem{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidItem, kind)
	}
	it := model.ContextItem{
		ID:         e.newID(),
		Kind:       kind,
		Content:    content,
		CreatedAt:  e.now(),
		Importance: model.DefaultImportance,
	}
	for _, o := range opts {
		o(&it)
	}
	if it.Importance < 0 || it.Importance > 1 || math.IsNaN(it.Importance) {
		return model.ContextItem{}, fmt.Errorf("%w: importance %v outside [0,1]", ErrInvalidItem, it.Importance)
	}
	it.TokenCount = e.counter.CountTokens(content)
	return it, nil
}

// FromMemory turns a recalled memory record into a memory-kind item that
// keeps the record's importance and embedding.
func (e *Engine) FromMemory(rec model.MemoryRecord) (model.ContextItem, error) {
	opts := []ItemOption{
		WithImportance(rec.Importance),
		WithEmbedding(rec.Embedding),
		WithMetadata("memory_id", rec.ID),
	}
	if rec.Type != "" {
		opts = append(opts, WithMetadata("memory_type", rec.Type))
	}
	it, err := e.NewItem(model.KindMemory, rec.Content, opts...)
	if err != nil {
		return it, err
	}
	for k, v := range rec.Metadata {
		if _, ok := it.Metadata[k]; !ok {
			it.Metadata[k] = v
		}
	}
	return it, nil
}

// cloneMetadata is used when items cross into a store the caller may keep
// mutating.
func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
