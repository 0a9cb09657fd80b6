// Package budget decides which context items fit a conversation's token
// budget for a turn, and in what order they are presented.
package budget

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/rcliao/agent-context/internal/model"
	"github.com/rcliao/agent-context/internal/similarity"
)

// TokenCounter returns the exact token count of text for one model family.
type TokenCounter interface {
	CountTokens(text string) int
}

// Engine runs admissions. It holds no conversation state and may be shared
// by any number of conversations.
type Engine struct {
	counter TokenCounter
	scorer  similarity.Scorer
	now     func() time.Time
	newID   func() string
	log     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithScorer sets the similarity scorer. Default: similarity.Cosine.
func WithScorer(s similarity.Scorer) Option {
	return func(e *Engine) { e.scorer = s }
}

// WithClock sets the clock used for item timestamps and recency.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDs sets the id generator for NewItem. Default: model.NewID.
func WithIDs(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New returns an Engine counting tokens with counter.
func New(counter TokenCounter, opts ...Option) *Engine {
	e := &Engine{
		counter: counter,
		scorer:  similarity.Cosine{},
		now:     time.Now,
		newID:   model.NewID,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// DropReason says why a candidate was not admitted.
type DropReason string

const (
	DropRedundant DropReason = "redundant"
	DropBudget    DropReason = "budget"
	DropExpired   DropReason = "expired"
	DropItemCap   DropReason = "item_cap"
)

// AdmissionResult is the outcome of one admission.
type AdmissionResult struct {
	Items       []model.ContextItem   `json:"items"`
	TotalTokens int                   `json:"total_tokens"`
	DroppedIDs  map[string]DropReason `json:"dropped"`
}

// Dropped returns the dropped ids in sorted order.
func (r *AdmissionResult) Dropped() []string {
	out := make([]string, 0, len(r.DroppedIDs))
	for id := range r.DroppedIDs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// WasDropped reports whether id was a candidate that did not make it in.
func (r *AdmissionResult) WasDropped(id string) bool {
	_, ok := r.DroppedIDs[id]
	return ok
}

type candidate struct {
	item  model.ContextItem
	pos   int // position in the candidate pool
	score float64
}

// Admit selects, from current followed by offered, the items that fit
// cfg.MaxTokens and returns them in presentation order. It does not touch
// any store; see Conversation.Admit for the reconciling form.
func (e *Engine) Admit(current, offered []model.ContextItem, cfg Config) (*AdmissionResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res := &AdmissionResult{DroppedIDs: map[string]DropReason{}}
	pool, err := e.buildPool(current, offered, cfg.MaxTokens, res)
	if err != nil {
		return nil, err
	}

	survivors := e.resolveRedundancy(pool, cfg, res)

	admitted, used, err := e.rank(survivors, cfg, res)
	if err != nil {
		return nil, err
	}

	rank := cfg.kindRank()
	sort.SliceStable(admitted, func(i, j int) bool {
		a, b := admitted[i], admitted[j]
		if rank[a.item.Kind] != rank[b.item.Kind] {
			return rank[a.item.Kind] < rank[b.item.Kind]
		}
		if !a.item.CreatedAt.Equal(b.item.CreatedAt) {
			return a.item.CreatedAt.Before(b.item.CreatedAt)
		}
		return a.pos < b.pos
	})

	res.Items = make([]model.ContextItem, len(admitted))
	for i, c := range admitted {
		res.Items[i] = c.item
	}
	res.TotalTokens = used

	e.log.Debug("admission complete",
		"candidates", len(pool),
		"admitted", len(res.Items),
		"dropped", len(res.DroppedIDs),
		"tokens", used,
		"max_tokens", cfg.MaxTokens)
	return res, nil
}

// buildPool validates every candidate and drops the expired ones.
func (e *Engine) buildPool(current, offered []model.ContextItem, maxTokens int, res *AdmissionResult) ([]candidate, error) {
	now := e.now()
	pool := make([]candidate, 0, len(current)+len(offered))
	var expired []string
	seen := make(map[string]bool, cap(pool))
	for _, src := range [][]model.ContextItem{current, offered} {
		for _, it := range src {
			if seen[it.ID] {
				return nil, &model.DuplicateIDError{ID: it.ID}
			}
			seen[it.ID] = true
			if !it.Kind.Valid() {
				return nil, fmt.Errorf("%w: item %q has unknown kind %q", ErrInvalidItem, it.ID, it.Kind)
			}
			if it.Importance < 0 || it.Importance > 1 || math.IsNaN(it.Importance) {
				return nil, fmt.Errorf("%w: item %q importance %v outside [0,1]", ErrInvalidItem, it.ID, it.Importance)
			}
			if it.TokenCount < 0 {
				return nil, fmt.Errorf("%w: item %q has negative token count %d", ErrInvalidItem, it.ID, it.TokenCount)
			}
			if it.Expired(now) {
				expired = append(expired, it.ID)
				continue
			}
			if it.TokenCount > maxTokens {
				return nil, &ItemTooLargeError{ID: it.ID, Tokens: it.TokenCount, MaxTokens: maxTokens}
			}
			pool = append(pool, candidate{item: it, pos: len(pool)})
		}
	}
	for _, id := range expired {
		res.DroppedIDs[id] = DropExpired
	}
	if len(expired) > 0 {
		e.log.Debug("dropped expired items", "count", len(expired))
	}
	return pool, nil
}

// resolveRedundancy collapses near-duplicate embedded items. Pairs at or
// above the threshold are unioned, so chains of near-duplicates form one
// group, and each group keeps a single survivor. System items are never
// dropped here; a group holding any system item drops its other members.
// Near-duplicate system items therefore all survive, since every system
// item must be admitted.
func (e *Engine) resolveRedundancy(pool []candidate, cfg Config, res *AdmissionResult) []candidate {
	var embedded []int
	for i := range pool {
		if pool[i].item.HasEmbedding() {
			embedded = append(embedded, i)
		}
	}
	if len(embedded) < 2 {
		return pool
	}
	sort.SliceStable(embedded, func(a, b int) bool {
		x, y := pool[embedded[a]].item, pool[embedded[b]].item
		if !x.CreatedAt.Equal(y.CreatedAt) {
			return x.CreatedAt.Before(y.CreatedAt)
		}
		return embedded[a] < embedded[b]
	})

	uf := newUnionFind(len(pool))
	for a := 0; a < len(embedded); a++ {
		for b := a + 1; b < len(embedded); b++ {
			i, j := embedded[a], embedded[b]
			if e.scorer.Similarity(pool[i].item.Embedding, pool[j].item.Embedding) >= cfg.SimilarityThreshold {
				uf.union(i, j)
			}
		}
	}

	groups := map[int][]int{}
	for _, i := range embedded {
		r := uf.find(i)
		groups[r] = append(groups[r], i)
	}

	drop := map[int]bool{}
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		hasSystem := false
		for _, i := range members {
			if pool[i].item.Kind == model.KindSystem {
				hasSystem = true
				break
			}
		}
		if hasSystem {
			for _, i := range members {
				if pool[i].item.Kind != model.KindSystem {
					drop[i] = true
				}
			}
			continue
		}
		best := members[0]
		for _, i := range members[1:] {
			if supersedes(pool[i], pool[best], cfg.KindWeights) {
				best = i
			}
		}
		for _, i := range members {
			if i != best {
				drop[i] = true
			}
		}
	}

	out := make([]candidate, 0, len(pool)-len(drop))
	for i, c := range pool {
		if drop[i] {
			res.DroppedIDs[c.item.ID] = DropRedundant
			e.log.Debug("dropped redundant item", "id", c.item.ID, "kind", c.item.Kind)
			continue
		}
		out = append(out, c)
	}
	return out
}

// supersedes reports whether a should be kept over its near-duplicate b:
// newer first, then more important, then heavier kind, then later in the pool.
func supersedes(a, b candidate, weights map[model.Kind]float64) bool {
	if !a.item.CreatedAt.Equal(b.item.CreatedAt) {
		return a.item.CreatedAt.After(b.item.CreatedAt)
	}
	if a.item.Importance != b.item.Importance {
		return a.item.Importance > b.item.Importance
	}
	if wa, wb := weights[a.item.Kind], weights[b.item.Kind]; wa != wb {
		return wa > wb
	}
	return a.pos > b.pos
}

// rank admits system items unconditionally, then walks the rest by score and
// stops at the first item that would overflow the budget or the item cap.
func (e *Engine) rank(pool []candidate, cfg Config, res *AdmissionResult) ([]candidate, int, error) {
	now := e.now()
	halfLife := cfg.RecencyHalfLife.Seconds()

	admitted := make([]candidate, 0, len(pool))
	rest := make([]candidate, 0, len(pool))
	used := 0
	for _, c := range pool {
		if c.item.Kind == model.KindSystem {
			admitted = append(admitted, c)
			used += c.item.TokenCount
			continue
		}
		age := now.Sub(c.item.CreatedAt).Seconds()
		if age < 0 {
			age = 0
		}
		c.score = cfg.KindWeights[c.item.Kind] * c.item.Importance * math.Exp(-age/halfLife)
		rest = append(rest, c)
	}
	if used > cfg.MaxTokens || (cfg.MaxItems > 0 && len(admitted) > cfg.MaxItems) {
		return nil, 0, &BudgetInfeasibleError{
			SystemTokens: used,
			MaxTokens:    cfg.MaxTokens,
			SystemItems:  len(admitted),
			MaxItems:     cfg.MaxItems,
		}
	}

	sort.SliceStable(rest, func(i, j int) bool {
		a, b := rest[i], rest[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if !a.item.CreatedAt.Equal(b.item.CreatedAt) {
			return a.item.CreatedAt.After(b.item.CreatedAt)
		}
		return a.pos < b.pos
	})

	for i, c := range rest {
		var reason DropReason
		switch {
		case cfg.MaxItems > 0 && len(admitted) >= cfg.MaxItems:
			reason = DropItemCap
		case used+c.item.TokenCount > cfg.MaxTokens:
			reason = DropBudget
		}
		if reason != "" {
			for _, d := range rest[i:] {
				res.DroppedIDs[d.item.ID] = reason
			}
			e.log.Debug("admission cutoff",
				"reason", reason,
				"at_id", c.item.ID,
				"score", c.score,
				"used", used,
				"dropped", len(rest)-i)
			break
		}
		admitted = append(admitted, c)
		used += c.item.TokenCount
	}
	return admitted, used, nil
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}
