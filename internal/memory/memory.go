// Package memory keeps long-lived memory records for one agent identity,
// with relevance queries and decay-based consolidation.
//
// A Store is safe for concurrent use. Queries run concurrently with each
// other; Add, Remove, Consolidate and PruneBelow take the store exclusively.
package memory

import (
	"fmt"
	"log/slog"
	"maps"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rcliao/agent-context/internal/model"
	"github.com/rcliao/agent-context/internal/similarity"
)

// Store holds memory records in insertion order.
type Store struct {
	mu      sync.RWMutex
	entries []*entry
	index   map[string]*entry

	scorer similarity.Scorer
	now    func() time.Time
	log    *slog.Logger
}

// entry guards the access statistics of one record; every other field of
// rec is immutable after Add.
type entry struct {
	mu  sync.Mutex
	rec model.MemoryRecord
}

func (e *entry) snapshot() model.MemoryRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec
}

func (e *entry) lastAccessed() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.LastAccessedAt
}

func (e *entry) touch(now time.Time) model.MemoryRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rec.AccessCount++
	e.rec.LastAccessedAt = now
	return e.rec
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for access times and decay.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithScorer sets the similarity scorer. Default: similarity.Cosine.
func WithScorer(sc similarity.Scorer) Option {
	return func(s *Store) { s.scorer = sc }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		index:  map[string]*entry{},
		scorer: similarity.Cosine{},
		now:    time.Now,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Add appends rec. An empty ID gets a fresh one, a zero CreatedAt gets the
// current time and a zero LastAccessedAt starts at CreatedAt. AccessCount
// is kept as given so snapshots can be restored.
func (s *Store) Add(rec model.MemoryRecord) (model.MemoryRecord, error) {
	if rec.Importance < 0 || rec.Importance > 1 || math.IsNaN(rec.Importance) {
		return model.MemoryRecord{}, fmt.Errorf("memory importance %v outside [0,1]", rec.Importance)
	}
	if rec.ID == "" {
		rec.ID = model.NewID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	if rec.LastAccessedAt.IsZero() {
		rec.LastAccessedAt = rec.CreatedAt
	}
	if rec.Metadata != nil {
		rec.Metadata = maps.Clone(rec.Metadata)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[rec.ID]; ok {
		return model.MemoryRecord{}, &model.DuplicateIDError{ID: rec.ID}
	}
	e := &entry{rec: rec}
	s.entries = append(s.entries, e)
	s.index[rec.ID] = e
	return rec, nil
}

// Get returns a record without counting it as an access.
func (s *Store) Get(id string) (model.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.index[id]
	if !ok {
		return model.MemoryRecord{}, &model.NotFoundError{ID: id}
	}
	return e.snapshot(), nil
}

// Remove deletes a record.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[id]; !ok {
		return &model.NotFoundError{ID: id}
	}
	s.removeLocked(map[string]bool{id: true})
	return nil
}

func (s *Store) removeLocked(ids map[string]bool) {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if ids[e.rec.ID] {
			delete(s.index, e.rec.ID)
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(s.entries); i++ {
		s.entries[i] = nil
	}
	s.entries = kept
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// All returns a snapshot of every record in insertion order.
func (s *Store) All() []model.MemoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.MemoryRecord, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.snapshot()
	}
	return out
}

// QueryOption narrows a Query.
type QueryOption func(*queryFilter)

type queryFilter struct {
	types  map[string]bool
	minSim float64
}

// OfTypes keeps only records whose Type is one of types. No types means
// any type.
func OfTypes(types ...string) QueryOption {
	return func(f *queryFilter) {
		if len(types) == 0 {
			return
		}
		f.types = make(map[string]bool, len(types))
		for _, t := range types {
			f.types[t] = true
		}
	}
}

// MinSimilarity keeps only records at least v similar to the query.
func MinSimilarity(v float64) QueryOption {
	return func(f *queryFilter) { f.minSim = v }
}

// Query returns up to maxResults records with Importance at or above
// importanceThreshold, most similar to q first. Ties go to the most
// recently accessed record, then the lower id. Every returned record has
// its access count incremented and its access time set to now, and the
// returned copies include that update. Records excluded by opts are not
// touched.
func (s *Store) Query(q similarity.Vector, maxResults int, importanceThreshold float64, opts ...QueryOption) []model.MemoryRecord {
	if maxResults <= 0 {
		return nil
	}
	var f queryFilter
	for _, o := range opts {
		o(&f)
	}
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	type hit struct {
		e    *entry
		sim  float64
		last time.Time
	}
	hits := make([]hit, 0, len(s.entries))
	for _, e := range s.entries {
		if e.rec.Importance < importanceThreshold {
			continue
		}
		if f.types != nil && !f.types[e.rec.Type] {
			continue
		}
		sim := s.scorer.Similarity(q, e.rec.Embedding)
		if sim < f.minSim {
			continue
		}
		hits = append(hits, hit{e: e, sim: sim, last: e.lastAccessed()})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.sim != b.sim {
			return a.sim > b.sim
		}
		if !a.last.Equal(b.last) {
			return a.last.After(b.last)
		}
		return a.e.rec.ID < b.e.rec.ID
	})
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}

	out := make([]model.MemoryRecord, len(hits))
	for i, h := range hits {
		out[i] = h.e.touch(now)
	}
	return out
}

// Recent returns records created at or after since, newest first, at most
// max of them (max <= 0 means no limit). It does not count as an access.
func (s *Store) Recent(since time.Time, max int) []model.MemoryRecord {
	s.mu.RLock()
	var out []model.MemoryRecord
	for _, e := range s.entries {
		if !e.rec.CreatedAt.Before(since) {
			out = append(out, e.snapshot())
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

// DecayedImportance scales importance down by the time since last access.
func DecayedImportance(rec model.MemoryRecord, now time.Time, halfLife time.Duration) float64 {
	age := now.Sub(rec.LastAccessedAt)
	if age < 0 {
		age = 0
	}
	return rec.Importance * math.Exp(-float64(age)/float64(halfLife))
}
