package memory

import (
	"fmt"
	"sort"
	"time"

	"github.com/rcliao/agent-context/internal/model"
)

// ConsolidationReport describes one consolidation or prune pass.
type ConsolidationReport struct {
	Before  int      `json:"before"`
	After   int      `json:"after"`
	Removed []string `json:"removed"`
}

type decayed struct {
	e     *entry
	value float64
	last  time.Time
}

// rankByDecay orders entries weakest first: lowest decayed importance, then
// least recently accessed, then oldest, then lowest id.
func (s *Store) rankByDecay(now time.Time, halfLife time.Duration) []decayed {
	ranked := make([]decayed, len(s.entries))
	for i, e := range s.entries {
		rec := e.snapshot()
		ranked[i] = decayed{e: e, value: DecayedImportance(rec, now, halfLife), last: rec.LastAccessedAt}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.value != b.value {
			return a.value < b.value
		}
		if !a.last.Equal(b.last) {
			return a.last.Before(b.last)
		}
		if !a.e.rec.CreatedAt.Equal(b.e.rec.CreatedAt) {
			return a.e.rec.CreatedAt.Before(b.e.rec.CreatedAt)
		}
		return a.e.rec.ID < b.e.rec.ID
	})
	return ranked
}

// Consolidate removes the records with the lowest decayed importance until
// at most maxRecords remain. Repeating it with the same clock reading
// removes nothing more.
func (s *Store) Consolidate(maxRecords int, decayHalfLife time.Duration) (ConsolidationReport, error) {
	if maxRecords < 0 {
		return ConsolidationReport{}, fmt.Errorf("consolidate: max records must not be negative, got %d", maxRecords)
	}
	if decayHalfLife <= 0 {
		return ConsolidationReport{}, fmt.Errorf("consolidate: decay half-life must be positive, got %s", decayHalfLife)
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	report := ConsolidationReport{Before: len(s.entries), Removed: []string{}}
	excess := len(s.entries) - maxRecords
	if excess > 0 {
		ranked := s.rankByDecay(now, decayHalfLife)
		remove := make(map[string]bool, excess)
		for _, d := range ranked[:excess] {
			remove[d.e.rec.ID] = true
			report.Removed = append(report.Removed, d.e.rec.ID)
		}
		s.removeLocked(remove)
	}
	report.After = len(s.entries)

	if len(report.Removed) > 0 {
		s.log.Info("memory consolidated",
			"before", report.Before,
			"after", report.After,
			"max_records", maxRecords)
	}
	return report, nil
}

// PruneBelow removes every record whose decayed importance is below
// threshold.
func (s *Store) PruneBelow(threshold float64, decayHalfLife time.Duration) (ConsolidationReport, error) {
	if decayHalfLife <= 0 {
		return ConsolidationReport{}, fmt.Errorf("prune: decay half-life must be positive, got %s", decayHalfLife)
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	report := ConsolidationReport{Before: len(s.entries), Removed: []string{}}
	remove := map[string]bool{}
	for _, d := range s.rankByDecay(now, decayHalfLife) {
		if d.value >= threshold {
			break
		}
		remove[d.e.rec.ID] = true
		report.Removed = append(report.Removed, d.e.rec.ID)
	}
	s.removeLocked(remove)
	report.After = len(s.entries)

	if len(report.Removed) > 0 {
		s.log.Info("memory pruned", "removed", len(report.Removed), "threshold", threshold)
	}
	return report, nil
}

// Stats summarizes the store.
type Stats struct {
	Total        int            `json:"total"`
	ByType       map[string]int `json:"by_type"`
	ByImportance map[string]int `json:"by_importance"`
	Accesses     int            `json:"accesses"`
}

// Importance bands used by Stats.
const (
	bandLow    = "low"
	bandMedium = "medium"
	bandHigh   = "high"
)

func importanceBand(v float64) string {
	switch {
	case v < 0.4:
		return bandLow
	case v < 0.7:
		return bandMedium
	default:
		return bandHigh
	}
}

// Stats counts records by type and importance band.
func (s *Store) Stats() Stats {
	st := Stats{
		ByType:       map[string]int{},
		ByImportance: map[string]int{bandLow: 0, bandMedium: 0, bandHigh: 0},
	}
	for _, rec := range s.All() {
		st.Total++
		typ := rec.Type
		if typ == "" {
			typ = "unknown"
		}
		st.ByType[typ]++
		st.ByImportance[importanceBand(rec.Importance)]++
		st.Accesses += rec.AccessCount
	}
	return st
}

// Promote builds a memory record from a context item. Deciding which items
// deserve promotion is up to the caller.
func Promote(item model.ContextItem, typ string) model.MemoryRecord {
	meta := map[string]string{"kind": string(item.Kind)}
	for k, v := range item.Metadata {
		meta[k] = v
	}
	return model.MemoryRecord{
		ID:             item.ID,
		Type:           typ,
		Content:        item.Content,
		Embedding:      item.Embedding,
		CreatedAt:      item.CreatedAt,
		Importance:     item.Importance,
		LastAccessedAt: item.CreatedAt,
		Metadata:       meta,
	}
}
