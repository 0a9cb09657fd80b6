package store

import (
	"context"
	"fmt"
	"strings"
)

// ExportMemories returns saved memory records, optionally filtered by agent.
func (s *SQLiteStore) ExportMemories(ctx context.Context, agent string) ([]ExportedMemory, error) {
	where := []string{"1 = 1"}
	args := []any{}

	if agent != "" {
		where = append(where, "agent = ?")
		args = append(args, agent)
	}

	query := `SELECT agent, id, type, content, embedding, created_at, importance, access_count, last_accessed_at, meta
	          FROM memory_records WHERE ` + strings.Join(where, " AND ") + ` ORDER BY agent, created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memories := []ExportedMemory{}
	for rows.Next() {
		m, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// ImportMemories stores records from an export. Records whose agent and id
// already exist are skipped. Returns the number of records written.
func (s *SQLiteStore) ImportMemories(ctx context.Context, memories []ExportedMemory) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	imported := 0
	for _, m := range memories {
		if m.ID == "" {
			return 0, fmt.Errorf("import: record without id (agent %q)", m.Agent)
		}
		if m.LastAccessedAt.IsZero() {
			m.LastAccessedAt = m.CreatedAt
		}
		ok, err := insertRecord(ctx, tx, "INSERT OR IGNORE", m.Agent, m.MemoryRecord)
		if err != nil {
			return 0, err
		}
		if ok {
			imported++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return imported, nil
}
