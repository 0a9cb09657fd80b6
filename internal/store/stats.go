package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath        string       `json:"db_path"`
	DBSizeBytes   int64        `json:"db_size_bytes"`
	Conversations int          `json:"conversations"`
	ContextItems  int          `json:"context_items"`
	ContextTokens int          `json:"context_tokens"`
	Memories      int          `json:"memories"`
	Agents        []AgentStats `json:"agents"`
}

// AgentStats holds per-agent memory counts.
type AgentStats struct {
	Agent    string `json:"agent"`
	Records  int    `json:"records"`
	Accesses int    `json:"accesses"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&st.Conversations)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(token_count), 0) FROM context_items`).Scan(&st.ContextItems, &st.ContextTokens)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_records`).Scan(&st.Memories)

	rows, err := s.db.QueryContext(ctx, `
		SELECT agent, COUNT(*) AS cnt, COALESCE(SUM(access_count), 0)
		FROM memory_records
		GROUP BY agent ORDER BY cnt DESC, agent`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var a AgentStats
		rows.Scan(&a.Agent, &a.Records, &a.Accesses)
		st.Agents = append(st.Agents, a)
	}

	return st, rows.Err()
}
