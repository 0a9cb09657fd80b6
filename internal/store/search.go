package store

import (
	"context"
	"strings"

	"github.com/rcliao/agent-context/internal/model"
)

// SearchMemories finds saved records whose content contains the query
// substring, newest first.
func (s *SQLiteStore) SearchMemories(ctx context.Context, p SearchParams) ([]model.MemoryRecord, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"content LIKE ? ESCAPE '\\'"}
	args := []any{"%" + escapeLike(p.Query) + "%"}

	if p.Agent != "" {
		where = append(where, "agent = ?")
		args = append(args, p.Agent)
	}
	if p.Type != "" {
		where = append(where, "type = ?")
		args = append(args, p.Type)
	}

	query := `SELECT agent, id, type, content, embedding, created_at, importance, access_count, last_accessed_at, meta
	          FROM memory_records WHERE ` + strings.Join(where, " AND ") + `
	          ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.MemoryRecord
	for rows.Next() {
		m, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, m.MemoryRecord)
	}
	return results, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
