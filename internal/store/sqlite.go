package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/agent-context/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id          TEXT PRIMARY KEY,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS context_items (
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		seq         INTEGER NOT NULL,
		id          TEXT NOT NULL,
		kind        TEXT NOT NULL,
		content     TEXT NOT NULL,
		embedding   TEXT,
		created_at  TEXT NOT NULL,
		token_count INTEGER NOT NULL,
		importance  REAL NOT NULL,
		meta        TEXT,
		expires_at  TEXT,
		PRIMARY KEY (conversation_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_items_seq ON context_items(conversation_id, seq);

	CREATE TABLE IF NOT EXISTS memory_records (
		agent       TEXT NOT NULL,
		id          TEXT NOT NULL,
		type        TEXT NOT NULL DEFAULT '',
		content     TEXT NOT NULL,
		embedding   TEXT,
		created_at  TEXT NOT NULL,
		importance  REAL NOT NULL,
		access_count INTEGER NOT NULL DEFAULT 0,
		last_accessed_at TEXT NOT NULL,
		meta        TEXT,
		PRIMARY KEY (agent, id)
	);
	CREATE INDEX IF NOT EXISTS idx_records_agent_created ON memory_records(agent, created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	// Databases created before expiry support; fails harmlessly once the
	// column exists.
	s.db.Exec(`ALTER TABLE context_items ADD COLUMN expires_at TEXT`)
	return nil
}

func (s *SQLiteStore) SaveConversation(ctx context.Context, id string, items []model.ContextItem) error {
	now := formatTime(s.now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		id, now, now)
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM context_items WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}

	for i, it := range items {
		emb, err := encodeJSON(it.Embedding, len(it.Embedding) > 0)
		if err != nil {
			return fmt.Errorf("encode embedding %s: %w", it.ID, err)
		}
		meta, err := encodeJSON(it.Metadata, len(it.Metadata) > 0)
		if err != nil {
			return fmt.Errorf("encode metadata %s: %w", it.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO context_items (conversation_id, seq, id, kind, content, embedding, created_at, token_count, importance, meta, expires_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, it.ID, string(it.Kind), it.Content, emb, formatTime(it.CreatedAt), it.TokenCount, it.Importance, meta,
			formatOptionalTime(it.ExpiresAt))
		if err != nil {
			return fmt.Errorf("insert item %s: %w", it.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadConversation(ctx context.Context, id string) ([]model.ContextItem, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, &model.NotFoundError{ID: id}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, content, embedding, created_at, token_count, importance, meta, expires_at
		 FROM context_items WHERE conversation_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.ContextItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) ListConversations(ctx context.Context) ([]ConversationInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.created_at, c.updated_at,
		       COUNT(i.id), COALESCE(SUM(i.token_count), 0)
		FROM conversations c
		LEFT JOIN context_items i ON i.conversation_id = c.id
		GROUP BY c.id
		ORDER BY c.updated_at DESC, c.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []ConversationInfo
	for rows.Next() {
		var c ConversationInfo
		var created, updated string
		if err := rows.Scan(&c.ID, &created, &updated, &c.Items, &c.Tokens); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(created)
		c.UpdatedAt = parseTime(updated)
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &model.NotFoundError{ID: id}
	}
	return nil
}

func (s *SQLiteStore) SaveMemories(ctx context.Context, agent string, records []model.MemoryRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_records WHERE agent = ?`, agent); err != nil {
		return fmt.Errorf("clear memories: %w", err)
	}
	for _, r := range records {
		if _, err := insertRecord(ctx, tx, "INSERT", agent, r); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadMemories(ctx context.Context, agent string) ([]model.MemoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT agent, id, type, content, embedding, created_at, importance, access_count, last_accessed_at, meta
		 FROM memory_records WHERE agent = ? ORDER BY created_at, id`, agent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.MemoryRecord{}
	for rows.Next() {
		m, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, m.MemoryRecord)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertRecord writes one memory row. verb is "INSERT" or "INSERT OR IGNORE".
func insertRecord(ctx context.Context, db execer, verb, agent string, r model.MemoryRecord) (bool, error) {
	emb, err := encodeJSON(r.Embedding, len(r.Embedding) > 0)
	if err != nil {
		return false, fmt.Errorf("encode embedding %s: %w", r.ID, err)
	}
	meta, err := encodeJSON(r.Metadata, len(r.Metadata) > 0)
	if err != nil {
		return false, fmt.Errorf("encode metadata %s: %w", r.ID, err)
	}
	res, err := db.ExecContext(ctx, verb+` INTO memory_records
		(agent, id, type, content, embedding, created_at, importance, access_count, last_accessed_at, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agent, r.ID, r.Type, r.Content, emb, formatTime(r.CreatedAt), r.Importance,
		r.AccessCount, formatTime(r.LastAccessedAt), meta)
	if err != nil {
		return false, fmt.Errorf("insert memory %s: %w", r.ID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (model.ContextItem, error) {
	var it model.ContextItem
	var kind, createdAt string
	var emb, meta, expiresAt sql.NullString

	err := row.Scan(&it.ID, &kind, &it.Content, &emb, &createdAt, &it.TokenCount, &it.Importance, &meta, &expiresAt)
	if err != nil {
		return it, err
	}
	it.Kind = model.Kind(kind)
	it.CreatedAt = parseTime(createdAt)
	if expiresAt.Valid {
		it.ExpiresAt = parseTime(expiresAt.String)
	}
	if err := decodeJSON(emb, &it.Embedding); err != nil {
		return it, fmt.Errorf("decode embedding %s: %w", it.ID, err)
	}
	if err := decodeJSON(meta, &it.Metadata); err != nil {
		return it, fmt.Errorf("decode metadata %s: %w", it.ID, err)
	}
	return it, nil
}

func scanRecord(row scanner) (ExportedMemory, error) {
	var m ExportedMemory
	var createdAt, lastAccessed string
	var emb, meta sql.NullString

	err := row.Scan(&m.Agent, &m.ID, &m.Type, &m.Content, &emb, &createdAt,
		&m.Importance, &m.AccessCount, &lastAccessed, &meta)
	if err != nil {
		return m, err
	}
	m.CreatedAt = parseTime(createdAt)
	m.LastAccessedAt = parseTime(lastAccessed)
	if err := decodeJSON(emb, &m.Embedding); err != nil {
		return m, fmt.Errorf("decode embedding %s: %w", m.ID, err)
	}
	if err := decodeJSON(meta, &m.Metadata); err != nil {
		return m, fmt.Errorf("decode metadata %s: %w", m.ID, err)
	}
	return m, nil
}

// timeLayout is fixed width so stored timestamps sort as strings. It keeps
// nanoseconds so tie-breaks on creation time survive a round trip.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatOptionalTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := formatTime(t)
	return &s
}

// parseTime also accepts the variable-width RFC 3339 form older rows used.
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func encodeJSON(v any, present bool) (*string, error) {
	if !present {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	str := string(b)
	return &str, nil
}

func decodeJSON(s sql.NullString, dst any) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), dst)
}
