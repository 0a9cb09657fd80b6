package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/agent-context/internal/budget"
	"github.com/rcliao/agent-context/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	bc, err := cfg.BudgetConfig()
	require.NoError(t, err)
	assert.Equal(t, budget.DefaultKindWeights(), bc.KindWeights)
	assert.Empty(t, bc.KindOrder)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
db_path: /tmp/ctx.db
model_family: gpt-4o
budget:
  max_tokens: 2048
  similarity_threshold: 0.85
  recency_half_life: 30m
  kind_weights:
    memory: 0.9
  kind_order: [system, memory, collaboration, tool_result, agent_reply, user]
  max_items: 40
memory:
  max_records: 50
  decay_half_life: 48h
  min_relevance: 0.3
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/ctx.db", cfg.DBPath)
	assert.Equal(t, "gpt-4o", cfg.ModelFamily)
	assert.Equal(t, 50, cfg.Memory.MaxRecords)
	assert.Equal(t, 48*time.Hour, cfg.Memory.DecayHalfLife)
	assert.Equal(t, 5, cfg.Memory.MaxResults, "unset fields keep defaults")
	assert.Equal(t, 0.3, cfg.Memory.MinRelevance)

	bc, err := cfg.BudgetConfig()
	require.NoError(t, err)
	assert.Equal(t, 2048, bc.MaxTokens)
	assert.Equal(t, 0.85, bc.SimilarityThreshold)
	assert.Equal(t, 30*time.Minute, bc.RecencyHalfLife)
	assert.Equal(t, 0.9, bc.KindWeights[model.KindMemory])
	assert.Equal(t, 0.8, bc.KindWeights[model.KindUser], "unlisted kinds keep their default weight")
	assert.Equal(t, model.KindMemory, bc.KindOrder[1])
	assert.Equal(t, 40, bc.MaxItems)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "budget:\n  max_tokenz: 10\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Budget.MaxTokens)
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "budget:\n  max_tokens: 100\n")
	t.Setenv("AGENT_CONTEXT_DB", "/var/lib/ctx.db")
	t.Setenv("AGENT_CONTEXT_BUDGET_MAX_TOKENS", "300")
	t.Setenv("AGENT_CONTEXT_BUDGET_KIND_WEIGHTS", "user:0.3,memory:0.95")
	t.Setenv("AGENT_CONTEXT_MEMORY_DECAY_HALF_LIFE", "12h")
	t.Setenv("AGENT_CONTEXT_EMBEDDING_PROVIDER", "none")
	t.Setenv("AGENT_CONTEXT_BUDGET_MAX_ITEMS", "12")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/ctx.db", cfg.DBPath)
	assert.Equal(t, 300, cfg.Budget.MaxTokens, "environment wins over the file")
	assert.Equal(t, 12*time.Hour, cfg.Memory.DecayHalfLife)
	assert.Equal(t, "none", cfg.Embedding.Provider)

	bc, err := cfg.BudgetConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.3, bc.KindWeights[model.KindUser])
	assert.Equal(t, 0.95, bc.KindWeights[model.KindMemory])
	assert.Equal(t, 12, bc.MaxItems)
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := Default()
	cfg.Budget.MaxTokens = 0
	cfg.Budget.KindWeights = map[string]float64{"narration": 1}
	cfg.Memory.DecayHalfLife = 0
	cfg.Memory.PruneBelow = 2
	cfg.Embedding.Provider = "word2vec"
	cfg.Log.Level = "loud"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.ErrorIs(t, err, budget.ErrInvalidConfig)

	var ice *budget.InvalidConfigError
	require.ErrorAs(t, err, &ice)
	assert.Len(t, ice.Problems, 6)
	assert.Contains(t, ice.Problems[0], "budget.kind_weights: unknown kind")
}

func TestBudgetConfigValidates(t *testing.T) {
	cfg := Default()
	cfg.Budget.KindOrder = []string{"system", "user"}
	_, err := cfg.BudgetConfig()
	assert.ErrorIs(t, err, budget.ErrInvalidConfig)

	cfg.Budget.KindOrder = nil
	cfg.Budget.SimilarityThreshold = 1.5
	_, err = cfg.BudgetConfig()
	assert.ErrorIs(t, err, budget.ErrInvalidConfig)
}

func TestSlogLevel(t *testing.T) {
	lvl, err := LogConfig{Level: "DEBUG"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", lvl.String())

	_, err = LogConfig{Level: "verbose"}.SlogLevel()
	assert.Error(t, err)
}
