// Package config loads agent-context settings from an optional YAML file and
// AGENT_CONTEXT_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/agent-context/internal/budget"
	"github.com/rcliao/agent-context/internal/embedding"
	"github.com/rcliao/agent-context/internal/model"
)

type Config struct {
	DBPath      string          `yaml:"db_path" env:"AGENT_CONTEXT_DB"`
	ModelFamily string          `yaml:"model_family" env:"AGENT_CONTEXT_MODEL_FAMILY"`
	Budget      BudgetConfig    `yaml:"budget"`
	Memory      MemoryConfig    `yaml:"memory"`
	Embedding   EmbeddingConfig `yaml:"embedding"`
	Log         LogConfig       `yaml:"log"`
}

// BudgetConfig mirrors budget.Config with string kinds. KindWeights only
// needs the kinds being changed; the rest keep their defaults.
type BudgetConfig struct {
	MaxTokens           int                `yaml:"max_tokens" env:"AGENT_CONTEXT_BUDGET_MAX_TOKENS"`
	SimilarityThreshold float64            `yaml:"similarity_threshold" env:"AGENT_CONTEXT_BUDGET_SIMILARITY_THRESHOLD"`
	KindWeights         map[string]float64 `yaml:"kind_weights" env:"AGENT_CONTEXT_BUDGET_KIND_WEIGHTS"`
	RecencyHalfLife     time.Duration      `yaml:"recency_half_life" env:"AGENT_CONTEXT_BUDGET_RECENCY_HALF_LIFE"`
	KindOrder           []string           `yaml:"kind_order" env:"AGENT_CONTEXT_BUDGET_KIND_ORDER"`
	MaxItems            int                `yaml:"max_items" env:"AGENT_CONTEXT_BUDGET_MAX_ITEMS"`
}

type MemoryConfig struct {
	MaxRecords          int           `yaml:"max_records" env:"AGENT_CONTEXT_MEMORY_MAX_RECORDS"`
	DecayHalfLife       time.Duration `yaml:"decay_half_life" env:"AGENT_CONTEXT_MEMORY_DECAY_HALF_LIFE"`
	PruneBelow          float64       `yaml:"prune_below" env:"AGENT_CONTEXT_MEMORY_PRUNE_BELOW"`
	MaxResults          int           `yaml:"max_results" env:"AGENT_CONTEXT_MEMORY_MAX_RESULTS"`
	ImportanceThreshold float64       `yaml:"importance_threshold" env:"AGENT_CONTEXT_MEMORY_IMPORTANCE_THRESHOLD"`
	MinRelevance        float64       `yaml:"min_relevance" env:"AGENT_CONTEXT_MEMORY_MIN_RELEVANCE"`
}

type EmbeddingConfig struct {
	Provider string `yaml:"provider" env:"AGENT_CONTEXT_EMBEDDING_PROVIDER"`
	Model    string `yaml:"model" env:"AGENT_CONTEXT_EMBEDDING_MODEL"`
	URL      string `yaml:"url" env:"AGENT_CONTEXT_EMBEDDING_URL"`
	APIKey   string `yaml:"api_key" env:"AGENT_CONTEXT_EMBEDDING_API_KEY"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"AGENT_CONTEXT_LOG_LEVEL"`
	Format string `yaml:"format" env:"AGENT_CONTEXT_LOG_FORMAT"`
}

// Default returns the built-in settings.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DBPath:      filepath.Join(home, ".agent-context", "context.db"),
		ModelFamily: "gpt-4",
		Budget: BudgetConfig{
			MaxTokens:           8000,
			SimilarityThreshold: budget.DefaultSimilarityThreshold,
			RecencyHalfLife:     budget.DefaultRecencyHalfLife,
		},
		Memory: MemoryConfig{
			MaxRecords:          1000,
			DecayHalfLife:       7 * 24 * time.Hour,
			PruneBelow:          0.05,
			MaxResults:          5,
			ImportanceThreshold: 0.2,
		},
		Embedding: EmbeddingConfig{Provider: "local"},
		Log:       LogConfig{Level: "warn", Format: "text"},
	}
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".agent-context", "config.yaml")
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path falls back to DefaultPath, which may
// be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	cfg.DBPath = expandHome(cfg.DBPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting in one *budget.InvalidConfigError.
func (c *Config) Validate() error {
	var problems []string
	if _, err := c.BudgetConfig(); err != nil {
		var ice *budget.InvalidConfigError
		if errors.As(err, &ice) {
			for _, p := range ice.Problems {
				problems = append(problems, "budget."+p)
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	m := c.Memory
	if m.MaxRecords < 0 {
		problems = append(problems, fmt.Sprintf("memory.max_records must not be negative, got %d", m.MaxRecords))
	}
	if m.DecayHalfLife <= 0 {
		problems = append(problems, fmt.Sprintf("memory.decay_half_life must be positive, got %s", m.DecayHalfLife))
	}
	if m.PruneBelow < 0 || m.PruneBelow > 1 {
		problems = append(problems, fmt.Sprintf("memory.prune_below must be in [0,1], got %g", m.PruneBelow))
	}
	if m.MaxResults < 0 {
		problems = append(problems, fmt.Sprintf("memory.max_results must not be negative, got %d", m.MaxResults))
	}
	if m.ImportanceThreshold < 0 || m.ImportanceThreshold > 1 {
		problems = append(problems, fmt.Sprintf("memory.importance_threshold must be in [0,1], got %g", m.ImportanceThreshold))
	}
	if m.MinRelevance < 0 || m.MinRelevance > 1 {
		problems = append(problems, fmt.Sprintf("memory.min_relevance must be in [0,1], got %g", m.MinRelevance))
	}

	switch strings.ToLower(c.Embedding.Provider) {
	case "", "none", "local", "ollama", "openai":
	default:
		problems = append(problems, fmt.Sprintf("embedding.provider %q is not one of local, ollama, openai, none", c.Embedding.Provider))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		problems = append(problems, err.Error())
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q is not text or json", c.Log.Format))
	}

	if len(problems) > 0 {
		return &budget.InvalidConfigError{Problems: problems}
	}
	return nil
}

// BudgetConfig converts the budget section into a validated budget.Config.
func (c *Config) BudgetConfig() (budget.Config, error) {
	b := c.Budget
	out := budget.Config{
		MaxTokens:           b.MaxTokens,
		SimilarityThreshold: b.SimilarityThreshold,
		RecencyHalfLife:     b.RecencyHalfLife,
		KindWeights:         budget.DefaultKindWeights(),
		MaxItems:            b.MaxItems,
	}

	var problems []string
	for name, w := range b.KindWeights {
		k, err := model.ParseKind(name)
		if err != nil {
			problems = append(problems, fmt.Sprintf("kind_weights: unknown kind %q", name))
			continue
		}
		out.KindWeights[k] = w
	}
	for _, name := range b.KindOrder {
		k, err := model.ParseKind(name)
		if err != nil {
			problems = append(problems, fmt.Sprintf("kind_order: unknown kind %q", name))
			continue
		}
		out.KindOrder = append(out.KindOrder, k)
	}
	if len(problems) > 0 {
		return budget.Config{}, &budget.InvalidConfigError{Problems: problems}
	}

	if err := out.Validate(); err != nil {
		return budget.Config{}, err
	}
	return out, nil
}

// EmbeddingParams returns the embedding section as provider parameters.
func (c *Config) EmbeddingParams() embedding.Params {
	return embedding.Params{
		Provider: c.Embedding.Provider,
		Model:    c.Embedding.Model,
		URL:      c.Embedding.URL,
		APIKey:   c.Embedding.APIKey,
	}
}

// SlogLevel parses the level name ("debug", "info", "warn", "error").
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelWarn, nil
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level %q is not debug, info, warn or error", l.Level)
	}
	return lvl, nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
