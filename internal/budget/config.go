package budget

import (
	"fmt"
	"math"
	"time"

	"github.com/rcliao/agent-context/internal/model"
)

// Defaults for Config fields.
const (
	DefaultSimilarityThreshold = 0.92
	DefaultRecencyHalfLife     = time.Hour
)

// Config controls one admission call. It is passed by value and checked by
// Validate at the start of every Admit.
type Config struct {
	// MaxTokens is the hard ceiling on summed token counts.
	MaxTokens int
	// SimilarityThreshold is the similarity at or above which two embedded
	// items are redundant.
	SimilarityThreshold float64
	// KindWeights is the base priority multiplier per kind. Every kind
	// must be present.
	KindWeights map[model.Kind]float64
	// RecencyHalfLife scales the exponential recency factor.
	RecencyHalfLife time.Duration
	// KindOrder is the presentation order of kinds. Empty means
	// model.Kinds; otherwise it must list every kind exactly once.
	KindOrder []model.Kind
	// MaxItems caps the number of admitted items, system items included.
	// Zero means no cap.
	MaxItems int
}

// DefaultKindWeights ranks system highest, then user input, collaboration,
// agent replies, tool results and memories.
func DefaultKindWeights() map[model.Kind]float64 {
	return map[model.Kind]float64{
		model.KindSystem:        1.0,
		model.KindUser:          0.8,
		model.KindCollaboration: 0.7,
		model.KindAgentReply:    0.6,
		model.KindToolResult:    0.5,
		model.KindMemory:        0.4,
	}
}

// DefaultConfig returns a valid config for the given ceiling.
func DefaultConfig(maxTokens int) Config {
	return Config{
		MaxTokens:           maxTokens,
		SimilarityThreshold: DefaultSimilarityThreshold,
		KindWeights:         DefaultKindWeights(),
		RecencyHalfLife:     DefaultRecencyHalfLife,
	}
}

// Validate reports every problem with c as a single *InvalidConfigError.
func (c Config) Validate() error {
	var problems []string
	if c.MaxTokens <= 0 {
		problems = append(problems, fmt.Sprintf("max_tokens must be positive, got %d", c.MaxTokens))
	}
	if math.IsNaN(c.SimilarityThreshold) || c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		problems = append(problems, fmt.Sprintf("similarity_threshold must be in (0,1], got %v", c.SimilarityThreshold))
	}
	if c.MaxItems < 0 {
		problems = append(problems, fmt.Sprintf("max_items must not be negative, got %d", c.MaxItems))
	}
	if c.RecencyHalfLife <= 0 {
		problems = append(problems, fmt.Sprintf("recency_half_life must be positive, got %s", c.RecencyHalfLife))
	}

	for k, w := range c.KindWeights {
		if !k.Valid() {
			problems = append(problems, fmt.Sprintf("kind_weights: unknown kind %q", k))
			continue
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			problems = append(problems, fmt.Sprintf("kind_weights[%s] must be a non-negative number, got %v", k, w))
		}
	}
	for _, k := range model.Kinds {
		if _, ok := c.KindWeights[k]; !ok {
			problems = append(problems, fmt.Sprintf("kind_weights: missing kind %q", k))
		}
	}

	if len(c.KindOrder) > 0 {
		seen := map[model.Kind]bool{}
		for _, k := range c.KindOrder {
			if !k.Valid() {
				problems = append(problems, fmt.Sprintf("kind_order: unknown kind %q", k))
				continue
			}
			if seen[k] {
				problems = append(problems, fmt.Sprintf("kind_order: kind %q listed twice", k))
			}
			seen[k] = true
		}
		for _, k := range model.Kinds {
			if !seen[k] {
				problems = append(problems, fmt.Sprintf("kind_order: missing kind %q", k))
			}
		}
	}

	if len(problems) > 0 {
		return &InvalidConfigError{Problems: problems}
	}
	return nil
}

func (c Config) kindRank() map[model.Kind]int {
	order := c.KindOrder
	if len(order) == 0 {
		order = model.Kinds
	}
	rank := make(map[model.Kind]int, len(order))
	for i, k := range order {
		rank[k] = i
	}
	return rank
}
