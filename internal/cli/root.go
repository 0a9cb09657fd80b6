// Package cli implements the agent-context CLI commands.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-context/internal/budget"
	"github.com/rcliao/agent-context/internal/config"
	"github.com/rcliao/agent-context/internal/embedding"
	"github.com/rcliao/agent-context/internal/store"
	"github.com/rcliao/agent-context/internal/tokenizer"
)

var (
	dbPath     string
	configPath string
	formatFlag string
	logLevel   string

	cfg *config.Config
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "agent-context",
	Short: "Token-budgeted context and memory for AI agents",
	Long: "Decides which context items fit an agent's token budget and keeps a decaying\n" +
		"long-term memory per agent. SQLite-backed, single binary.",
	PersistentPreRunE: setup,
	SilenceUsage:      true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $AGENT_CONTEXT_DB or ~/.agent-context/context.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.agent-context/config.yaml if present)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		loaded.DBPath = dbPath
	}
	if logLevel != "" {
		loaded.Log.Level = logLevel
	}
	if formatFlag != "json" && formatFlag != "text" {
		return fmt.Errorf("unknown --format %q (use json or text)", formatFlag)
	}

	level, err := loaded.Log.SlogLevel()
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if loaded.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))

	cfg = loaded
	return nil
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.DBPath)
}

func newEngine() (*budget.Engine, *tokenizer.Encoder, error) {
	enc, err := tokenizer.ForFamily(cfg.ModelFamily)
	if err != nil {
		return nil, nil, err
	}
	return budget.New(enc, budget.WithLogger(slog.Default())), enc, nil
}

// newEmbedder returns nil when embeddings are turned off.
func newEmbedder() embedding.Embedder {
	e, err := embedding.New(cfg.EmbeddingParams())
	if err != nil {
		exitErr("embedding", err)
	}
	return e
}

// budgetConfig returns the configured budget, with maxTokens overriding the
// configured limit when positive.
func budgetConfig(maxTokens int) budget.Config {
	bc, err := cfg.BudgetConfig()
	if err != nil {
		exitErr("config", err)
	}
	if maxTokens > 0 {
		bc.MaxTokens = maxTokens
	}
	return bc
}

// readContent joins args, or reads piped stdin when there are none.
func readContent(args []string) string {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " "))
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return strings.TrimSpace(string(b))
	}
	return ""
}

// parseMeta turns key=value pairs into a metadata map.
func parseMeta(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	meta := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			exitErr("meta", fmt.Errorf("expected key=value, got %q", p))
		}
		meta[k] = v
	}
	return meta
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func textOutput() bool { return formatFlag == "text" }

func exitErr(msg string, err error) {
	var ice *budget.InvalidConfigError
	if errors.As(err, &ice) {
		fmt.Fprintf(os.Stderr, "error: %s:\n  %s\n", msg, strings.Join(ice.Problems, "\n  "))
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
