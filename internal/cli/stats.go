package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-context/internal/memory"
	"github.com/rcliao/agent-context/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Long:  "Show database statistics. With --agent, also break that agent's memories down by type and importance.",
		Run:   runStats,
	}

	cmd.Flags().StringP("agent", "a", "", "Include memory statistics for this agent")

	RootCmd.AddCommand(cmd)
}

type statsOutput struct {
	*store.Stats
	Memory *memory.Stats `json:"memory,omitempty"`
}

func runStats(cmd *cobra.Command, args []string) {
	agent, _ := cmd.Flags().GetString("agent")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), cfg.DBPath)
	if err != nil {
		exitErr("stats", err)
	}
	out := statsOutput{Stats: stats}

	if agent != "" {
		mem, err := loadMemory(cmd.Context(), s, agent)
		if err != nil {
			exitErr("load memories", err)
		}
		ms := mem.Stats()
		out.Memory = &ms
	}

	if textOutput() {
		fmt.Printf("db: %s (%d bytes)\n", stats.DBPath, stats.DBSizeBytes)
		fmt.Printf("conversations: %d (%d items, %d tokens)\n", stats.Conversations, stats.ContextItems, stats.ContextTokens)
		fmt.Printf("memories: %d\n", stats.Memories)
		for _, a := range stats.Agents {
			fmt.Printf("  %s: %d records, %d accesses\n", a.Agent, a.Records, a.Accesses)
		}
		return
	}
	printJSON(out)
}
