package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-context/internal/model"
	"github.com/rcliao/agent-context/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "memories",
		Short: "List an agent's memories",
		Run:   runMemories,
	}

	cmd.Flags().StringP("agent", "a", defaultAgent, "Agent identity")
	cmd.Flags().StringP("type", "t", "", "Filter by type")
	cmd.Flags().StringP("grep", "g", "", "Only memories whose content contains this text")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

// recordView is a memory record without its embedding.
type recordView struct {
	ID             string            `json:"id"`
	Type           string            `json:"type"`
	Content        string            `json:"content"`
	Importance     float64           `json:"importance"`
	AccessCount    int               `json:"access_count"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	HasEmbedding   bool              `json:"has_embedding"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

func viewRecords(recs []model.MemoryRecord) []recordView {
	views := make([]recordView, len(recs))
	for i, r := range recs {
		views[i] = recordView{
			ID:             r.ID,
			Type:           r.Type,
			Content:        r.Content,
			Importance:     r.Importance,
			AccessCount:    r.AccessCount,
			CreatedAt:      r.CreatedAt,
			LastAccessedAt: r.LastAccessedAt,
			HasEmbedding:   len(r.Embedding) > 0,
			Metadata:       r.Metadata,
		}
	}
	return views
}

func printRecords(recs []model.MemoryRecord) {
	if textOutput() {
		for _, r := range recs {
			fmt.Printf("%s  %-10s %.2f  %s\n", r.ID, r.Type, r.Importance, preview(r.Content, 60))
		}
		return
	}
	printJSON(viewRecords(recs))
}

func runMemories(cmd *cobra.Command, args []string) {
	agent, _ := cmd.Flags().GetString("agent")
	typ, _ := cmd.Flags().GetString("type")
	grep, _ := cmd.Flags().GetString("grep")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	recs, err := s.SearchMemories(cmd.Context(), store.SearchParams{
		Agent: agent,
		Query: grep,
		Type:  typ,
		Limit: limit,
	})
	if err != nil {
		exitErr("list memories", err)
	}
	printRecords(recs)
}
