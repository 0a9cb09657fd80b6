package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-context/internal/memory"
	"github.com/rcliao/agent-context/internal/model"
	"github.com/rcliao/agent-context/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: "Find an agent's most relevant memories",
		Long: "Rank memories by similarity to the query. Returned memories count as accessed.\n" +
			"With --admit, offer them to a conversation as memory items.",
		Args: cobra.MinimumNArgs(1),
		Run:  runRecall,
	}

	cmd.Flags().StringP("agent", "a", defaultAgent, "Agent identity")
	cmd.Flags().IntP("max-results", "n", 0, "Max memories (default: memory.max_results)")
	cmd.Flags().Float64("threshold", -1, "Minimum importance (default: memory.importance_threshold)")
	cmd.Flags().StringSliceP("type", "t", nil, "Only recall memories of these types (comma-separated)")
	cmd.Flags().Float64("min-relevance", -1, "Minimum similarity to the query (default: memory.min_relevance)")
	cmd.Flags().String("admit", "", "Conversation to admit the recalled memories into")
	cmd.Flags().Int("max-tokens", 0, "Override the configured token budget when admitting")

	RootCmd.AddCommand(cmd)
}

type recallOutput struct {
	Agent    string       `json:"agent"`
	Memories []recordView `json:"memories"`
	Admitted *admitOutput `json:"admitted,omitempty"`
}

func runRecall(cmd *cobra.Command, args []string) {
	agent, _ := cmd.Flags().GetString("agent")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	types, _ := cmd.Flags().GetStringSlice("type")
	minRelevance, _ := cmd.Flags().GetFloat64("min-relevance")
	convID, _ := cmd.Flags().GetString("admit")
	maxTokens, _ := cmd.Flags().GetInt("max-tokens")
	query := readContent(args)
	ctx := cmd.Context()

	if maxResults <= 0 {
		maxResults = cfg.Memory.MaxResults
	}
	if threshold < 0 {
		threshold = cfg.Memory.ImportanceThreshold
	}
	if minRelevance < 0 {
		minRelevance = cfg.Memory.MinRelevance
	}

	embedder := newEmbedder()
	if embedder == nil {
		exitErr("recall", fmt.Errorf("recall needs an embedding provider (set embedding.provider)"))
	}
	vec, err := embedder.Embed(ctx, query)
	if err != nil {
		exitErr("embed", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	mem, err := loadMemory(ctx, s, agent)
	if err != nil {
		exitErr("load memories", err)
	}
	recs := mem.Query(vec, maxResults, threshold,
		memory.OfTypes(types...), memory.MinSimilarity(minRelevance))
	if err := saveMemory(ctx, s, agent, mem); err != nil {
		exitErr("save memories", err)
	}

	out := recallOutput{Agent: agent, Memories: viewRecords(recs)}
	if convID != "" && len(recs) > 0 {
		out.Admitted = admitMemories(cmd, s, convID, recs, maxTokens)
	}

	if textOutput() {
		printRecords(recs)
		if a := out.Admitted; a != nil {
			fmt.Printf("%s: %d/%d tokens after admitting %d memories\n", a.Conversation, a.TotalTokens, a.MaxTokens, len(a.Offered))
		}
		return
	}
	printJSON(out)
}

func admitMemories(cmd *cobra.Command, s store.Store, convID string, recs []model.MemoryRecord, maxTokens int) *admitOutput {
	ctx := cmd.Context()
	bc := budgetConfig(maxTokens)
	engine, _, err := newEngine()
	if err != nil {
		exitErr("tokenizer", err)
	}

	conv, err := loadConversation(ctx, s, engine, convID)
	if err != nil {
		exitErr("load conversation", err)
	}

	present := map[string]bool{}
	for it := range conv.Store().ByKind(model.KindMemory) {
		present[it.Metadata["memory_id"]] = true
	}

	var offered []model.ContextItem
	out := &admitOutput{Conversation: convID, MaxTokens: bc.MaxTokens}
	for _, r := range recs {
		// already in context
		if present[r.ID] {
			continue
		}
		item, err := engine.FromMemory(r)
		if err != nil {
			exitErr("admit", err)
		}
		offered = append(offered, item)
		out.Offered = append(out.Offered, item.ID)
	}

	res, err := conv.Admit(offered, bc)
	if err != nil {
		exitErr("admit", err)
	}
	if err := saveConversation(ctx, s, conv); err != nil {
		exitErr("save conversation", err)
	}
	out.TotalTokens = res.TotalTokens
	out.Items = viewItems(res.Items)
	out.Dropped = res.DroppedIDs
	return out
}
