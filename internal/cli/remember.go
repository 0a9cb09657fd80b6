package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-context/internal/memory"
	"github.com/rcliao/agent-context/internal/model"
)

const defaultAgent = "default"

func init() {
	cmd := &cobra.Command{
		Use:   "remember [content]",
		Short: "Store a memory for an agent",
		Long: "Store a memory. Content can be a positional arg or piped via stdin.\n" +
			"With --conversation and --item, promote an admitted context item instead.",
		Run: runRemember,
	}

	cmd.Flags().StringP("agent", "a", defaultAgent, "Agent identity that owns the memory")
	cmd.Flags().StringP("type", "t", model.MemoryFact, "Type: conversation, fact, preference")
	cmd.Flags().Float64P("importance", "i", model.DefaultImportance, "Importance in [0,1]")
	cmd.Flags().StringArrayP("meta", "m", nil, "Metadata key=value (repeatable)")
	cmd.Flags().String("conversation", "", "Conversation to promote an item from")
	cmd.Flags().String("item", "", "Context item id to promote")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	agent, _ := cmd.Flags().GetString("agent")
	typ, _ := cmd.Flags().GetString("type")
	importance, _ := cmd.Flags().GetFloat64("importance")
	metaPairs, _ := cmd.Flags().GetStringArray("meta")
	convID, _ := cmd.Flags().GetString("conversation")
	itemID, _ := cmd.Flags().GetString("item")
	ctx := cmd.Context()

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var rec model.MemoryRecord
	switch {
	case itemID != "":
		if convID == "" {
			exitErr("remember", fmt.Errorf("--item requires --conversation"))
		}
		items, err := s.LoadConversation(ctx, convID)
		if err != nil {
			exitErr("load conversation", err)
		}
		found := false
		for _, it := range items {
			if it.ID == itemID {
				rec = memory.Promote(it, typ)
				found = true
				break
			}
		}
		if !found {
			exitErr("remember", &model.NotFoundError{ID: itemID})
		}
		if cmd.Flags().Changed("importance") {
			rec.Importance = importance
		}
	default:
		content := readContent(args)
		if content == "" {
			exitErr("remember", fmt.Errorf("content is required (positional arg or stdin)"))
		}
		rec = model.MemoryRecord{
			Type:       typ,
			Content:    content,
			Importance: importance,
			Metadata:   parseMeta(metaPairs),
		}
		if e := newEmbedder(); e != nil {
			vec, err := e.Embed(ctx, content)
			if err != nil {
				exitErr("embed", err)
			}
			rec.Embedding = vec
		}
	}

	mem, err := loadMemory(ctx, s, agent)
	if err != nil {
		exitErr("load memories", err)
	}
	added, err := mem.Add(rec)
	if err != nil {
		exitErr("remember", err)
	}
	if err := saveMemory(ctx, s, agent, mem); err != nil {
		exitErr("save memories", err)
	}

	printJSON(viewRecords([]model.MemoryRecord{added})[0])
}
