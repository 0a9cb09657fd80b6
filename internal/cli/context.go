package cli

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-context/internal/contextstore"
	"github.com/rcliao/agent-context/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context <conversation>",
		Short: "Show a conversation's admitted items",
		Args:  cobra.ExactArgs(1),
		Run:   runContext,
	}

	cmd.Flags().StringP("kind", "k", "", "Only show items of this kind")
	cmd.Flags().Duration("since", 0, "Only show items created within this long (e.g. 15m)")

	RootCmd.AddCommand(cmd)
}

type contextOutput struct {
	Conversation string               `json:"conversation"`
	Summary      contextstore.Summary `json:"summary"`
	Items        []itemView           `json:"items"`
}

func runContext(cmd *cobra.Command, args []string) {
	kindStr, _ := cmd.Flags().GetString("kind")
	since, _ := cmd.Flags().GetDuration("since")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	items, err := s.LoadConversation(cmd.Context(), args[0])
	if errors.Is(err, model.ErrNotFound) {
		exitErr("context", fmt.Errorf("conversation %q not found", args[0]))
	}
	if err != nil {
		exitErr("context", err)
	}

	cs := contextstore.New()
	for _, it := range items {
		if err := cs.Add(it); err != nil {
			exitErr("context", err)
		}
	}

	shown := cs.Items()
	if since > 0 {
		shown = slices.Collect(cs.Since(time.Now().Add(-since)))
	}
	if kindStr != "" {
		kind, err := model.ParseKind(kindStr)
		if err != nil {
			exitErr("context", err)
		}
		shown = slices.DeleteFunc(shown, func(it model.ContextItem) bool { return it.Kind != kind })
	}

	sum := cs.Summary()
	if textOutput() {
		fmt.Printf("%s: %d items, %d tokens\n", args[0], sum.Items, sum.Tokens)
		for _, k := range model.Kinds {
			if ks, ok := sum.ByKind[k]; ok {
				fmt.Printf("  %-13s %3d items %6d tokens\n", k, ks.Count, ks.Tokens)
			}
		}
		printItemLines(shown)
		return
	}
	printJSON(contextOutput{Conversation: args[0], Summary: sum, Items: viewItems(shown)})
}
