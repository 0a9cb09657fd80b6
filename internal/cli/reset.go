package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-context/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reset <conversation>",
		Short: "Clear a conversation",
		Long:  "Delete a conversation, or with --kind remove only the items of one kind.",
		Args:  cobra.ExactArgs(1),
		Run:   runReset,
	}

	cmd.Flags().StringP("kind", "k", "", "Only remove items of this kind")

	RootCmd.AddCommand(cmd)
}

func runReset(cmd *cobra.Command, args []string) {
	convID := args[0]
	kindStr, _ := cmd.Flags().GetString("kind")
	ctx := cmd.Context()

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if kindStr == "" {
		if err := s.DeleteConversation(ctx, convID); err != nil {
			exitErr("reset", err)
		}
		fmt.Printf(`{"ok":true,"conversation":%q}`+"\n", convID)
		return
	}

	kind, err := model.ParseKind(kindStr)
	if err != nil {
		exitErr("reset", err)
	}
	engine, _, err := newEngine()
	if err != nil {
		exitErr("tokenizer", err)
	}
	conv, err := loadConversation(ctx, s, engine, convID)
	if err != nil {
		exitErr("load conversation", err)
	}
	removed := conv.Clear(kind)
	if err := saveConversation(ctx, s, conv); err != nil {
		exitErr("save conversation", err)
	}
	fmt.Printf(`{"ok":true,"conversation":%q,"kind":%q,"removed":%d}`+"\n", convID, kind, removed)
}
