package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "List saved conversations",
		Run:   runConversations,
	}

	RootCmd.AddCommand(cmd)
}

func runConversations(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	convs, err := s.ListConversations(cmd.Context())
	if err != nil {
		exitErr("list conversations", err)
	}

	if textOutput() {
		for _, c := range convs {
			fmt.Printf("%s\t%d items\t%d tokens\t%s\n", c.ID, c.Items, c.Tokens, c.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return
	}
	printJSON(convs)
}
