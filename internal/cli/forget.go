package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "forget <id>...",
		Short: "Remove memories by id",
		Args:  cobra.MinimumNArgs(1),
		Run:   runForget,
	}

	cmd.Flags().StringP("agent", "a", defaultAgent, "Agent identity")

	RootCmd.AddCommand(cmd)
}

func runForget(cmd *cobra.Command, args []string) {
	agent, _ := cmd.Flags().GetString("agent")
	ctx := cmd.Context()

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	mem, err := loadMemory(ctx, s, agent)
	if err != nil {
		exitErr("load memories", err)
	}
	for _, id := range args {
		if err := mem.Remove(id); err != nil {
			exitErr("forget", err)
		}
	}
	if err := saveMemory(ctx, s, agent, mem); err != nil {
		exitErr("save memories", err)
	}
	fmt.Printf(`{"ok":true,"agent":%q,"removed":%d}`+"\n", agent, len(args))
}
