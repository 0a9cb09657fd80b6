package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-context/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Drop an agent's weakest memories",
		Long: "Remove memories whose decayed importance is below --prune-below, then keep\n" +
			"only the --max-records strongest.",
		Run: runConsolidate,
	}

	cmd.Flags().StringP("agent", "a", defaultAgent, "Agent identity")
	cmd.Flags().Int("max-records", -1, "Records to keep, 0 for no cap (default: memory.max_records)")
	cmd.Flags().Float64("prune-below", -1, "Decayed importance floor (default: memory.prune_below)")
	cmd.Flags().Duration("half-life", 0, "Decay half-life (default: memory.decay_half_life)")
	cmd.Flags().Bool("dry-run", false, "Report what would be removed without saving")

	RootCmd.AddCommand(cmd)
}

type consolidateOutput struct {
	Agent  string                     `json:"agent"`
	DryRun bool                       `json:"dry_run,omitempty"`
	Pruned memory.ConsolidationReport `json:"pruned"`
	Capped memory.ConsolidationReport `json:"capped"`
	Stats  memory.Stats               `json:"stats"`
}

func runConsolidate(cmd *cobra.Command, args []string) {
	agent, _ := cmd.Flags().GetString("agent")
	maxRecords, _ := cmd.Flags().GetInt("max-records")
	pruneBelow, _ := cmd.Flags().GetFloat64("prune-below")
	halfLife, _ := cmd.Flags().GetDuration("half-life")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	ctx := cmd.Context()

	if maxRecords < 0 {
		maxRecords = cfg.Memory.MaxRecords
	}
	if pruneBelow < 0 {
		pruneBelow = cfg.Memory.PruneBelow
	}
	if halfLife <= 0 {
		halfLife = cfg.Memory.DecayHalfLife
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

	out := consolidateOutput{Agent: agent, DryRun: dryRun}
	if out.Pruned, err = mem.PruneBelow(pruneBelow, halfLife); err != nil {
		exitErr("consolidate", err)
	}
	if maxRecords > 0 {
		if out.Capped, err = mem.Consolidate(maxRecords, halfLife); err != nil {
			exitErr("consolidate", err)
		}
	}
	out.Stats = mem.Stats()

	if !dryRun {
		if err := saveMemory(ctx, s, agent, mem); err != nil {
			exitErr("save memories", err)
		}
	}

	if textOutput() {
		fmt.Printf("%s: pruned %d, capped %d, %d remain\n",
			agent, len(out.Pruned.Removed), len(out.Capped.Removed), out.Stats.Total)
		return
	}
	printJSON(out)
}
