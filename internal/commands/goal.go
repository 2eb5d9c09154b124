package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sadopc/pomotrack/internal/goal"
	"github.com/sadopc/pomotrack/internal/timer"
)

func newGoalCmd(e *env) *cobra.Command {
	g := &cobra.Command{
		Use:   "goal",
		Short: "Show or change the daily focus goal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return goalShow(cmd, e, false)
		},
	}

	g.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show today's progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return goalShow(cmd, e, false)
		},
	})
	g.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restart today's progress at zero without touching history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return goalShow(cmd, e, true)
		},
	})
	g.AddCommand(&cobra.Command{
		Use:   "set <hours>",
		Short: "Set the daily goal in hours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid hours %q", args[0])
			}
			st, err := e.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			tracker := goal.NewTracker(st.KV(), timer.SystemClock{}, nil)
			if err := tracker.SetTarget(int(hours * 3600)); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Daily goal set to %s\n", formatHM(int64(tracker.Target())))
			return nil
		},
	})
	return g
}

// goalShow derives progress with the timer idle, since no cycle runs
// outside the interface.
func goalShow(cmd *cobra.Command, e *env, reset bool) error {
	list, err := e.listSessions(cmd.Context())
	if err != nil {
		return err
	}
	st, err := e.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	tracker := goal.NewTracker(st.KV(), timer.SystemClock{}, nil)
	snap := timer.Snapshot{Mode: timer.ModeFocus, State: timer.Idle}
	var p goal.Progress
	if reset {
		p = tracker.ResetProgress(list, snap)
	} else {
		p = tracker.Progress(list, snap)
	}
	printGoal(cmd.OutOrStdout(), p)
	return nil
}

func printGoal(out io.Writer, p goal.Progress) {
	const width = 30
	filled := int(p.Ratio * width)
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	_, _ = fmt.Fprintf(out, "%s  goal %s\n", p.Day, formatHM(int64(p.TargetSeconds)))
	_, _ = fmt.Fprintf(out, "%s %3.0f%%\n", bar, p.Ratio*100)
	_, _ = fmt.Fprintf(out, "spent %s, remaining %s\n", formatHM(int64(p.Spent)), formatHM(int64(p.RemainingSeconds)))
	if p.Complete() {
		_, _ = fmt.Fprintln(out, "Goal reached.")
	}
}
