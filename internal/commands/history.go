package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/pomotrack/internal/store"
	"github.com/sadopc/pomotrack/internal/timer"
)

const fetchTimeout = 20 * time.Second

// listSessions fetches the session list from whichever store is active.
func (e *env) listSessions(ctx context.Context) ([]timer.Session, error) {
	st, err := e.openStore()
	if err != nil {
		return nil, err
	}
	defer st.Close()

	sessions, _, err := e.sessions(st)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	return sessions.ListSessions(ctx)
}

func newHistoryCmd(e *env) *cobra.Command {
	var limit, days int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent sessions and daily focus totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := e.listSessions(cmd.Context())
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), list, time.Now(), limit, days)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "sessions to list")
	cmd.Flags().IntVar(&days, "days", 7, "days of focus totals")
	return cmd
}

func printHistory(out io.Writer, list []timer.Session, now time.Time, limit, days int) {
	if len(list) == 0 {
		_, _ = fmt.Fprintln(out, "No sessions yet")
		return
	}

	_, _ = fmt.Fprintf(out, "%-17s %-6s %8s\n", "COMPLETED", "TYPE", "DURATION")
	for i, s := range list {
		if limit > 0 && i >= limit {
			_, _ = fmt.Fprintf(out, "… %d more\n", len(list)-limit)
			break
		}
		_, _ = fmt.Fprintf(out, "%-17s %-6s %8s\n",
			s.CompletedAt.In(now.Location()).Format("2006-01-02 15:04"), s.Kind, formatClock(s.DurationSeconds))
	}

	if days <= 0 {
		return
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	from := today.AddDate(0, 0, 1-days)
	totals := make(map[string]store.DailyFocus)
	for _, d := range store.FocusByDay(list, now.Location()) {
		totals[d.Date] = d
	}

	_, _ = fmt.Fprintf(out, "\n%-10s %8s %8s\n", "DAY", "FOCUS", "SESSIONS")
	for d := from; !d.After(today); d = d.AddDate(0, 0, 1) {
		df := totals[d.Format("2006-01-02")]
		bar := strings.Repeat("█", int(df.TotalSeconds/1500))
		_, _ = fmt.Fprintf(out, "%-10s %8s %8d %s\n", d.Format("Mon 01/02"), formatHM(df.TotalSeconds), df.SessionCount, bar)
	}
}

func formatHM(secs int64) string {
	return fmt.Sprintf("%dh%02dm", secs/3600, (secs%3600)/60)
}
