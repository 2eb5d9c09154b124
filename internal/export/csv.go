package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/pomotrack/internal/timer"
)

var csvHeader = []string{"ID", "Type", "Completed", "Duration (s)", "Duration"}

func ToCSV(sessions []timer.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	return WriteCSV(f, sessions)
}

// WriteCSV writes one row per session after a header row. Times are
// rendered in the local zone.
func WriteCSV(out io.Writer, sessions []timer.Session) error {
	w := csv.NewWriter(out)

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, s := range sessions {
		row := []string{
			s.ID,
			string(s.Kind),
			s.CompletedAt.Local().Format(time.RFC3339),
			strconv.Itoa(s.DurationSeconds),
			formatDuration(int64(s.DurationSeconds)),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
