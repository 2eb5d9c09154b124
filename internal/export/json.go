package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sadopc/pomotrack/internal/timer"
)

type jsonExport struct {
	ExportedAt   string        `json:"exported_at"`
	Count        int           `json:"count"`
	FocusSeconds int64         `json:"focus_seconds"`
	Sessions     []jsonSession `json:"sessions"`
}

type jsonSession struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	CompletedAt string `json:"completed_at"`
	DurationSec int    `json:"duration_seconds"`
	Duration    string `json:"duration"`
}

func ToJSON(sessions []timer.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()

	if err := WriteJSON(f, sessions, time.Now()); err != nil {
		return err
	}
	return f.Close()
}

// WriteJSON writes an indented document listing sessions in the given
// order, with the total focus time.
func WriteJSON(w io.Writer, sessions []timer.Session, exportedAt time.Time) error {
	export := jsonExport{
		ExportedAt: exportedAt.UTC().Format(time.RFC3339),
		Count:      len(sessions),
	}

	for _, s := range sessions {
		if s.Kind == timer.KindFocus {
			export.FocusSeconds += int64(s.DurationSeconds)
		}
		export.Sessions = append(export.Sessions, jsonSession{
			ID:          s.ID,
			Type:        string(s.Kind),
			CompletedAt: s.CompletedAt.Local().Format(time.RFC3339),
			DurationSec: s.DurationSeconds,
			Duration:    formatDuration(int64(s.DurationSeconds)),
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
