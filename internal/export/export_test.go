package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/pomotrack/internal/timer"
)

func sampleData() []timer.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return []timer.Session{
		{ID: "c", Kind: timer.KindFocus, DurationSeconds: 3000, CompletedAt: now},
		{ID: "b", Kind: timer.KindBreak, DurationSeconds: 300, CompletedAt: now.Add(-50 * time.Minute)},
		{ID: "a", Kind: timer.KindFocus, DurationSeconds: 1500, CompletedAt: now.Add(-55 * time.Minute)},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return records
}

func readJSON(t *testing.T, path string) jsonExport {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var result jsonExport
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	return result
}

// ============================================================
// CSV
// ============================================================

func TestToCSV(t *testing.T) {
	sessions := sampleData()
	path := filepath.Join(t.TempDir(), "test.csv")

	if err := ToCSV(sessions, path); err != nil {
		t.Fatalf("ToCSV: %v", err)
	}

	records := readCSV(t, path)
	if len(records) != 4 {
		t.Fatalf("expected 4 rows (1 header + 3 data), got %d", len(records))
	}

	for i, h := range csvHeader {
		if records[0][i] != h {
			t.Fatalf("header[%d] = %q, want %q", i, records[0][i], h)
		}
	}

	row := records[1]
	if row[0] != "c" || row[1] != "FOCUS" {
		t.Fatalf("first row = %v", row)
	}
	if row[3] != "3000" {
		t.Fatalf("Duration (s) = %q, want 3000", row[3])
	}
	if row[4] != "00:50:00" {
		t.Fatalf("Duration = %q, want 00:50:00", row[4])
	}
	completed, err := time.Parse(time.RFC3339, row[2])
	if err != nil {
		t.Fatalf("completed is not RFC3339: %q", row[2])
	}
	if !completed.Equal(sessions[0].CompletedAt) {
		t.Fatalf("completed = %v, want %v", completed, sessions[0].CompletedAt)
	}
	if records[2][1] != "BREAK" {
		t.Fatalf("second row type = %q", records[2][1])
	}
}

func TestToCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")

	if err := ToCSV(nil, path); err != nil {
		t.Fatal(err)
	}

	records := readCSV(t, path)
	if len(records) != 1 {
		t.Fatalf("expected 1 row (header only), got %d", len(records))
	}
}

func TestToCSVBadPath(t *testing.T) {
	err := ToCSV(nil, "/nonexistent/dir/file.csv")
	if err == nil {
		t.Fatal("expected error for bad path")
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleData()); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if lines[0] != "ID,Type,Completed,Duration (s),Duration" {
		t.Fatalf("header = %q", lines[0])
	}
}

// ============================================================
// JSON
// ============================================================

func TestToJSON(t *testing.T) {
	sessions := sampleData()
	path := filepath.Join(t.TempDir(), "test.json")

	if err := ToJSON(sessions, path); err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	result := readJSON(t, path)
	if result.Count != 3 {
		t.Fatalf("count = %d, want 3", result.Count)
	}
	if len(result.Sessions) != 3 {
		t.Fatalf("sessions = %d, want 3", len(result.Sessions))
	}
	if result.FocusSeconds != 4500 {
		t.Fatalf("focus_seconds = %d, want 4500", result.FocusSeconds)
	}

	s := result.Sessions[0]
	if s.ID != "c" || s.Type != "FOCUS" {
		t.Fatalf("first session = %+v", s)
	}
	if s.DurationSec != 3000 {
		t.Fatalf("DurationSec = %d, want 3000", s.DurationSec)
	}
	if s.Duration != "00:50:00" {
		t.Fatalf("Duration = %q, want 00:50:00", s.Duration)
	}
}

func TestToJSONEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")

	if err := ToJSON(nil, path); err != nil {
		t.Fatal(err)
	}

	result := readJSON(t, path)
	if result.Count != 0 {
		t.Fatalf("count = %d, want 0", result.Count)
	}
	if result.Sessions != nil {
		t.Fatal("sessions should be nil/null for empty export")
	}
}

func TestToJSONBadPath(t *testing.T) {
	err := ToJSON(nil, "/nonexistent/dir/file.json")
	if err == nil {
		t.Fatal("expected error for bad path")
	}
}

func TestToJSONPrettyPrinted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pretty.json")
	if err := ToJSON(nil, path); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "\n") {
		t.Fatal("JSON should be pretty-printed with newlines")
	}
	if !strings.Contains(string(data), "  ") {
		t.Fatal("JSON should be indented with spaces")
	}
}

func TestWriteJSONTimestamps(t *testing.T) {
	var buf bytes.Buffer
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	if err := WriteJSON(&buf, sampleData(), at); err != nil {
		t.Fatal(err)
	}

	var result jsonExport
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.ExportedAt != "2026-03-10T12:00:00Z" {
		t.Fatalf("exported_at = %q", result.ExportedAt)
	}
	for _, s := range result.Sessions {
		if _, err := time.Parse(time.RFC3339, s.CompletedAt); err != nil {
			t.Fatalf("completed_at is not valid RFC3339: %q", s.CompletedAt)
		}
	}
}

// ============================================================
// formatDuration (internal helper)
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "00:00:00"},
		{1, "00:00:01"},
		{60, "00:01:00"},
		{3600, "01:00:00"},
		{3661, "01:01:01"},
		{86400, "24:00:00"},
		{90061, "25:01:01"},
	}

	for _, tt := range tests {
		got := formatDuration(tt.secs)
		if got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}
