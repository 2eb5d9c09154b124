package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pomotrack.log")
	for i := 0; i < 2; i++ {
		log, c, err := OpenFile(path, slog.LevelInfo)
		if err != nil {
			t.Fatal(err)
		}
		log.Info("cycle finished", "mode", "focus")
		log.Debug("hidden")
		c.Close()
	}
	data, _ := os.ReadFile(path)
	if n := strings.Count(string(data), "cycle finished"); n != 2 {
		t.Fatalf("expected 2 records, got %d:\n%s", n, data)
	}
	if strings.Contains(string(data), "hidden") {
		t.Fatal("debug record written at info level")
	}
}

func TestOpenFileRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pomotrack.log")
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), maxSize+1), 0o644); err != nil {
		t.Fatal(err)
	}
	_, c, err := OpenFile(path, slog.LevelInfo)
	if err != nil {
		t.Fatal(err)
	}
	c.Close()
	if _, err := os.Stat(path + ".1"); err != nil {
		t.Fatal("old log should be rotated")
	}
	fi, _ := os.Stat(path)
	if fi.Size() != 0 {
		t.Fatalf("fresh log size = %d", fi.Size())
	}
}

func TestNewLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelWarn)
	log.Info("quiet")
	log.Warn("loud")
	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "loud") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
