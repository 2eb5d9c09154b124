package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/pomotrack/internal/timer"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if c.DBPath != filepath.Join(dir, "pomotrack.db") {
		t.Fatalf("db path = %s", c.DBPath)
	}
	if c.Listen != DefaultListen || c.LogLevel != "info" || c.Remote() || !c.ChimeEnabled() {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if time.Duration(c.SampleInterval) != timer.DefaultSampleInterval {
		t.Fatalf("sample interval = %v", time.Duration(c.SampleInterval))
	}
	if time.Duration(c.PollInterval) != DefaultPollInterval || time.Duration(c.TokenTTL) != DefaultTokenTTL {
		t.Fatal("poll interval and token ttl should default")
	}
}

func TestLoadValues(t *testing.T) {
	path := writeConfig(t, `
db_path: /tmp/p.db
server_url: http://localhost:8080/
log_level: debug
sample_interval: 250ms
background_interval: 1s
poll_interval: 10s
token_ttl: 24h
chime: false
`)
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.DBPath != "/tmp/p.db" || c.ServerURL != "http://localhost:8080" {
		t.Fatalf("unexpected paths: %+v", c)
	}
	if !c.Remote() || c.ChimeEnabled() {
		t.Fatal("remote on, chime off expected")
	}
	if c.Level() != slog.LevelDebug {
		t.Fatalf("level = %v", c.Level())
	}
	if time.Duration(c.SampleInterval) != 250*time.Millisecond || time.Duration(c.TokenTTL) != 24*time.Hour {
		t.Fatalf("durations = %v %v", time.Duration(c.SampleInterval), time.Duration(c.TokenTTL))
	}
}

func TestLoadClampsIntervals(t *testing.T) {
	c, err := Load(writeConfig(t, "sample_interval: 1ms\nbackground_interval: 1m\n"))
	if err != nil {
		t.Fatal(err)
	}
	if time.Duration(c.SampleInterval) != timer.MinSampleInterval {
		t.Fatalf("sample interval = %v", time.Duration(c.SampleInterval))
	}
	if time.Duration(c.BackgroundInterval) != timer.MaxSampleInterval {
		t.Fatalf("background interval = %v", time.Duration(c.BackgroundInterval))
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load(writeConfig(t, "sample_interval: soon\n")); err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("expected duration error with line, got %v", err)
	}
	if _, err := Load(writeConfig(t, "db_path: [unclosed\n")); err == nil {
		t.Fatal("expected yaml error")
	}
}

func TestLevelFallback(t *testing.T) {
	if (Config{LogLevel: "loud"}).Level() != slog.LevelInfo {
		t.Fatal("unknown level should fall back to info")
	}
	if (Config{LogLevel: "WARN"}).Level() != slog.LevelWarn {
		t.Fatal("level parsing should ignore case")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c := Default()
	c.ServerURL = "https://pomo.example.com"
	if err := Save(path, c); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.ServerURL != c.ServerURL || got.SampleInterval != c.SampleInterval {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
