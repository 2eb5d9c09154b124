// Package config loads the optional YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sadopc/pomotrack/internal/timer"
)

const (
	DefaultListen       = ":8080"
	DefaultPollInterval = 5 * time.Second
	DefaultTokenTTL     = 7 * 24 * time.Hour
)

// Duration accepts Go duration strings ("100ms", "1s") in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

type Config struct {
	DBPath             string   `yaml:"db_path"`
	ServerURL          string   `yaml:"server_url"`
	Listen             string   `yaml:"listen"`
	LogFile            string   `yaml:"log_file"`
	LogLevel           string   `yaml:"log_level"`
	SampleInterval     Duration `yaml:"sample_interval"`
	BackgroundInterval Duration `yaml:"background_interval"`
	PollInterval       Duration `yaml:"poll_interval"`
	TokenTTL           Duration `yaml:"token_ttl"`
	Chime              *bool    `yaml:"chime"`
}

// Dir returns ~/.config/pomotrack.
func Dir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "pomotrack"), nil
}

// DefaultPath returns ~/.config/pomotrack/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Default returns the configuration used when no file exists.
func Default() Config {
	c := Config{}
	c.applyDefaults("")
	return c
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (Config, error) {
	var c Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	c.applyDefaults(filepath.Dir(path))
	return c, nil
}

// Save writes c to path, creating the directory if needed.
func Save(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) applyDefaults(dir string) {
	if dir == "" || dir == "." {
		if d, err := Dir(); err == nil {
			dir = d
		}
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(dir, "pomotrack.db")
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(dir, "pomotrack.log")
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")
	c.SampleInterval = Duration(timer.ClampInterval(time.Duration(c.SampleInterval), timer.DefaultSampleInterval))
	c.BackgroundInterval = Duration(timer.ClampInterval(time.Duration(c.BackgroundInterval), timer.DefaultBackgroundInterval))
	if c.PollInterval <= 0 {
		c.PollInterval = Duration(DefaultPollInterval)
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = Duration(DefaultTokenTTL)
	}
	if c.Chime == nil {
		on := true
		c.Chime = &on
	}
}

// Level maps log_level to a slog level, defaulting to info.
func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Remote reports whether sessions live on a server.
func (c Config) Remote() bool {
	return c.ServerURL != ""
}

func (c Config) ChimeEnabled() bool {
	return c.Chime == nil || *c.Chime
}
