package timer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultFocusSeconds = 25 * 60
	DefaultBreakSeconds = 5 * 60
	MinDurationSeconds  = 60

	SettingsKey = "pomodoro:settings"
)

var ErrDurationTooShort = errors.New("duration must be at least 1 minute")

// KV is the key/value capability preferences are persisted through.
// Get reports false when the key is absent.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// Config holds the user-adjustable cycle lengths.
type Config struct {
	FocusSeconds  int
	BreakSeconds  int
	AutoStartNext bool
}

func DefaultConfig() Config {
	return Config{
		FocusSeconds:  DefaultFocusSeconds,
		BreakSeconds:  DefaultBreakSeconds,
		AutoStartNext: true,
	}
}

// Validate rejects durations shorter than one minute.
func (c Config) Validate() error {
	if c.FocusSeconds < MinDurationSeconds {
		return fmt.Errorf("focus: %w", ErrDurationTooShort)
	}
	if c.BreakSeconds < MinDurationSeconds {
		return fmt.Errorf("break: %w", ErrDurationTooShort)
	}
	return nil
}

// Seconds returns the configured length of mode m in seconds.
func (c Config) Seconds(m Mode) int {
	if m == ModeBreak {
		return c.BreakSeconds
	}
	return c.FocusSeconds
}

func (c Config) Duration(m Mode) time.Duration {
	return time.Duration(c.Seconds(m)) * time.Second
}

// storedSettings is the persisted record; every field is optional so partial
// or older records still load.
type storedSettings struct {
	Focus     *int  `json:"focus,omitempty"`
	Break     *int  `json:"break,omitempty"`
	AutoStart *bool `json:"autoStart,omitempty"`
	Mode      *Mode `json:"mode,omitempty"`
}

// LoadSettings reads the persisted config and mode. Missing, malformed or
// out-of-range values fall back to defaults; a record that does not parse is
// cleared.
func LoadSettings(kv KV, logger *slog.Logger) (Config, Mode) {
	cfg, mode := DefaultConfig(), ModeFocus
	logger = orDiscard(logger)
	if kv == nil {
		return cfg, mode
	}
	raw, ok := kv.Get(SettingsKey)
	if !ok || raw == "" {
		return cfg, mode
	}

	var stored storedSettings
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		logger.Warn("discarding malformed settings", "error", err)
		if err := kv.Delete(SettingsKey); err != nil {
			logger.Warn("clear settings", "error", err)
		}
		return cfg, mode
	}

	if stored.Focus != nil && *stored.Focus >= MinDurationSeconds {
		cfg.FocusSeconds = *stored.Focus
	}
	if stored.Break != nil && *stored.Break >= MinDurationSeconds {
		cfg.BreakSeconds = *stored.Break
	}
	if stored.AutoStart != nil {
		cfg.AutoStartNext = *stored.AutoStart
	}
	if stored.Mode != nil && stored.Mode.Valid() {
		mode = *stored.Mode
	}
	return cfg, mode
}

// SaveSettings writes config and mode as one record.
func SaveSettings(kv KV, cfg Config, mode Mode) error {
	if kv == nil {
		return nil
	}
	data, err := json.Marshal(storedSettings{
		Focus:     &cfg.FocusSeconds,
		Break:     &cfg.BreakSeconds,
		AutoStart: &cfg.AutoStartNext,
		Mode:      &mode,
	})
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := kv.Set(SettingsKey, string(data)); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
