package store

import (
	"database/sql"
	"errors"
	"fmt"
)

func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

func (s *Store) DeleteSetting(key string) error {
	if _, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete setting %q: %w", key, err)
	}
	return nil
}

// KV exposes the settings table as the timer's key/value capability.
type KV struct {
	s *Store
}

func (s *Store) KV() *KV {
	return &KV{s: s}
}

// Get reports false for a missing key and for read failures; callers treat
// both as "use the default".
func (kv *KV) Get(key string) (string, bool) {
	value, err := kv.s.GetSetting(key)
	if err != nil {
		return "", false
	}
	return value, true
}

func (kv *KV) Set(key, value string) error {
	if err := kv.s.SetSetting(key, value); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (kv *KV) Delete(key string) error {
	return kv.s.DeleteSetting(key)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
