package store

import (
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type Token struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// DailyFocus is the focus time completed on one calendar day.
type DailyFocus struct {
	Date         string // 2006-01-02 in the caller's location
	TotalSeconds int64
	SessionCount int
}
