// Package auth manages accounts and opaque bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sadopc/pomotrack/internal/store"
	"github.com/sadopc/pomotrack/internal/timer"
)

const (
	DefaultTokenTTL   = 7 * 24 * time.Hour
	MinPasswordLength = 6

	hashCost = 10
)

var (
	ErrInvalidInput       = errors.New("email and password are required")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
)

type Service struct {
	store *store.Store
	clock timer.Clock
	ttl   time.Duration
	cost  int
}

type Option func(*Service)

func WithClock(c timer.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithTokenTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithHashCost lowers the bcrypt cost, for tests.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func NewService(st *store.Store, opts ...Option) *Service {
	s := &Service{store: st, clock: timer.SystemClock{}, ttl: DefaultTokenTTL, cost: hashCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and returns a fresh token for it.
func (s *Service) Register(email, password string) (string, *store.User, error) {
	email, err := normalize(email, password)
	if err != nil {
		return "", nil, err
	}
	if len(password) < MinPasswordLength {
		return "", nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.store.CreateUser(email, string(hash))
	if errors.Is(err, store.ErrEmailTaken) {
		return "", nil, ErrUserExists
	}
	if err != nil {
		return "", nil, err
	}
	token, err := s.issue(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Login checks credentials and returns a fresh token.
func (s *Service) Login(email, password string) (string, *store.User, error) {
	email, err := normalize(email, password)
	if err != nil {
		return "", nil, err
	}
	user, err := s.store.GetUserByEmail(email)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if user.PasswordHash == "" {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.issue(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Authenticate resolves a bearer token to its user. Expired tokens are
// removed on sight.
func (s *Service) Authenticate(token string) (*store.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	tok, err := s.store.GetToken(token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !s.clock.Now().Before(tok.ExpiresAt) {
		s.store.DeleteToken(token)
		return nil, ErrUnauthorized
	}
	user, err := s.store.GetUser(tok.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	return user, err
}

func (s *Service) Logout(token string) error {
	return s.store.DeleteToken(token)
}

func (s *Service) issue(userID string) (string, error) {
	token := uuid.NewString()
	if err := s.store.CreateToken(token, userID, s.clock.Now().Add(s.ttl)); err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

func normalize(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return email, nil
}
