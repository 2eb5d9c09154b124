package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/pomotrack/internal/timer"
)

// Sortable as text, unlike RFC3339Nano.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

var ErrInvalidSession = errors.New("invalid session")

// AppendSession records a finished cycle for userID.
func (s *Store) AppendSession(ctx context.Context, userID string, kind timer.Kind, durationSeconds int, completedAt time.Time) (*timer.Session, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidSession, kind)
	}
	if durationSeconds <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidSession)
	}
	sess := &timer.Session{
		ID:              uuid.NewString(),
		Kind:            kind,
		DurationSeconds: durationSeconds,
		CompletedAt:     completedAt.UTC().Truncate(time.Millisecond),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pomodoro_sessions (id, user_id, type, duration, completed_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, userID, string(kind), durationSeconds, sess.CompletedAt.Format(timestampLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// SessionFilter narrows ListSessions. Zero values mean unbounded.
type SessionFilter struct {
	From  time.Time
	To    time.Time
	Kind  timer.Kind
	Limit int
}

// ListSessions returns userID's sessions, most recent first.
func (s *Store) ListSessions(ctx context.Context, userID string, f SessionFilter) ([]timer.Session, error) {
	query := `SELECT id, type, duration, completed_at FROM pomodoro_sessions WHERE user_id = ?`
	args := []any{userID}

	if !f.From.IsZero() {
		query += ` AND completed_at >= ?`
		args = append(args, f.From.UTC().Format(timestampLayout))
	}
	if !f.To.IsZero() {
		query += ` AND completed_at < ?`
		args = append(args, f.To.UTC().Format(timestampLayout))
	}
	if f.Kind != "" {
		query += ` AND type = ?`
		args = append(args, string(f.Kind))
	}
	query += ` ORDER BY completed_at DESC, rowid DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []timer.Session
	for rows.Next() {
		var sess timer.Session
		var kind, completedAt string
		if err := rows.Scan(&sess.ID, &kind, &sess.DurationSeconds, &completedAt); err != nil {
			return nil, err
		}
		sess.Kind = timer.Kind(kind)
		sess.CompletedAt, _ = time.Parse(timestampLayout, completedAt)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// FocusByDay buckets the focus sessions in a newest-first list by calendar
// day in loc, oldest day first. Break sessions are skipped.
func FocusByDay(sessions []timer.Session, loc *time.Location) []DailyFocus {
	byDay := make(map[string]*DailyFocus)
	var days []*DailyFocus
	for i := len(sessions) - 1; i >= 0; i-- {
		if sessions[i].Kind != timer.KindFocus {
			continue
		}
		day := sessions[i].CompletedAt.In(loc).Format("2006-01-02")
		df, ok := byDay[day]
		if !ok {
			df = &DailyFocus{Date: day}
			byDay[day] = df
			days = append(days, df)
		}
		df.TotalSeconds += int64(sessions[i].DurationSeconds)
		df.SessionCount++
	}

	out := make([]DailyFocus, len(days))
	for i, df := range days {
		out[i] = *df
	}
	return out
}

// UserSessions is a timer.SessionStore bound to one user.
type UserSessions struct {
	store  *Store
	userID string
	clock  timer.Clock
	limit  int
}

// ForUser binds the session table to userID. A nil clock uses the system
// clock.
func (s *Store) ForUser(userID string, clock timer.Clock) *UserSessions {
	if clock == nil {
		clock = timer.SystemClock{}
	}
	return &UserSessions{store: s, userID: userID, clock: clock, limit: 500}
}

func (u *UserSessions) UserID() string {
	return u.userID
}

func (u *UserSessions) LogSession(ctx context.Context, kind timer.Kind, durationSeconds int) error {
	_, err := u.store.AppendSession(ctx, u.userID, kind, durationSeconds, u.clock.Now())
	return err
}

func (u *UserSessions) ListSessions(ctx context.Context) ([]timer.Session, error) {
	return u.store.ListSessions(ctx, u.userID, SessionFilter{Limit: u.limit})
}
