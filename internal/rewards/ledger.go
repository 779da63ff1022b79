// Package rewards keeps a student's points, badges and streak in step with
// the store. The cached stats are always the store's latest answer.
package rewards

import (
	"context"
	"slices"
	"sync"
	"time"

	"learningfun/internal/gateway"
	"learningfun/internal/models"
	"learningfun/internal/validation"
)

// Store is the part of the gateway the ledger writes through.
type Store interface {
	FetchStats(ctx context.Context) (*models.StudentStats, error)
	UpdateStats(ctx context.Context, update models.StatsUpdate) (*models.StudentStats, error)
	CompleteChallenge(ctx context.Context, id int64, points int, pay gateway.Payout) (*models.DailyChallenge, *models.StudentStats, bool, error)
	RecordProgress(ctx context.Context, p models.StudentProgress) (*models.StudentProgress, error)
}

var _ Store = (*gateway.Gateway)(nil)

// Ledger serializes reward writes for one student.
type Ledger struct {
	store Store
	now   func() time.Time

	mu    sync.Mutex
	stats *models.StudentStats
}

// New creates a ledger with an empty cache.
func New(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// SetClock replaces the time source used for streaks.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// Stats returns a copy of the cached stats. ok is false before the first
// successful fetch or write.
func (l *Ledger) Stats() (stats models.StudentStats, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stats == nil {
		return models.StudentStats{}, false
	}
	return copyStats(l.stats), true
}

// Refresh re-reads the stats from the store. On failure the cache is kept.
func (l *Ledger) Refresh(ctx context.Context) (*models.StudentStats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refresh(ctx)
}

func (l *Ledger) refresh(ctx context.Context) (*models.StudentStats, error) {
	stats, err := l.store.FetchStats(ctx)
	if err != nil {
		return nil, err
	}
	l.stats = stats
	return stats, nil
}

// AddPoints adds n points and updates the streak.
func (l *Ledger) AddPoints(ctx context.Context, n int) (*models.StudentStats, error) {
	if n <= 0 {
		return nil, validation.ValidationError{Field: "points", Message: "points must be positive"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := l.store.FetchStats(ctx)
	if err != nil {
		return nil, err
	}

	updated, err := l.store.UpdateStats(ctx, pointsUpdate(current, n, l.now().UTC()))
	if err != nil {
		return nil, err
	}
	l.stats = updated
	return updated, nil
}

// AddBadge grants a badge. A badge already held is left alone.
func (l *Ledger) AddBadge(ctx context.Context, name string) (*models.StudentStats, error) {
	if err := validation.ValidateRequired("badge", name); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := l.store.FetchStats(ctx)
	if err != nil {
		return nil, err
	}
	if current.HasBadge(name) {
		l.stats = current
		return current, nil
	}

	badges := append(slices.Clone(current.Badges), name)
	updated, err := l.store.UpdateStats(ctx, models.StatsUpdate{Badges: badges})
	if err != nil {
		return nil, err
	}
	l.stats = updated
	return updated, nil
}

// CompleteChallenge marks today's challenge done and pays its points once.
// Completion and payment are stored together, so a failed payment leaves the
// challenge open and a retry pays it.
func (l *Ledger) CompleteChallenge(ctx context.Context, id int64) (*models.DailyChallenge, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	challenge, stats, newly, err := l.store.CompleteChallenge(ctx, id, 0, func(current *models.StudentStats, points int) models.StatsUpdate {
		return pointsUpdate(current, points, now)
	})
	if err != nil {
		return nil, err
	}
	if newly && stats != nil {
		l.stats = stats
	}
	return challenge, nil
}

// RecordProgress stores a finished run.
func (l *Ledger) RecordProgress(ctx context.Context, p models.StudentProgress) (*models.StudentProgress, error) {
	return l.store.RecordProgress(ctx, p)
}

// OnPoints lets a session controller pay points into the ledger.
func (l *Ledger) OnPoints(ctx context.Context, points int) error {
	_, err := l.AddPoints(ctx, points)
	return err
}

// OnBadge lets a session controller grant badges.
func (l *Ledger) OnBadge(ctx context.Context, badge string) error {
	_, err := l.AddBadge(ctx, badge)
	return err
}

func pointsUpdate(current *models.StudentStats, n int, now time.Time) models.StatsUpdate {
	total := current.TotalPoints + n
	streak := nextStreak(current, now)
	return models.StatsUpdate{
		TotalPoints:  &total,
		StreakDays:   &streak,
		LastActivity: &now,
	}
}

// nextStreak counts consecutive calendar days with activity.
func nextStreak(s *models.StudentStats, now time.Time) int {
	if s.LastActivity == nil {
		return 1
	}
	last := day(s.LastActivity.UTC())
	today := day(now)
	switch {
	case today.Equal(last):
		return max(s.StreakDays, 1)
	case today.Equal(last.AddDate(0, 0, 1)):
		return s.StreakDays + 1
	}
	return 1
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func copyStats(s *models.StudentStats) models.StudentStats {
	out := *s
	out.Badges = slices.Clone(s.Badges)
	if s.LastActivity != nil {
		t := *s.LastActivity
		out.LastActivity = &t
	}
	return out
}
