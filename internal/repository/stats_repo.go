package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"learningfun/internal/database"
	"learningfun/internal/models"
)

// StatsRepository handles database operations for student reward stats
type StatsRepository struct {
	db database.DBTX
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db database.DBTX) *StatsRepository {
	return &StatsRepository{db: db}
}

func scanStats(row interface{ Scan(...any) error }) (*models.StudentStats, error) {
	var (
		s            models.StudentStats
		badges       string
		lastActivity sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.StudentID, &s.TotalPoints, &badges, &s.StreakDays, &lastActivity); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(badges), &s.Badges); err != nil {
		return nil, fmt.Errorf("failed to decode badges: %w", err)
	}
	if s.Badges == nil {
		s.Badges = []string{}
	}
	if lastActivity.Valid {
		t := lastActivity.Time.UTC()
		s.LastActivity = &t
	}
	return &s, nil
}

func encodeBadges(badges []string) (string, error) {
	if badges == nil {
		badges = []string{}
	}
	b, err := json.Marshal(badges)
	if err != nil {
		return "", fmt.Errorf("failed to encode badges: %w", err)
	}
	return string(b), nil
}

// CreateStats inserts a zeroed stats row for a student
func (r *StatsRepository) CreateStats(ctx context.Context, studentID int64) (*models.StudentStats, error) {
	id, err := r.db.ExecReturningID(ctx,
		"INSERT INTO student_stats (student_id, total_points, badges, streak_days) VALUES (?, ?, ?, ?)",
		studentID, 0, "[]", 0,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stats: %w", err)
	}
	return &models.StudentStats{ID: id, StudentID: studentID, Badges: []string{}}, nil
}

// GetStats retrieves the stats row of a student
func (r *StatsRepository) GetStats(ctx context.Context, studentID int64) (*models.StudentStats, error) {
	query := `
		SELECT id, student_id, total_points, badges, streak_days, last_activity
		FROM student_stats
		WHERE student_id = ?
	`
	stats, err := scanStats(r.db.QueryRowContext(ctx, query, studentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}

// UpdateStats applies a partial update and returns the stored row
func (r *StatsRepository) UpdateStats(ctx context.Context, studentID int64, update models.StatsUpdate) (*models.StudentStats, error) {
	current, err := r.GetStats(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	if update.TotalPoints != nil {
		current.TotalPoints = *update.TotalPoints
	}
	if update.Badges != nil {
		current.Badges = append([]string(nil), update.Badges...)
	}
	if update.StreakDays != nil {
		current.StreakDays = *update.StreakDays
	}
	if update.LastActivity != nil {
		t := update.LastActivity.UTC()
		current.LastActivity = &t
	}

	badges, err := encodeBadges(current.Badges)
	if err != nil {
		return nil, err
	}

	var lastActivity any
	if current.LastActivity != nil {
		lastActivity = *current.LastActivity
	}

	query := `
		UPDATE student_stats
		SET total_points = ?, badges = ?, streak_days = ?, last_activity = ?
		WHERE student_id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, current.TotalPoints, badges, current.StreakDays, lastActivity, studentID); err != nil {
		return nil, fmt.Errorf("failed to update stats: %w", err)
	}
	return current, nil
}
