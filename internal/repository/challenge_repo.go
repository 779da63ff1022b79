package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"learningfun/internal/database"
	"learningfun/internal/models"
)

// ChallengeRepository handles database operations for daily challenges
type ChallengeRepository struct {
	db database.DBTX
}

// NewChallengeRepository creates a new challenge repository
func NewChallengeRepository(db database.DBTX) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

const challengeColumns = `id, student_id, subject, challenge_text, is_completed, challenge_date, points_awarded, created_at`

func scanChallenge(row interface{ Scan(...any) error }) (*models.DailyChallenge, error) {
	c := &models.DailyChallenge{}
	if err := row.Scan(&c.ID, &c.StudentID, &c.Subject, &c.ChallengeText, &c.IsCompleted, &c.ChallengeDate, &c.PointsAwarded, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateChallenge inserts a challenge for a student on c.ChallengeDate
func (r *ChallengeRepository) CreateChallenge(ctx context.Context, c *models.DailyChallenge) (*models.DailyChallenge, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO daily_challenges (student_id, subject, challenge_text, is_completed, challenge_date, points_awarded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		c.StudentID, c.Subject, c.ChallengeText, c.IsCompleted, c.ChallengeDate, c.PointsAwarded, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	created := *c
	created.ID = id
	created.CreatedAt = now
	return &created, nil
}

// GetChallenge retrieves a challenge by ID
func (r *ChallengeRepository) GetChallenge(ctx context.Context, id int64) (*models.DailyChallenge, error) {
	c, err := scanChallenge(r.db.QueryRowContext(ctx, "SELECT "+challengeColumns+" FROM daily_challenges WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return c, nil
}

// GetChallengesForDate returns a student's challenges on one calendar day (YYYY-MM-DD)
func (r *ChallengeRepository) GetChallengesForDate(ctx context.Context, studentID int64, date string) ([]models.DailyChallenge, error) {
	query := "SELECT " + challengeColumns + " FROM daily_challenges WHERE student_id = ? AND challenge_date = ? ORDER BY id"
	rows, err := r.db.QueryContext(ctx, query, studentID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenges: %w", err)
	}
	defer rows.Close()

	challenges := []models.DailyChallenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, *c)
	}
	return challenges, rows.Err()
}

// CompleteChallenge marks a challenge done. It reports false when the challenge was already completed.
func (r *ChallengeRepository) CompleteChallenge(ctx context.Context, id int64, points int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE daily_challenges SET is_completed = ?, points_awarded = ? WHERE id = ? AND is_completed = ?",
		true, points, id, false,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete challenge: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read completion result: %w", err)
	}
	return rows > 0, nil
}
