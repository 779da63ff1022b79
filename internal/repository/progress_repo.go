package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"learningfun/internal/database"
	"learningfun/internal/models"
)

// RecentProgressLimit is how many progress rows a student fetch returns.
const RecentProgressLimit = 10

// ProgressRepository handles database operations for finished exercise runs
type ProgressRepository struct {
	db database.DBTX
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db database.DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// RecordProgress inserts a progress row
func (r *ProgressRepository) RecordProgress(ctx context.Context, p *models.StudentProgress) (*models.StudentProgress, error) {
	completedAt := p.CompletedAt.UTC()
	if p.CompletedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	var exerciseID any
	if p.ExerciseID != nil {
		exerciseID = *p.ExerciseID
	}

	query := `
		INSERT INTO student_progress (student_id, exercise_id, subject, exercise_type, score, total_questions, time_spent, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		p.StudentID, exerciseID, p.Subject, p.ExerciseType, p.Score, p.TotalQuestions, p.TimeSpent, completedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record progress: %w", err)
	}

	recorded := *p
	recorded.ID = id
	recorded.CompletedAt = completedAt
	return &recorded, nil
}

// GetRecentProgress returns the latest rows of a student, newest first
func (r *ProgressRepository) GetRecentProgress(ctx context.Context, studentID int64, limit int) ([]models.StudentProgress, error) {
	query := `
		SELECT id, student_id, exercise_id, subject, exercise_type, score, total_questions, time_spent, completed_at
		FROM student_progress
		WHERE student_id = ?
		ORDER BY completed_at DESC, id DESC
	`
	args := []any{studentID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	progress := []models.StudentProgress{}
	for rows.Next() {
		var (
			p          models.StudentProgress
			exerciseID sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.StudentID, &exerciseID, &p.Subject, &p.ExerciseType, &p.Score, &p.TotalQuestions, &p.TimeSpent, &p.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		if exerciseID.Valid {
			id := exerciseID.Int64
			p.ExerciseID = &id
		}
		progress = append(progress, p)
	}
	return progress, rows.Err()
}
