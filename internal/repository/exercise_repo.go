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

// ExerciseRepository handles database operations for parent-authored exercises
type ExerciseRepository struct {
	db database.DBTX
}

// NewExerciseRepository creates a new exercise repository
func NewExerciseRepository(db database.DBTX) *ExerciseRepository {
	return &ExerciseRepository{db: db}
}

// ExerciseFilter narrows a visible-exercise listing. Zero values match everything.
type ExerciseFilter struct {
	Subject    string
	GradeLevel int
}

const exerciseColumns = `id, title, subject, grade_level, exercise_type, content, is_public, created_by, created_at, updated_at`

func scanExercise(row interface{ Scan(...any) error }) (*models.Exercise, error) {
	var (
		e       models.Exercise
		content string
	)
	if err := row.Scan(&e.ID, &e.Title, &e.Subject, &e.GradeLevel, &e.ExerciseType, &content, &e.IsPublic, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Content = []byte(content)
	return &e, nil
}

func contentText(raw []byte) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}

// CreateExercise inserts an exercise owned by e.CreatedBy
func (r *ExerciseRepository) CreateExercise(ctx context.Context, e *models.Exercise) (*models.Exercise, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO exercises (title, subject, grade_level, exercise_type, content, is_public, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		e.Title, e.Subject, e.GradeLevel, e.ExerciseType, contentText(e.Content), e.IsPublic, e.CreatedBy, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create exercise: %w", err)
	}

	created := *e
	created.ID = id
	created.Content = []byte(contentText(e.Content))
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

// GetExercise retrieves an exercise by ID
func (r *ExerciseRepository) GetExercise(ctx context.Context, id int64) (*models.Exercise, error) {
	query := "SELECT " + exerciseColumns + " FROM exercises WHERE id = ?"
	e, err := scanExercise(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exercise: %w", err)
	}
	return e, nil
}

// ListVisible returns the exercises a user owns plus every public exercise, newest first.
// A subject filter also matches exercises filed under "all".
func (r *ExerciseRepository) ListVisible(ctx context.Context, userID int64, filter ExerciseFilter) ([]models.Exercise, error) {
	query := "SELECT " + exerciseColumns + " FROM exercises WHERE (created_by = ? OR is_public = ?)"
	args := []any{userID, true}

	if filter.Subject != "" && filter.Subject != models.SubjectAll {
		query += " AND (subject = ? OR subject = ?)"
		args = append(args, filter.Subject, models.SubjectAll)
	}
	if filter.GradeLevel > 0 {
		query += " AND grade_level = ?"
		args = append(args, filter.GradeLevel)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exercises: %w", err)
	}
	defer rows.Close()

	exercises := []models.Exercise{}
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exercise: %w", err)
		}
		exercises = append(exercises, *e)
	}
	return exercises, rows.Err()
}

// ListAll returns every exercise ordered by id
func (r *ExerciseRepository) ListAll(ctx context.Context) ([]models.Exercise, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+exerciseColumns+" FROM exercises ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query exercises: %w", err)
	}
	defer rows.Close()

	var exercises []models.Exercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exercise: %w", err)
		}
		exercises = append(exercises, *e)
	}
	return exercises, rows.Err()
}

// UpdateExercise applies a partial update and returns the stored row
func (r *ExerciseRepository) UpdateExercise(ctx context.Context, id int64, update models.ExerciseUpdate) (*models.Exercise, error) {
	current, err := r.GetExercise(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	if update.Title != nil {
		current.Title = *update.Title
	}
	if update.Subject != nil {
		current.Subject = *update.Subject
	}
	if update.GradeLevel != nil {
		current.GradeLevel = *update.GradeLevel
	}
	if update.ExerciseType != nil {
		current.ExerciseType = *update.ExerciseType
	}
	if len(update.Content) > 0 {
		current.Content = update.Content
	}
	if update.IsPublic != nil {
		current.IsPublic = *update.IsPublic
	}
	current.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE exercises
		SET title = ?, subject = ?, grade_level = ?, exercise_type = ?, content = ?, is_public = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = r.db.ExecContext(ctx, query,
		current.Title, current.Subject, current.GradeLevel, current.ExerciseType,
		contentText(current.Content), current.IsPublic, current.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update exercise: %w", err)
	}
	return current, nil
}

// DeleteExercise removes an exercise
func (r *ExerciseRepository) DeleteExercise(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM exercises WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete exercise: %w", err)
	}
	return nil
}
