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

// SchoolRepository handles database operations for school details
type SchoolRepository struct {
	db database.DBTX
}

// NewSchoolRepository creates a new school repository
func NewSchoolRepository(db database.DBTX) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// GetSchoolDetails retrieves the school details of a user
func (r *SchoolRepository) GetSchoolDetails(ctx context.Context, userID int64) (*models.SchoolDetails, error) {
	query := `
		SELECT id, user_id, school_name, address, city, state, syllabus, created_at, updated_at
		FROM school_details
		WHERE user_id = ?
	`
	d := &models.SchoolDetails{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&d.ID, &d.UserID, &d.SchoolName, &d.Address, &d.City, &d.State, &d.Syllabus, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get school details: %w", err)
	}
	return d, nil
}

// SaveSchoolDetails inserts or replaces the single school row of d.UserID
func (r *SchoolRepository) SaveSchoolDetails(ctx context.Context, d *models.SchoolDetails) (*models.SchoolDetails, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO school_details (user_id, school_name, address, city, state, syllabus, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)` +
		r.db.GetDialect().UpsertClause("user_id", []string{"school_name", "address", "city", "state", "syllabus", "updated_at"})

	if _, err := r.db.ExecContext(ctx, query, d.UserID, d.SchoolName, d.Address, d.City, d.State, d.Syllabus, now, now); err != nil {
		return nil, fmt.Errorf("failed to save school details: %w", err)
	}

	saved, err := r.GetSchoolDetails(ctx, d.UserID)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, fmt.Errorf("school details missing after save")
	}
	return saved, nil
}

// DeleteSchoolDetails removes the school row of a user
func (r *SchoolRepository) DeleteSchoolDetails(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM school_details WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to delete school details: %w", err)
	}
	return nil
}
