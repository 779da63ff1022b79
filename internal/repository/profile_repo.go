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

// ProfileRepository handles database operations for user profiles and parent links
type ProfileRepository struct {
	db database.DBTX
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db database.DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `id, email, full_name, user_type, grade_level, avatar_url, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (*models.UserProfile, error) {
	var (
		p        models.UserProfile
		userType string
		grade    sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &userType, &grade, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.UserType = models.UserType(userType)
	if grade.Valid {
		g := int(grade.Int64)
		p.GradeLevel = &g
	}
	return &p, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// CreateProfile inserts the profile row of a user. The profile id is the user id.
func (r *ProfileRepository) CreateProfile(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO user_profiles (id, email, full_name, user_type, grade_level, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		profile.ID, profile.Email, profile.FullName, string(profile.UserType),
		nullableInt(profile.GradeLevel), profile.AvatarURL, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	created := *profile
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

// GetProfile retrieves a profile by user ID
func (r *ProfileRepository) GetProfile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	query := "SELECT " + profileColumns + " FROM user_profiles WHERE id = ?"
	profile, err := scanProfile(r.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// GetProfileByEmail retrieves a profile by email address
func (r *ProfileRepository) GetProfileByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	query := "SELECT " + profileColumns + " FROM user_profiles WHERE email = ?"
	profile, err := scanProfile(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile applies a partial update and returns the stored row
func (r *ProfileRepository) UpdateProfile(ctx context.Context, userID int64, update models.ProfileUpdate) (*models.UserProfile, error) {
	current, err := r.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	if update.FullName != nil {
		current.FullName = *update.FullName
	}
	if update.GradeLevel != nil {
		current.GradeLevel = update.GradeLevel
	}
	if update.AvatarURL != nil {
		current.AvatarURL = *update.AvatarURL
	}
	current.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE user_profiles
		SET full_name = ?, grade_level = ?, avatar_url = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, current.FullName, nullableInt(current.GradeLevel), current.AvatarURL, current.UpdatedAt, userID); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return current, nil
}

// ListProfiles returns every profile ordered by id
func (r *ProfileRepository) ListProfiles(ctx context.Context) ([]models.UserProfile, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+profileColumns+" FROM user_profiles ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// CreateLink connects a parent or teacher to a student. Linking twice is a no-op.
func (r *ProfileRepository) CreateLink(ctx context.Context, parentID, studentID int64) (*models.ParentStudentLink, error) {
	existing, err := r.getLink(ctx, parentID, studentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	id, err := r.db.ExecReturningID(ctx,
		"INSERT INTO parent_student_links (parent_id, student_id, created_at) VALUES (?, ?, ?)",
		parentID, studentID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create link: %w", err)
	}
	return &models.ParentStudentLink{ID: id, ParentID: parentID, StudentID: studentID, CreatedAt: now}, nil
}

func (r *ProfileRepository) getLink(ctx context.Context, parentID, studentID int64) (*models.ParentStudentLink, error) {
	link := &models.ParentStudentLink{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, parent_id, student_id, created_at FROM parent_student_links WHERE parent_id = ? AND student_id = ?",
		parentID, studentID,
	).Scan(&link.ID, &link.ParentID, &link.StudentID, &link.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return link, nil
}

// IsLinked reports whether parentID follows studentID
func (r *ProfileRepository) IsLinked(ctx context.Context, parentID, studentID int64) (bool, error) {
	link, err := r.getLink(ctx, parentID, studentID)
	if err != nil {
		return false, err
	}
	return link != nil, nil
}

// GetLinkedStudents returns the profiles of every student a parent follows
func (r *ProfileRepository) GetLinkedStudents(ctx context.Context, parentID int64) ([]models.UserProfile, error) {
	query := `
		SELECT p.id, p.email, p.full_name, p.user_type, p.grade_level, p.avatar_url, p.created_at, p.updated_at
		FROM user_profiles p
		INNER JOIN parent_student_links l ON l.student_id = p.id
		WHERE l.parent_id = ?
		ORDER BY p.full_name ASC
	`
	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query linked students: %w", err)
	}
	defer rows.Close()

	var students []models.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, *p)
	}
	return students, rows.Err()
}

// DeleteLink removes a parent/student link
func (r *ProfileRepository) DeleteLink(ctx context.Context, parentID, studentID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM parent_student_links WHERE parent_id = ? AND student_id = ?", parentID, studentID); err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	return nil
}
