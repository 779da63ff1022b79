package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"learningfun/internal/database"
)

const backupVersion = "2.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string            `json:"version"`
	ExportedAt   time.Time         `json:"exported_at"`
	DatabaseType string            `json:"database_type"`
	Users        []UserBackup      `json:"users"`
	Profiles     []ProfileBackup   `json:"profiles"`
	Links        []LinkBackup      `json:"links"`
	Stats        []StatsBackup     `json:"stats"`
	Exercises    []ExerciseBackup  `json:"exercises"`
	Progress     []ProgressBackup  `json:"progress"`
	Challenges   []ChallengeBackup `json:"challenges"`
	Schools      []SchoolBackup    `json:"schools"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	OAuthProvider string    `json:"oauth_provider"`
	OAuthSubject  string    `json:"oauth_subject"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProfileBackup represents a user profile for backup
type ProfileBackup struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	UserType   string    `json:"user_type"`
	GradeLevel *int64    `json:"grade_level"`
	AvatarURL  string    `json:"avatar_url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LinkBackup represents a parent or teacher following a student
type LinkBackup struct {
	ID        int64     `json:"id"`
	ParentID  int64     `json:"parent_id"`
	StudentID int64     `json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}

// StatsBackup represents a student's reward state. Badges keep their stored JSON form.
type StatsBackup struct {
	ID           int64      `json:"id"`
	StudentID    int64      `json:"student_id"`
	TotalPoints  int        `json:"total_points"`
	Badges       string     `json:"badges"`
	StreakDays   int        `json:"streak_days"`
	LastActivity *time.Time `json:"last_activity"`
}

// ExerciseBackup represents a saved exercise
type ExerciseBackup struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Subject      string    `json:"subject"`
	GradeLevel   int       `json:"grade_level"`
	ExerciseType string    `json:"exercise_type"`
	Content      string    `json:"content"`
	IsPublic     bool      `json:"is_public"`
	CreatedBy    int64     `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProgressBackup represents one finished exercise run
type ProgressBackup struct {
	ID             int64     `json:"id"`
	StudentID      int64     `json:"student_id"`
	ExerciseID     *int64    `json:"exercise_id"`
	Subject        string    `json:"subject"`
	ExerciseType   string    `json:"exercise_type"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	TimeSpent      int       `json:"time_spent"`
	CompletedAt    time.Time `json:"completed_at"`
}

// ChallengeBackup represents a daily challenge
type ChallengeBackup struct {
	ID            int64     `json:"id"`
	StudentID     int64     `json:"student_id"`
	Subject       string    `json:"subject"`
	ChallengeText string    `json:"challenge_text"`
	IsCompleted   bool      `json:"is_completed"`
	ChallengeDate string    `json:"challenge_date"`
	PointsAwarded int       `json:"points_awarded"`
	CreatedAt     time.Time `json:"created_at"`
}

// SchoolBackup represents a teacher's school details
type SchoolBackup struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	SchoolName string    `json:"school_name"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	Syllabus   string    `json:"syllabus"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// restoreOrder lists tables parents first; clearing walks it backwards.
var restoreOrder = []string{
	"users",
	"user_profiles",
	"parent_student_links",
	"student_stats",
	"exercises",
	"student_progress",
	"daily_challenges",
	"school_details",
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db  *database.DB
	log *zap.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, log *zap.Logger) *BackupService {
	return &BackupService{db: db, log: log.Named("backup")}
}

// Export writes a complete JSON backup of the database to w
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*BackupData, error) {
	backup := &BackupData{
		Version:      backupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.GetDialect().MigrationsSubdir(),
	}

	steps := []struct {
		name string
		fn   func(context.Context, *BackupData) error
	}{
		{"users", s.exportUsers},
		{"profiles", s.exportProfiles},
		{"links", s.exportLinks},
		{"stats", s.exportStats},
		{"exercises", s.exportExercises},
		{"progress", s.exportProgress},
		{"challenges", s.exportChallenges},
		{"schools", s.exportSchools},
	}
	for _, step := range steps {
		if err := step.fn(ctx, backup); err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", step.name, err)
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.Info("database exported",
		zap.Int("users", len(backup.Users)),
		zap.Int("exercises", len(backup.Exercises)),
		zap.Int("progress", len(backup.Progress)),
		zap.Int("challenges", len(backup.Challenges)),
	)
	return backup, nil
}

// ExportFile writes the backup to outputPath
func (s *BackupService) ExportFile(ctx context.Context, outputPath string) (*BackupData, error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	return s.Export(ctx, file)
}

// Import restores a backup read from r in a single transaction. With clear
// set, existing rows are deleted first.
func (s *BackupService) Import(ctx context.Context, r io.Reader, clear bool) (*BackupData, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return nil, fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	s.log.Info("importing backup",
		zap.String("exported_at", backup.ExportedAt.Format(time.RFC3339)),
		zap.String("source", backup.DatabaseType),
		zap.Bool("clear", clear),
	)

	err := s.db.WithinTx(ctx, func(tx *database.Tx) error {
		if clear {
			for i := len(restoreOrder) - 1; i >= 0; i-- {
				if _, err := tx.ExecContext(ctx, "DELETE FROM "+restoreOrder[i]); err != nil {
					return fmt.Errorf("failed to clear %s: %w", restoreOrder[i], err)
				}
			}
		}
		if err := importRows(ctx, tx, &backup); err != nil {
			return err
		}
		return resetSequences(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("database import completed", zap.Int("users", len(backup.Users)))
	return &backup, nil
}

// ImportFile restores the backup stored at inputPath
func (s *BackupService) ImportFile(ctx context.Context, inputPath string, clear bool) (*BackupData, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.Import(ctx, file, clear)
}

func (s *BackupService) exportUsers(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, email, password_hash, COALESCE(oauth_provider, ''), COALESCE(oauth_subject, ''), created_at, updated_at FROM users ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserBackup
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.OAuthProvider, &u.OAuthSubject, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportProfiles(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, email, full_name, user_type, grade_level, avatar_url, created_at, updated_at FROM user_profiles ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p ProfileBackup
		var grade sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Email, &p.FullName, &p.UserType, &grade, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		if grade.Valid {
			p.GradeLevel = &grade.Int64
		}
		backup.Profiles = append(backup.Profiles, p)
	}
	return rows.Err()
}

func (s *BackupService) exportLinks(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, parent_id, student_id, created_at FROM parent_student_links ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l LinkBackup
		if err := rows.Scan(&l.ID, &l.ParentID, &l.StudentID, &l.CreatedAt); err != nil {
			return err
		}
		backup.Links = append(backup.Links, l)
	}
	return rows.Err()
}

func (s *BackupService) exportStats(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, student_id, total_points, badges, streak_days, last_activity FROM student_stats ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var st StatsBackup
		var last sql.NullTime
		if err := rows.Scan(&st.ID, &st.StudentID, &st.TotalPoints, &st.Badges, &st.StreakDays, &last); err != nil {
			return err
		}
		if last.Valid {
			st.LastActivity = &last.Time
		}
		backup.Stats = append(backup.Stats, st)
	}
	return rows.Err()
}

func (s *BackupService) exportExercises(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, subject, grade_level, exercise_type, content, is_public, created_by, created_at, updated_at FROM exercises ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var e ExerciseBackup
		if err := rows.Scan(&e.ID, &e.Title, &e.Subject, &e.GradeLevel, &e.ExerciseType, &e.Content, &e.IsPublic, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return err
		}
		backup.Exercises = append(backup.Exercises, e)
	}
	return rows.Err()
}

func (s *BackupService) exportProgress(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, student_id, exercise_id, subject, exercise_type, score, total_questions, time_spent, completed_at FROM student_progress ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p ProgressBackup
		var exerciseID sql.NullInt64
		if err := rows.Scan(&p.ID, &p.StudentID, &exerciseID, &p.Subject, &p.ExerciseType, &p.Score, &p.TotalQuestions, &p.TimeSpent, &p.CompletedAt); err != nil {
			return err
		}
		if exerciseID.Valid {
			p.ExerciseID = &exerciseID.Int64
		}
		backup.Progress = append(backup.Progress, p)
	}
	return rows.Err()
}

func (s *BackupService) exportChallenges(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, student_id, subject, challenge_text, is_completed, challenge_date, points_awarded, created_at FROM daily_challenges ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c ChallengeBackup
		if err := rows.Scan(&c.ID, &c.StudentID, &c.Subject, &c.ChallengeText, &c.IsCompleted, &c.ChallengeDate, &c.PointsAwarded, &c.CreatedAt); err != nil {
			return err
		}
		backup.Challenges = append(backup.Challenges, c)
	}
	return rows.Err()
}

func (s *BackupService) exportSchools(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, user_id, school_name, address, city, state, syllabus, created_at, updated_at FROM school_details ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var sd SchoolBackup
		if err := rows.Scan(&sd.ID, &sd.UserID, &sd.SchoolName, &sd.Address, &sd.City, &sd.State, &sd.Syllabus, &sd.CreatedAt, &sd.UpdatedAt); err != nil {
			return err
		}
		backup.Schools = append(backup.Schools, sd)
	}
	return rows.Err()
}

func importRows(ctx context.Context, tx *database.Tx, b *BackupData) error {
	for _, u := range b.Users {
		_, err := tx.ExecContext(ctx, "INSERT INTO users (id, email, password_hash, oauth_provider, oauth_subject, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			u.ID, u.Email, u.PasswordHash, nullIfEmpty(u.OAuthProvider), nullIfEmpty(u.OAuthSubject), u.CreatedAt, u.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import user %d: %w", u.ID, err)
		}
	}
	for _, p := range b.Profiles {
		_, err := tx.ExecContext(ctx, "INSERT INTO user_profiles (id, email, full_name, user_type, grade_level, avatar_url, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			p.ID, p.Email, p.FullName, p.UserType, nullable(p.GradeLevel), p.AvatarURL, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import profile %d: %w", p.ID, err)
		}
	}
	for _, l := range b.Links {
		_, err := tx.ExecContext(ctx, "INSERT INTO parent_student_links (id, parent_id, student_id, created_at) VALUES (?, ?, ?, ?)",
			l.ID, l.ParentID, l.StudentID, l.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to import link %d: %w", l.ID, err)
		}
	}
	for _, st := range b.Stats {
		_, err := tx.ExecContext(ctx, "INSERT INTO student_stats (id, student_id, total_points, badges, streak_days, last_activity) VALUES (?, ?, ?, ?, ?, ?)",
			st.ID, st.StudentID, st.TotalPoints, st.Badges, st.StreakDays, nullable(st.LastActivity))
		if err != nil {
			return fmt.Errorf("failed to import stats %d: %w", st.ID, err)
		}
	}
	for _, e := range b.Exercises {
		_, err := tx.ExecContext(ctx, "INSERT INTO exercises (id, title, subject, grade_level, exercise_type, content, is_public, created_by, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			e.ID, e.Title, e.Subject, e.GradeLevel, e.ExerciseType, e.Content, e.IsPublic, e.CreatedBy, e.CreatedAt, e.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import exercise %d: %w", e.ID, err)
		}
	}
	for _, p := range b.Progress {
		_, err := tx.ExecContext(ctx, "INSERT INTO student_progress (id, student_id, exercise_id, subject, exercise_type, score, total_questions, time_spent, completed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			p.ID, p.StudentID, nullable(p.ExerciseID), p.Subject, p.ExerciseType, p.Score, p.TotalQuestions, p.TimeSpent, p.CompletedAt)
		if err != nil {
			return fmt.Errorf("failed to import progress %d: %w", p.ID, err)
		}
	}
	for _, c := range b.Challenges {
		_, err := tx.ExecContext(ctx, "INSERT INTO daily_challenges (id, student_id, subject, challenge_text, is_completed, challenge_date, points_awarded, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			c.ID, c.StudentID, c.Subject, c.ChallengeText, c.IsCompleted, c.ChallengeDate, c.PointsAwarded, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to import challenge %d: %w", c.ID, err)
		}
	}
	for _, sd := range b.Schools {
		_, err := tx.ExecContext(ctx, "INSERT INTO school_details (id, user_id, school_name, address, city, state, syllabus, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			sd.ID, sd.UserID, sd.SchoolName, sd.Address, sd.City, sd.State, sd.Syllabus, sd.CreatedAt, sd.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import school %d: %w", sd.ID, err)
		}
	}
	return nil
}

// resetSequences moves postgres serial counters past the imported ids.
// SQLite and MySQL advance theirs on explicit inserts.
func resetSequences(ctx context.Context, tx *database.Tx) error {
	if tx.GetDialect().MigrationsSubdir() != "postgres" {
		return nil
	}
	for _, table := range restoreOrder {
		if table == "user_profiles" {
			continue
		}
		query := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM %s", table, table)
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to reset sequence of %s: %w", table, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
