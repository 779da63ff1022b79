package repository

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"learningfun/internal/database"
	"learningfun/internal/models"
)

const testMigrationsPath = "../../migrations"

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "repo.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.RunMigrations(context.Background(), testMigrationsPath); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db database.DBTX, email string) *models.User {
	t.Helper()
	user, err := NewUserRepository(db).CreateUser(context.Background(), email, "hash")
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

func TestUserRepositoryLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user, err := repo.CreateUser(ctx, "kid@example.com", "hash")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if user.ID == 0 {
		t.Fatal("CreateUser() returned zero id")
	}

	byEmail, err := repo.GetUserByEmail(ctx, "kid@example.com")
	if err != nil || byEmail == nil {
		t.Fatalf("GetUserByEmail() = %v, %v", byEmail, err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("GetUserByEmail().ID = %d, want %d", byEmail.ID, user.ID)
	}

	missing, err := repo.GetUserByEmail(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail(missing) error = %v", err)
	}
	if missing != nil {
		t.Error("GetUserByEmail(missing) should return nil")
	}

	if _, err := repo.CreateUser(ctx, "kid@example.com", "other"); err == nil {
		t.Error("CreateUser() with duplicate email should fail")
	}

	if err := repo.LinkOAuthProvider(ctx, user.ID, "google", "g-123"); err != nil {
		t.Fatalf("LinkOAuthProvider() error = %v", err)
	}
	if err := repo.LinkOAuthProvider(ctx, user.ID, "facebook", "f-1"); err == nil {
		t.Error("LinkOAuthProvider() twice should fail")
	}
	byOAuth, err := repo.GetUserByOAuth(ctx, "google", "g-123")
	if err != nil || byOAuth == nil || byOAuth.ID != user.ID {
		t.Fatalf("GetUserByOAuth() = %v, %v", byOAuth, err)
	}

	if err := repo.UpdatePassword(ctx, user.ID, "newhash"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}
	byID, _ := repo.GetUserByID(ctx, user.ID)
	if byID.PasswordHash != "newhash" {
		t.Errorf("PasswordHash = %q, want newhash", byID.PasswordHash)
	}
}

func TestUserRepositorySessions(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	user := createTestUser(t, db, "parent@example.com")

	if _, err := repo.CreateSession(ctx, "live", user.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := repo.CreateSession(ctx, "stale", user.ID, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	deleted, err := repo.DeleteExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteExpiredSessions() = %d, want 1", deleted)
	}

	live, err := repo.GetSession(ctx, "live")
	if err != nil || live == nil {
		t.Fatalf("GetSession(live) = %v, %v", live, err)
	}
	if live.IsExpired() {
		t.Error("live session should not be expired")
	}

	if err := repo.DeleteSession(ctx, "live"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	gone, _ := repo.GetSession(ctx, "live")
	if gone != nil {
		t.Error("session should be gone after DeleteSession")
	}
}

func TestUserRepositoryResetTokens(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	user := createTestUser(t, db, "reset@example.com")

	if err := repo.CreatePasswordResetToken(ctx, "tok", user.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("CreatePasswordResetToken() error = %v", err)
	}
	if err := repo.MarkPasswordResetTokenAsUsed(ctx, "tok"); err != nil {
		t.Fatalf("MarkPasswordResetTokenAsUsed() error = %v", err)
	}

	tok, err := repo.GetPasswordResetToken(ctx, "tok")
	if err != nil || tok == nil {
		t.Fatalf("GetPasswordResetToken() = %v, %v", tok, err)
	}
	if !tok.Used {
		t.Error("token should be marked used")
	}

	if err := repo.DeleteUserPasswordResetTokens(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUserPasswordResetTokens() error = %v", err)
	}
	if tok, _ := repo.GetPasswordResetToken(ctx, "tok"); tok != nil {
		t.Error("token should be deleted")
	}
}

func TestProfileRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	student := createTestUser(t, db, "student@example.com")
	parent := createTestUser(t, db, "parent@example.com")

	grade := 2
	created, err := repo.CreateProfile(ctx, &models.UserProfile{
		ID:         student.ID,
		Email:      student.Email,
		FullName:   "Asha",
		UserType:   models.UserTypeStudent,
		GradeLevel: &grade,
	})
	if err != nil {
		t.Fatalf("CreateProfile() error = %v", err)
	}

	fetched, err := repo.GetProfile(ctx, student.ID)
	if err != nil || fetched == nil {
		t.Fatalf("GetProfile() = %v, %v", fetched, err)
	}
	if fetched.FullName != created.FullName || fetched.UserType != models.UserTypeStudent {
		t.Errorf("GetProfile() = %+v, want %+v", fetched, created)
	}
	if fetched.GradeLevel == nil || *fetched.GradeLevel != 2 {
		t.Errorf("GradeLevel = %v, want 2", fetched.GradeLevel)
	}

	name := "Asha K"
	updated, err := repo.UpdateProfile(ctx, student.ID, models.ProfileUpdate{FullName: &name})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated.FullName != name || updated.GradeLevel == nil || *updated.GradeLevel != 2 {
		t.Errorf("UpdateProfile() = %+v", updated)
	}

	if _, err := repo.CreateProfile(ctx, &models.UserProfile{ID: parent.ID, Email: parent.Email, FullName: "Ravi", UserType: models.UserTypeParent}); err != nil {
		t.Fatalf("CreateProfile(parent) error = %v", err)
	}

	first, err := repo.CreateLink(ctx, parent.ID, student.ID)
	if err != nil {
		t.Fatalf("CreateLink() error = %v", err)
	}
	second, err := repo.CreateLink(ctx, parent.ID, student.ID)
	if err != nil {
		t.Fatalf("CreateLink() again error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("linking twice created a second row: %d vs %d", first.ID, second.ID)
	}

	linked, err := repo.IsLinked(ctx, parent.ID, student.ID)
	if err != nil || !linked {
		t.Errorf("IsLinked() = %v, %v", linked, err)
	}
	students, err := repo.GetLinkedStudents(ctx, parent.ID)
	if err != nil {
		t.Fatalf("GetLinkedStudents() error = %v", err)
	}
	if len(students) != 1 || students[0].ID != student.ID {
		t.Errorf("GetLinkedStudents() = %+v", students)
	}
}

func TestStatsRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStatsRepository(db)
	ctx := context.Background()
	student := createTestUser(t, db, "stats@example.com")

	if _, err := repo.CreateStats(ctx, student.ID); err != nil {
		t.Fatalf("CreateStats() error = %v", err)
	}

	stats, err := repo.GetStats(ctx, student.ID)
	if err != nil || stats == nil {
		t.Fatalf("GetStats() = %v, %v", stats, err)
	}
	if stats.TotalPoints != 0 || len(stats.Badges) != 0 || stats.StreakDays != 0 {
		t.Errorf("new stats = %+v, want zeroed", stats)
	}

	points := 50
	now := time.Now().UTC().Truncate(time.Second)
	updated, err := repo.UpdateStats(ctx, student.ID, models.StatsUpdate{
		TotalPoints:  &points,
		Badges:       []string{"math-star"},
		LastActivity: &now,
	})
	if err != nil {
		t.Fatalf("UpdateStats() error = %v", err)
	}
	if updated.TotalPoints != 50 || !updated.HasBadge("math-star") {
		t.Errorf("UpdateStats() = %+v", updated)
	}

	again, _ := repo.GetStats(ctx, student.ID)
	if again.TotalPoints != 50 || len(again.Badges) != 1 || again.Badges[0] != "math-star" {
		t.Errorf("GetStats() after update = %+v", again)
	}
	if again.LastActivity == nil || !again.LastActivity.Equal(now) {
		t.Errorf("LastActivity = %v, want %v", again.LastActivity, now)
	}

	missing, err := repo.UpdateStats(ctx, 9999, models.StatsUpdate{TotalPoints: &points})
	if err != nil || missing != nil {
		t.Errorf("UpdateStats(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestExerciseRepositoryVisibility(t *testing.T) {
	db := setupTestDB(t)
	repo := NewExerciseRepository(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner@example.com")
	other := createTestUser(t, db, "other@example.com")

	create := func(title, subject string, grade int, public bool, by int64) *models.Exercise {
		t.Helper()
		e, err := repo.CreateExercise(ctx, &models.Exercise{
			Title:        title,
			Subject:      subject,
			GradeLevel:   grade,
			ExerciseType: "multiple-choice",
			Content:      json.RawMessage(`{"questions":[]}`),
			IsPublic:     public,
			CreatedBy:    by,
		})
		if err != nil {
			t.Fatalf("CreateExercise(%s) error = %v", title, err)
		}
		return e
	}

	create("own math", models.SubjectMath, 1, false, owner.ID)
	create("other private", models.SubjectMath, 1, false, other.ID)
	create("other public english", models.SubjectEnglish, 2, true, other.ID)
	create("own all", models.SubjectAll, 1, false, owner.ID)

	tests := []struct {
		name   string
		filter ExerciseFilter
		want   []string
	}{
		{name: "no filter", want: []string{"own all", "other public english", "own math"}},
		{name: "math includes all", filter: ExerciseFilter{Subject: models.SubjectMath}, want: []string{"own all", "own math"}},
		{name: "english", filter: ExerciseFilter{Subject: models.SubjectEnglish}, want: []string{"own all", "other public english"}},
		{name: "grade 2", filter: ExerciseFilter{GradeLevel: 2}, want: []string{"other public english"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListVisible(ctx, owner.ID, tt.filter)
			if err != nil {
				t.Fatalf("ListVisible() error = %v", err)
			}
			var titles []string
			for _, e := range got {
				titles = append(titles, e.Title)
			}
			if len(titles) != len(tt.want) {
				t.Fatalf("ListVisible() = %v, want %v", titles, tt.want)
			}
			for i := range titles {
				if titles[i] != tt.want[i] {
					t.Errorf("ListVisible()[%d] = %q, want %q", i, titles[i], tt.want[i])
				}
			}
		})
	}
}

func TestExerciseRepositoryRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewExerciseRepository(db)
	ctx := context.Background()
	owner := createTestUser(t, db, "rt@example.com")

	payload := &models.Exercise{
		Title:        "Counting",
		Subject:      models.SubjectMath,
		GradeLevel:   1,
		ExerciseType: "fill-blanks",
		Content:      json.RawMessage(`{"questions":[{"q":"1+1","a":"2"}]}`),
		IsPublic:     true,
		CreatedBy:    owner.ID,
	}
	created, err := repo.CreateExercise(ctx, payload)
	if err != nil {
		t.Fatalf("CreateExercise() error = %v", err)
	}

	fetched, err := repo.GetExercise(ctx, created.ID)
	if err != nil || fetched == nil {
		t.Fatalf("GetExercise() = %v, %v", fetched, err)
	}
	if fetched.Title != payload.Title || fetched.Subject != payload.Subject || fetched.GradeLevel != payload.GradeLevel ||
		fetched.ExerciseType != payload.ExerciseType || string(fetched.Content) != string(payload.Content) ||
		fetched.IsPublic != payload.IsPublic || fetched.CreatedBy != payload.CreatedBy {
		t.Errorf("GetExercise() = %+v, want payload %+v", fetched, payload)
	}

	title := "Counting to ten"
	updated, err := repo.UpdateExercise(ctx, created.ID, models.ExerciseUpdate{Title: &title})
	if err != nil {
		t.Fatalf("UpdateExercise() error = %v", err)
	}
	if updated.Title != title || string(updated.Content) != string(payload.Content) {
		t.Errorf("UpdateExercise() = %+v", updated)
	}

	if err := repo.DeleteExercise(ctx, created.ID); err != nil {
		t.Fatalf("DeleteExercise() error = %v", err)
	}
	if gone, _ := repo.GetExercise(ctx, created.ID); gone != nil {
		t.Error("exercise should be deleted")
	}
}

func TestSchoolRepositoryUpsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSchoolRepository(db)
	ctx := context.Background()
	user := createTestUser(t, db, "school@example.com")

	first, err := repo.SaveSchoolDetails(ctx, &models.SchoolDetails{UserID: user.ID, SchoolName: "Green Valley", City: "Pune", Syllabus: "CBSE"})
	if err != nil {
		t.Fatalf("SaveSchoolDetails() error = %v", err)
	}
	second, err := repo.SaveSchoolDetails(ctx, &models.SchoolDetails{UserID: user.ID, SchoolName: "Blue Hills", City: "Mumbai", Syllabus: "ICSE"})
	if err != nil {
		t.Fatalf("SaveSchoolDetails() again error = %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("upsert created a second row: %d vs %d", first.ID, second.ID)
	}
	if second.SchoolName != "Blue Hills" || second.City != "Mumbai" || second.Syllabus != "ICSE" {
		t.Errorf("SaveSchoolDetails() = %+v", second)
	}

	if err := repo.DeleteSchoolDetails(ctx, user.ID); err != nil {
		t.Fatalf("DeleteSchoolDetails() error = %v", err)
	}
	if d, _ := repo.GetSchoolDetails(ctx, user.ID); d != nil {
		t.Error("school details should be deleted")
	}
}

func TestProgressRepositoryLatestTen(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProgressRepository(db)
	ctx := context.Background()
	student := createTestUser(t, db, "progress@example.com")

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 12; i++ {
		_, err := repo.RecordProgress(ctx, &models.StudentProgress{
			StudentID:      student.ID,
			Subject:        models.SubjectMath,
			ExerciseType:   "addition",
			Score:          i % 6,
			TotalQuestions: 5,
			TimeSpent:      30,
			CompletedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("RecordProgress(%d) error = %v", i, err)
		}
	}

	rows, err := repo.GetRecentProgress(ctx, student.ID, RecentProgressLimit)
	if err != nil {
		t.Fatalf("GetRecentProgress() error = %v", err)
	}
	if len(rows) != 10 {
		t.Fatalf("GetRecentProgress() returned %d rows, want 10", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].CompletedAt.After(rows[i-1].CompletedAt) {
			t.Errorf("rows not newest first at %d", i)
		}
	}
}

func TestChallengeRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChallengeRepository(db)
	ctx := context.Background()
	student := createTestUser(t, db, "challenge@example.com")

	today := time.Now().UTC().Format(models.ChallengeDateLayout)
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format(models.ChallengeDateLayout)

	todays, err := repo.CreateChallenge(ctx, &models.DailyChallenge{StudentID: student.ID, Subject: models.SubjectMath, ChallengeText: "Solve 5 sums", ChallengeDate: today, PointsAwarded: 10})
	if err != nil {
		t.Fatalf("CreateChallenge() error = %v", err)
	}
	if _, err := repo.CreateChallenge(ctx, &models.DailyChallenge{StudentID: student.ID, Subject: models.SubjectEVS, ChallengeText: "Old", ChallengeDate: yesterday, PointsAwarded: 10}); err != nil {
		t.Fatalf("CreateChallenge() error = %v", err)
	}

	list, err := repo.GetChallengesForDate(ctx, student.ID, today)
	if err != nil {
		t.Fatalf("GetChallengesForDate() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != todays.ID {
		t.Fatalf("GetChallengesForDate() = %+v", list)
	}

	ok, err := repo.CompleteChallenge(ctx, todays.ID, 10)
	if err != nil || !ok {
		t.Fatalf("CompleteChallenge() = %v, %v", ok, err)
	}
	ok, err = repo.CompleteChallenge(ctx, todays.ID, 10)
	if err != nil {
		t.Fatalf("CompleteChallenge() again error = %v", err)
	}
	if ok {
		t.Error("completing twice should report false")
	}
}
