package gateway

import (
	"context"
	"strings"

	"learningfun/internal/models"
	"learningfun/internal/validation"
)

// FetchProfile returns the caller's profile
func (g *Gateway) FetchProfile(ctx context.Context) (*models.UserProfile, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := g.profiles.GetProfile(ctx, s.UserID)
	if err != nil {
		return nil, remote("profile.fetch", err)
	}
	if profile == nil {
		return nil, ErrNotFound
	}
	return profile, nil
}

// UpdateProfile applies a partial update to the caller's profile
func (g *Gateway) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*models.UserProfile, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if update.FullName != nil {
		if err := validation.ValidateName(*update.FullName); err != nil {
			return nil, err
		}
	}
	if update.GradeLevel != nil {
		if err := validation.ValidateGrade("grade_level", *update.GradeLevel); err != nil {
			return nil, err
		}
	}

	profile, err := g.profiles.UpdateProfile(ctx, s.UserID, update)
	if err != nil {
		return nil, remote("profile.update", err)
	}
	if profile == nil {
		return nil, ErrNotFound
	}
	return profile, nil
}

// LinkStudent lets a parent or teacher follow the student account registered under email
func (g *Gateway) LinkStudent(ctx context.Context, email string) (*models.UserProfile, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}

	me, err := g.FetchProfile(ctx)
	if err != nil {
		return nil, err
	}
	if me.UserType == models.UserTypeStudent {
		return nil, ErrForbidden
	}

	student, err := g.profiles.GetProfileByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, remote("links.create", err)
	}
	if student == nil {
		return nil, ErrNotFound
	}
	if student.UserType != models.UserTypeStudent {
		return nil, validation.ValidationError{Field: "email", Message: "account is not a student"}
	}

	if _, err := g.profiles.CreateLink(ctx, s.UserID, student.ID); err != nil {
		return nil, remote("links.create", err)
	}
	return student, nil
}

// LinkedStudents returns the students the caller follows
func (g *Gateway) LinkedStudents(ctx context.Context) ([]models.UserProfile, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	students, err := g.profiles.GetLinkedStudents(ctx, s.UserID)
	if err != nil {
		return nil, remote("links.fetch", err)
	}
	return students, nil
}

// canView reports an error unless the caller is the student or follows them.
func (g *Gateway) canView(ctx context.Context, s AuthSession, studentID int64) error {
	if s.UserID == studentID {
		return nil
	}
	linked, err := g.profiles.IsLinked(ctx, s.UserID, studentID)
	if err != nil {
		return remote("links.check", err)
	}
	if !linked {
		return ErrNotFound
	}
	return nil
}

// StudentProfile returns the profile of the caller or of a student the caller follows
func (g *Gateway) StudentProfile(ctx context.Context, studentID int64) (*models.UserProfile, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := g.canView(ctx, s, studentID); err != nil {
		return nil, err
	}
	profile, err := g.profiles.GetProfile(ctx, studentID)
	if err != nil {
		return nil, remote("profile.fetch", err)
	}
	if profile == nil || profile.UserType != models.UserTypeStudent {
		return nil, ErrNotFound
	}
	return profile, nil
}
