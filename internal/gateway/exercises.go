package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"learningfun/internal/models"
	"learningfun/internal/repository"
	"learningfun/internal/validation"
)

// ExerciseFilter narrows ListExercises. Zero values match everything.
type ExerciseFilter = repository.ExerciseFilter

// ListExercises returns the caller's exercises and every public one, newest first
func (g *Gateway) ListExercises(ctx context.Context, filter ExerciseFilter) ([]models.Exercise, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	list, err := g.exercises.ListVisible(ctx, s.UserID, filter)
	if err != nil {
		return nil, remote("exercises.fetch", err)
	}
	return list, nil
}

// GetExercise returns one exercise visible to the caller
func (g *Gateway) GetExercise(ctx context.Context, id int64) (*models.Exercise, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	e, err := g.exercises.GetExercise(ctx, id)
	if err != nil {
		return nil, remote("exercises.get", err)
	}
	if e == nil || !e.VisibleTo(s.UserID) {
		return nil, ErrNotFound
	}
	return e, nil
}

// CreateExercise stores a new exercise owned by the caller
func (g *Gateway) CreateExercise(ctx context.Context, e models.Exercise) (*models.Exercise, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateExercise(&e); err != nil {
		return nil, err
	}
	if e.IsPublic {
		if err := g.screen(ctx, e.Title); err != nil {
			return nil, err
		}
	}

	e.CreatedBy = s.UserID
	created, err := g.exercises.CreateExercise(ctx, &e)
	if err != nil {
		return nil, remote("exercises.create", err)
	}
	return created, nil
}

// UpdateExercise applies a partial update. Only the owner may update.
func (g *Gateway) UpdateExercise(ctx context.Context, id int64, update models.ExerciseUpdate) (*models.Exercise, error) {
	current, err := g.owned(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *current
	if update.Title != nil {
		merged.Title = *update.Title
	}
	if update.Subject != nil {
		merged.Subject = *update.Subject
	}
	if update.GradeLevel != nil {
		merged.GradeLevel = *update.GradeLevel
	}
	if update.ExerciseType != nil {
		merged.ExerciseType = *update.ExerciseType
	}
	if len(update.Content) > 0 {
		merged.Content = update.Content
	}
	if update.IsPublic != nil {
		merged.IsPublic = *update.IsPublic
	}
	if err := validateExercise(&merged); err != nil {
		return nil, err
	}
	if merged.IsPublic {
		if err := g.screen(ctx, merged.Title); err != nil {
			return nil, err
		}
	}
	if update.Title != nil {
		update.Title = &merged.Title
	}

	updated, err := g.exercises.UpdateExercise(ctx, id, update)
	if err != nil {
		return nil, remote("exercises.update", err)
	}
	if updated == nil {
		return nil, ErrNotFound
	}
	return updated, nil
}

// DeleteExercise removes an exercise. Only the owner may delete.
func (g *Gateway) DeleteExercise(ctx context.Context, id int64) error {
	if _, err := g.owned(ctx, id); err != nil {
		return err
	}
	return remote("exercises.delete", g.exercises.DeleteExercise(ctx, id))
}

func (g *Gateway) owned(ctx context.Context, id int64) (*models.Exercise, error) {
	current, err := g.GetExercise(ctx, id)
	if err != nil {
		return nil, err
	}
	s, _ := caller(ctx)
	if current.CreatedBy != s.UserID {
		return nil, ErrForbidden
	}
	return current, nil
}

// screen rejects text containing filtered words.
func (g *Gateway) screen(ctx context.Context, text string) error {
	found, err := g.db.FindBadWords(ctx, text)
	if err != nil {
		return remote("words.check", err)
	}
	if len(found) > 0 {
		return validation.ValidationError{Field: "title", Message: "contains words that are not allowed in public exercises"}
	}
	return nil
}

func validateExercise(e *models.Exercise) error {
	e.Title = strings.TrimSpace(e.Title)
	if err := validation.ValidateRequired("title", e.Title); err != nil {
		return err
	}
	if !models.ValidSubject(e.Subject) {
		return validation.ValidationError{Field: "subject", Message: fmt.Sprintf("unknown subject %q", e.Subject)}
	}
	if err := validation.ValidateGrade("grade_level", e.GradeLevel); err != nil {
		return err
	}
	if err := validation.ValidateRequired("exercise_type", e.ExerciseType); err != nil {
		return err
	}
	if len(e.Content) > 0 && !json.Valid(e.Content) {
		return validation.ValidationError{Field: "content", Message: "must be valid JSON"}
	}
	return nil
}
