package gateway

import (
	"context"

	"learningfun/internal/models"
	"learningfun/internal/repository"
	"learningfun/internal/validation"
)

// FetchProgress returns the caller's latest progress rows, newest first
func (g *Gateway) FetchProgress(ctx context.Context) ([]models.StudentProgress, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := g.progress.GetRecentProgress(ctx, s.UserID, repository.RecentProgressLimit)
	if err != nil {
		return nil, remote("progress.fetch", err)
	}
	return rows, nil
}

// ProgressHistory returns every progress row of a student the caller is or follows
func (g *Gateway) ProgressHistory(ctx context.Context, studentID int64) ([]models.StudentProgress, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := g.canView(ctx, s, studentID); err != nil {
		return nil, err
	}
	rows, err := g.progress.GetRecentProgress(ctx, studentID, 0)
	if err != nil {
		return nil, remote("progress.history", err)
	}
	return rows, nil
}

// RecordProgress stores a finished run for the caller
func (g *Gateway) RecordProgress(ctx context.Context, p models.StudentProgress) (*models.StudentProgress, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if p.TotalQuestions < 0 || p.Score < 0 || p.Score > p.TotalQuestions {
		return nil, validation.ValidationError{Field: "score", Message: "score must be between 0 and the number of questions"}
	}
	if p.TimeSpent < 0 {
		return nil, validation.ValidationError{Field: "time_spent", Message: "time spent cannot be negative"}
	}

	p.StudentID = s.UserID
	recorded, err := g.progress.RecordProgress(ctx, &p)
	if err != nil {
		return nil, remote("progress.record", err)
	}
	return recorded, nil
}
