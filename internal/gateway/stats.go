package gateway

import (
	"context"

	"learningfun/internal/models"
)

// FetchStats returns the caller's reward stats
func (g *Gateway) FetchStats(ctx context.Context) (*models.StudentStats, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return g.statsFor(ctx, s.UserID)
}

// StudentStats returns the stats of a student the caller is or follows
func (g *Gateway) StudentStats(ctx context.Context, studentID int64) (*models.StudentStats, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := g.canView(ctx, s, studentID); err != nil {
		return nil, err
	}
	return g.statsFor(ctx, studentID)
}

func (g *Gateway) statsFor(ctx context.Context, studentID int64) (*models.StudentStats, error) {
	stats, err := g.stats.GetStats(ctx, studentID)
	if err != nil {
		return nil, remote("stats.fetch", err)
	}
	if stats == nil {
		return nil, ErrNotFound
	}
	return stats, nil
}

// CreateStats creates the caller's zeroed stats row
func (g *Gateway) CreateStats(ctx context.Context) (*models.StudentStats, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := g.stats.CreateStats(ctx, s.UserID)
	if err != nil {
		return nil, remote("stats.create", err)
	}
	return stats, nil
}

// UpdateStats writes a partial update and returns the stored row
func (g *Gateway) UpdateStats(ctx context.Context, update models.StatsUpdate) (*models.StudentStats, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := g.stats.UpdateStats(ctx, s.UserID, update)
	if err != nil {
		return nil, remote("stats.update", err)
	}
	if stats == nil {
		return nil, ErrNotFound
	}
	return stats, nil
}
