package gateway

import (
	"context"

	"learningfun/internal/models"
	"learningfun/internal/validation"
)

// FetchSchoolDetails returns the caller's school details
func (g *Gateway) FetchSchoolDetails(ctx context.Context) (*models.SchoolDetails, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	d, err := g.schools.GetSchoolDetails(ctx, s.UserID)
	if err != nil {
		return nil, remote("school.fetch", err)
	}
	if d == nil {
		return nil, ErrNotFound
	}
	return d, nil
}

// SaveSchoolDetails creates or replaces the caller's school details
func (g *Gateway) SaveSchoolDetails(ctx context.Context, d models.SchoolDetails) (*models.SchoolDetails, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateRequired("school_name", d.SchoolName); err != nil {
		return nil, err
	}
	d.UserID = s.UserID

	saved, err := g.schools.SaveSchoolDetails(ctx, &d)
	if err != nil {
		return nil, remote("school.save", err)
	}
	return saved, nil
}

// DeleteSchoolDetails removes the caller's school details
func (g *Gateway) DeleteSchoolDetails(ctx context.Context) error {
	s, err := caller(ctx)
	if err != nil {
		return err
	}
	return remote("school.delete", g.schools.DeleteSchoolDetails(ctx, s.UserID))
}
