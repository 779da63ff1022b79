// Package gateway is the authenticated data access layer used by the reward
// ledger, the services and the HTTP handlers. Every call needs an
// AuthSession in its context and reports store failures as *RemoteError.
package gateway

import (
	"time"

	"learningfun/internal/database"
	"learningfun/internal/models"
	"learningfun/internal/repository"
)

// Gateway exposes per-entity operations over the repositories.
type Gateway struct {
	db         *database.DB
	profiles   *repository.ProfileRepository
	stats      *repository.StatsRepository
	exercises  *repository.ExerciseRepository
	schools    *repository.SchoolRepository
	progress   *repository.ProgressRepository
	challenges *repository.ChallengeRepository
	now        func() time.Time
}

// New creates a gateway over db
func New(db *database.DB) *Gateway {
	return &Gateway{
		db:         db,
		profiles:   repository.NewProfileRepository(db),
		stats:      repository.NewStatsRepository(db),
		exercises:  repository.NewExerciseRepository(db),
		schools:    repository.NewSchoolRepository(db),
		progress:   repository.NewProgressRepository(db),
		challenges: repository.NewChallengeRepository(db),
		now:        time.Now,
	}
}

// SetClock replaces the time source used for "today".
func (g *Gateway) SetClock(now func() time.Time) {
	g.now = now
}

func (g *Gateway) today() string {
	return g.now().UTC().Format(models.ChallengeDateLayout)
}
