package gateway

import (
	"context"

	"learningfun/internal/database"
	"learningfun/internal/models"
	"learningfun/internal/repository"
	"learningfun/internal/validation"
)

// DefaultChallengePoints is paid for a challenge when no amount is given.
const DefaultChallengePoints = 10

// TodaysChallenges returns the caller's challenges dated today
func (g *Gateway) TodaysChallenges(ctx context.Context) ([]models.DailyChallenge, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	list, err := g.challenges.GetChallengesForDate(ctx, s.UserID, g.today())
	if err != nil {
		return nil, remote("challenges.fetch", err)
	}
	return list, nil
}

// CreateChallenge adds a challenge for the caller. An empty date means today.
func (g *Gateway) CreateChallenge(ctx context.Context, c models.DailyChallenge) (*models.DailyChallenge, error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateRequired("challenge_text", c.ChallengeText); err != nil {
		return nil, err
	}
	if c.ChallengeDate == "" {
		c.ChallengeDate = g.today()
	}
	if c.PointsAwarded <= 0 {
		c.PointsAwarded = DefaultChallengePoints
	}
	c.StudentID = s.UserID
	c.IsCompleted = false

	created, err := g.challenges.CreateChallenge(ctx, &c)
	if err != nil {
		return nil, remote("challenges.create", err)
	}
	return created, nil
}

// Payout turns a challenge's points into a stats update for the student.
type Payout func(current *models.StudentStats, points int) models.StatsUpdate

// CompleteChallenge marks one of the caller's challenges for today done and,
// with a non-nil pay, writes the payout in the same transaction. points <= 0
// pays the amount stored on the challenge. newly is false when the challenge
// had already been completed; nothing is paid then and stats is nil.
func (g *Gateway) CompleteChallenge(ctx context.Context, id int64, points int, pay Payout) (challenge *models.DailyChallenge, stats *models.StudentStats, newly bool, err error) {
	s, err := caller(ctx)
	if err != nil {
		return nil, nil, false, err
	}

	err = g.db.WithinTx(ctx, func(tx *database.Tx) error {
		challenges := repository.NewChallengeRepository(tx)

		current, err := challenges.GetChallenge(ctx, id)
		if err != nil {
			return remote("challenges.complete", err)
		}
		if current == nil || current.StudentID != s.UserID {
			return ErrNotFound
		}
		if current.ChallengeDate != g.today() {
			return validation.ValidationError{Field: "challenge_id", Message: "challenge is not for today"}
		}
		challenge = current
		if current.IsCompleted {
			return nil
		}

		if points <= 0 {
			points = current.PointsAwarded
		}
		if points <= 0 {
			points = DefaultChallengePoints
		}
		newly, err = challenges.CompleteChallenge(ctx, id, points)
		if err != nil {
			return remote("challenges.complete", err)
		}
		current.IsCompleted = true
		if !newly {
			return nil
		}
		current.PointsAwarded = points
		if pay == nil {
			return nil
		}

		statsRepo := repository.NewStatsRepository(tx)
		before, err := statsRepo.GetStats(ctx, s.UserID)
		if err != nil {
			return remote("stats.fetch", err)
		}
		if before == nil {
			return ErrNotFound
		}
		stats, err = statsRepo.UpdateStats(ctx, s.UserID, pay(before, points))
		if err != nil {
			return remote("stats.update", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, false, classified(err, "challenges.complete")
	}
	return challenge, stats, newly, nil
}
