package session

import "time"

// PuzzleTolerance is how close, in board units, a piece must land.
const PuzzleTolerance = 20

// Pacing holds the configurable delays.
type Pacing struct {
	MathFeedbackDelay    time.Duration
	EnglishFeedbackDelay time.Duration
	QuizCountdown        time.Duration
}

// DefaultPacing matches the shipped configuration.
var DefaultPacing = Pacing{
	MathFeedbackDelay:    1500 * time.Millisecond,
	EnglishFeedbackDelay: 2 * time.Second,
	QuizCountdown:        30 * time.Second,
}

// Rules returns the session options for an exercise: points per correct
// answer, badge, answer rule and pacing.
func Rules(subject, exerciseType string, p Pacing) Options {
	opts := Options{
		Kind:          exerciseType,
		Equivalence:   Exact,
		FeedbackDelay: p.MathFeedbackDelay,
	}

	switch subject {
	case "math":
		opts.Points = 10
		opts.BadgeName = "math-star"
		switch exerciseType {
		case "addition", "subtraction", "multiplication", "quiz":
			opts.Equivalence = Numeric
		case "puzzle":
			opts.Points = 25
			opts.BadgeName = "puzzle-master"
			opts.Equivalence = Placement(PuzzleTolerance)
		}
		if exerciseType == "quiz" {
			opts.Countdown = p.QuizCountdown
		}
	case "english":
		opts.BadgeName = "english-star"
		opts.FeedbackDelay = p.EnglishFeedbackDelay
		switch exerciseType {
		case "spelling":
			opts.Points = 25
		case "rhyming":
			opts.Points = 20
			opts.Equivalence = OneOf
		default:
			opts.Points = 15
		}
	case "evs":
		opts.Points = 20
		opts.BadgeName = "evs-explorer"
		opts.BadgeThreshold = 2
	case "games":
		switch exerciseType {
		case "memory":
			opts.Points = 25
			opts.BadgeName = "memory-master"
			opts.Equivalence = Numeric
			opts.BadgeThreshold = ThresholdAll
		case "dragdrop":
			opts.Points = 15
		}
	}
	return opts
}
