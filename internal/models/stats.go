package models

import "time"

// StudentStats is the reward state owned by the store.
type StudentStats struct {
	ID           int64      `json:"id"`
	StudentID    int64      `json:"student_id"`
	TotalPoints  int        `json:"total_points"`
	Badges       []string   `json:"badges"`
	StreakDays   int        `json:"streak_days"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

// HasBadge reports whether the badge is already held.
func (s *StudentStats) HasBadge(name string) bool {
	for _, b := range s.Badges {
		if b == name {
			return true
		}
	}
	return false
}

// StatsUpdate is a partial update of a stats row.
type StatsUpdate struct {
	TotalPoints  *int       `json:"total_points,omitempty"`
	Badges       []string   `json:"badges,omitempty"`
	StreakDays   *int       `json:"streak_days,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

// StudentProgress records one finished exercise run.
type StudentProgress struct {
	ID             int64     `json:"id"`
	StudentID      int64     `json:"student_id"`
	ExerciseID     *int64    `json:"exercise_id,omitempty"`
	Subject        string    `json:"subject"`
	ExerciseType   string    `json:"exercise_type"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	TimeSpent      int       `json:"time_spent"` // seconds
	CompletedAt    time.Time `json:"completed_at"`
}

// Accuracy returns the percentage of correct answers.
func (p *StudentProgress) Accuracy() float64 {
	if p.TotalQuestions == 0 {
		return 0
	}
	return float64(p.Score) / float64(p.TotalQuestions) * 100
}

// DailyChallenge is a per-student task for one calendar day.
type DailyChallenge struct {
	ID            int64     `json:"id"`
	StudentID     int64     `json:"student_id"`
	Subject       string    `json:"subject"`
	ChallengeText string    `json:"challenge_text"`
	IsCompleted   bool      `json:"is_completed"`
	ChallengeDate string    `json:"challenge_date"` // YYYY-MM-DD
	PointsAwarded int       `json:"points_awarded"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChallengeDateLayout is the storage format of DailyChallenge.ChallengeDate.
const ChallengeDateLayout = "2006-01-02"
