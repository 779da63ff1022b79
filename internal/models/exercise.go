package models

import (
	"encoding/json"
	"time"
)

// Subject areas. SubjectAll marks an exercise that belongs to every subject.
const (
	SubjectMath    = "math"
	SubjectEnglish = "english"
	SubjectEVS     = "evs"
	SubjectGames   = "games"
	SubjectAll     = "all"
)

// ValidSubject reports whether s is a known subject.
func ValidSubject(s string) bool {
	switch s {
	case SubjectMath, SubjectEnglish, SubjectEVS, SubjectGames, SubjectAll:
		return true
	}
	return false
}

// Exercise is a parent-authored bundle of questions.
type Exercise struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Subject      string          `json:"subject"`
	GradeLevel   int             `json:"grade_level"`
	ExerciseType string          `json:"exercise_type"`
	Content      json.RawMessage `json:"content"`
	IsPublic     bool            `json:"is_public"`
	CreatedBy    int64           `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// MatchesSubject reports whether the exercise should be listed under subject.
func (e *Exercise) MatchesSubject(subject string) bool {
	return e.Subject == subject || e.Subject == SubjectAll
}

// VisibleTo reports whether userID may read the exercise.
func (e *Exercise) VisibleTo(userID int64) bool {
	return e.IsPublic || e.CreatedBy == userID
}

// ExerciseUpdate is a partial update; nil fields are left unchanged.
type ExerciseUpdate struct {
	Title        *string         `json:"title,omitempty"`
	Subject      *string         `json:"subject,omitempty"`
	GradeLevel   *int            `json:"grade_level,omitempty"`
	ExerciseType *string         `json:"exercise_type,omitempty"`
	Content      json.RawMessage `json:"content,omitempty"`
	IsPublic     *bool           `json:"is_public,omitempty"`
}
