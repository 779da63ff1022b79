// Package generator turns a topic, grade and difficulty into practice
// questions, and builds printable exercises from extracted text.
package generator

import (
	"context"
	"strings"

	"learningfun/internal/validation"
)

// MaxQuestions bounds a single generation request.
const MaxQuestions = 20

// Complexity levels map to Bloom's taxonomy.
var bloomLevels = map[string]string{
	"beginner": "Remember",
	"easy":     "Understand",
	"medium":   "Apply",
	"hard":     "Analyze",
	"expert":   "Create",
}

var questionTypes = []string{"multiple-choice", "short-answer", "true-false", "fill-blank", "word-problem", "creative"}

// Request describes the questions wanted.
type Request struct {
	Subject      string `json:"subject"`
	Grade        int    `json:"grade"`
	Topic        string `json:"topic"`
	Complexity   string `json:"complexity"`
	QuestionType string `json:"question_type"`
	NumQuestions int    `json:"num_questions"`
}

// Question is one generated question.
type Question struct {
	Number                  int      `json:"number"`
	Question                string   `json:"question"`
	LearningObjective       string   `json:"learning_objective"`
	ExpectedResponseType    string   `json:"expected_response_type"`
	DifficultyJustification string   `json:"difficulty_justification"`
	Options                 []string `json:"options,omitempty"`
	CorrectAnswer           string   `json:"correct_answer,omitempty"`
}

// Generated is a finished set of questions and where it came from.
type Generated struct {
	Request   Request    `json:"request"`
	Bloom     string     `json:"bloom_level"`
	Source    string     `json:"source"`
	Questions []Question `json:"questions"`
}

// Generator is the single entry point for question generation.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Generated, error)
}

// Normalize fills defaults and validates the request.
func (r Request) Normalize() (Request, error) {
	r.Topic = strings.TrimSpace(r.Topic)
	r.Subject = strings.ToLower(strings.TrimSpace(r.Subject))
	if r.Subject == "" {
		r.Subject = "math"
	}
	if r.Complexity == "" {
		r.Complexity = "easy"
	}
	if r.QuestionType == "" {
		r.QuestionType = "multiple-choice"
	}
	if r.NumQuestions == 0 {
		r.NumQuestions = 5
	}

	if err := validation.ValidateRequired("topic", r.Topic); err != nil {
		return r, err
	}
	if err := validation.ValidateGrade("grade", r.Grade); err != nil {
		return r, err
	}
	if _, ok := bloomLevels[r.Complexity]; !ok {
		return r, validation.ValidationError{Field: "complexity", Message: "complexity must be beginner, easy, medium, hard or expert"}
	}
	if err := validation.ValidateOneOf("question_type", r.QuestionType, questionTypes...); err != nil {
		return r, err
	}
	if r.NumQuestions < 1 || r.NumQuestions > MaxQuestions {
		return r, validation.ValidationError{Field: "num_questions", Message: "ask for between 1 and 20 questions"}
	}
	return r, nil
}

// Bloom returns the taxonomy level for a complexity.
func Bloom(complexity string) string {
	return bloomLevels[complexity]
}
