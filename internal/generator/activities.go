package generator

import (
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownActivity is returned by RenderActivity for an unknown id.
var ErrUnknownActivity = errors.New("unknown activity")

//go:embed data/activities.yaml
var activitiesYAML []byte

// Activity is a ready-made lesson a parent can print or adapt.
type Activity struct {
	ID            string          `yaml:"id" json:"id"`
	Type          string          `yaml:"type" json:"type"`
	Title         string          `yaml:"title" json:"title"`
	Description   string          `yaml:"description" json:"description"`
	Instructions  string          `yaml:"instructions,omitempty" json:"instructions,omitempty"`
	Difficulty    string          `yaml:"-" json:"difficulty,omitempty"`
	Problems      []Problem       `yaml:"problems,omitempty" json:"problems,omitempty"`
	Story         string          `yaml:"story,omitempty" json:"story,omitempty"`
	Questions     []ActivityQA    `yaml:"questions,omitempty" json:"questions,omitempty"`
	Vocabulary    []Vocabulary    `yaml:"vocabulary,omitempty" json:"vocabulary,omitempty"`
	Objective     string          `yaml:"objective,omitempty" json:"objective,omitempty"`
	Materials     []string        `yaml:"materials,omitempty" json:"materials,omitempty"`
	Steps         []string        `yaml:"steps,omitempty" json:"steps,omitempty"`
	Explanation   string          `yaml:"explanation,omitempty" json:"explanation,omitempty"`
	SafetyNotes   string          `yaml:"safety_notes,omitempty" json:"safety_notes,omitempty"`
	GameType      string          `yaml:"game_type,omitempty" json:"game_type,omitempty"`
	Pairs         []ActivityMatch `yaml:"pairs,omitempty" json:"pairs,omitempty"`
	Scoring       string          `yaml:"scoring,omitempty" json:"scoring,omitempty"`
	Extension     string          `yaml:"extension,omitempty" json:"extension,omitempty"`
	Customization string          `yaml:"-" json:"customization,omitempty"`
}

type Problem struct {
	Question string `yaml:"question" json:"question"`
	Solution string `yaml:"solution" json:"solution"`
	Hint     string `yaml:"hint" json:"hint"`
}

type ActivityQA struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer,omitempty" json:"answer,omitempty"`
	Type     string `yaml:"type,omitempty" json:"type,omitempty"`
}

type Vocabulary struct {
	Word    string `yaml:"word" json:"word"`
	Meaning string `yaml:"meaning" json:"meaning"`
}

type ActivityMatch struct {
	Left  string `yaml:"left" json:"left"`
	Right string `yaml:"right" json:"right"`
	Fact  string `yaml:"fact,omitempty" json:"fact,omitempty"`
}

var activities []Activity

func init() {
	if err := yaml.Unmarshal(activitiesYAML, &activities); err != nil {
		panic(fmt.Sprintf("generator: bad activities.yaml: %v", err))
	}
}

// Activities lists the catalog without rendering grade-specific fields.
func Activities() []Activity {
	return append([]Activity(nil), activities...)
}

// RenderActivity fills an activity for a grade. A non-empty customization
// is attached and marks the title.
func RenderActivity(id string, grade int, customization string) (*Activity, error) {
	for _, a := range activities {
		if a.ID != id {
			continue
		}
		a.Title = strings.ReplaceAll(a.Title, "{grade}", strconv.Itoa(grade))
		if a.ID == "math-worksheet" {
			switch {
			case grade <= 2:
				a.Difficulty = "Easy"
			case grade <= 4:
				a.Difficulty = "Medium"
			default:
				a.Difficulty = "Hard"
			}
		}
		if c := strings.TrimSpace(customization); c != "" {
			a.Customization = c
			a.Title += " (Customized)"
		}
		return &a, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownActivity, id)
}
