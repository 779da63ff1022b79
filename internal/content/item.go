package content

import (
	"fmt"
	"strconv"
)

// Op is an arithmetic operator as shown to the learner.
type Op string

const (
	OpAdd      Op = "+"
	OpSubtract Op = "-"
	OpMultiply Op = "×"
	OpDivide   Op = "÷"
)

// Operands holds the two sides of an arithmetic question.
type Operands struct {
	A  int `yaml:"a" json:"a"`
	B  int `yaml:"b" json:"b"`
	Op Op  `yaml:"op" json:"op"`
}

// Result computes the exact answer. Division must not leave a remainder.
func (o Operands) Result() (int, error) {
	switch o.Op {
	case OpAdd:
		return o.A + o.B, nil
	case OpSubtract:
		return o.A - o.B, nil
	case OpMultiply:
		return o.A * o.B, nil
	case OpDivide:
		if o.B == 0 || o.A%o.B != 0 {
			return 0, fmt.Errorf("%d %s %d has no whole answer", o.A, o.Op, o.B)
		}
		return o.A / o.B, nil
	}
	return 0, fmt.Errorf("unknown operator %q", o.Op)
}

// Piece is one tile of a picture puzzle. X and Y are where it belongs.
type Piece struct {
	ID     int `json:"id"`
	X      int `json:"x"`
	Y      int `json:"y"`
	StartX int `json:"start_x"`
	StartY int `json:"start_y"`
}

// Item is one question. Arithmetic items keep only their operands; the
// answer is always derived from them.
type Item struct {
	Prompt      string    `yaml:"prompt" json:"prompt"`
	Options     []string  `yaml:"options,omitempty" json:"options,omitempty"`
	Answer      string    `yaml:"answer,omitempty" json:"answer,omitempty"`
	Accepted    []string  `yaml:"accepted,omitempty" json:"accepted,omitempty"`
	Hint        string    `yaml:"hint,omitempty" json:"hint,omitempty"`
	Difficulty  string    `yaml:"difficulty,omitempty" json:"difficulty,omitempty"`
	Explanation string    `yaml:"explanation,omitempty" json:"explanation,omitempty"`
	Example     string    `yaml:"example,omitempty" json:"example,omitempty"`
	Operands    *Operands `yaml:"operands,omitempty" json:"operands,omitempty"`
	Pieces      []Piece   `yaml:"-" json:"pieces,omitempty"`
}

// CorrectAnswer returns the canonical answer for display and comparison.
func (it Item) CorrectAnswer() string {
	if it.Operands != nil {
		n, err := it.Operands.Result()
		if err != nil {
			return ""
		}
		return strconv.Itoa(n)
	}
	return it.Answer
}

// AcceptedAnswers returns every answer that counts as correct.
func (it Item) AcceptedAnswers() []string {
	if len(it.Accepted) > 0 {
		return it.Accepted
	}
	return []string{it.CorrectAnswer()}
}

// Verify checks that the item is internally consistent: an arithmetic answer
// can be derived, and any option list contains the correct answer.
func (it Item) Verify() error {
	if it.Operands != nil {
		if it.Answer != "" {
			return fmt.Errorf("arithmetic item %q stores an answer", it.Prompt)
		}
		if _, err := it.Operands.Result(); err != nil {
			return err
		}
	}
	if it.CorrectAnswer() == "" && len(it.Accepted) == 0 {
		return fmt.Errorf("item %q has no answer", it.Prompt)
	}
	if len(it.Options) > 0 {
		want := it.CorrectAnswer()
		for _, o := range it.Options {
			if o == want {
				return nil
			}
		}
		return fmt.Errorf("item %q: options %v do not include %q", it.Prompt, it.Options, want)
	}
	return nil
}

// Public returns a copy safe to show before the learner answers.
func (it Item) Public() Item {
	it.Answer = ""
	it.Accepted = nil
	it.Explanation = ""
	if it.Operands != nil {
		ops := *it.Operands
		it.Operands = &ops
	}
	if len(it.Pieces) > 0 {
		pieces := make([]Piece, len(it.Pieces))
		for i, p := range it.Pieces {
			pieces[i] = Piece{ID: p.ID, X: p.StartX, Y: p.StartY, StartX: p.StartX, StartY: p.StartY}
		}
		it.Pieces = pieces
	}
	return it
}
