// Package content holds the question tables and generators behind every
// practice exercise.
package content

import (
	"embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrUnknownExercise is returned for a subject/type pair the bank does not offer.
var ErrUnknownExercise = errors.New("unknown exercise")

// QuestionsPerSet is the length of every generated arithmetic or shape set.
const QuestionsPerSet = 5

//go:embed data/*.yaml
var dataFS embed.FS

type englishTables struct {
	Spelling   map[int][]Item `yaml:"spelling"`
	Rhyming    map[int][]Item `yaml:"rhyming"`
	Scramble   map[int][]Item `yaml:"scramble"`
	Vocabulary map[int][]Item `yaml:"vocabulary"`
}

type shape struct {
	Name        string `yaml:"name"`
	Sides       int    `yaml:"sides"`
	Description string `yaml:"description"`
}

type puzzle struct {
	Name   string `yaml:"name"`
	Pieces int    `yaml:"pieces"`
}

type mathTables struct {
	Shapes  []shape  `yaml:"shapes"`
	Quiz    []Item   `yaml:"quiz"`
	Puzzles []puzzle `yaml:"puzzles"`
}

// ChallengeTemplate is a daily challenge offered to every student.
type ChallengeTemplate struct {
	Subject string `yaml:"subject"`
	Text    string `yaml:"text"`
}

type gamesTables struct {
	Memory   []string `yaml:"memory"`
	DragDrop struct {
		Categories []string `yaml:"categories"`
		Items      []Item   `yaml:"items"`
	} `yaml:"dragdrop"`
	Challenges []ChallengeTemplate `yaml:"challenges"`
}

// Bank produces question items. It is safe for concurrent use.
type Bank struct {
	mu  sync.Mutex
	rng *rand.Rand

	english englishTables
	evs     map[string][]Item
	math    mathTables
	games   gamesTables
}

// NewBank loads the embedded tables. A nil src seeds from the clock.
func NewBank(src rand.Source) (*Bank, error) {
	if src == nil {
		src = rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)
	}
	b := &Bank{rng: rand.New(src)}

	files := []struct {
		name string
		into any
	}{
		{"data/english.yaml", &b.english},
		{"data/evs.yaml", &b.evs},
		{"data/math.yaml", &b.math},
		{"data/games.yaml", &b.games},
	}
	for _, f := range files {
		data, err := dataFS.ReadFile(f.name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.name, err)
		}
		if err := yaml.Unmarshal(data, f.into); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f.name, err)
		}
	}
	return b, nil
}

// Items returns the question sequence for one exercise. A grade without its
// own table uses the grade-1 table. A known exercise with no questions yet
// returns an empty slice.
func (b *Bank) Items(subject, exerciseType string, grade int) ([]Item, error) {
	if grade < 1 {
		grade = 1
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch subject + "/" + exerciseType {
	case "math/addition":
		return b.arithmetic(OpAdd, grade), nil
	case "math/subtraction":
		return b.arithmetic(OpSubtract, grade), nil
	case "math/multiplication":
		if grade < 2 {
			return b.arithmetic(OpAdd, grade), nil
		}
		return b.arithmetic(OpMultiply, grade), nil
	case "math/shapes":
		return b.shapes(), nil
	case "math/puzzle":
		return b.puzzle(), nil
	case "math/quiz":
		return b.quiz(), nil
	case "english/spelling":
		return spelling(byGrade(b.english.Spelling, grade)), nil
	case "english/rhyming":
		return byGrade(b.english.Rhyming, grade), nil
	case "english/scramble":
		return byGrade(b.english.Scramble, grade), nil
	case "english/vocabulary":
		return byGrade(b.english.Vocabulary, grade), nil
	case "evs/animals", "evs/plants", "evs/seasons", "evs/environment":
		return cloneItems(b.evs[exerciseType]), nil
	case "games/memory":
		return b.memory(grade), nil
	case "games/dragdrop":
		return b.dragDrop(), nil
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrUnknownExercise, subject, exerciseType)
}

// Challenges returns the daily challenge templates.
func (b *Bank) Challenges() []ChallengeTemplate {
	return append([]ChallengeTemplate(nil), b.games.Challenges...)
}

func (b *Bank) arithmetic(op Op, grade int) []Item {
	items := make([]Item, 0, QuestionsPerSet)
	for range QuestionsPerSet {
		var a, c int
		switch op {
		case OpAdd:
			a = b.rng.IntN(grade*10) + 1
			c = b.rng.IntN(grade*10) + 1
		case OpSubtract:
			a = b.rng.IntN(grade*10) + grade*5
			c = b.rng.IntN(a)
		case OpMultiply:
			a = b.rng.IntN(10) + 1
			c = b.rng.IntN(10) + 1
		}
		items = append(items, Item{
			Prompt:   fmt.Sprintf("%d %s %d", a, op, c),
			Operands: &Operands{A: a, B: c, Op: op},
		})
	}
	return items
}

func (b *Bank) shapes() []Item {
	all := b.math.Shapes
	items := make([]Item, 0, QuestionsPerSet)
	for range QuestionsPerSet {
		s := all[b.rng.IntN(len(all))]

		var others []string
		for _, o := range all {
			if o.Sides != s.Sides {
				others = append(others, o.Name)
			}
		}
		b.rng.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })
		if len(others) > 3 {
			others = others[:3]
		}
		options := append([]string{s.Name}, others...)
		b.rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

		prompt := fmt.Sprintf("Which shape has %d sides?", s.Sides)
		if s.Sides == 0 {
			prompt = "Which shape has no corners?"
		}
		items = append(items, Item{
			Prompt:      prompt,
			Options:     options,
			Answer:      s.Name,
			Explanation: s.Description,
		})
	}
	return items
}

func (b *Bank) puzzle() []Item {
	p := b.math.Puzzles[b.rng.IntN(len(b.math.Puzzles))]
	pieces := make([]Piece, p.Pieces)
	for i := range pieces {
		pieces[i] = Piece{
			ID:     i,
			X:      (i % 2) * 100,
			Y:      (i / 2) * 100,
			StartX: b.rng.IntN(200),
			StartY: b.rng.IntN(200),
		}
	}
	return []Item{{
		Prompt: fmt.Sprintf("Complete the %s puzzle!", p.Name),
		Answer: p.Name,
		Pieces: pieces,
	}}
}

func (b *Bank) quiz() []Item {
	items := cloneItems(b.math.Quiz)
	for i := range items {
		o := items[i].Operands
		items[i].Prompt = fmt.Sprintf("%d %s %d = ?", o.A, o.Op, o.B)
	}
	return items
}

// spelling turns word entries into prompts that show the meaning and a
// blanked example sentence.
func spelling(words []Item) []Item {
	for i := range words {
		w := &words[i]
		w.Prompt = w.Explanation
		w.Example = blankWord(w.Example, w.Answer)
	}
	return words
}

func blankWord(sentence, word string) string {
	lower := strings.ToLower(sentence)
	idx := strings.Index(lower, strings.ToLower(word))
	if idx < 0 {
		return sentence
	}
	return sentence[:idx] + strings.Repeat("_", len(word)) + sentence[idx+len(word):]
}

// memory lays out a shuffled deck and asks, pair by pair, where the twin of a
// revealed card sits. Positions are 1-based.
func (b *Bank) memory(grade int) []Item {
	pairs := 6
	if grade >= 3 {
		pairs = 8
	}
	if pairs > len(b.games.Memory) {
		pairs = len(b.games.Memory)
	}
	emojis := b.games.Memory[:pairs]

	deck := make([]string, 0, pairs*2)
	deck = append(deck, emojis...)
	deck = append(deck, emojis...)
	b.rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	first := make(map[string]int, pairs)
	items := make([]Item, 0, pairs)
	var order []string
	for pos, e := range deck {
		if _, seen := first[e]; !seen {
			first[e] = pos + 1
			order = append(order, e)
		}
	}
	for _, e := range order {
		twin := 0
		for pos, d := range deck {
			if d == e && pos+1 != first[e] {
				twin = pos + 1
			}
		}
		items = append(items, Item{
			Prompt: fmt.Sprintf("Card %d shows %s. Which card is its pair?", first[e], e),
			Answer: fmt.Sprintf("%d", twin),
			Hint:   e,
		})
	}
	return items
}

func (b *Bank) dragDrop() []Item {
	items := cloneItems(b.games.DragDrop.Items)
	for i := range items {
		items[i].Options = append([]string(nil), b.games.DragDrop.Categories...)
	}
	b.rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	return items
}

func byGrade(table map[int][]Item, grade int) []Item {
	if items, ok := table[grade]; ok {
		return cloneItems(items)
	}
	return cloneItems(table[1])
}

func cloneItems(src []Item) []Item {
	out := make([]Item, len(src))
	for i, it := range src {
		it.Options = append([]string(nil), it.Options...)
		it.Accepted = append([]string(nil), it.Accepted...)
		if it.Operands != nil {
			ops := *it.Operands
			it.Operands = &ops
		}
		out[i] = it
	}
	return out
}
