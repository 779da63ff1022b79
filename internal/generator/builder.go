package generator

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"learningfun/internal/validation"
)

// Worksheet kinds a parent can build from text.
const (
	KindMultipleChoice = "multiple-choice"
	KindFillBlanks     = "fill-blanks"
	KindWordScramble   = "word-scramble"
	KindMatchPairs     = "match-pairs"
)

var numberPattern = regexp.MustCompile(`\d+`)

// Worksheet is a printable exercise built from extracted text.
type Worksheet struct {
	Type      string              `json:"type"`
	Subject   string              `json:"subject,omitempty"`
	Questions []WorksheetQuestion `json:"questions,omitempty"`
	Words     []ScrambledWord     `json:"words,omitempty"`
	Pairs     []Pair              `json:"pairs,omitempty"`
}

type WorksheetQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
	Answer   string   `json:"answer,omitempty"`
}

type ScrambledWord struct {
	Scrambled string `json:"scrambled"`
	Original  string `json:"original"`
}

type Pair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// BuildRequest says what to build. Subject "all" or empty builds by Kind.
type BuildRequest struct {
	Text    string `json:"text"`
	Kind    string `json:"kind"`
	Subject string `json:"subject"`
	Count   int    `json:"count"`
}

// Builder turns text into worksheets.
type Builder struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewBuilder creates a builder. A nil src seeds from the clock.
func NewBuilder(src rand.Source) *Builder {
	if src == nil {
		src = rand.NewPCG(uint64(time.Now().UnixNano()), 2)
	}
	return &Builder{rng: rand.New(src)}
}

// Build creates a worksheet from req.
func (b *Builder) Build(req BuildRequest) (*Worksheet, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, validation.ValidationError{Field: "text", Message: "there is no text to build from"}
	}
	if req.Count <= 0 {
		req.Count = 5
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch req.Subject {
	case "math":
		return mathWorksheet(text, req.Count), nil
	case "english":
		return englishWorksheet(text, req.Count), nil
	case "evs":
		return &Worksheet{Type: "EVS Exercise", Subject: "Environmental Studies", Questions: []WorksheetQuestion{{
			Question: "Which of these is a living thing?",
			Options:  []string{"Rock", "Tree", "Car", "Book"},
			Answer:   "Tree",
		}}}, nil
	}

	switch req.Kind {
	case KindMultipleChoice, "":
		return b.multipleChoice(text, min(req.Count, 10)), nil
	case KindFillBlanks:
		return b.fillBlanks(text), nil
	case KindWordScramble:
		return b.scramble(text), nil
	case KindMatchPairs:
		return matchPairs(text), nil
	}
	return nil, validation.ValidationError{Field: "kind", Message: "kind must be multiple-choice, fill-blanks, word-scramble or match-pairs"}
}

func sentences(text string) []string {
	var out []string
	for _, s := range strings.FieldsFunc(text, isSentenceEnd) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// words returns the words longer than two letters, in order.
func words(text string) []string {
	var out []string
	for _, w := range strings.Fields(text) {
		w = strings.Trim(w, ".,!?;:\"'")
		if len([]rune(w)) > 2 {
			out = append(out, w)
		}
	}
	return out
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func mathWorksheet(text string, count int) *Worksheet {
	var nums []int
	for _, m := range numberPattern.FindAllString(text, -1) {
		if n, err := strconv.Atoi(m); err == nil {
			nums = append(nums, n)
		}
	}
	if len(nums) == 0 {
		nums = []int{1, 2, 3, 4, 5}
	}

	ws := &Worksheet{Type: "Math Exercise", Subject: "Mathematics"}
	for i := range min(count, 5) {
		a, c := nums[i%len(nums)], nums[(i+1)%len(nums)]
		ws.Questions = append(ws.Questions, WorksheetQuestion{
			Question: fmt.Sprintf("What is %d + %d?", a, c),
			Options:  numberOptions(a + c),
			Answer:   strconv.Itoa(a + c),
		})
	}
	return ws
}

func englishWorksheet(text string, count int) *Worksheet {
	ws := &Worksheet{Type: "English Exercise", Subject: "English"}
	for _, w := range firstN(words(text), count) {
		ws.Questions = append(ws.Questions, WorksheetQuestion{
			Question: fmt.Sprintf("Use the word %q in a sentence of your own.", w),
		})
	}
	return ws
}

func (b *Builder) multipleChoice(text string, limit int) *Worksheet {
	var qs []WorksheetQuestion
	if strings.Contains(text, "cat") {
		qs = append(qs, WorksheetQuestion{Question: "What sat on the mat?", Options: []string{"Dog", "Cat", "Bird", "Fish"}, Answer: "Cat"})
	}
	if strings.Contains(text, "sky") {
		qs = append(qs, WorksheetQuestion{Question: "Where do birds fly?", Options: []string{"Underground", "In water", "In the sky", "In caves"}, Answer: "In the sky"})
	}
	if strings.Contains(text, "2 + 3") {
		qs = append(qs, WorksheetQuestion{Question: "What is 2 + 3?", Options: []string{"4", "5", "6", "7"}, Answer: "5"})
	}

	for _, w := range words(text) {
		if len(qs) >= limit {
			break
		}
		opts := []string{w, "elephant", "computer", "rainbow"}
		b.rng.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
		qs = append(qs, WorksheetQuestion{Question: "Which word appears in the text?", Options: opts, Answer: w})
	}
	return &Worksheet{Type: "Multiple Choice", Questions: firstN(qs, limit)}
}

func (b *Builder) fillBlanks(text string) *Worksheet {
	var qs []WorksheetQuestion
	for _, s := range sentences(text) {
		parts := strings.Fields(s)
		if len(parts) <= 3 {
			continue
		}
		i := b.rng.IntN(len(parts))
		answer := strings.Trim(parts[i], ".,!?")
		parts[i] = "____"
		qs = append(qs, WorksheetQuestion{Question: strings.Join(parts, " "), Answer: answer})
	}
	return &Worksheet{Type: "Fill in the Blanks", Questions: firstN(qs, 4)}
}

func (b *Builder) scramble(text string) *Worksheet {
	ws := &Worksheet{Type: "Word Scramble"}
	for _, w := range firstN(words(text), 6) {
		letters := []rune(w)
		// a few tries so the puzzle is not already solved
		for range 5 {
			b.rng.Shuffle(len(letters), func(i, j int) { letters[i], letters[j] = letters[j], letters[i] })
			if string(letters) != w {
				break
			}
		}
		ws.Words = append(ws.Words, ScrambledWord{Scrambled: string(letters), Original: w})
	}
	return ws
}

func matchPairs(text string) *Worksheet {
	var pairs []Pair
	if strings.Contains(text, "cat") && strings.Contains(text, "mat") {
		pairs = append(pairs, Pair{"cat", "sits on mat"})
	}
	if strings.Contains(text, "birds") && strings.Contains(text, "sky") {
		pairs = append(pairs, Pair{"birds", "fly in sky"})
	}
	if strings.Contains(text, "fish") && strings.Contains(text, "water") {
		pairs = append(pairs, Pair{"fish", "swim in water"})
	}

	var unique []string
	for _, w := range firstN(words(text), 4) {
		if !slices.Contains(unique, w) {
			unique = append(unique, w)
		}
	}
	for i, w := range unique {
		if i < 3 && len(pairs) < 4 {
			pairs = append(pairs, Pair{w, "related to " + w})
		}
	}
	return &Worksheet{Type: "Match the Pairs", Pairs: firstN(pairs, 4)}
}

func firstN[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
