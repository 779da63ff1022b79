package content

// Kind describes one exercise a student can start.
type Kind struct {
	Subject    string `json:"subject"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	MinGrade   int    `json:"min_grade,omitempty"`
	ComingSoon bool   `json:"coming_soon,omitempty"`
}

var catalog = []Kind{
	{Subject: "math", Type: "addition", Title: "Addition"},
	{Subject: "math", Type: "subtraction", Title: "Subtraction"},
	{Subject: "math", Type: "multiplication", Title: "Multiplication", MinGrade: 2},
	{Subject: "math", Type: "shapes", Title: "Shapes"},
	{Subject: "math", Type: "puzzle", Title: "Shape Puzzle"},
	{Subject: "math", Type: "quiz", Title: "Quick Quiz"},
	{Subject: "english", Type: "spelling", Title: "Spelling"},
	{Subject: "english", Type: "rhyming", Title: "Rhyming Words"},
	{Subject: "english", Type: "scramble", Title: "Word Scramble"},
	{Subject: "english", Type: "vocabulary", Title: "Vocabulary"},
	{Subject: "evs", Type: "animals", Title: "Animals"},
	{Subject: "evs", Type: "plants", Title: "Plants"},
	{Subject: "evs", Type: "seasons", Title: "Seasons"},
	{Subject: "evs", Type: "environment", Title: "Environment", ComingSoon: true},
	{Subject: "games", Type: "memory", Title: "Memory Match"},
	{Subject: "games", Type: "dragdrop", Title: "Sort It Out"},
}

// Catalog lists every exercise, optionally limited to one subject.
func Catalog(subject string) []Kind {
	out := make([]Kind, 0, len(catalog))
	for _, k := range catalog {
		if subject == "" || subject == "all" || k.Subject == subject {
			out = append(out, k)
		}
	}
	return out
}

// Lookup finds a catalog entry.
func Lookup(subject, exerciseType string) (Kind, bool) {
	for _, k := range catalog {
		if k.Subject == subject && k.Type == exerciseType {
			return k, true
		}
	}
	return Kind{}, false
}
