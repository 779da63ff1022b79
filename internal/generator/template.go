package generator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TemplateGenerator builds questions from fixed patterns keyed on words in
// the topic. It makes no network calls and is the fallback when no model
// is configured.
type TemplateGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewTemplateGenerator creates a generator. A nil src seeds from the clock.
func NewTemplateGenerator(src rand.Source) *TemplateGenerator {
	if src == nil {
		src = rand.NewPCG(uint64(time.Now().UnixNano()), 1)
	}
	return &TemplateGenerator{rng: rand.New(src)}
}

func (g *TemplateGenerator) Generate(_ context.Context, req Request) (*Generated, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	out := &Generated{Request: req, Bloom: Bloom(req.Complexity), Source: "template"}
	for i := 1; i <= req.NumQuestions; i++ {
		var q Question
		switch req.Subject {
		case "math":
			q = g.math(req)
		case "english":
			q = g.english(req)
		case "science", "evs":
			q = science(req)
		default:
			q = general(req)
		}
		q.Number = i
		out.Questions = append(out.Questions, q)
	}
	return out, nil
}

func (g *TemplateGenerator) math(req Request) Question {
	topic := strings.ToLower(req.Topic)
	choice := req.QuestionType == "multiple-choice"

	switch {
	case strings.Contains(topic, "add") && req.Complexity == "beginner":
		a, b := g.rng.IntN(5)+1, g.rng.IntN(5)+1
		q := Question{
			Question:                fmt.Sprintf("Solve: %d + %d = ___", a, b),
			LearningObjective:       "Students will recall basic addition facts within 10",
			ExpectedResponseType:    fmt.Sprintf("The correct answer is %d", a+b),
			DifficultyJustification: "This question requires simple recall of basic addition facts, aligning with the Remember level of Bloom's taxonomy.",
			CorrectAnswer:           strconv.Itoa(a + b),
		}
		if choice {
			q.Question = fmt.Sprintf("What is %d + %d?", a, b)
			q.Options = numberOptions(a + b)
		}
		return q
	case strings.Contains(topic, "add") && req.Complexity == "medium":
		things := []string{"apples", "stickers", "toys", "books"}[g.rng.IntN(4)]
		a, b := g.rng.IntN(10)+5, g.rng.IntN(10)+5
		return Question{
			Question:                fmt.Sprintf("Sarah has %d %s. Her friend gives her %d more %s. How many %s does Sarah have now?", a, things, b, things, things),
			LearningObjective:       "Students will apply addition skills to solve real-world word problems",
			ExpectedResponseType:    fmt.Sprintf("Students should show their work: %d + %d = %d %s", a, b, a+b, things),
			DifficultyJustification: "This question requires students to apply addition knowledge to a new situation (word problem), matching the Apply level.",
			CorrectAnswer:           strconv.Itoa(a + b),
		}
	case strings.Contains(topic, "subtract"):
		a := g.rng.IntN(20) + 10
		b := g.rng.IntN(a)
		return Question{
			Question:                fmt.Sprintf("If you have %d marbles and give away %d marbles, how many marbles do you have left?", a, b),
			LearningObjective:       "Students will solve subtraction problems in context",
			ExpectedResponseType:    fmt.Sprintf("%d marbles", a-b),
			DifficultyJustification: "Students must understand subtraction concept and apply it to a practical scenario.",
			CorrectAnswer:           strconv.Itoa(a - b),
		}
	}

	a, b := g.rng.IntN(10)+1, g.rng.IntN(10)+1
	q := Question{
		Question:                fmt.Sprintf("What is %d + %d?", a, b),
		LearningObjective:       "Students will demonstrate basic arithmetic skills",
		ExpectedResponseType:    fmt.Sprintf("The sum %d", a+b),
		DifficultyJustification: "Basic arithmetic recall appropriate for the specified grade level.",
		CorrectAnswer:           strconv.Itoa(a + b),
	}
	if choice {
		q.Options = numberOptions(a + b)
	}
	return q
}

var rhymeSets = []struct {
	word   string
	rhymes []string
}{
	{"cat", []string{"bat", "hat", "mat", "rat"}},
	{"sun", []string{"fun", "run", "bun", "gun"}},
	{"tree", []string{"bee", "see", "free", "key"}},
}

var gradeWords = map[int][]string{
	1: {"cat", "dog", "sun", "run", "big"},
	2: {"happy", "friend", "school", "water", "house"},
	3: {"beautiful", "elephant", "rainbow", "birthday", "butterfly"},
	4: {"adventure", "important", "different", "favorite", "together"},
	5: {"magnificent", "mysterious", "celebration", "imagination", "responsibility"},
}

func (g *TemplateGenerator) english(req Request) Question {
	topic := strings.ToLower(req.Topic)

	switch {
	case strings.Contains(topic, "rhym") && req.Complexity == "medium":
		return Question{
			Question:                "Create a short poem (2-4 lines) about your favorite animal using at least one pair of rhyming words.",
			LearningObjective:       "Students will apply rhyming knowledge to create original poetry",
			ExpectedResponseType:    "A short poem with clear rhyming pattern and animal theme",
			DifficultyJustification: "Students must apply their understanding of rhyming to create something new, matching the Apply level.",
		}
	case strings.Contains(topic, "rhym"):
		set := rhymeSets[g.rng.IntN(len(rhymeSets))]
		q := Question{
			Question:                fmt.Sprintf("Write a word that rhymes with %q.", set.word),
			LearningObjective:       "Students will identify words that rhyme",
			ExpectedResponseType:    fmt.Sprintf("Any word that rhymes with %s (e.g., %s)", set.word, set.rhymes[0]),
			DifficultyJustification: "This requires basic recall of rhyming patterns, fitting the Remember level.",
			CorrectAnswer:           set.rhymes[0],
		}
		if req.QuestionType == "multiple-choice" {
			q.Question = fmt.Sprintf("Which word rhymes with %q?", set.word)
			q.Options = g.shuffled([]string{set.rhymes[0], "elephant", "computer", "rainbow"})
		}
		return q
	case strings.Contains(topic, "spell") || strings.Contains(topic, "vocab"):
		words, ok := gradeWords[req.Grade]
		if !ok {
			words = gradeWords[1]
		}
		word := words[g.rng.IntN(len(words))]
		return Question{
			Question:                fmt.Sprintf("Use the word %q in a sentence that shows you understand its meaning.", word),
			LearningObjective:       "Students will demonstrate vocabulary comprehension through context",
			ExpectedResponseType:    fmt.Sprintf("A complete sentence using %q correctly", word),
			DifficultyJustification: "Students must understand the word meaning and apply it in context.",
			CorrectAnswer:           fmt.Sprintf("Example: The %s was very special to me.", word),
		}
	}
	return Question{
		Question:                "What is your favorite book and why do you like it?",
		LearningObjective:       "Students will express personal opinions about literature",
		ExpectedResponseType:    "A response naming a book and giving reasons for preference",
		DifficultyJustification: "Students recall information and express understanding of their reading preferences.",
	}
}

func science(req Request) Question {
	topic := strings.ToLower(req.Topic)

	switch {
	case (strings.Contains(topic, "animal") || strings.Contains(topic, "living")) && req.Complexity == "hard":
		return Question{
			Question:                "Compare how a fish and a bird are similar and different. Give at least 2 similarities and 2 differences.",
			LearningObjective:       "Students will analyze and compare characteristics of different animal groups",
			ExpectedResponseType:    "Comparison showing understanding of animal classification",
			DifficultyJustification: "Students must analyze characteristics and identify patterns, fitting the Analyze level.",
		}
	case strings.Contains(topic, "animal") || strings.Contains(topic, "living"):
		if req.QuestionType == "multiple-choice" {
			return Question{
				Question:                "Which of these is a living thing?",
				LearningObjective:       "Students will identify characteristics of living things",
				ExpectedResponseType:    "Tree (or other living thing)",
				DifficultyJustification: "Basic recall of living vs. non-living classification.",
				Options:                 []string{"Rock", "Tree", "Car", "Book"},
				CorrectAnswer:           "Tree",
			}
		}
		return Question{
			Question:                "Name three living things you can find in your backyard.",
			LearningObjective:       "Students will identify characteristics of living things",
			ExpectedResponseType:    "Three examples of living organisms",
			DifficultyJustification: "Basic recall of living vs. non-living classification.",
			CorrectAnswer:           "Examples: tree, bird, flower",
		}
	case strings.Contains(topic, "plant") || strings.Contains(topic, "growth"):
		return Question{
			Question:                "What do plants need to grow? List at least 3 things.",
			LearningObjective:       "Students will identify basic needs of plants",
			ExpectedResponseType:    "List including water, sunlight, air, soil/nutrients",
			DifficultyJustification: "Recall of basic plant biology concepts appropriate for elementary level.",
		}
	}
	return Question{
		Question:                "Why is it important to recycle?",
		LearningObjective:       "Students will understand environmental responsibility",
		ExpectedResponseType:    "Explanation of recycling benefits for the environment",
		DifficultyJustification: "Students demonstrate understanding of environmental concepts.",
	}
}

func general(req Request) Question {
	return Question{
		Question:                fmt.Sprintf("Tell me something interesting about %s.", req.Topic),
		LearningObjective:       fmt.Sprintf("Students will demonstrate knowledge about %s", req.Topic),
		ExpectedResponseType:    fmt.Sprintf("Factual information or personal connection to %s", req.Topic),
		DifficultyJustification: "Students recall and share knowledge about the specified topic.",
	}
}

func numberOptions(answer int) []string {
	return []string{
		strconv.Itoa(answer - 1),
		strconv.Itoa(answer),
		strconv.Itoa(answer + 1),
		strconv.Itoa(answer + 2),
	}
}

func (g *TemplateGenerator) shuffled(s []string) []string {
	g.rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
	return s
}
