package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"learningfun/internal/llm"
)

var questionSetSchema = &llm.Schema{
	Name:        "question-set",
	Description: "Practice questions for a primary school student",
	Definition: map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"questions"},
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required": []string{
						"question", "learning_objective", "expected_response_type",
						"difficulty_justification", "options", "correct_answer",
					},
					"properties": map[string]any{
						"question":                 map[string]any{"type": "string", "minLength": 1},
						"learning_objective":       map[string]any{"type": "string"},
						"expected_response_type":   map[string]any{"type": "string"},
						"difficulty_justification": map[string]any{"type": "string"},
						"options": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
						"correct_answer": map[string]any{"type": "string"},
					},
				},
			},
		},
	},
}

const systemPrompt = `You write practice questions for children in grades 1 to 5.
Questions must be age appropriate, kind, and factually correct.
Multiple-choice and true-false questions list their options and the correct
answer must be one of them. Open questions leave options empty.`

// LLMGenerator asks a language model for questions and validates the reply.
type LLMGenerator struct {
	provider llm.Provider
}

// NewLLMGenerator wraps a provider.
func NewLLMGenerator(p llm.Provider) *LLMGenerator {
	return &LLMGenerator{provider: p}
}

func (g *LLMGenerator) Generate(ctx context.Context, req Request) (*Generated, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      prompt(req),
		Schema:      questionSetSchema,
		MaxTokens:   400 * req.NumQuestions,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("generating questions: %w", err)
	}

	var body struct {
		Questions []Question `json:"questions"`
	}
	if err := json.Unmarshal(resp.Content, &body); err != nil {
		return nil, &llm.InvalidResponseError{Content: resp.Content, Err: err}
	}

	out := &Generated{Request: req, Bloom: Bloom(req.Complexity), Source: g.provider.ModelID()}
	for _, q := range body.Questions {
		if len(out.Questions) == req.NumQuestions {
			break
		}
		if len(q.Options) > 0 && !contains(q.Options, q.CorrectAnswer) {
			continue
		}
		q.Number = len(out.Questions) + 1
		out.Questions = append(out.Questions, q)
	}
	if len(out.Questions) == 0 {
		return nil, &llm.InvalidResponseError{Content: resp.Content, Err: fmt.Errorf("no usable questions")}
	}
	return out, nil
}

func prompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d %s questions about %q for a grade %d %s student.\n",
		req.NumQuestions, req.QuestionType, req.Topic, req.Grade, req.Subject)
	fmt.Fprintf(&b, "Target the %s level of Bloom's taxonomy (%s difficulty).\n", Bloom(req.Complexity), req.Complexity)
	b.WriteString("For each question give the learning objective, the expected response, and why the difficulty fits.")
	return b.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
