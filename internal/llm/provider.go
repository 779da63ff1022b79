// Package llm talks to hosted language models for exercise generation and
// image text extraction.
package llm

import (
	"context"
	"encoding/json"
)

// Provider sends one prompt and returns the model's answer.
type Provider interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelID() string
}

// Request is a single-turn prompt. When Schema is set the provider asks for
// structured output and the reply is validated before it is returned.
type Request struct {
	System      string
	Prompt      string
	Schema      *Schema
	MaxTokens   int
	Temperature float64
}

// Schema names a JSON Schema the reply must satisfy.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response carries the model output.
type Response struct {
	Content   json.RawMessage
	Model     string
	Usage     Usage
	Truncated bool
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total is input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// ImageReader is implemented by providers that can read text from images.
type ImageReader interface {
	ReadImage(ctx context.Context, image []byte, mimeType string) (string, error)
}

func maxTokens(n int) int {
	if n <= 0 {
		return 2048
	}
	return n
}
