package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"learningfun/internal/config"
	"learningfun/internal/content"
	"learningfun/internal/generator"
	"learningfun/internal/llm"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print the questions a session would draw (no database)",
	Long: `Print one set of items from the built-in content bank.

This is a stateless developer tool for checking bank content by subject,
exercise type and grade.`,
	RunE: runPreview,
}

var previewGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the configured question generator",
	Long: `Generate questions with the configured LLM provider, or with the offline
templates when none is configured.`,
	RunE: runPreviewGenerate,
}

func init() {
	previewCmd.Flags().String("subject", "math", "Subject: math, english or evs")
	previewCmd.Flags().String("type", "", "Exercise type (required)")
	previewCmd.Flags().Int("grade", 1, "Grade level 1-5")
	previewCmd.Flags().Bool("answers", false, "Show the correct answer under each item")
	_ = previewCmd.MarkFlagRequired("type")

	previewGenerateCmd.Flags().String("subject", "math", "Subject")
	previewGenerateCmd.Flags().Int("grade", 3, "Grade level 1-5")
	previewGenerateCmd.Flags().String("topic", "", "Topic (required)")
	previewGenerateCmd.Flags().String("complexity", "medium", "Complexity: easy, medium or hard")
	previewGenerateCmd.Flags().String("question-type", "multiple-choice", "Question type")
	previewGenerateCmd.Flags().Int("count", 5, "Number of questions")
	previewGenerateCmd.Flags().Bool("json", false, "Print the raw JSON result")
	_ = previewGenerateCmd.MarkFlagRequired("topic")

	previewCmd.AddCommand(previewGenerateCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	subject, _ := cmd.Flags().GetString("subject")
	exerciseType, _ := cmd.Flags().GetString("type")
	grade, _ := cmd.Flags().GetInt("grade")
	answers, _ := cmd.Flags().GetBool("answers")

	kind, ok := content.Lookup(subject, exerciseType)
	if !ok {
		return fmt.Errorf("%w: %s/%s", content.ErrUnknownExercise, subject, exerciseType)
	}

	bank, err := content.NewBank(rand.NewPCG(uint64(time.Now().UnixNano()), 1))
	if err != nil {
		return err
	}
	items, err := bank.Items(subject, exerciseType, grade)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s (grade %d, %d items)\n\n", subject, kind.Title, grade, len(items))
	for i, it := range items {
		fmt.Fprintf(out, "── %d/%d ──\n%s\n", i+1, len(items), it.Prompt)
		for j, opt := range it.Options {
			fmt.Fprintf(out, "  %d) %s\n", j+1, opt)
		}
		if it.Hint != "" {
			fmt.Fprintf(out, "  hint: %s\n", it.Hint)
		}
		if answers {
			fmt.Fprintf(out, "  answer: %s\n", it.CorrectAnswer())
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runPreviewGenerate(cmd *cobra.Command, args []string) error {
	var req generator.Request
	req.Subject, _ = cmd.Flags().GetString("subject")
	req.Grade, _ = cmd.Flags().GetInt("grade")
	req.Topic, _ = cmd.Flags().GetString("topic")
	req.Complexity, _ = cmd.Flags().GetString("complexity")
	req.QuestionType, _ = cmd.Flags().GetString("question-type")
	req.NumQuestions, _ = cmd.Flags().GetInt("count")
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx := contextOf(cmd)
	gen, err := previewGenerator(cmd)
	if err != nil {
		return err
	}

	result, err := gen.Generate(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(out, "%s, grade %d: %s (%s, %s)\n\n", result.Request.Subject, result.Request.Grade,
		result.Request.Topic, result.Bloom, result.Source)
	for _, q := range result.Questions {
		fmt.Fprintf(out, "%d. %s\n", q.Number, q.Question)
		for j, opt := range q.Options {
			fmt.Fprintf(out, "   %c) %s\n", 'a'+j, opt)
		}
		if q.CorrectAnswer != "" {
			fmt.Fprintf(out, "   answer: %s\n", q.CorrectAnswer)
		}
		if q.LearningObjective != "" {
			fmt.Fprintf(out, "   objective: %s\n", strings.TrimSpace(q.LearningObjective))
		}
		fmt.Fprintln(out)
	}
	return nil
}

// previewGenerator returns the LLM generator when one is configured and the
// template generator otherwise.
func previewGenerator(cmd *cobra.Command) (generator.Generator, error) {
	templates := generator.NewTemplateGenerator(rand.NewPCG(uint64(time.Now().UnixNano()), 2))

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "config not loaded (%v), using templates\n", err)
		return templates, nil
	}

	p, err := llm.NewProvider(contextOf(cmd), cfg.LLM, zap.NewNop())
	if errors.Is(err, llm.ErrNotConfigured) {
		return templates, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LLM provider: %w", err)
	}
	return generator.NewLLMGenerator(p), nil
}
