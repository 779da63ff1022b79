package generator

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learningfun/internal/llm"
	"learningfun/internal/validation"
)

func TestRequestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		req       Request
		wantField string
	}{
		{"defaults", Request{Topic: "addition", Grade: 1}, ""},
		{"missing topic", Request{Topic: "  ", Grade: 1}, "topic"},
		{"grade too high", Request{Topic: "x", Grade: 6}, "grade"},
		{"bad complexity", Request{Topic: "x", Grade: 2, Complexity: "impossible"}, "complexity"},
		{"bad type", Request{Topic: "x", Grade: 2, QuestionType: "essay"}, "question_type"},
		{"too many", Request{Topic: "x", Grade: 2, NumQuestions: 21}, "num_questions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.Normalize()
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, "math", got.Subject)
				assert.Equal(t, "easy", got.Complexity)
				assert.Equal(t, 5, got.NumQuestions)
				return
			}
			var ve validation.ValidationError
			require.True(t, errors.As(err, &ve), "error = %v", err)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestBloomLevels(t *testing.T) {
	assert.Equal(t, "Remember", Bloom("beginner"))
	assert.Equal(t, "Apply", Bloom("medium"))
	assert.Equal(t, "Create", Bloom("expert"))
}

func TestTemplateGenerator(t *testing.T) {
	g := NewTemplateGenerator(rand.NewPCG(1, 1))

	out, err := g.Generate(context.Background(), Request{
		Subject: "math", Grade: 1, Topic: "Addition", Complexity: "beginner", QuestionType: "multiple-choice", NumQuestions: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, "template", out.Source)
	assert.Equal(t, "Remember", out.Bloom)
	require.Len(t, out.Questions, 7)

	for i, q := range out.Questions {
		assert.Equal(t, i+1, q.Number)
		assert.Contains(t, q.Options, q.CorrectAnswer)
		sum, err := strconv.Atoi(q.CorrectAnswer)
		require.NoError(t, err)
		assert.True(t, sum >= 2 && sum <= 10, "beginner sums stay within 10, got %d", sum)
	}
}

func TestTemplateGeneratorSubjects(t *testing.T) {
	g := NewTemplateGenerator(rand.NewPCG(2, 2))

	tests := []struct {
		req  Request
		want string
	}{
		{Request{Subject: "english", Topic: "rhyming words", Complexity: "medium", QuestionType: "creative"}, "poem"},
		{Request{Subject: "english", Topic: "spelling", Grade: 9}, "in a sentence"},
		{Request{Subject: "science", Topic: "animals", Complexity: "hard"}, "fish and a bird"},
		{Request{Subject: "science", Topic: "plants"}, "plants need"},
		{Request{Subject: "social-studies", Topic: "festivals"}, "festivals"},
	}
	for _, tt := range tests {
		if tt.req.Grade == 0 {
			tt.req.Grade = 2
		}
		if tt.req.Grade > 5 {
			_, err := g.Generate(context.Background(), tt.req)
			assert.Error(t, err)
			continue
		}
		out, err := g.Generate(context.Background(), tt.req)
		require.NoError(t, err)
		assert.Contains(t, out.Questions[0].Question, tt.want)
	}
}

func TestLLMGenerator(t *testing.T) {
	reply := `{"questions":[
		{"question":"What is 2 + 2?","learning_objective":"add","expected_response_type":"a number","difficulty_justification":"recall","options":["3","4"],"correct_answer":"4"},
		{"question":"Broken","learning_objective":"","expected_response_type":"","difficulty_justification":"","options":["1","2"],"correct_answer":"9"},
		{"question":"Explain adding.","learning_objective":"explain","expected_response_type":"text","difficulty_justification":"understand","options":[],"correct_answer":""}
	]}`
	mock := llm.NewMock(llm.MockReply{Content: json.RawMessage(reply)})
	g := NewLLMGenerator(mock)

	out, err := g.Generate(context.Background(), Request{Subject: "math", Grade: 2, Topic: "addition", NumQuestions: 5})
	require.NoError(t, err)
	assert.Equal(t, "mock", out.Source)
	require.Len(t, out.Questions, 2, "question whose answer is not an option is dropped")
	assert.Equal(t, 2, out.Questions[1].Number)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "question-set", calls[0].Schema.Name)
	assert.True(t, strings.Contains(calls[0].Prompt, `"addition"`))
}

func TestLLMGeneratorRejectsBadReplies(t *testing.T) {
	mock := llm.NewMock(
		llm.MockReply{Content: json.RawMessage(`{"items":[]}`)},
		llm.MockReply{Err: &llm.RateLimitError{Err: errors.New("slow down")}},
	)
	g := NewLLMGenerator(mock)
	req := Request{Grade: 2, Topic: "shapes"}

	_, err := g.Generate(context.Background(), req)
	var invalid *llm.InvalidResponseError
	assert.ErrorAs(t, err, &invalid)

	_, err = g.Generate(context.Background(), req)
	var limited *llm.RateLimitError
	assert.ErrorAs(t, err, &limited)
}

func TestSampleExtractorIsStable(t *testing.T) {
	ex := SampleExtractor{}
	img := []byte("fake png bytes")

	first, err := ex.Extract(context.Background(), img, "image/png")
	require.NoError(t, err)
	second, err := ex.Extract(context.Background(), img, "image/png")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, SampleTexts, first)

	_, err = ex.Extract(context.Background(), img, "application/pdf")
	var ve validation.ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = ex.Extract(context.Background(), nil, "image/png")
	assert.True(t, errors.As(err, &ve))
}

type fakeReader struct{ text string }

func (f fakeReader) ReadImage(context.Context, []byte, string) (string, error) { return f.text, nil }

func TestVisionExtractor(t *testing.T) {
	ex := NewVisionExtractor(fakeReader{text: "Birds fly high."})
	got, err := ex.Extract(context.Background(), []byte{1, 2, 3}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "Birds fly high.", got)
}

func TestBuilder(t *testing.T) {
	b := NewBuilder(rand.NewPCG(5, 5))
	story := SampleTexts[0]

	t.Run("multiple choice", func(t *testing.T) {
		ws, err := b.Build(BuildRequest{Text: story, Kind: KindMultipleChoice, Count: 4})
		require.NoError(t, err)
		require.Len(t, ws.Questions, 4)
		assert.Equal(t, "What sat on the mat?", ws.Questions[0].Question)
		assert.Equal(t, "Where do birds fly?", ws.Questions[1].Question)
		for _, q := range ws.Questions {
			assert.Contains(t, q.Options, q.Answer)
		}
	})

	t.Run("fill blanks", func(t *testing.T) {
		ws, err := b.Build(BuildRequest{Text: story, Kind: KindFillBlanks})
		require.NoError(t, err)
		require.Len(t, ws.Questions, 4)
		for _, q := range ws.Questions {
			assert.Contains(t, q.Question, "____")
			assert.NotEmpty(t, q.Answer)
		}
	})

	t.Run("scramble", func(t *testing.T) {
		ws, err := b.Build(BuildRequest{Text: story, Kind: KindWordScramble})
		require.NoError(t, err)
		require.Len(t, ws.Words, 6)
		assert.Equal(t, "The", ws.Words[0].Original)
		for _, w := range ws.Words {
			assert.ElementsMatch(t, []rune(w.Original), []rune(w.Scrambled))
		}
	})

	t.Run("match pairs", func(t *testing.T) {
		ws, err := b.Build(BuildRequest{Text: story, Kind: KindMatchPairs})
		require.NoError(t, err)
		require.Len(t, ws.Pairs, 4)
		assert.Equal(t, Pair{"cat", "sits on mat"}, ws.Pairs[0])
	})

	t.Run("math text", func(t *testing.T) {
		ws, err := b.Build(BuildRequest{Text: SampleTexts[1], Subject: "math", Count: 3})
		require.NoError(t, err)
		require.Len(t, ws.Questions, 3)
		assert.Equal(t, "What is 2 + 3?", ws.Questions[0].Question)
		assert.Equal(t, "5", ws.Questions[0].Answer)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := b.Build(BuildRequest{Text: " "})
		assert.Error(t, err)
		_, err = b.Build(BuildRequest{Text: story, Kind: "crossword"})
		assert.Error(t, err)
	})
}

func TestRenderActivity(t *testing.T) {
	assert.Len(t, Activities(), 4)

	a, err := RenderActivity("math-worksheet", 3, "")
	require.NoError(t, err)
	assert.Equal(t, "Grade 3 Math Practice", a.Title)
	assert.Equal(t, "Medium", a.Difficulty)
	assert.Len(t, a.Problems, 3)

	a, err = RenderActivity("interactive-game", 1, "use farm animals")
	require.NoError(t, err)
	assert.Equal(t, "Animal Habitat Match (Customized)", a.Title)
	assert.Equal(t, "use farm animals", a.Customization)

	_, err = RenderActivity("origami", 1, "")
	assert.ErrorIs(t, err, ErrUnknownActivity)
}
