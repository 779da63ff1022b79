package content

import (
	"errors"
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"
)

func newTestBank(t *testing.T) *Bank {
	t.Helper()
	b, err := NewBank(rand.NewPCG(1, 2))
	if err != nil {
		t.Fatalf("NewBank() error = %v", err)
	}
	return b
}

func TestEveryCatalogItemVerifies(t *testing.T) {
	b := newTestBank(t)

	for _, k := range Catalog("") {
		for grade := 1; grade <= 5; grade++ {
			items, err := b.Items(k.Subject, k.Type, grade)
			if err != nil {
				t.Fatalf("Items(%s, %s, %d) error = %v", k.Subject, k.Type, grade, err)
			}
			if !k.ComingSoon && len(items) == 0 {
				t.Errorf("Items(%s, %s, %d) returned no items", k.Subject, k.Type, grade)
			}
			for _, it := range items {
				if err := it.Verify(); err != nil {
					t.Errorf("%s/%s grade %d: %v", k.Subject, k.Type, grade, err)
				}
			}
		}
	}
}

func TestArithmeticBounds(t *testing.T) {
	b := newTestBank(t)

	tests := []struct {
		exerciseType string
		grade        int
		wantOp       Op
		check        func(o Operands) bool
	}{
		{"addition", 1, OpAdd, func(o Operands) bool { return o.A >= 1 && o.A <= 10 && o.B >= 1 && o.B <= 10 }},
		{"addition", 3, OpAdd, func(o Operands) bool { return o.A >= 1 && o.A <= 30 && o.B >= 1 && o.B <= 30 }},
		{"subtraction", 2, OpSubtract, func(o Operands) bool { return o.A >= 10 && o.A < 30 && o.B >= 0 && o.B < o.A }},
		{"multiplication", 1, OpAdd, func(o Operands) bool { return o.A <= 10 && o.B <= 10 }},
		{"multiplication", 4, OpMultiply, func(o Operands) bool { return o.A >= 1 && o.A <= 10 && o.B >= 1 && o.B <= 10 }},
	}

	for _, tt := range tests {
		t.Run(tt.exerciseType+"/"+strconv.Itoa(tt.grade), func(t *testing.T) {
			for range 20 {
				items, err := b.Items("math", tt.exerciseType, tt.grade)
				if err != nil {
					t.Fatalf("Items() error = %v", err)
				}
				if len(items) != QuestionsPerSet {
					t.Fatalf("len(items) = %d, want %d", len(items), QuestionsPerSet)
				}
				for _, it := range items {
					o := it.Operands
					if o == nil {
						t.Fatalf("item %q has no operands", it.Prompt)
					}
					if o.Op != tt.wantOp {
						t.Errorf("op = %q, want %q", o.Op, tt.wantOp)
					}
					if !tt.check(*o) {
						t.Errorf("operands %+v out of bounds", *o)
					}
					want, _ := o.Result()
					if it.CorrectAnswer() != strconv.Itoa(want) {
						t.Errorf("CorrectAnswer() = %q, want %d", it.CorrectAnswer(), want)
					}
				}
			}
		})
	}
}

func TestGradeFallsBackToFirst(t *testing.T) {
	b := newTestBank(t)

	first, err := b.Items("english", "rhyming", 1)
	if err != nil {
		t.Fatal(err)
	}
	fifth, err := b.Items("english", "rhyming", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(fifth) || first[0].Prompt != fifth[0].Prompt {
		t.Errorf("grade 5 rhyming should reuse grade 1 table")
	}

	zero, err := b.Items("english", "spelling", 0)
	if err != nil {
		t.Fatal(err)
	}
	if zero[0].Answer != "cat" {
		t.Errorf("grade 0 spelling first answer = %q, want cat", zero[0].Answer)
	}
}

func TestSpellingHidesWordInExample(t *testing.T) {
	b := newTestBank(t)

	items, err := b.Items("english", "spelling", 1)
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Example), it.Answer) {
			t.Errorf("example %q still shows %q", it.Example, it.Answer)
		}
		if it.Prompt == "" {
			t.Errorf("spelling item for %q has no prompt", it.Answer)
		}
	}
}

func TestShapeOptionsExcludeSameSideCount(t *testing.T) {
	b := newTestBank(t)

	for range 20 {
		items, err := b.Items("math", "shapes", 1)
		if err != nil {
			t.Fatal(err)
		}
		for _, it := range items {
			if len(it.Options) != 4 {
				t.Errorf("options = %v, want 4 entries", it.Options)
			}
			seen := map[string]bool{}
			for _, o := range it.Options {
				if seen[o] {
					t.Errorf("duplicate option %q in %v", o, it.Options)
				}
				seen[o] = true
			}
			if seen["Square"] && seen["Rectangle"] {
				t.Errorf("options %v hold two four-sided shapes", it.Options)
			}
		}
	}
}

func TestMemoryDeckSize(t *testing.T) {
	b := newTestBank(t)

	tests := []struct {
		grade int
		want  int
	}{
		{1, 6},
		{2, 6},
		{3, 8},
		{5, 8},
	}
	for _, tt := range tests {
		items, err := b.Items("games", "memory", tt.grade)
		if err != nil {
			t.Fatal(err)
		}
		if len(items) != tt.want {
			t.Errorf("grade %d pairs = %d, want %d", tt.grade, len(items), tt.want)
		}
		for _, it := range items {
			pos, err := strconv.Atoi(it.Answer)
			if err != nil || pos < 1 || pos > tt.want*2 {
				t.Errorf("pair position %q out of range", it.Answer)
			}
		}
	}
}

func TestPuzzlePieces(t *testing.T) {
	b := newTestBank(t)

	items, err := b.Items("math", "puzzle", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	p := items[0]
	for i, piece := range p.Pieces {
		if piece.X != (i%2)*100 || piece.Y != (i/2)*100 {
			t.Errorf("piece %d target = (%d,%d)", i, piece.X, piece.Y)
		}
	}
	pub := p.Public()
	for i, piece := range pub.Pieces {
		if piece.X != p.Pieces[i].StartX || piece.Y != p.Pieces[i].StartY {
			t.Errorf("public piece %d reveals its target", i)
		}
	}
}

func TestEnvironmentIsEmpty(t *testing.T) {
	b := newTestBank(t)

	items, err := b.Items("evs", "environment", 2)
	if err != nil {
		t.Fatalf("Items() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len(items) = %d, want 0", len(items))
	}
	k, ok := Lookup("evs", "environment")
	if !ok || !k.ComingSoon {
		t.Errorf("environment should be listed as coming soon")
	}
}

func TestUnknownExercise(t *testing.T) {
	b := newTestBank(t)

	_, err := b.Items("math", "calculus", 1)
	if !errors.Is(err, ErrUnknownExercise) {
		t.Fatalf("error = %v, want ErrUnknownExercise", err)
	}
}

func TestItemsAreCopies(t *testing.T) {
	b := newTestBank(t)

	items, _ := b.Items("evs", "animals", 1)
	items[0].Options[0] = "changed"

	again, _ := b.Items("evs", "animals", 1)
	if again[0].Options[0] == "changed" {
		t.Error("mutating returned items changed the bank")
	}
}

func TestChallengeTemplates(t *testing.T) {
	b := newTestBank(t)

	got := b.Challenges()
	if len(got) != 4 {
		t.Fatalf("len(Challenges()) = %d, want 4", len(got))
	}
	if got[0].Text != "Solve 5 addition problems" {
		t.Errorf("first challenge = %q", got[0].Text)
	}
}

func TestOperandsResult(t *testing.T) {
	tests := []struct {
		o       Operands
		want    int
		wantErr bool
	}{
		{Operands{A: 5, B: 3, Op: OpAdd}, 8, false},
		{Operands{A: 10, B: 4, Op: OpSubtract}, 6, false},
		{Operands{A: 2, B: 3, Op: OpMultiply}, 6, false},
		{Operands{A: 8, B: 2, Op: OpDivide}, 4, false},
		{Operands{A: 7, B: 2, Op: OpDivide}, 0, true},
		{Operands{A: 1, B: 0, Op: OpDivide}, 0, true},
		{Operands{A: 1, B: 1, Op: "%"}, 0, true},
	}
	for _, tt := range tests {
		got, err := tt.o.Result()
		if (err != nil) != tt.wantErr {
			t.Errorf("%+v error = %v, wantErr %v", tt.o, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("%+v = %d, want %d", tt.o, got, tt.want)
		}
	}
}
