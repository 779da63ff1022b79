package session

import (
	"testing"
	"time"

	"learningfun/internal/content"
)

func TestEquivalence(t *testing.T) {
	word := content.Item{Answer: "CAT"}
	sum := content.Item{Operands: &content.Operands{A: 5, B: 3, Op: content.OpAdd}}
	rhyme := content.Item{Accepted: []string{"bat", "hat"}}

	tests := []struct {
		name string
		eq   Equivalence
		item content.Item
		raw  string
		want bool
	}{
		{"exact ignores case", Exact, word, "cat", true},
		{"exact trims", Exact, word, "  Cat\t", true},
		{"exact folds full width", Exact, word, "ＣＡＴ", true},
		{"exact rejects other word", Exact, word, "cap", false},
		{"exact rejects empty", Exact, word, "", false},
		{"numeric", Numeric, sum, "8", true},
		{"numeric leading zero", Numeric, sum, " 08 ", true},
		{"numeric wrong", Numeric, sum, "9", false},
		{"numeric not a number", Numeric, sum, "eight", false},
		{"one of", OneOf, rhyme, "HAT", true},
		{"one of miss", OneOf, rhyme, "dog", false},
		{"one of empty", OneOf, rhyme, " ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eq(tt.item, tt.raw); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlacement(t *testing.T) {
	puzzle := content.Item{Pieces: []content.Piece{
		{ID: 0, X: 0, Y: 0},
		{ID: 1, X: 100, Y: 0},
		{ID: 2, X: 0, Y: 100},
	}}
	check := Placement(PuzzleTolerance)

	tests := []struct {
		raw  string
		want bool
	}{
		{"0,0;100,0;0,100", true},
		{"10,10;105,3;0,119", true},
		{"15,15;100,0;0,100", false},
		{"0,0;100,0", false},
		{"0,0;100,0;zero,100", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := check(puzzle, tt.raw); got != tt.want {
			t.Errorf("Placement(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestRegistry(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	r := NewRegistry(time.Minute)
	r.now = func() time.Time { return now }

	a := New(wordItems(1), Options{})
	b := New(wordItems(1), Options{})
	idA := r.Add(1, a)
	idB := r.Add(2, b)

	if _, err := r.Get(2, idA); err != ErrSessionNotFound {
		t.Fatalf("Get with wrong owner error = %v", err)
	}
	if got, err := r.Get(1, idA); err != nil || got != a {
		t.Fatalf("Get() = %v, %v", got, err)
	}

	now = now.Add(45 * time.Second)
	if _, err := r.Get(1, idA); err != nil {
		t.Fatal(err)
	}
	now = now.Add(30 * time.Second)

	if got := r.Owners(); !got[1] || !got[2] || len(got) != 2 {
		t.Fatalf("Owners() before sweep = %v", got)
	}
	if n := r.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	if got := r.Owners(); !got[1] || got[2] {
		t.Errorf("Owners() after sweep = %v", got)
	}
	select {
	case <-b.Done():
	default:
		t.Error("swept controller was not closed")
	}
	if _, err := r.Get(2, idB); err != ErrSessionNotFound {
		t.Errorf("swept session still registered")
	}

	if err := r.Remove(1, idA); err != nil {
		t.Fatal(err)
	}
	select {
	case <-a.Done():
	default:
		t.Error("removed controller was not closed")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}
