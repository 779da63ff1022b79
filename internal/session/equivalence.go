package session

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"learningfun/internal/content"
)

// Equivalence decides whether a raw answer matches an item.
type Equivalence func(item content.Item, raw string) bool

// Normalize folds case, applies NFKC and collapses whitespace.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Exact matches the normalized answer against the item's correct answer.
func Exact(item content.Item, raw string) bool {
	want := item.CorrectAnswer()
	if want == "" {
		return false
	}
	return Normalize(raw) == Normalize(want)
}

// OneOf matches against any accepted answer.
func OneOf(item content.Item, raw string) bool {
	got := Normalize(raw)
	if got == "" {
		return false
	}
	for _, a := range item.AcceptedAnswers() {
		if got == Normalize(a) {
			return true
		}
	}
	return false
}

// Numeric parses both sides as numbers.
func Numeric(item content.Item, raw string) bool {
	got, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return false
	}
	want, err := strconv.ParseFloat(item.CorrectAnswer(), 64)
	if err != nil {
		return false
	}
	return got == want
}

// Placement accepts a puzzle submission of "x,y" pairs separated by ";",
// one per piece in order. Every piece must land closer than tolerance to
// its target.
func Placement(tolerance int) Equivalence {
	return func(item content.Item, raw string) bool {
		if len(item.Pieces) == 0 {
			return false
		}
		parts := strings.Split(strings.TrimSpace(raw), ";")
		if len(parts) != len(item.Pieces) {
			return false
		}
		for i, p := range parts {
			x, y, ok := parsePoint(p)
			if !ok {
				return false
			}
			piece := item.Pieces[i]
			dx, dy := x-piece.X, y-piece.Y
			if dx*dx+dy*dy >= tolerance*tolerance {
				return false
			}
		}
		return true
	}
}

func parsePoint(s string) (int, int, bool) {
	xs, ys, found := strings.Cut(strings.TrimSpace(s), ",")
	if !found {
		return 0, 0, false
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return 0, 0, false
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return 0, 0, false
	}
	return x, y, true
}
