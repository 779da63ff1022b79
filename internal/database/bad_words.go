package database

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"
)

// SeedBadWords downloads the word filter list into bad_words. It does nothing
// when the table is already populated and returns the number of words added.
func (db *DB) SeedBadWords(ctx context.Context, listURL string) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bad_words").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to check bad words count: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build bad words request: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download bad words list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("bad status code from bad words URL: %d", resp.StatusCode)
	}

	added := 0
	err = db.WithinTx(ctx, func(tx *Tx) error {
		stmt, err := tx.PrepareContext(ctx, db.Dialect.RewriteQuery("INSERT INTO bad_words (word) VALUES (?)"))
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		seen := make(map[string]bool)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			word := strings.TrimSpace(strings.ToLower(scanner.Text()))
			if word == "" || seen[word] {
				continue
			}
			seen[word] = true
			if _, err := stmt.ExecContext(ctx, word); err != nil {
				return fmt.Errorf("failed to insert bad word: %w", err)
			}
			added++
		}
		return scanner.Err()
	})
	if err != nil {
		return 0, err
	}

	return added, nil
}

// FindBadWords returns the filtered words that appear in text.
func (db *DB) FindBadWords(ctx context.Context, text string) ([]string, error) {
	words := tokenize(text)
	if len(words) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(words))
	args := make([]any, len(words))
	for i, w := range words {
		placeholders[i] = "?"
		args[i] = w
	}

	query := "SELECT word FROM bad_words WHERE word IN (" + strings.Join(placeholders, ", ") + ") ORDER BY word"
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to check bad words: %w", err)
	}
	defer rows.Close()

	var found []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		found = append(found, w)
	}
	return found, rows.Err()
}

// tokenize lowercases text and splits it into unique words.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})

	seen := make(map[string]bool, len(fields))
	var words []string
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			words = append(words, f)
		}
	}
	return words
}
