// Package search provides full-text search over the celebrity dataset.
package search

import (
	"fmt"
	"strings"

	"github.com/sadnessbroccoli/luminary/internal/storage"
	"github.com/sadnessbroccoli/luminary/pkg/types"
)

// Result represents a search hit from the FTS5 engine.
type Result struct {
	CelebrityID string
	Name        string
	Category    string
	Score       float64
}

// FTSEngine implements dataset search using SQLite FTS5 with BM25 scoring.
type FTSEngine struct {
	db *storage.SQLiteDB
}

// NewFTSEngine creates a new FTS5-backed search engine.
func NewFTSEngine(db *storage.SQLiteDB) *FTSEngine {
	return &FTSEngine{db: db}
}

// IndexAll rebuilds the index from the given celebrity records. This is an
// atomic operation: the old index is dropped and replaced in one transaction.
func (e *FTSEngine) IndexAll(celebrities []*types.Celebrity) error {
	tx, err := e.db.DB().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM celebrities_fts"); err != nil {
		return fmt.Errorf("failed to clear FTS index: %w", err)
	}

	for _, c := range celebrities {
		_, err := tx.Exec(
			"INSERT INTO celebrities_fts (celebrity_id, name, category, story, tags) VALUES (?, ?, ?, ?, ?)",
			c.ID, c.Name, c.Category, c.Story, strings.Join(c.Tags, " "),
		)
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}
	return nil
}

// Search performs a full-text search with BM25 scoring. The query is
// sanitized to prevent FTS5 syntax errors. Results are ordered best first.
func (e *FTSEngine) Search(query string, limit int) ([]Result, error) {
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	sanitized := sanitizeFTS5Query(query)
	if sanitized == "" {
		return nil, nil
	}

	rows, err := e.db.DB().Query(`
		SELECT
			celebrity_id,
			name,
			category,
			bm25(celebrities_fts) as score
		FROM celebrities_fts
		WHERE celebrities_fts MATCH ?
		ORDER BY score
		LIMIT ?`,
		sanitized,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.CelebrityID, &r.Name, &r.Category, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}
	return results, nil
}

// sanitizeFTS5Query prepares a query string for FTS5 MATCH.
func sanitizeFTS5Query(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}

	words := strings.Fields(query)
	var sanitized []string
	for _, word := range words {
		if cleaned := cleanFTS5Word(word); cleaned != "" {
			sanitized = append(sanitized, cleaned)
		}
	}
	if len(sanitized) == 0 {
		return ""
	}

	// Implicit AND in FTS5.
	return strings.Join(sanitized, " ")
}

// cleanFTS5Word removes FTS5 special characters from a word.
func cleanFTS5Word(word string) string {
	specialChars := `"*^:()-`

	var result strings.Builder
	for _, ch := range word {
		if !strings.ContainsRune(specialChars, ch) {
			result.WriteRune(ch)
		}
	}
	return result.String()
}
