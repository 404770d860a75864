package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDB holds the in-memory SQLite database backing full-text search over
// the celebrity dataset. The index is rebuilt from the dataset on every load;
// nothing is persisted to disk.
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens an in-memory SQLite database and creates the FTS schema.
func NewSQLiteDB() (*SQLiteDB, error) {
	db, err := sql.Open("sqlite3", ":memory:?_journal_mode=MEMORY")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The in-memory database lives on a single connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteDB{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

// initialize creates the required tables.
func (s *SQLiteDB) initialize() error {
	schema := `
	-- FTS5 virtual table over the searchable celebrity fields
	CREATE VIRTUAL TABLE IF NOT EXISTS celebrities_fts USING fts5(
		celebrity_id,
		name,
		category,
		story,
		tags,
		tokenize='unicode61'
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertCelebrity indexes one celebrity record.
func (s *SQLiteDB) InsertCelebrity(id, name, category, story, tags string) error {
	_, err := s.db.Exec(
		"INSERT INTO celebrities_fts (celebrity_id, name, category, story, tags) VALUES (?, ?, ?, ?, ?)",
		id, name, category, story, tags,
	)
	if err != nil {
		return fmt.Errorf("failed to insert into FTS: %w", err)
	}
	return nil
}

// Count returns the number of indexed celebrities.
func (s *SQLiteDB) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT count(*) FROM celebrities_fts").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *SQLiteDB) DB() *sql.DB {
	return s.db
}
