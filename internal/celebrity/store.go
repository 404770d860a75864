// Package celebrity loads and indexes the curated celebrity dataset.
package celebrity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sadnessbroccoli/luminary/internal/search"
	"github.com/sadnessbroccoli/luminary/internal/storage"
	"github.com/sadnessbroccoli/luminary/pkg/types"
)

var (
	// ErrDataUnavailable is returned when the dataset file is missing or the
	// document cannot be parsed. Fatal to startup.
	ErrDataUnavailable = errors.New("celebrity dataset unavailable")

	// ErrMalformedRecord marks a dataset entry missing required fields.
	// Such entries are skipped; the rest of the dataset still loads.
	ErrMalformedRecord = errors.New("malformed celebrity record")

	// ErrNotFound is returned by lookups for unknown celebrities.
	ErrNotFound = errors.New("celebrity not found")
)

// Sampler abstracts the random source used for uniform selection, so tests
// can pin the choice.
type Sampler interface {
	Intn(n int) int
}

// Store indexes the loaded dataset. Read-only after Load; safe for
// concurrent readers without locking.
type Store struct {
	celebrities []*types.Celebrity
	byID        map[string]*types.Celebrity
	byName      map[string]*types.Celebrity

	db  *storage.SQLiteDB
	fts *search.FTSEngine

	// Skipped reports malformed records dropped during load, keyed by the
	// record's position in the document.
	Skipped []SkippedRecord
}

// SkippedRecord describes one dropped dataset entry.
type SkippedRecord struct {
	Index  int
	Reason error
}

// document is the top-level shape of the dataset file.
type document struct {
	Celebrities []json.RawMessage `json:"celebrities"`
}

// Load reads the dataset document at path, validates each record, and builds
// the lookup and full-text indexes. Load happens at most once per process;
// the result is immutable.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataUnavailable, path, err)
	}
	return loadBytes(data)
}

func loadBytes(data []byte) (*Store, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse error: %v", ErrDataUnavailable, err)
	}

	s := &Store{
		byID:   make(map[string]*types.Celebrity),
		byName: make(map[string]*types.Celebrity),
	}

	for i, raw := range doc.Celebrities {
		c, err := decodeRecord(raw)
		if err != nil {
			s.Skipped = append(s.Skipped, SkippedRecord{Index: i, Reason: err})
			continue
		}
		if _, dup := s.byID[c.ID]; dup {
			s.Skipped = append(s.Skipped, SkippedRecord{
				Index:  i,
				Reason: fmt.Errorf("%w: duplicate id %q", ErrMalformedRecord, c.ID),
			})
			continue
		}
		s.celebrities = append(s.celebrities, c)
		s.byID[c.ID] = c
		s.byName[c.Name] = c
	}

	if err := s.buildSearchIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

// decodeRecord validates one entry. id and name are required; absent list
// fields degrade to empty slices rather than causing lookup failures.
func decodeRecord(raw json.RawMessage) (*types.Celebrity, error) {
	var c types.Celebrity
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if c.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformedRecord)
	}
	if c.Name == "" {
		return nil, fmt.Errorf("%w: missing name for id %q", ErrMalformedRecord, c.ID)
	}
	if c.KeyAchievements == nil {
		c.KeyAchievements = []string{}
	}
	if c.InterestingFacts == nil {
		c.InterestingFacts = []string{}
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return &c, nil
}

func (s *Store) buildSearchIndex() error {
	db, err := storage.NewSQLiteDB()
	if err != nil {
		return fmt.Errorf("%w: search index: %v", ErrDataUnavailable, err)
	}

	fts := search.NewFTSEngine(db)
	if err := fts.IndexAll(s.celebrities); err != nil {
		db.Close()
		return fmt.Errorf("%w: search index: %v", ErrDataUnavailable, err)
	}

	s.db = db
	s.fts = fts
	return nil
}

// All returns every loaded celebrity in document order.
func (s *Store) All() []*types.Celebrity {
	return s.celebrities
}

// Len returns the number of loaded celebrities.
func (s *Store) Len() int {
	return len(s.celebrities)
}

// ByID looks up a celebrity by its dataset id.
func (s *Store) ByID(id string) (*types.Celebrity, error) {
	if c, ok := s.byID[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: id %q", ErrNotFound, id)
}

// ByName looks up a celebrity by exact name.
func (s *Store) ByName(name string) (*types.Celebrity, error) {
	if c, ok := s.byName[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Random returns a uniformly chosen celebrity.
func (s *Store) Random(sampler Sampler) (*types.Celebrity, error) {
	if len(s.celebrities) == 0 {
		return nil, ErrNotFound
	}
	return s.celebrities[sampler.Intn(len(s.celebrities))], nil
}

// CategoryCounts returns the number of celebrities per category.
func (s *Store) CategoryCounts() map[string]int {
	counts := make(map[string]int)
	for _, c := range s.celebrities {
		cat := c.Category
		if cat == "" {
			cat = "未知"
		}
		counts[cat]++
	}
	return counts
}

// Search matches the query against name, category, story and tags. FTS5
// ranking is used when it yields hits; otherwise a case-insensitive
// substring scan keeps partial-word queries working.
func (s *Store) Search(query string, limit int) ([]*types.Celebrity, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.celebrities, nil
	}
	if limit <= 0 {
		limit = 20
	}

	hits, err := s.fts.Search(query, limit)
	if err != nil {
		return nil, err
	}
	if len(hits) > 0 {
		results := make([]*types.Celebrity, 0, len(hits))
		for _, h := range hits {
			if c, ok := s.byID[h.CelebrityID]; ok {
				results = append(results, c)
			}
		}
		return results, nil
	}

	return s.substringSearch(query, limit), nil
}

// substringSearch mirrors the simple contains() matching of the explore view.
func (s *Store) substringSearch(query string, limit int) []*types.Celebrity {
	q := strings.ToLower(query)
	var results []*types.Celebrity
	for _, c := range s.celebrities {
		if len(results) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Category), q) ||
			tagsContain(c.Tags, q) {
			results = append(results, c)
		}
	}
	return results
}

func tagsContain(tags []string, q string) bool {
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// Close releases the search index.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
