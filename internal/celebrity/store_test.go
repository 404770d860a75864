package celebrity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDataset = `{
  "celebrities": [
    {
      "id": "einstein",
      "name": "阿尔伯特·爱因斯坦",
      "category": "科学家",
      "era": "现代",
      "nationality": "德国/美国",
      "story": "物理学家。",
      "key_achievements": ["相对论"],
      "tags": ["物理", "诺贝尔奖"]
    },
    {
      "id": "libai",
      "name": "李白",
      "category": "文学家",
      "era": "唐代",
      "nationality": "中国",
      "story": "诗仙。",
      "tags": ["诗歌"]
    },
    {
      "id": "nameless"
    },
    {
      "id": "einstein",
      "name": "重复的爱因斯坦"
    },
    {
      "id": "mystery",
      "name": "无类别者"
    }
  ]
}`

// fixedSampler always returns the same index.
type fixedSampler struct{ n int }

func (f fixedSampler) Intn(int) int { return f.n }

func loadTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := loadBytes([]byte(testDataset))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// ============================================================================
// Load Tests
// ============================================================================

// TestLoadSkipsMalformedRecords tests that invalid entries are dropped
// without failing the whole load.
func TestLoadSkipsMalformedRecords(t *testing.T) {
	s := loadTestStore(t)

	assert.Equal(t, 3, s.Len())
	require.Len(t, s.Skipped, 2)

	// The record without a name.
	assert.Equal(t, 2, s.Skipped[0].Index)
	assert.ErrorIs(t, s.Skipped[0].Reason, ErrMalformedRecord)

	// The duplicate id.
	assert.Equal(t, 3, s.Skipped[1].Index)
	assert.ErrorIs(t, s.Skipped[1].Reason, ErrMalformedRecord)

	// The first einstein won.
	c, err := s.ByID("einstein")
	require.NoError(t, err)
	assert.Equal(t, "阿尔伯特·爱因斯坦", c.Name)
}

// TestLoadMissingFile tests the missing dataset error.
func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

// TestLoadInvalidDocument tests that a broken top-level document is fatal.
func TestLoadInvalidDocument(t *testing.T) {
	_, err := loadBytes([]byte("{not json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

// TestLoadFromFile tests the file-based entry point end to end.
func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "celebrities.json")
	require.NoError(t, os.WriteFile(path, []byte(testDataset), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 3, s.Len())
}

// TestLoadDefaultsEmptyLists tests that absent list fields become empty
// slices.
func TestLoadDefaultsEmptyLists(t *testing.T) {
	s := loadTestStore(t)

	c, err := s.ByID("libai")
	require.NoError(t, err)
	assert.NotNil(t, c.KeyAchievements)
	assert.Empty(t, c.KeyAchievements)
	assert.NotNil(t, c.InterestingFacts)
}

// ============================================================================
// Lookup Tests
// ============================================================================

// TestLookups tests id and name lookups with their not-found errors.
func TestLookups(t *testing.T) {
	s := loadTestStore(t)

	byID, err := s.ByID("libai")
	require.NoError(t, err)
	assert.Equal(t, "李白", byID.Name)

	byName, err := s.ByName("李白")
	require.NoError(t, err)
	assert.Same(t, byID, byName)

	_, err = s.ByID("ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ByName("不存在")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestRandom tests sampler-driven selection.
func TestRandom(t *testing.T) {
	s := loadTestStore(t)

	first, err := s.Random(fixedSampler{n: 0})
	require.NoError(t, err)
	assert.Equal(t, s.All()[0], first)

	last, err := s.Random(fixedSampler{n: s.Len() - 1})
	require.NoError(t, err)
	assert.Equal(t, s.All()[s.Len()-1], last)
}

// TestRandomEmptyStore tests selection from an empty dataset.
func TestRandomEmptyStore(t *testing.T) {
	s, err := loadBytes([]byte(`{"celebrities": []}`))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Random(fixedSampler{})
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestCategoryCounts tests grouping, including the unknown bucket.
func TestCategoryCounts(t *testing.T) {
	s := loadTestStore(t)

	counts := s.CategoryCounts()
	assert.Equal(t, 1, counts["科学家"])
	assert.Equal(t, 1, counts["文学家"])
	assert.Equal(t, 1, counts["未知"])
}

// ============================================================================
// Search Tests
// ============================================================================

// TestSearch tests full-text and substring matching.
func TestSearch(t *testing.T) {
	s := loadTestStore(t)

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{
			name:    "match by name",
			query:   "李白",
			wantIDs: []string{"libai"},
		},
		{
			name:    "match by category",
			query:   "科学家",
			wantIDs: []string{"einstein"},
		},
		{
			name:    "match by tag",
			query:   "诗歌",
			wantIDs: []string{"libai"},
		},
		{
			name:    "no match",
			query:   "量子色动力学",
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.Search(tt.query, 10)
			require.NoError(t, err)

			ids := make([]string, 0, len(results))
			for _, c := range results {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.wantIDs, nilIfEmpty(ids))
		})
	}
}

// TestSearchEmptyQueryReturnsAll tests the browse behavior.
func TestSearchEmptyQueryReturnsAll(t *testing.T) {
	s := loadTestStore(t)

	results, err := s.Search("   ", 10)
	require.NoError(t, err)
	assert.Len(t, results, s.Len())
}

func nilIfEmpty(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	return ids
}
