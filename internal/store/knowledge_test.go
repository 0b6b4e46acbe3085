package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Thommy96/BaRiStA/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() *domain.RowSet {
	return &domain.RowSet{
		Table:   "restaurants",
		Columns: []string{"name", "cuisine", "rating", "num_reviews"},
		Rows: [][]string{
			{"Trattoria Roma", "Italian", "4.0", "100"},
			{"Akropolis", "greek", "3.0", "1"},
			{"Pizzeria Napoli", "italian", "3.8", "42"},
		},
	}
}

func newLoadedStore(t *testing.T) *KnowledgeStore {
	t.Helper()
	ctx := context.Background()
	s, err := NewKnowledgeStore(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Load(ctx, sampleRows()))
	return s
}

func TestKnowledgeStore_LoadAndSelect(t *testing.T) {
	s := newLoadedStore(t)
	ctx := context.Background()

	cols, err := s.Columns("restaurants")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "cuisine", "rating", "num_reviews"}, cols)

	rows, err := s.Select(ctx, "restaurants", domain.EntityQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, domain.Entity{"name": "Trattoria Roma", "cuisine": "Italian", "rating": "4.0", "num_reviews": "100"}, rows[0])

	rows, err = s.Select(ctx, "restaurants", domain.EntityQuery{
		Columns: []string{"name"},
		Filter: domain.EntityFilter{Clauses: []domain.FilterClause{
			{Column: "cuisine", Values: []string{"ITALIAN"}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.Entity{{"name": "Trattoria Roma"}, {"name": "Pizzeria Napoli"}}, rows)
}

func TestKnowledgeStore_SelectByKeyIsCaseSensitive(t *testing.T) {
	s := newLoadedStore(t)
	ctx := context.Background()

	rows, err := s.Select(ctx, "restaurants", domain.EntityQuery{KeyColumn: "name", Key: "Akropolis"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = s.Select(ctx, "restaurants", domain.EntityQuery{KeyColumn: "name", Key: "AKROPOLIS"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestKnowledgeStore_Errors(t *testing.T) {
	s := newLoadedStore(t)
	ctx := context.Background()

	_, err := s.Select(ctx, "bars", domain.EntityQuery{})
	assert.True(t, errors.Is(err, ErrNotLoaded))

	_, err = s.Select(ctx, "restaurants", domain.EntityQuery{Columns: []string{"stars"}})
	assert.True(t, errors.Is(err, ErrUnknownColumn))

	err = s.Update(ctx, "restaurants", "name", "Nowhere", map[string]string{"rating": "1.0"})
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.Update(ctx, "restaurants", "name", "Akropolis", map[string]string{"stars": "1"})
	assert.True(t, errors.Is(err, ErrUnknownColumn))

	_, err = s.Columns("bars")
	assert.True(t, errors.Is(err, ErrNotLoaded))

	err = s.Load(ctx, &domain.RowSet{Table: "broken", Columns: []string{"a", "b"}, Rows: [][]string{{"1"}}})
	assert.Error(t, err)
}

func TestKnowledgeStore_Update(t *testing.T) {
	s := newLoadedStore(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, "restaurants", "name", "Akropolis", map[string]string{"rating": "4.0"}))

	rows, err := s.Select(ctx, "restaurants", domain.EntityQuery{
		Columns:   []string{"rating", "num_reviews"},
		KeyColumn: "name",
		Key:       "Akropolis",
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.Entity{{"rating": "4.0", "num_reviews": "1"}}, rows)
}

func TestKnowledgeStore_ModifyIsSerialized(t *testing.T) {
	s := newLoadedStore(t)
	ctx := context.Background()

	const writers = 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Modify(ctx, "restaurants", "name", "Akropolis", []string{"num_reviews"},
				func(current domain.Entity) (map[string]string, error) {
					n, err := ParseReviewCount(current["num_reviews"])
					if err != nil {
						return nil, err
					}
					return map[string]string{"num_reviews": fmt.Sprint(n + 1)}, nil
				})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rows, err := s.Select(ctx, "restaurants", domain.EntityQuery{
		Columns:   []string{"num_reviews"},
		KeyColumn: "name",
		Key:       "Akropolis",
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprint(1+writers), rows[0]["num_reviews"])
}

func TestKnowledgeStore_ModifyErrors(t *testing.T) {
	s := newLoadedStore(t)
	ctx := context.Background()

	err := s.Modify(ctx, "restaurants", "name", "Nowhere", []string{"rating"},
		func(domain.Entity) (map[string]string, error) { return nil, nil })
	assert.True(t, errors.Is(err, ErrNotFound))

	boom := errors.New("boom")
	err = s.Modify(ctx, "restaurants", "name", "Akropolis", []string{"rating"},
		func(domain.Entity) (map[string]string, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestKnowledgeStore_ReloadReplacesTable(t *testing.T) {
	s := newLoadedStore(t)
	ctx := context.Background()

	require.NoError(t, s.Load(ctx, &domain.RowSet{
		Table:   "restaurants",
		Columns: []string{"name"},
		Rows:    [][]string{{"Sakura"}},
	}))

	rows, err := s.Select(ctx, "restaurants", domain.EntityQuery{})
	require.NoError(t, err)
	assert.Equal(t, []domain.Entity{{"name": "Sakura"}}, rows)
}

func TestSQLiteSource_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kb.db")

	require.NoError(t, WriteSQLite(ctx, path, sampleRows()))

	set, err := NewSQLiteSource(path).LoadTable(ctx, "restaurants")
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), set)

	_, err = NewSQLiteSource(path).LoadTable(ctx, "bars")
	assert.Error(t, err)

	_, err = NewSQLiteSource(filepath.Join(t.TempDir(), "missing.db")).LoadTable(ctx, "restaurants")
	assert.Error(t, err)
}

func TestOpenSource_SQLiteFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kb.db")
	require.NoError(t, WriteSQLite(ctx, path, sampleRows()))

	src, closeSrc, err := OpenSource(ctx, path)
	require.NoError(t, err)
	defer closeSrc()
	assert.IsType(t, &SQLiteSource{}, src)

	s, err := NewKnowledgeStore(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.LoadFrom(ctx, src, "restaurants"))

	rows, err := s.Select(ctx, "restaurants", domain.EntityQuery{Columns: []string{"name"}})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	assert.Error(t, s.LoadFrom(ctx, src, "bars"))
}

func TestIsPostgresURL(t *testing.T) {
	assert.True(t, IsPostgresURL("postgres://user@localhost/kb"))
	assert.True(t, IsPostgresURL("postgresql://localhost/kb"))
	assert.False(t, IsPostgresURL("resources/databases/restaurants_stuttgart.db"))
}
