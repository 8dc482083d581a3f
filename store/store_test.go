package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), "tools", "missing")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("UpsertGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		doc := Document{"name": "weather", "usage_count": float64(3), "tags": []any{"geo", "weather"}}
		require.NoError(t, s.Upsert(ctx, "tools", "t1", doc))

		got, err := s.Get(ctx, "tools", "t1")
		require.NoError(t, err)
		if diff := cmp.Diff(doc, got); diff != "" {
			t.Fatalf("document mismatch (-want +got):\n%s", diff)
		}

		got["name"] = "mutated"
		again, err := s.Get(ctx, "tools", "t1")
		require.NoError(t, err)
		require.Equal(t, "weather", again["name"])
	})

	t.Run("InvalidKeys", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.ErrorIs(t, s.Upsert(ctx, "", "id", Document{}), ErrInvalidCollection)
		require.ErrorIs(t, s.Upsert(ctx, "tools", "", Document{}), ErrInvalidID)
	})

	t.Run("PartialUpdate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Upsert(ctx, "tools", "t1", Document{"name": "weather", "rating": 4.5}))
		require.NoError(t, s.PartialUpdate(ctx, "tools", "t1", Document{"usage_count": 7}))

		got, err := s.Get(ctx, "tools", "t1")
		require.NoError(t, err)
		require.Equal(t, "weather", got["name"])
		require.Equal(t, 4.5, got["rating"])
		require.Equal(t, float64(7), got["usage_count"])

		require.ErrorIs(t, s.PartialUpdate(ctx, "tools", "missing", Document{"x": 1}), ErrNotFound)
	})

	t.Run("TermFilters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Upsert(ctx, "apis", "a", Document{"api_url": "https://a.example", "auth_type": "none"}))
		require.NoError(t, s.Upsert(ctx, "apis", "b", Document{"api_url": "https://b.example", "auth_type": "bearer"}))

		hits, err := s.Search(ctx, "apis", Query{Filters: []Filter{Term("api_url", "https://b.example")}})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		require.Equal(t, "b", hits[0].ID)

		hits, err = s.Search(ctx, "apis", Query{Filters: []Filter{Term("api_url", "https://c.example")}})
		require.NoError(t, err)
		require.Empty(t, hits)
	})

	t.Run("NestedFilter", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Upsert(ctx, "apis", "a", Document{
			"endpoints": []any{
				map[string]any{"path": "/widgets", "method": "GET"},
				map[string]any{"path": "/widgets", "method": "POST"},
			},
		}))
		require.NoError(t, s.Upsert(ctx, "apis", "b", Document{
			"endpoints": []any{map[string]any{"path": "/", "method": "GET"}},
		}))

		hits, err := s.Search(ctx, "apis", Query{Filters: []Filter{NestedTerm("endpoints", "method", "POST")}})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		require.Equal(t, "a", hits[0].ID)
	})

	t.Run("SortAndSize", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Upsert(ctx, "apis", "old", Document{"k": "x", "discovered_at": "2024-01-01T00:00:00Z"}))
		require.NoError(t, s.Upsert(ctx, "apis", "new", Document{"k": "x", "discovered_at": "2024-01-01T00:00:00.5Z"}))

		hits, err := s.Search(ctx, "apis", Query{
			Filters:  []Filter{Term("k", "x")},
			SortBy:   "discovered_at",
			SortDesc: true,
			Size:     1,
		})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		require.Equal(t, "new", hits[0].ID)
	})

	t.Run("KNN", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Upsert(ctx, "tools", "same", Document{"vec": []float32{1, 0}}))
		require.NoError(t, s.Upsert(ctx, "tools", "orth", Document{"vec": []float32{0, 1}}))
		require.NoError(t, s.Upsert(ctx, "tools", "opp", Document{"vec": []float32{-1, 0}}))
		require.NoError(t, s.Upsert(ctx, "tools", "novec", Document{"name": "x"}))

		hits, err := s.Search(ctx, "tools", Query{
			KNN:    &KNN{Field: "vec", Vector: []float32{1, 0}, K: 2, NumCandidates: 10},
			Fields: []string{"vec"},
		})
		require.NoError(t, err)
		require.Len(t, hits, 2)
		require.Equal(t, "same", hits[0].ID)
		require.InDelta(t, 1.0, hits[0].Score, 1e-6)
		require.Equal(t, "orth", hits[1].ID)
		require.InDelta(t, 0.5, hits[1].Score, 1e-6)
	})

	t.Run("SearchUnknownCollection", func(t *testing.T) {
		s := newStore(t)
		hits, err := s.Search(context.Background(), "nothing", Query{})
		require.NoError(t, err)
		require.Empty(t, hits)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestBoltStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, err := OpenBoltStore(filepath.Join(t.TempDir(), "catalog.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestMemoryStore_InsertionOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Upsert(ctx, "tools", id, Document{"kind": "tool"}))
	}
	require.NoError(t, s.Upsert(ctx, "tools", "c", Document{"kind": "tool"}))

	hits, err := s.Search(ctx, "tools", Query{Size: 10})
	require.NoError(t, err)
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	require.Equal(t, []string{"c", "a", "b"}, ids)
	require.Equal(t, 3, s.Count("tools"))
}

func TestInit(t *testing.T) {
	ctx := context.Background()
	collections := []Collection{{Name: "tools"}, {Name: "apis"}}

	mem := NewMemoryStore()
	created, err := mem.Init(ctx, collections)
	require.NoError(t, err)
	require.Equal(t, []string{"tools", "apis"}, created)
	created, err = mem.Init(ctx, collections)
	require.NoError(t, err)
	require.Empty(t, created)

	bolt, err := OpenBoltStore(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer bolt.Close()
	created, err = bolt.Init(ctx, collections)
	require.NoError(t, err)
	require.Len(t, created, 2)
	created, err = bolt.Init(ctx, collections)
	require.NoError(t, err)
	require.Empty(t, created)
}

func TestBoltStore_Closed(t *testing.T) {
	s, err := OpenBoltStore(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Get(context.Background(), "tools", "x")
	require.ErrorIs(t, err, ErrClosed)
}

func TestEncodeDecode(t *testing.T) {
	type record struct {
		Name  string    `json:"name"`
		Score float64   `json:"score"`
		Vec   []float32 `json:"vec"`
	}
	in := record{Name: "a", Score: 0.25, Vec: []float32{0.5, 1}}
	doc, err := Encode(in)
	require.NoError(t, err)
	require.Equal(t, "a", doc["name"])

	var out record
	require.NoError(t, Hit{Source: doc}.Decode(&out))
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}
