package search

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/lcgani/agent-nexus/model"
	"github.com/lcgani/agent-nexus/semantic"
	"github.com/lcgani/agent-nexus/store"
)

// fixedEmbedder returns the same vector for every text.
type fixedEmbedder []float32

func (f fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return f, nil
}

func putTool(t *testing.T, st store.Store, tool model.ToolRecord) {
	t.Helper()
	doc, err := store.Encode(tool)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if err := st.Upsert(context.Background(), model.CollectionTools, tool.ToolID, doc); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
}

func newTestRanker(t *testing.T, st store.Store, emb semantic.Embedder) *Ranker {
	t.Helper()
	r, err := NewRanker(Options{Store: st, Embedder: emb})
	if err != nil {
		t.Fatalf("NewRanker() error = %v", err)
	}
	return r
}

func TestScore(t *testing.T) {
	res := Score(model.ToolRecord{UsageCount: 500, Rating: 4}, 0.8)
	want := 0.7*0.8 + 0.2*0.5 + 0.1*0.8
	if math.Abs(res.CompositeScore-want) > 1e-9 {
		t.Fatalf("CompositeScore = %v, want %v", res.CompositeScore, want)
	}
	if res.PopularityScore != 0.5 || res.RatingScore != 0.8 || res.RelevanceScore != 0.8 {
		t.Fatalf("components = %+v", res)
	}
}

func TestPopularity(t *testing.T) {
	tests := []struct {
		usage int
		want  float64
	}{
		{usage: -3, want: 0},
		{usage: 0, want: 0},
		{usage: 250, want: 0.25},
		{usage: 1000, want: 1},
		{usage: 2000, want: 1},
	}
	for _, tt := range tests {
		if got := Popularity(tt.usage); got != tt.want {
			t.Fatalf("Popularity(%d) = %v, want %v", tt.usage, got, tt.want)
		}
	}
}

func TestRank_StableTies(t *testing.T) {
	results := []model.SearchResult{
		{Tool: model.ToolRecord{ToolID: "a"}, CompositeScore: 0.5},
		{Tool: model.ToolRecord{ToolID: "b"}, CompositeScore: 0.9},
		{Tool: model.ToolRecord{ToolID: "c"}, CompositeScore: 0.5},
		{Tool: model.ToolRecord{ToolID: "d"}, CompositeScore: 0.5},
	}
	got := Rank(results, 3)
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Tool.ToolID != want[i] {
			t.Fatalf("order[%d] = %s, want %s", i, got[i].Tool.ToolID, want[i])
		}
	}
}

func TestRanker_PopularityMonotonic(t *testing.T) {
	st := store.NewMemoryStore()
	vec := []float32{1, 0, 0}
	putTool(t, st, model.ToolRecord{ToolID: "cold", ToolName: "cold", UsageCount: 0, Rating: 3, DescriptionEmbedding: vec})
	putTool(t, st, model.ToolRecord{ToolID: "hot", ToolName: "hot", UsageCount: 2000, Rating: 3, DescriptionEmbedding: vec})

	results, err := newTestRanker(t, st, fixedEmbedder(vec)).Search(context.Background(), "anything", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len = %d, want 2", len(results))
	}
	if results[0].Tool.ToolID != "hot" {
		t.Fatalf("first = %s, want hot", results[0].Tool.ToolID)
	}
	if results[0].PopularityScore != 1 {
		t.Fatalf("PopularityScore = %v, want capped 1", results[0].PopularityScore)
	}
	if math.Abs(results[0].RelevanceScore-1) > 1e-6 {
		t.Fatalf("RelevanceScore = %v, want 1", results[0].RelevanceScore)
	}
}

func TestRanker_TopK(t *testing.T) {
	st := store.NewMemoryStore()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		putTool(t, st, model.ToolRecord{ToolID: id, DescriptionEmbedding: []float32{1, 1}})
	}
	r := newTestRanker(t, st, fixedEmbedder{1, 1})

	results, err := r.Search(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len = %d, want 3", len(results))
	}

	small := store.NewMemoryStore()
	putTool(t, small, model.ToolRecord{ToolID: "only", DescriptionEmbedding: []float32{1, 1}})
	results, err = newTestRanker(t, small, fixedEmbedder{1, 1}).Search(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len = %d, want 1", len(results))
	}
}

func TestRanker_InvalidTopK(t *testing.T) {
	r := newTestRanker(t, store.NewMemoryStore(), fixedEmbedder{1})
	for _, k := range []int{0, -1} {
		if _, err := r.Search(context.Background(), "q", k); !errors.Is(err, ErrInvalidTopK) {
			t.Fatalf("Search(topK=%d) error = %v, want ErrInvalidTopK", k, err)
		}
	}
}

func TestRanker_SemanticOrder(t *testing.T) {
	st := store.NewMemoryStore()
	emb := semantic.NewHashEmbedder(0)
	r := newTestRanker(t, st, emb)
	ctx := context.Background()

	tools := []model.ToolRecord{
		{ToolID: "pay", ToolName: "payments", Description: "Create invoices and refund card payments"},
		{ToolID: "wx", ToolName: "weather", Description: "Current weather forecast for any city"},
	}
	for _, tool := range tools {
		putTool(t, st, tool)
		if _, err := r.IndexTool(ctx, tool); err != nil {
			t.Fatalf("IndexTool() error = %v", err)
		}
	}

	results, err := r.Search(ctx, "weather forecast", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].Tool.ToolID != "wx" {
		t.Fatalf("results = %+v, want weather tool", results)
	}
}

func TestRanker_IndexToolPartialUpdate(t *testing.T) {
	st := store.NewMemoryStore()
	r := newTestRanker(t, st, fixedEmbedder{0.6, 0.8})
	ctx := context.Background()

	tool := model.ToolRecord{ToolID: "t1", ToolName: "demo", Description: "demo", UsageCount: 7, Rating: 4.5}
	putTool(t, st, tool)

	results, err := r.Search(ctx, "demo", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("unindexed tool must not be searchable, got %d results", len(results))
	}

	if _, err := r.IndexTool(ctx, tool); err != nil {
		t.Fatalf("IndexTool() error = %v", err)
	}
	doc, err := st.Get(ctx, model.CollectionTools, "t1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	var stored model.ToolRecord
	if err := store.Decode(doc, &stored); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !stored.Searchable() || stored.UsageCount != 7 || stored.Rating != 4.5 || stored.ToolName != "demo" {
		t.Fatalf("stored = %+v, want embedding added and other fields kept", stored)
	}

	results, err = r.Search(ctx, "demo", 5)
	if err != nil || len(results) != 1 {
		t.Fatalf("Search() = %v, %v; want one result", results, err)
	}
}

func TestRanker_IndexToolErrors(t *testing.T) {
	r := newTestRanker(t, store.NewMemoryStore(), fixedEmbedder{1})
	ctx := context.Background()

	if _, err := r.IndexTool(ctx, model.ToolRecord{}); !errors.Is(err, ErrMissingID) {
		t.Fatalf("IndexTool() error = %v, want ErrMissingID", err)
	}
	if _, err := r.IndexTool(ctx, model.ToolRecord{ToolID: "ghost"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("IndexTool() error = %v, want store.ErrNotFound", err)
	}
}

func TestRanker_DimensionCheck(t *testing.T) {
	r, err := NewRanker(Options{Store: store.NewMemoryStore(), Embedder: fixedEmbedder{1, 2}, Dimensions: 3})
	if err != nil {
		t.Fatalf("NewRanker() error = %v", err)
	}
	if _, err := r.Search(context.Background(), "q", 1); !errors.Is(err, semantic.ErrDimensionMismatch) {
		t.Fatalf("Search() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestNewRanker_Invalid(t *testing.T) {
	if _, err := NewRanker(Options{Embedder: fixedEmbedder{1}}); !errors.Is(err, ErrInvalidStore) {
		t.Fatalf("error = %v, want ErrInvalidStore", err)
	}
	if _, err := NewRanker(Options{Store: store.NewMemoryStore()}); !errors.Is(err, semantic.ErrInvalidEmbedder) {
		t.Fatalf("error = %v, want ErrInvalidEmbedder", err)
	}
}
