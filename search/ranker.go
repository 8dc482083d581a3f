package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lcgani/agent-nexus/model"
	"github.com/lcgani/agent-nexus/semantic"
	"github.com/lcgani/agent-nexus/store"
)

// Error values for ranking.
var (
	ErrInvalidTopK  = errors.New("topK must be at least 1")
	ErrInvalidStore = errors.New("store is required")
	ErrMissingID    = errors.New("tool id is required")
)

// DefaultNumCandidates is the number of nearest neighbors fetched before
// reranking.
const DefaultNumCandidates = 100

// ResultFields are the tool fields loaded for ranking.
var ResultFields = []string{
	"tool_id", "tool_name", "display_name", "description",
	"api_base_url", "auth_type", "usage_count", "rating",
	"review_count", "is_verified", "last_used", "endpoints_count",
	"categories", "tags", "source_api_discovery_id",
}

// Metrics receives search observations. Mode is "vector" or "keyword".
type Metrics interface {
	ObserveSearch(mode string, results int, elapsed time.Duration)
}

// Options configures a Ranker.
type Options struct {
	Store    store.Store
	Embedder semantic.Embedder

	// NumCandidates is the neighbor count requested from the store.
	// Default: 100. It is raised to topK when smaller.
	NumCandidates int

	// Dimensions, when positive, is enforced on every embedding.
	Dimensions int

	Logger  *zap.Logger
	Metrics Metrics
}

// Ranker performs vector search with composite reranking.
type Ranker struct {
	store         store.Store
	embedder      semantic.Embedder
	numCandidates int
	dims          int
	logger        *zap.Logger
	metrics       Metrics
}

// NewRanker creates a Ranker.
func NewRanker(opts Options) (*Ranker, error) {
	if opts.Store == nil {
		return nil, ErrInvalidStore
	}
	if opts.Embedder == nil {
		return nil, semantic.ErrInvalidEmbedder
	}
	n := opts.NumCandidates
	if n <= 0 {
		n = DefaultNumCandidates
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{
		store:         opts.Store,
		embedder:      opts.Embedder,
		numCandidates: n,
		dims:          opts.Dimensions,
		logger:        logger,
		metrics:       opts.Metrics,
	}, nil
}

// Search returns at most topK tools ordered by composite score.
func (r *Ranker) Search(ctx context.Context, query string, topK int) ([]model.SearchResult, error) {
	if topK < 1 {
		return nil, ErrInvalidTopK
	}
	start := time.Now()

	vec, err := r.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	k := max(r.numCandidates, topK)
	hits, err := r.store.Search(ctx, model.CollectionTools, store.Query{
		KNN: &store.KNN{
			Field:         model.EmbeddingField,
			Vector:        vec,
			K:             k,
			NumCandidates: k,
		},
		Size:   k,
		Fields: ResultFields,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]model.SearchResult, 0, len(hits))
	for _, h := range hits {
		var tool model.ToolRecord
		if err := h.Decode(&tool); err != nil {
			return nil, fmt.Errorf("decode tool %s: %w", h.ID, err)
		}
		if tool.ToolID == "" {
			tool.ToolID = h.ID
		}
		results = append(results, Score(tool, h.Score))
	}
	results = Rank(results, topK)

	r.logger.Debug("vector search",
		zap.String("query", query),
		zap.Int("candidates", len(hits)),
		zap.Int("results", len(results)),
	)
	if r.metrics != nil {
		r.metrics.ObserveSearch("vector", len(results), time.Since(start))
	}
	return results, nil
}

// IndexTool embeds the tool description and stores it on the tool. Only
// the embedding field is written.
func (r *Ranker) IndexTool(ctx context.Context, tool model.ToolRecord) ([]float32, error) {
	if tool.ToolID == "" {
		return nil, ErrMissingID
	}
	vec, err := r.embed(ctx, tool.Description)
	if err != nil {
		return nil, err
	}
	err = r.store.PartialUpdate(ctx, model.CollectionTools, tool.ToolID, store.Document{
		model.EmbeddingField: vec,
	})
	if err != nil {
		return nil, fmt.Errorf("index tool %s: %w", tool.ToolID, err)
	}
	r.logger.Info("indexed tool", zap.String("tool_id", tool.ToolID), zap.String("tool_name", tool.ToolName))
	return vec, nil
}

func (r *Ranker) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if err := semantic.CheckDimensions(vec, r.dims); err != nil {
		return nil, err
	}
	return vec, nil
}
