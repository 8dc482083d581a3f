package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/lcgani/agent-nexus/model"
	"github.com/lcgani/agent-nexus/store"
)

// KeywordConfig tunes lexical ranking.
type KeywordConfig struct {
	// NameBoost weights tool and display name matches. Default: 3.
	NameBoost float64
	// TagsBoost weights tag and category matches. Default: 2.
	TagsBoost float64
	// MaxDocs caps the number of tools loaded. Default: 1000.
	MaxDocs int
	// MaxDocTextLen truncates descriptions to this many runes before
	// indexing. 0 means no limit.
	MaxDocTextLen int
}

func (c KeywordConfig) withDefaults() KeywordConfig {
	if c.NameBoost <= 0 {
		c.NameBoost = 3
	}
	if c.TagsBoost <= 0 {
		c.TagsBoost = 2
	}
	if c.MaxDocs <= 0 {
		c.MaxDocs = 1000
	}
	return c
}

// KeywordOptions configures a KeywordSearcher.
type KeywordOptions struct {
	Store   store.Store
	Config  KeywordConfig
	Logger  *zap.Logger
	Metrics Metrics
}

// KeywordSearcher ranks stored tools with BM25 over their names,
// descriptions, and tags.
type KeywordSearcher struct {
	store   store.Store
	cfg     KeywordConfig
	logger  *zap.Logger
	metrics Metrics

	mu          sync.RWMutex
	index       bleve.Index
	fingerprint string
	tools       map[string]model.ToolRecord
	order       []string
}

// NewKeywordSearcher creates a KeywordSearcher.
func NewKeywordSearcher(opts KeywordOptions) (*KeywordSearcher, error) {
	if opts.Store == nil {
		return nil, ErrInvalidStore
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeywordSearcher{
		store:   opts.Store,
		cfg:     opts.Config.withDefaults(),
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Search returns at most topK tools matching q. An empty query ranks all
// loaded tools by popularity and rating alone.
func (k *KeywordSearcher) Search(ctx context.Context, q string, topK int) ([]model.SearchResult, error) {
	if topK < 1 {
		return nil, ErrInvalidTopK
	}
	start := time.Now()

	if err := k.refresh(ctx); err != nil {
		return nil, err
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	var results []model.SearchResult
	if strings.TrimSpace(q) == "" {
		results = make([]model.SearchResult, 0, len(k.order))
		for _, id := range k.order {
			results = append(results, Score(k.tools[id], 0))
		}
	} else {
		req := bleve.NewSearchRequestOptions(k.buildQuery(q), k.cfg.MaxDocs, 0, false)
		req.SortBy([]string{"-_score", "_id"})
		res, err := k.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("keyword search: %w", err)
		}

		var best float64
		for _, h := range res.Hits {
			best = max(best, h.Score)
		}
		results = make([]model.SearchResult, 0, len(res.Hits))
		for _, h := range res.Hits {
			tool, ok := k.tools[h.ID]
			if !ok {
				continue
			}
			relevance := 0.0
			if best > 0 {
				relevance = h.Score / best
			}
			results = append(results, Score(tool, relevance))
		}
	}
	results = Rank(results, topK)

	if k.metrics != nil {
		k.metrics.ObserveSearch("keyword", len(results), time.Since(start))
	}
	return results, nil
}

// Close releases the cached index.
func (k *KeywordSearcher) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.index == nil {
		return nil
	}
	err := k.index.Close()
	k.index = nil
	k.fingerprint = ""
	return err
}

func (k *KeywordSearcher) buildQuery(q string) query.Query {
	match := func(field string, boost float64) query.Query {
		mq := bleve.NewMatchQuery(q)
		mq.SetField(field)
		mq.SetBoost(boost)
		return mq
	}
	return bleve.NewDisjunctionQuery(
		match("name", k.cfg.NameBoost),
		match("display_name", k.cfg.NameBoost),
		match("description", 1),
		match("tags", k.cfg.TagsBoost),
	)
}

// refresh reloads tools from the store and rebuilds the index when their
// fingerprint changed.
func (k *KeywordSearcher) refresh(ctx context.Context) error {
	hits, err := k.store.Search(ctx, model.CollectionTools, store.Query{
		Size:   k.cfg.MaxDocs,
		Fields: ResultFields,
	})
	if err != nil {
		return fmt.Errorf("load tools: %w", err)
	}

	tools := make([]model.ToolRecord, 0, len(hits))
	for _, h := range hits {
		var t model.ToolRecord
		if err := h.Decode(&t); err != nil {
			return fmt.Errorf("decode tool %s: %w", h.ID, err)
		}
		if t.ToolID == "" {
			t.ToolID = h.ID
		}
		tools = append(tools, t)
	}
	byID := make(map[string]model.ToolRecord, len(tools))
	order := make([]string, 0, len(tools))
	for _, t := range tools {
		if _, dup := byID[t.ToolID]; !dup {
			order = append(order, t.ToolID)
		}
		byID[t.ToolID] = t
	}
	fp := computeFingerprint(tools)

	// Usage and rating signals change without touching the indexed text,
	// so the records are swapped in on every refresh.
	k.mu.Lock()
	current := k.index != nil && k.fingerprint == fp
	if current {
		k.tools, k.order = byID, order
	}
	k.mu.Unlock()
	if current {
		return nil
	}

	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return fmt.Errorf("create keyword index: %w", err)
	}
	batch := idx.NewBatch()
	for _, t := range tools {
		if err := batch.Index(t.ToolID, k.searchDoc(t)); err != nil {
			_ = idx.Close()
			return fmt.Errorf("index tool %s: %w", t.ToolID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return fmt.Errorf("build keyword index: %w", err)
	}

	k.mu.Lock()
	old := k.index
	k.index, k.fingerprint, k.tools, k.order = idx, fp, byID, order
	k.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	k.logger.Debug("keyword index rebuilt", zap.Int("tools", len(tools)))
	return nil
}

func (k *KeywordSearcher) searchDoc(t model.ToolRecord) map[string]any {
	desc := t.Description
	if k.cfg.MaxDocTextLen > 0 {
		if r := []rune(desc); len(r) > k.cfg.MaxDocTextLen {
			desc = string(r[:k.cfg.MaxDocTextLen])
		}
	}
	tags := append(append([]string(nil), t.Tags...), t.Categories...)
	return map[string]any{
		// Underscores would keep snake_case names as single tokens.
		"name":         strings.ReplaceAll(t.ToolName, "_", " "),
		"display_name": t.DisplayName,
		"description":  desc,
		"tags":         strings.Join(tags, " "),
	}
}
