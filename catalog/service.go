package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lcgani/agent-nexus/discovery"
	"github.com/lcgani/agent-nexus/model"
	"github.com/lcgani/agent-nexus/search"
	"github.com/lcgani/agent-nexus/semantic"
	"github.com/lcgani/agent-nexus/store"
	"github.com/lcgani/agent-nexus/tooldoc"
	"github.com/lcgani/agent-nexus/usage"
)

// Error values returned by the service.
var (
	ErrInvalidStore  = errors.New("store is required")
	ErrNotDiscovered = errors.New("api has not been discovered")
	ErrToolNotFound  = errors.New("tool not found")
	ErrEmptyRequest  = errors.New("request is empty")
)

// PlanSize is the number of tools recommended by Plan.
const PlanSize = 3

// Metrics receives discovery and search observations.
type Metrics interface {
	discovery.Metrics
	search.Metrics
}

// Options configures a Service.
type Options struct {
	Store store.Store

	// Embedder computes description and query vectors.
	// Default: semantic.NewHashEmbedder(Dimensions).
	Embedder semantic.Embedder
	// Dimensions is the embedding width. Default: semantic.Dimensions.
	Dimensions int

	// Discovery configures the discovery engine. Its Store, Logger and
	// Metrics are filled from these options.
	Discovery discovery.Options

	// NumCandidates is the vector neighbor count. Default: 100.
	NumCandidates int
	Keyword       search.KeywordConfig

	// SkipIndex disables every store write. Reads still consult the store.
	SkipIndex bool

	Logger  *zap.Logger
	Metrics Metrics
	// Now stamps records. Default: time.Now.
	Now func() time.Time
}

// Service is the catalog facade.
type Service struct {
	store     store.Store
	skipIndex bool
	dims      int
	logger    *zap.Logger

	discovery *discovery.Engine
	generator *tooldoc.Generator
	ranker    *search.Ranker
	keyword   *search.KeywordSearcher
	usage     *usage.Recorder
}

// OnboardResult is the outcome of Onboard.
type OnboardResult struct {
	Discovery model.DiscoveryRecord
	Tool      model.ToolRecord
	// Created reports whether the tool was generated by this call.
	Created bool
}

// Plan recommends tools for a free-text request.
type Plan struct {
	Request          string   `json:"request"`
	RecommendedTools []string `json:"recommended_tools"`
	Status           string   `json:"status"`
}

// New creates a Service.
func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, ErrInvalidStore
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dims := opts.Dimensions
	if dims <= 0 {
		dims = semantic.Dimensions
	}
	embedder := opts.Embedder
	if embedder == nil {
		embedder = semantic.NewHashEmbedder(dims)
	}

	dopts := opts.Discovery
	dopts.Store = opts.Store
	if dopts.Logger == nil {
		dopts.Logger = logger.Named("discovery")
	}
	if dopts.Metrics == nil && opts.Metrics != nil {
		dopts.Metrics = opts.Metrics
	}
	if dopts.Now == nil {
		dopts.Now = opts.Now
	}
	engine, err := discovery.New(dopts)
	if err != nil {
		return nil, fmt.Errorf("create discovery engine: %w", err)
	}

	generator, err := tooldoc.NewGenerator(tooldoc.Options{
		Store:     opts.Store,
		SkipWrite: opts.SkipIndex,
		Logger:    logger.Named("tooldoc"),
		Now:       opts.Now,
	})
	if err != nil {
		return nil, err
	}

	var searchMetrics search.Metrics
	if opts.Metrics != nil {
		searchMetrics = opts.Metrics
	}
	ranker, err := search.NewRanker(search.Options{
		Store:         opts.Store,
		Embedder:      embedder,
		NumCandidates: opts.NumCandidates,
		Dimensions:    dims,
		Logger:        logger.Named("search"),
		Metrics:       searchMetrics,
	})
	if err != nil {
		return nil, err
	}
	keyword, err := search.NewKeywordSearcher(search.KeywordOptions{
		Store:   opts.Store,
		Config:  opts.Keyword,
		Logger:  logger.Named("keyword"),
		Metrics: searchMetrics,
	})
	if err != nil {
		return nil, err
	}
	recorder, err := usage.NewRecorder(usage.Options{
		Store:  opts.Store,
		Logger: logger.Named("usage"),
		Now:    opts.Now,
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		store:     opts.Store,
		skipIndex: opts.SkipIndex,
		dims:      dims,
		logger:    logger,
		discovery: engine,
		generator: generator,
		ranker:    ranker,
		keyword:   keyword,
		usage:     recorder,
	}, nil
}

// Setup creates the catalog collections when the store supports it. It
// returns the names of the collections that were created.
func (s *Service) Setup(ctx context.Context) ([]string, error) {
	initializer, ok := s.store.(store.Initializer)
	if !ok {
		return nil, nil
	}
	created, err := initializer.Init(ctx, Collections(s.dims))
	if err != nil {
		return created, fmt.Errorf("create collections: %w", err)
	}
	return created, nil
}

// Discover returns the discovery record for apiURL and persists it under
// its document id.
func (s *Service) Discover(ctx context.Context, apiURL string) (model.DiscoveryRecord, error) {
	rec, err := s.discovery.Discover(ctx, apiURL)
	if err != nil {
		return model.DiscoveryRecord{}, err
	}
	if s.skipIndex {
		return rec, nil
	}
	doc, err := store.Encode(rec)
	if err != nil {
		return model.DiscoveryRecord{}, err
	}
	id := model.DocumentID(rec.APIURL)
	if err := s.store.Upsert(ctx, model.CollectionDiscoveries, id, doc); err != nil {
		s.logger.Error("failed to store discovery", zap.String("api_url", rec.APIURL), zap.Error(err))
		return model.DiscoveryRecord{}, fmt.Errorf("store discovery %s: %w", id, err)
	}
	return rec, nil
}

// Discovery loads the stored discovery record for apiURL.
func (s *Service) Discovery(ctx context.Context, apiURL string) (model.DiscoveryRecord, error) {
	normalized, _, err := model.ParseAPIURL(apiURL)
	if err != nil {
		return model.DiscoveryRecord{}, err
	}
	doc, err := s.store.Get(ctx, model.CollectionDiscoveries, model.DocumentID(normalized))
	switch {
	case err == nil:
		var rec model.DiscoveryRecord
		if err := store.Decode(doc, &rec); err != nil {
			return model.DiscoveryRecord{}, err
		}
		return rec, nil
	case !errors.Is(err, store.ErrNotFound):
		return model.DiscoveryRecord{}, fmt.Errorf("load discovery: %w", err)
	}

	rec, ok, err := discovery.LookupRecord(ctx, s.store, normalized)
	if err != nil {
		return model.DiscoveryRecord{}, err
	}
	if !ok {
		return model.DiscoveryRecord{}, fmt.Errorf("%w: %s", ErrNotDiscovered, normalized)
	}
	return rec, nil
}

// Generate builds the tool for a previously discovered apiURL.
func (s *Service) Generate(ctx context.Context, apiURL string) (model.ToolRecord, bool, error) {
	rec, err := s.Discovery(ctx, apiURL)
	if err != nil {
		return model.ToolRecord{}, false, err
	}
	return s.generate(ctx, rec)
}

// Onboard discovers apiURL and generates its tool. A failed discovery is
// returned in the result together with tooldoc.ErrDiscoveryFailed.
func (s *Service) Onboard(ctx context.Context, apiURL string) (OnboardResult, error) {
	rec, err := s.Discover(ctx, apiURL)
	if err != nil {
		return OnboardResult{}, err
	}
	res := OnboardResult{Discovery: rec}
	res.Tool, res.Created, err = s.generate(ctx, rec)
	if err != nil {
		return res, err
	}
	return res, nil
}

func (s *Service) generate(ctx context.Context, rec model.DiscoveryRecord) (model.ToolRecord, bool, error) {
	tool, created, err := s.generator.Generate(ctx, rec)
	if err != nil {
		return model.ToolRecord{}, false, err
	}
	if s.skipIndex || tool.Searchable() {
		return tool, created, nil
	}
	vec, err := s.ranker.IndexTool(ctx, tool)
	if err != nil {
		return model.ToolRecord{}, false, err
	}
	tool.DescriptionEmbedding = vec
	return tool, created, nil
}

// Tool loads a stored tool by id.
func (s *Service) Tool(ctx context.Context, toolID string) (model.ToolRecord, error) {
	doc, err := s.store.Get(ctx, model.CollectionTools, toolID)
	if errors.Is(err, store.ErrNotFound) {
		return model.ToolRecord{}, fmt.Errorf("%w: %s", ErrToolNotFound, toolID)
	}
	if err != nil {
		return model.ToolRecord{}, fmt.Errorf("load tool: %w", err)
	}
	var tool model.ToolRecord
	if err := store.Decode(doc, &tool); err != nil {
		return model.ToolRecord{}, err
	}
	return tool, nil
}

// Search ranks tools by semantic relevance and usage signals.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]model.SearchResult, error) {
	return s.ranker.Search(ctx, query, topK)
}

// SearchKeyword ranks tools by keyword relevance and usage signals.
func (s *Service) SearchKeyword(ctx context.Context, query string, topK int) ([]model.SearchResult, error) {
	return s.keyword.Search(ctx, query, topK)
}

// Plan recommends the best matching tools for request.
func (s *Service) Plan(ctx context.Context, request string) (Plan, error) {
	if strings.TrimSpace(request) == "" {
		return Plan{}, ErrEmptyRequest
	}
	results, err := s.Search(ctx, request, PlanSize)
	if err != nil {
		return Plan{}, err
	}
	plan := Plan{Request: request, RecommendedTools: make([]string, 0, len(results)), Status: "planned"}
	for _, r := range results {
		plan.RecommendedTools = append(plan.RecommendedTools, r.Tool.ToolName)
	}
	s.logger.Info("planned request", zap.String("request", request), zap.Strings("tools", plan.RecommendedTools))
	return plan, nil
}

// Usage returns the usage recorder sharing the service store.
func (s *Service) Usage() *usage.Recorder {
	return s.usage
}

// Close releases the keyword index.
func (s *Service) Close() error {
	return s.keyword.Close()
}
