package tooldoc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lcgani/agent-nexus/model"
	"github.com/lcgani/agent-nexus/store"
)

// Error values for tool generation.
var (
	ErrDiscoveryFailed = errors.New("discovery status does not permit generation")
	ErrInvalidStore    = errors.New("store is required")
)

// Options configures a Generator.
type Options struct {
	Store store.Store

	// SkipWrite builds tools without storing them. The existing-tool
	// lookup still runs.
	SkipWrite bool

	Logger *zap.Logger
	// Now stamps generated_at and updated_at. Default: time.Now.
	Now func() time.Time
}

// Generator builds tools from discovery records.
type Generator struct {
	store     store.Store
	skipWrite bool
	logger    *zap.Logger
	now       func() time.Time
}

// NewGenerator creates a Generator.
func NewGenerator(opts Options) (*Generator, error) {
	if opts.Store == nil {
		return nil, ErrInvalidStore
	}
	g := &Generator{store: opts.Store, skipWrite: opts.SkipWrite, logger: opts.Logger, now: opts.Now}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g, nil
}

// Generate returns the tool for rec, creating and storing it when none
// exists for rec's URL. created reports whether a new tool was built.
func (g *Generator) Generate(ctx context.Context, rec model.DiscoveryRecord) (tool model.ToolRecord, created bool, err error) {
	if !rec.Status.PermitsGeneration() {
		return model.ToolRecord{}, false, fmt.Errorf("%w: %s is %q", ErrDiscoveryFailed, rec.APIURL, rec.Status)
	}
	start := time.Now()

	existing, ok, err := FindTool(ctx, g.store, rec.APIURL)
	if err != nil {
		return model.ToolRecord{}, false, err
	}
	if ok {
		g.logger.Debug("tool already generated", zap.String("tool_id", existing.ToolID), zap.String("api_url", rec.APIURL))
		return existing, false, nil
	}

	artifacts, err := Render(rec)
	if err != nil {
		return model.ToolRecord{}, false, err
	}

	name := apiName(rec)
	now := g.now().UTC().Round(0)
	tool = model.ToolRecord{
		ToolID:            ToolID(name),
		ToolName:          ToolName(name),
		DisplayName:       name,
		Description:       toolDescription(rec),
		APIBaseURL:        rec.BaseURL,
		AuthType:          rec.AuthType,
		GeneratedAt:       now,
		UpdatedAt:         now,
		SourceDiscoveryID: rec.APIURL,
		ToolCode:          artifacts.Client,
		MCPServerCode:     artifacts.MCPServer,
		Readme:            artifacts.Readme,
		EndpointsCount:    rec.TotalEndpoints,
		Tags:              tags(rec),
	}
	if tool.APIBaseURL == "" {
		tool.APIBaseURL = rec.APIURL
	}
	tool.GenerationTimeSeconds = time.Since(start).Seconds()

	if !g.skipWrite {
		doc, err := store.Encode(tool)
		if err != nil {
			return model.ToolRecord{}, false, err
		}
		if err := g.store.Upsert(ctx, model.CollectionTools, tool.ToolID, doc); err != nil {
			return model.ToolRecord{}, false, fmt.Errorf("store tool %s: %w", tool.ToolID, err)
		}
	}
	g.logger.Info("generated tool",
		zap.String("tool_id", tool.ToolID),
		zap.String("tool_name", tool.ToolName),
		zap.Int("endpoints", tool.EndpointsCount),
	)
	return tool, true, nil
}

// FindTool returns the stored tool generated from apiURL.
func FindTool(ctx context.Context, st store.Store, apiURL string) (model.ToolRecord, bool, error) {
	hits, err := st.Search(ctx, model.CollectionTools, store.Query{
		Filters: []store.Filter{store.Term("source_api_discovery_id", model.NormalizeURL(apiURL))},
		Size:    1,
	})
	if err != nil {
		return model.ToolRecord{}, false, fmt.Errorf("lookup tool: %w", err)
	}
	if len(hits) == 0 {
		return model.ToolRecord{}, false, nil
	}
	var tool model.ToolRecord
	if err := hits[0].Decode(&tool); err != nil {
		return model.ToolRecord{}, false, fmt.Errorf("decode tool: %w", err)
	}
	return tool, true, nil
}

func apiName(rec model.DiscoveryRecord) string {
	if rec.APIName != "" {
		return rec.APIName
	}
	return rec.APIURL
}

// toolDescription is the text embedded for search. It falls back to the
// API name when the discovery carried no description.
func toolDescription(rec model.DiscoveryRecord) string {
	if rec.APIDescription != "" {
		return rec.APIDescription
	}
	return apiName(rec) + " API"
}

func tags(rec model.DiscoveryRecord) []string {
	source := "probed"
	if rec.HasOpenAPISpec {
		source = "openapi"
	}
	out := []string{source}
	if rec.AuthType != "" {
		out = append(out, "auth:"+string(rec.AuthType))
	}
	return out
}
