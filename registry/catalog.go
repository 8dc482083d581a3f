package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/lcgani/agent-nexus/catalog"
	"github.com/lcgani/agent-nexus/model"
	"github.com/lcgani/agent-nexus/usage"
)

// CatalogNamespace is the namespace of the catalog tools.
const CatalogNamespace = "catalog"

func objectSchema(required []string, properties map[string]any) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

// RegisterCatalog exposes svc as MCP tools. defaultTopK applies when a
// search call omits top_k.
func RegisterCatalog(r *Registry, svc *catalog.Service, defaultTopK int) error {
	if defaultTopK < 1 {
		defaultTopK = 5
	}
	urlSchema := objectSchema([]string{"url"}, map[string]any{
		"url": prop("string", "Base URL of the HTTP API"),
	})

	tools := []struct {
		name, description string
		schema            map[string]any
		handler           ToolHandler
		tags              []string
		opts              []LocalToolOption
	}{
		{
			opts:        []LocalToolOption{WithOpenWorld()},
			name:        "discover_api",
			description: "Discover the endpoints and auth scheme of an HTTP API from its OpenAPI document or by probing.",
			schema:      urlSchema,
			tags:        []string{"discovery"},
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				u, err := stringArg(args, "url", true)
				if err != nil {
					return nil, err
				}
				return svc.Discover(ctx, u)
			},
		},
		{
			name:        "generate_tool",
			description: "Generate the catalog tool for an API that was already discovered.",
			schema:      urlSchema,
			tags:        []string{"generation"},
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				u, err := stringArg(args, "url", true)
				if err != nil {
					return nil, err
				}
				tool, created, err := svc.Generate(ctx, u)
				if err != nil {
					return nil, err
				}
				return map[string]any{"tool": summarize(tool), "created": created}, nil
			},
		},
		{
			opts:        []LocalToolOption{WithOpenWorld()},
			name:        "onboard_api",
			description: "Discover an API, generate its tool and make it searchable.",
			schema:      urlSchema,
			tags:        []string{"discovery", "generation"},
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				u, err := stringArg(args, "url", true)
				if err != nil {
					return nil, err
				}
				res, err := svc.Onboard(ctx, u)
				if err != nil {
					return nil, err
				}
				return map[string]any{
					"discovery_status": res.Discovery.Status,
					"total_endpoints":  res.Discovery.TotalEndpoints,
					"tool":             summarize(res.Tool),
					"created":          res.Created,
				}, nil
			},
		},
		{
			opts:        []LocalToolOption{WithReadOnly()},
			name:        "search_tools",
			description: "Find catalog tools for a free-text request, ranked by relevance, usage and rating.",
			schema: objectSchema([]string{"query"}, map[string]any{
				"query": prop("string", "What the agent wants to do"),
				"top_k": prop("integer", "Maximum number of results"),
				"mode":  map[string]any{"type": "string", "enum": []string{"semantic", "keyword"}},
			}),
			tags: []string{"search"},
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				q, err := stringArg(args, "query", true)
				if err != nil {
					return nil, err
				}
				topK, err := intArg(args, "top_k", defaultTopK)
				if err != nil {
					return nil, err
				}
				mode, err := stringArg(args, "mode", false)
				if err != nil {
					return nil, err
				}
				var results []model.SearchResult
				switch mode {
				case "", "semantic":
					results, err = svc.Search(ctx, q, topK)
				case "keyword":
					results, err = svc.SearchKeyword(ctx, q, topK)
				default:
					return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, mode)
				}
				if err != nil {
					return nil, err
				}
				return map[string]any{"results": results}, nil
			},
		},
		{
			opts:        []LocalToolOption{WithReadOnly()},
			name:        "plan_request",
			description: "Recommend the best catalog tools for a request.",
			schema: objectSchema([]string{"request"}, map[string]any{
				"request": prop("string", "The task to plan"),
			}),
			tags: []string{"search"},
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				req, err := stringArg(args, "request", true)
				if err != nil {
					return nil, err
				}
				return svc.Plan(ctx, req)
			},
		},
		{
			opts:        []LocalToolOption{WithReadOnly()},
			name:        "get_tool",
			description: "Return a catalog tool with its generated artifacts.",
			schema: objectSchema([]string{"tool_id"}, map[string]any{
				"tool_id": prop("string", "Catalog tool id"),
			}),
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				id, err := stringArg(args, "tool_id", true)
				if err != nil {
					return nil, err
				}
				tool, err := svc.Tool(ctx, id)
				if err != nil {
					return nil, err
				}
				tool.DescriptionEmbedding = nil
				return tool, nil
			},
		},
		{
			name:        "record_usage",
			description: "Report one execution of a catalog tool.",
			schema: objectSchema([]string{"tool_id", "success"}, map[string]any{
				"tool_id":    prop("string", "Catalog tool id"),
				"success":    prop("boolean", "Whether the call succeeded"),
				"latency_ms": prop("number", "Execution time in milliseconds"),
				"user_query": prop("string", "Request that led to the call"),
				"error":      prop("string", "Error text for failed calls"),
				"agent_id":   prop("string", "Calling agent"),
			}),
			tags: []string{"usage"},
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				exec, err := executionArgs(args)
				if err != nil {
					return nil, err
				}
				return svc.Usage().Record(ctx, exec)
			},
		},
		{
			name:        "rate_tool",
			description: "Rate a catalog tool from 0 to 5.",
			schema: objectSchema([]string{"tool_id", "rating"}, map[string]any{
				"tool_id": prop("string", "Catalog tool id"),
				"rating":  prop("number", "Rating between 0 and 5"),
			}),
			tags: []string{"usage"},
			handler: func(ctx context.Context, args map[string]any) (any, error) {
				id, err := stringArg(args, "tool_id", true)
				if err != nil {
					return nil, err
				}
				rating, ok := args["rating"].(float64)
				if !ok {
					return nil, fmt.Errorf("%w: rating must be a number", ErrInvalidRequest)
				}
				mean, reviews, err := svc.Usage().Rate(ctx, id, rating)
				if err != nil {
					return nil, err
				}
				return map[string]any{"tool_id": id, "rating": mean, "review_count": reviews}, nil
			},
		},
	}

	for _, t := range tools {
		opts := append([]LocalToolOption{WithNamespace(CatalogNamespace), WithTags(t.tags...)}, t.opts...)
		err := r.RegisterLocalFunc(t.name, t.description, t.schema, t.handler, opts...)
		if err != nil {
			return fmt.Errorf("register %s: %w", t.name, err)
		}
	}
	return nil
}

// summarize drops the embedding and generated code from a tool.
func summarize(tool model.ToolRecord) map[string]any {
	return map[string]any{
		"tool_id":         tool.ToolID,
		"tool_name":       tool.ToolName,
		"display_name":    tool.DisplayName,
		"description":     tool.Description,
		"api_base_url":    tool.APIBaseURL,
		"auth_type":       tool.AuthType,
		"endpoints_count": tool.EndpointsCount,
	}
}

func executionArgs(args map[string]any) (usage.Execution, error) {
	id, err := stringArg(args, "tool_id", true)
	if err != nil {
		return usage.Execution{}, err
	}
	success, ok := args["success"].(bool)
	if !ok {
		return usage.Execution{}, fmt.Errorf("%w: success must be a boolean", ErrInvalidRequest)
	}
	exec := usage.Execution{ToolID: id, Success: success}
	if v, ok := args["latency_ms"].(float64); ok {
		exec.Latency = time.Duration(v * float64(time.Millisecond))
	}
	for key, dst := range map[string]*string{
		"user_query": &exec.UserQuery,
		"error":      &exec.Error,
		"agent_id":   &exec.AgentID,
	} {
		if *dst, err = stringArg(args, key, false); err != nil {
			return usage.Execution{}, err
		}
	}
	return exec, nil
}

func stringArg(args map[string]any, key string, required bool) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("%w: %s is required", ErrInvalidRequest, key)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidRequest, key)
	}
	if required && s == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidRequest, key)
	}
	return s, nil
}

func intArg(args map[string]any, key string, def int) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	f, ok := v.(float64)
	if !ok || f != float64(int(f)) {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidRequest, key)
	}
	return int(f), nil
}
