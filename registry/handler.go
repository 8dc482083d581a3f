package registry

import (
	"context"

	"github.com/jonwraymond/toolfoundation/model"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolHandler runs one tool call. The returned value becomes the structured
// content of the result.
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// LocalToolOption configures local tool registration.
type LocalToolOption func(*localToolConfig)

type localToolConfig struct {
	namespace   string
	tags        []string
	annotations *mcp.ToolAnnotations
}

func (c *localToolConfig) annotate() *mcp.ToolAnnotations {
	if c.annotations == nil {
		c.annotations = &mcp.ToolAnnotations{}
	}
	return c.annotations
}

// WithNamespace sets the namespace for a local tool.
func WithNamespace(ns string) LocalToolOption {
	return func(c *localToolConfig) {
		c.namespace = ns
	}
}

// WithTags sets the tags for a local tool.
func WithTags(tags ...string) LocalToolOption {
	return func(c *localToolConfig) {
		c.tags = tags
	}
}

// WithReadOnly marks a tool that only reads the catalog. Read-only tools
// are also idempotent.
func WithReadOnly() LocalToolOption {
	return func(c *localToolConfig) {
		a := c.annotate()
		a.ReadOnlyHint = true
		a.IdempotentHint = true
	}
}

// WithOpenWorld marks a tool that sends requests to hosts outside the
// catalog.
func WithOpenWorld() LocalToolOption {
	return func(c *localToolConfig) {
		open := true
		c.annotate().OpenWorldHint = &open
	}
}

func applyLocalToolOptions(opts []LocalToolOption) localToolConfig {
	cfg := localToolConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func buildLocalTool(name, description string, inputSchema map[string]any, cfg localToolConfig) model.Tool {
	return model.Tool{
		Tool: mcp.Tool{
			Name:        name,
			Description: description,
			InputSchema: inputSchema,
			Annotations: cfg.annotations,
		},
		Namespace: cfg.namespace,
		Tags:      model.NormalizeTags(cfg.tags),
	}
}

func annotationsMap(ann *mcp.ToolAnnotations) map[string]any {
	if ann == nil {
		return nil
	}
	out := map[string]any{
		"readOnlyHint":   ann.ReadOnlyHint,
		"idempotentHint": ann.IdempotentHint,
	}
	if ann.OpenWorldHint != nil {
		out["openWorldHint"] = *ann.OpenWorldHint
	}
	if ann.DestructiveHint != nil {
		out["destructiveHint"] = *ann.DestructiveHint
	}
	return out
}
