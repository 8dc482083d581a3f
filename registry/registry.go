package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/jonwraymond/toolfoundation/model"
)

// Config configures a Registry.
type Config struct {
	ServerInfo ServerInfo
	Logger     *zap.Logger
}

// ServerInfo describes this MCP server for initialize response.
type ServerInfo struct {
	Name    string
	Version string
}

type entry struct {
	tool    model.Tool
	handler ToolHandler
}

// Registry is an MCP tool registry that dispatches calls to local
// handlers.
type Registry struct {
	mu     sync.RWMutex
	config Config
	logger *zap.Logger
	tools  map[string]entry
}

// New creates a new Registry with the given config.
func New(cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		config: cfg,
		logger: logger,
		tools:  make(map[string]entry),
	}
}

// RegisterLocal registers a tool with a local execution handler.
func (r *Registry) RegisterLocal(tool model.Tool, handler ToolHandler) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}
	if handler == nil {
		return fmt.Errorf("%w: %s", ErrHandlerNotFound, tool.ToolID())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.ToolID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, tool.ToolID())
	}
	r.tools[tool.ToolID()] = entry{tool: tool, handler: handler}
	return nil
}

// RegisterLocalFunc is a convenience for inline tool definition.
func (r *Registry) RegisterLocalFunc(
	name, description string,
	inputSchema map[string]any,
	handler ToolHandler,
	opts ...LocalToolOption,
) error {
	cfg := applyLocalToolOptions(opts)
	tool := buildLocalTool(name, description, inputSchema, cfg)
	return r.RegisterLocal(tool, handler)
}

// ListAll returns all registered tools ordered by id.
func (r *Registry) ListAll(ctx context.Context) ([]model.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]model.Tool, 0, len(r.tools))
	for _, e := range r.tools {
		tools = append(tools, e.tool)
	}
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].ToolID() < tools[j].ToolID()
	})
	return tools, nil
}

// GetTool returns a tool by id or bare name.
func (r *Registry) GetTool(ctx context.Context, id string) (model.Tool, error) {
	e, ok := r.lookup(id)
	if !ok {
		return model.Tool{}, fmt.Errorf("%w: %s", ErrToolNotFound, id)
	}
	return e.tool, nil
}

// Execute runs a tool by id or bare name with the given arguments.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	e, ok := r.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	if args == nil {
		args = map[string]any{}
	}
	result, err := e.handler(ctx, args)
	if err != nil {
		r.logger.Warn("tool call failed", zap.String("tool", e.tool.ToolID()), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrExecutionFailed, e.tool.ToolID(), err)
	}
	r.logger.Debug("tool call finished", zap.String("tool", e.tool.ToolID()))
	return result, nil
}

// lookup resolves an id first, then a unique bare name.
func (r *Registry) lookup(name string) (entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.tools[name]; ok {
		return e, true
	}
	var (
		found entry
		count int
	)
	for _, e := range r.tools {
		if e.tool.Name == name {
			found = e
			count++
		}
	}
	return found, count == 1
}

// RegistryStats returns registry statistics.
type RegistryStats struct {
	TotalTools int
	Namespaces int
}

// Stats returns registry statistics.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	namespaces := map[string]struct{}{}
	for _, e := range r.tools {
		namespaces[e.tool.Namespace] = struct{}{}
	}
	return RegistryStats{TotalTools: len(r.tools), Namespaces: len(namespaces)}
}
