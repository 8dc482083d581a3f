// Package registry serves catalog operations to agents over the Model
// Context Protocol.
//
// A Registry holds tool definitions (toolfoundation model.Tool values)
// with local handlers and answers the MCP JSON-RPC methods initialize,
// ping, tools/list and tools/call. RegisterCatalog exposes a
// catalog.Service as the tools discover_api, generate_tool, onboard_api,
// search_tools, plan_request, get_tool, record_usage and rate_tool.
//
// Example usage:
//
//	reg := registry.New(registry.Config{
//	    ServerInfo: registry.ServerInfo{Name: "agent-nexus", Version: "0.1.0"},
//	})
//	if err := registry.RegisterCatalog(reg, svc, 5); err != nil {
//	    return err
//	}
//	return registry.ServeStdio(ctx, reg)
//
// Transports: newline-delimited stdio (Serve, ServeStdio), single-response
// HTTP POST (ServeHTTP) and a one-event SSE stream (ServeSSE).
package registry
