// Package tooldoc generates catalog tools from discovered APIs.
//
// A [Generator] turns a [model.DiscoveryRecord] into a [model.ToolRecord]
// with three text artifacts rendered from embedded templates: a Go client
// stub, a Go MCP server stub, and a README listing the endpoints. The
// artifacts are scaffolding for a developer; they are not expected to work
// unmodified against the target API.
//
// Generation is find-or-create keyed on the source API URL: when a tool
// for that URL is already stored it is returned unchanged. A discovery
// with status failed is refused with [ErrDiscoveryFailed].
//
// # Naming
//
//   - [ToolID]: first 12 hex characters of the MD5 of the API name
//   - [SnakeCase]: tool_name form of the API name
//   - [ClassName]: exported Go identifier form of the API name
//
// # Error Handling
//
//   - [ErrDiscoveryFailed]: the discovery does not permit generation
//   - [ErrInvalidStore]: a Generator was created without a store
package tooldoc
