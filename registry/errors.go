package registry

import (
	"errors"

	"github.com/lcgani/agent-nexus/catalog"
	"github.com/lcgani/agent-nexus/model"
	"github.com/lcgani/agent-nexus/search"
	"github.com/lcgani/agent-nexus/usage"
)

// Sentinel errors for consistent error handling.
var (
	ErrToolNotFound    = errors.New("tool not found")
	ErrDuplicateTool   = errors.New("tool already registered")
	ErrHandlerNotFound = errors.New("handler not found")
	ErrExecutionFailed = errors.New("tool execution failed")
	ErrInvalidRequest  = errors.New("invalid request")
)

// JSON-RPC 2.0 error codes, plus MCP tool codes.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603
	ErrCodeToolNotFound   = -32001
	ErrCodeToolExecFailed = -32002
)

// invalidArguments are errors caused by the caller's arguments rather
// than by the catalog.
var invalidArguments = []error{
	ErrInvalidRequest,
	model.ErrInvalidURL,
	search.ErrInvalidTopK,
	catalog.ErrEmptyRequest,
	usage.ErrMissingToolID,
	usage.ErrInvalidRating,
}

// callErrorCode maps a tools/call failure to its JSON-RPC code.
func callErrorCode(err error) int {
	if errors.Is(err, ErrToolNotFound) {
		return ErrCodeToolNotFound
	}
	for _, target := range invalidArguments {
		if errors.Is(err, target) {
			return ErrCodeInvalidParams
		}
	}
	return ErrCodeToolExecFailed
}
