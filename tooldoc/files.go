package tooldoc

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lcgani/agent-nexus/model"
)

// WriteFiles writes the generated artifacts of tool under dir and returns
// the written paths. The client stub lands in <tool_name>/client.go, the
// MCP server in <tool_name>/cmd/main.go and the README next to the client.
func WriteFiles(dir string, tool model.ToolRecord) ([]string, error) {
	if tool.ToolName == "" {
		return nil, fmt.Errorf("write artifacts: tool name is empty")
	}
	root := filepath.Join(dir, tool.ToolName)
	files := []struct {
		path, body string
	}{
		{filepath.Join(root, "client.go"), tool.ToolCode},
		{filepath.Join(root, "cmd", "main.go"), tool.MCPServerCode},
		{filepath.Join(root, "README.md"), tool.Readme},
	}

	var written []string
	for _, f := range files {
		if f.body == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
			return written, fmt.Errorf("write artifacts: %w", err)
		}
		if err := os.WriteFile(f.path, []byte(f.body), 0o644); err != nil {
			return written, fmt.Errorf("write artifacts: %w", err)
		}
		written = append(written, f.path)
	}
	return written, nil
}
