package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/lcgani/agent-nexus/catalog"
	"github.com/lcgani/agent-nexus/model"
	"github.com/lcgani/agent-nexus/usage"
)

const weatherSpec = `{
  "openapi": "3.0.0",
  "info": {"title": "Weather Service", "description": "Current weather and forecasts"},
  "components": {"securitySchemes": {"key": {"type": "apiKey", "in": "header", "name": "X-Key"}}},
  "paths": {"/forecast": {"get": {"summary": "Get forecast"}}}
}`

// testEnv writes a bolt-backed config into a scratch directory.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	cfg := "store:\n  backend: bolt\n  boltPath: " + filepath.Join(dir, "catalog.db") + "\nlog:\n  level: error\n"
	path := filepath.Join(dir, "agent-nexus.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func run(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if cfg != "" {
		args = append([]string{"--config", cfg}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func weatherServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openapi.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(weatherSpec))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCLI_GenerateSearchPlan(t *testing.T) {
	cfg := testEnv(t)
	srv := weatherServer(t)

	out, err := run(t, cfg, "setup")
	if err != nil {
		t.Fatalf("setup error = %v", err)
	}
	if !strings.Contains(out, model.CollectionTools) {
		t.Fatalf("setup output = %q", out)
	}

	outDir := filepath.Join(t.TempDir(), "tools")
	out, err = run(t, cfg, "generate", srv.URL, "--output-dir", outDir)
	if err != nil {
		t.Fatalf("generate error = %v, output %q", err, out)
	}
	if !strings.Contains(out, "✓ weather_service") {
		t.Fatalf("generate output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(outDir, "weather_service", "client.go")); err != nil {
		t.Fatalf("client.go missing: %v", err)
	}

	out, err = run(t, cfg, "--json", "search", "weather forecast")
	if err != nil {
		t.Fatalf("search error = %v", err)
	}
	var results []model.SearchResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("search output not JSON: %v\n%s", err, out)
	}
	if len(results) != 1 || results[0].Tool.ToolName != "weather_service" {
		t.Fatalf("search results = %+v", results)
	}
	toolID := results[0].Tool.ToolID

	if _, err := run(t, cfg, "usage", "record", toolID, "--success", "--latency-ms", "40"); err != nil {
		t.Fatalf("usage record error = %v", err)
	}
	out, err = run(t, cfg, "usage", "rate", toolID, "4")
	if err != nil {
		t.Fatalf("usage rate error = %v", err)
	}
	if !strings.Contains(out, "rated 4.00 over 1 reviews") {
		t.Fatalf("rate output = %q", out)
	}

	out, err = run(t, cfg, "plan", "what is the forecast")
	if err != nil {
		t.Fatalf("plan error = %v", err)
	}
	var plan catalog.Plan
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("plan output not JSON: %v\n%s", err, out)
	}
	if plan.Status != "planned" || len(plan.RecommendedTools) != 1 || plan.RecommendedTools[0] != "weather_service" {
		t.Fatalf("plan = %+v", plan)
	}
}

func TestCLI_GenerateFailedDiscovery(t *testing.T) {
	cfg := testEnv(t)
	out, err := run(t, cfg, "generate", "not a url", "--skip-index")
	if err == nil {
		t.Fatalf("generate error = nil, output %q", out)
	}
}

func TestCLI_InvalidStore(t *testing.T) {
	cfg := testEnv(t)
	if _, err := run(t, cfg, "--store", "sqlite", "search", "x"); err == nil {
		t.Fatal("expected invalid backend error")
	}
}

func TestCLI_RateRejectsNonNumeric(t *testing.T) {
	cfg := testEnv(t)
	if _, err := run(t, cfg, "usage", "rate", "abc", "great"); err == nil {
		t.Fatal("expected invalid rating error")
	}
	if _, err := run(t, cfg, "usage", "rate", "abc", "NaN"); !errors.Is(err, usage.ErrInvalidRating) {
		t.Fatalf("rate NaN error = %v, want ErrInvalidRating", err)
	}
}

func TestCLI_DefaultStorePersists(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("NEXUS_LOG_LEVEL", "error")
	srv := weatherServer(t)

	if out, err := run(t, "", "generate", srv.URL, "--output-dir", filepath.Join(dir, "out")); err != nil {
		t.Fatalf("generate error = %v, output %q", err, out)
	}
	if _, err := os.Stat(filepath.Join(dir, ".agent-nexus", "catalog.db")); err != nil {
		t.Fatalf("default catalog file missing: %v", err)
	}
	out, err := run(t, "", "--json", "search", "forecast")
	if err != nil {
		t.Fatalf("search error = %v", err)
	}
	if !strings.Contains(out, `"tool_name": "weather_service"`) {
		t.Fatalf("search output = %s, want the tool from the previous run", out)
	}
}

func TestCLI_OpenAIEmbeddingProvider(t *testing.T) {
	cfg := testEnv(t)
	var calls atomic.Int64
	emb := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			vec := make([]float64, 384)
			vec[i%384] = 1
			data[i] = map[string]any{"index": i, "embedding": vec}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	t.Cleanup(emb.Close)
	t.Setenv("NEXUS_EMBEDDING_PROVIDER", "openai")
	t.Setenv("NEXUS_EMBEDDING_BASEURL", emb.URL)
	t.Setenv("NEXUS_EMBEDDING_CACHE", "none")

	if _, err := run(t, cfg, "search", "anything"); err != nil {
		t.Fatalf("search error = %v", err)
	}
	if calls.Load() == 0 {
		t.Fatal("embedding service was not called")
	}
}
