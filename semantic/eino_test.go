package semantic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
)

type stubEinoEmbedder struct {
	vectors [][]float64
	err     error
	texts   []string
}

func (s *stubEinoEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	s.texts = texts
	return s.vectors, s.err
}

func TestEinoEmbedder(t *testing.T) {
	stub := &stubEinoEmbedder{vectors: [][]float64{{0.5, 0.25}}}
	e, err := NewEinoEmbedder(stub, 2)
	if err != nil {
		t.Fatalf("NewEinoEmbedder() error = %v", err)
	}

	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.5 || vec[1] != 0.25 {
		t.Fatalf("Embed() = %v", vec)
	}
	if len(stub.texts) != 1 || stub.texts[0] != "hello" {
		t.Fatalf("texts = %v", stub.texts)
	}
}

func TestEinoEmbedder_Errors(t *testing.T) {
	if _, err := NewEinoEmbedder(nil, 0); !errors.Is(err, ErrInvalidEmbedder) {
		t.Fatalf("error = %v, want ErrInvalidEmbedder", err)
	}

	ctx := context.Background()
	e, _ := NewEinoEmbedder(&stubEinoEmbedder{}, 0)
	if _, err := e.Embed(ctx, "x"); !errors.Is(err, ErrEmptyEmbedding) {
		t.Fatalf("error = %v, want ErrEmptyEmbedding", err)
	}

	e, _ = NewEinoEmbedder(&stubEinoEmbedder{vectors: [][]float64{{1, 2, 3}}}, 2)
	if _, err := e.Embed(ctx, "x"); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("error = %v, want ErrDimensionMismatch", err)
	}

	boom := errors.New("boom")
	e, _ = NewEinoEmbedder(&stubEinoEmbedder{err: boom}, 0)
	if _, err := e.Embed(ctx, "x"); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped boom", err)
	}
}

func TestOpenAIEmbedder(t *testing.T) {
	var got embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" || r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("request = %s %s auth %q", r.Method, r.URL.Path, r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	oe, err := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL + "/v1/", APIKey: "k", Model: "small"})
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder() error = %v", err)
	}
	vectors, err := oe.EmbedStrings(context.Background(), []string{"a", "b"}, embedding.WithModel("large"))
	if err != nil {
		t.Fatalf("EmbedStrings() error = %v", err)
	}
	if got.Model != "large" || len(got.Input) != 2 {
		t.Fatalf("request = %+v, want model large with 2 inputs", got)
	}
	if vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Fatalf("vectors = %v, want ordered by index", vectors)
	}

	e, err := NewEinoEmbedder(oe, 2)
	if err != nil {
		t.Fatalf("NewEinoEmbedder() error = %v", err)
	}
	if _, err := e.Embed(context.Background(), "a"); !errors.Is(err, ErrEmbeddingAPI) {
		t.Fatalf("Embed() error = %v, want ErrEmbeddingAPI for a count mismatch", err)
	}
}

func TestOpenAIEmbedder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	oe, err := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL, Model: "m"})
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder() error = %v", err)
	}
	_, err = oe.EmbedStrings(context.Background(), []string{"x"})
	if !errors.Is(err, ErrEmbeddingAPI) || !strings.Contains(err.Error(), "bad key") {
		t.Fatalf("EmbedStrings() error = %v, want bad key", err)
	}

	if _, err := NewOpenAIEmbedder(OpenAIConfig{Model: "m"}); !errors.Is(err, ErrEmbeddingAPI) {
		t.Fatalf("NewOpenAIEmbedder() without base url error = %v", err)
	}
}
