package semantic

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
)

// EinoEmbedder adapts an eino embedding component to Embedder.
type EinoEmbedder struct {
	inner embedding.Embedder
	dims  int
	opts  []embedding.Option
}

// NewEinoEmbedder wraps inner. When dims is positive, every returned vector
// is checked against it.
func NewEinoEmbedder(inner embedding.Embedder, dims int, opts ...embedding.Option) (*EinoEmbedder, error) {
	if inner == nil {
		return nil, ErrInvalidEmbedder
	}
	return &EinoEmbedder{inner: inner, dims: dims, opts: opts}, nil
}

// Embed implements Embedder.
func (e *EinoEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.inner.EmbedStrings(ctx, []string{text}, e.opts...)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, ErrEmptyEmbedding
	}

	out := make([]float32, len(vectors[0]))
	for i, v := range vectors[0] {
		out[i] = float32(v)
	}
	if err := CheckDimensions(out, e.dims); err != nil {
		return nil, err
	}
	return out, nil
}
