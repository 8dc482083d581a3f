package semantic

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Dimensions is the default embedding length. It must agree with the
// dense_vector mapping of the tool collection.
const Dimensions = 384

// Error values for embedding.
var (
	ErrInvalidEmbedder   = errors.New("semantic: embedder is required")
	ErrEmptyEmbedding    = errors.New("semantic: empty embedding")
	ErrDimensionMismatch = errors.New("semantic: embedding dimension mismatch")
)

// Embedder maps text to a fixed-length vector. Implementations must be
// deterministic for identical input and safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbedderFunc adapts a function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

// Embed calls f.
func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// HashEmbedder embeds text by hashing word unigrams and bigrams into a
// signed feature vector, then L2-normalizing it. Texts sharing vocabulary
// land close together under cosine similarity.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder returns a HashEmbedder producing vectors of length dims.
// Non-positive dims selects Dimensions.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = Dimensions
	}
	return &HashEmbedder{dims: dims}
}

// Dimensions reports the vector length.
func (e *HashEmbedder) Dimensions() int {
	return e.dims
}

// Embed implements Embedder.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, e.dims)
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		// Zero vectors are rejected by cosine indices.
		tokens = []string{""}
	}
	for i, tok := range tokens {
		e.add(vec, tok, 1)
		if i > 0 {
			e.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	Normalize(vec)
	return vec, nil
}

func (e *HashEmbedder) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dims))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// Tokenize lowercases text and splits it on anything that is not a letter
// or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Normalize scales vec to unit length in place. Zero vectors are left
// unchanged.
func Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}

// CosineSimilarity returns the cosine of the angle between a and b, in
// [-1, 1]. It returns 0 for mismatched lengths or zero-magnitude input.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// CheckDimensions returns ErrDimensionMismatch when len(vec) != want.
// A non-positive want disables the check.
func CheckDimensions(vec []float32, want int) error {
	if len(vec) == 0 {
		return ErrEmptyEmbedding
	}
	if want > 0 && len(vec) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), want)
	}
	return nil
}
