// Package semantic turns text into dense vectors for similarity search.
//
// The package defines the [Embedder] contract shared by the discovery
// catalog and the ranking engine. Every embedder produces vectors of a
// fixed length that must match the dimension configured on the store's
// vector index ([Dimensions] by default).
//
// # Embedders
//
//   - [HashEmbedder]: deterministic feature hashing. It needs no model or
//     network access, which makes it the default for local runs and tests.
//   - [EinoEmbedder]: adapts any eino embedding component, so hosted or
//     local models can be plugged in.
//   - [CachedEmbedder]: wraps another embedder with a [Cache]. Use
//     [NewMemoryCache] in-process or [NewRedisCache] to share results.
//
// # Similarity
//
// [CosineSimilarity] compares two vectors. It returns 0 when either vector
// has zero magnitude or the lengths differ.
//
// # Error Handling
//
// The package defines these sentinel errors:
//   - [ErrInvalidEmbedder]: embedder is nil when required
//   - [ErrEmptyEmbedding]: an embedder returned no vector
//   - [ErrDimensionMismatch]: a vector has the wrong length
//
// Use errors.Is for error checking.
package semantic
