// Package store provides the keyed document store consumed by the discovery,
// ranking and generation packages.
//
// The contract is four operations over named collections:
//
//	Get(ctx, collection, id)
//	Search(ctx, collection, query)
//	Upsert(ctx, collection, id, document)
//	PartialUpdate(ctx, collection, id, fields)
//
// A [Query] combines exact-match filters (top-level or nested), an optional
// k-nearest-neighbor vector clause, a sort and a size. Vector relevance uses
// the cosine convention (1 + cos) / 2 in every backend so scores are
// comparable across them.
//
// # Backends
//
//   - [MemoryStore]: in-process, used by tests and the skip-index mode
//   - [BoltStore]: single-file bbolt database, one bucket per collection
//   - [ElasticStore]: Elasticsearch, the reference deployment
//
// Backends that need collection bootstrapping implement [Initializer].
//
// # Thread Safety
//
// All backends are safe for concurrent use. Writes are atomic per document;
// there is no cross-document coordination.
package store
