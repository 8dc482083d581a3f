// Package search ranks catalog tools against a free-text request.
//
// [Ranker] is the vector path. It embeds the query, asks the store for the
// nearest tool-description vectors, and reorders the candidates by a
// composite score:
//
//	composite = 0.7*relevance + 0.2*popularity + 0.1*rating
//	popularity = min(usage_count/1000, 1)
//	rating     = rating/5
//
// Ties keep the order the store returned. [Ranker.IndexTool] computes and
// stores the description embedding; a tool is only reachable by vector
// search after it has been indexed once.
//
// [KeywordSearcher] is the lexical path. It builds an in-memory Bleve
// index over the stored tools, rebuilding only when the document
// fingerprint changes, and ranks with BM25 before applying the same
// composite blend.
//
// # Thread Safety
//
// Ranker is stateless apart from its collaborators. KeywordSearcher guards
// its cached index with an RWMutex. Both are safe for concurrent use.
package search
