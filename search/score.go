package search

import (
	"sort"

	"github.com/lcgani/agent-nexus/model"
)

// Composite score weights.
const (
	RelevanceWeight  = 0.7
	PopularityWeight = 0.2
	RatingWeight     = 0.1

	// PopularityCap is the usage count at which popularity saturates.
	PopularityCap = 1000.0
	// MaxRating is the top of the rating scale.
	MaxRating = 5.0
)

// Popularity maps a usage count to [0, 1].
func Popularity(usageCount int) float64 {
	if usageCount <= 0 {
		return 0
	}
	return min(float64(usageCount)/PopularityCap, 1)
}

// RatingScore maps a 0-5 rating to [0, 1].
func RatingScore(rating float64) float64 {
	return rating / MaxRating
}

// Score builds a SearchResult for tool with the given store relevance.
func Score(tool model.ToolRecord, relevance float64) model.SearchResult {
	pop := Popularity(tool.UsageCount)
	rating := RatingScore(tool.Rating)
	return model.SearchResult{
		Tool:            tool,
		RelevanceScore:  relevance,
		PopularityScore: pop,
		RatingScore:     rating,
		CompositeScore:  RelevanceWeight*relevance + PopularityWeight*pop + RatingWeight*rating,
	}
}

// Rank sorts results by composite score, highest first. Equal scores keep
// their input order. It returns at most topK results.
func Rank(results []model.SearchResult, topK int) []model.SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CompositeScore > results[j].CompositeScore
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}
