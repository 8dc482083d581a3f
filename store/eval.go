package store

import (
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/lcgani/agent-nexus/semantic"
)

type entry struct {
	id  string
	doc Document
}

// evaluate applies q to entries in their given order. It backs the
// backends that have no query engine of their own.
func evaluate(entries []entry, q Query) []Hit {
	hits := make([]Hit, 0, len(entries))
	for _, e := range entries {
		if !matchFilters(e.doc, q.Filters) {
			continue
		}
		hit := Hit{ID: e.id, Score: 1, Source: e.doc}
		if q.KNN != nil {
			vec, ok := vectorValue(e.doc[q.KNN.Field])
			if !ok || len(vec) != len(q.KNN.Vector) {
				continue
			}
			hit.Score = CosineScore(q.KNN.Vector, vec)
		}
		hits = append(hits, hit)
	}

	limit := q.Size
	switch {
	case q.KNN != nil:
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].Score > hits[j].Score
		})
		if q.KNN.K > 0 && (limit == 0 || q.KNN.K < limit) {
			limit = q.KNN.K
		}
	case q.SortBy != "":
		sort.SliceStable(hits, func(i, j int) bool {
			return lessBy(hits[i].Source, hits[j].Source, q.SortBy, q.SortDesc)
		})
	}
	if limit == 0 {
		limit = DefaultSize
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}

	if len(q.Fields) > 0 {
		for i := range hits {
			hits[i].Source = project(hits[i].Source, q.Fields)
		}
	}
	return hits
}

// CosineScore maps cosine similarity into [0, 1] as (1 + cos) / 2.
func CosineScore(a, b []float32) float64 {
	return (1 + semantic.CosineSimilarity(a, b)) / 2
}

func matchFilters(doc Document, filters []Filter) bool {
	for _, f := range filters {
		if !matchFilter(doc, f) {
			return false
		}
	}
	return true
}

func matchFilter(doc Document, f Filter) bool {
	if f.Path == "" {
		return matchValue(lookup(doc, f.Field), f.Value)
	}
	items, ok := lookup(doc, f.Path).([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if matchValue(lookup(obj, f.Field), f.Value) {
			return true
		}
	}
	return false
}

// lookup resolves a dotted field path through nested objects.
func lookup(doc map[string]any, field string) any {
	var cur any = doc
	for _, part := range strings.Split(field, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = obj[part]
		if !ok {
			return nil
		}
	}
	return cur
}

// matchValue compares a stored value with a filter value. Arrays match if
// any element matches.
func matchValue(stored, want any) bool {
	if items, ok := stored.([]any); ok {
		for _, item := range items {
			if matchValue(item, want) {
				return true
			}
		}
		return false
	}
	return normalize(stored) == normalize(want)
}

func normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return v
}

func vectorValue(v any) ([]float32, bool) {
	switch vec := v.(type) {
	case []float32:
		return vec, true
	case []float64:
		out := make([]float32, len(vec))
		for i, f := range vec {
			out[i] = float32(f)
		}
		return out, true
	case []any:
		out := make([]float32, len(vec))
		for i, item := range vec {
			f, ok := normalize(item).(float64)
			if !ok {
				return nil, false
			}
			out[i] = float32(f)
		}
		return out, true
	}
	return nil, false
}

// lessBy orders documents by field. Missing values sort last regardless of
// direction.
func lessBy(a, b Document, field string, desc bool) bool {
	av, bv := lookup(a, field), lookup(b, field)
	if av == nil || bv == nil {
		return av != nil && bv == nil
	}
	c := compare(av, bv)
	if desc {
		return c > 0
	}
	return c < 0
}

func compare(a, b any) int {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			at, aerr := time.Parse(time.RFC3339Nano, as)
			bt, berr := time.Parse(time.RFC3339Nano, bs)
			if aerr == nil && berr == nil {
				return at.Compare(bt)
			}
			return strings.Compare(as, bs)
		}
	}
	af, aok := normalize(a).(float64)
	bf, bok := normalize(b).(float64)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
	}
	return 0
}

func project(doc Document, fields []string) Document {
	out := make(Document, len(fields))
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}

func merge(doc, fields Document) Document {
	if doc == nil {
		doc = make(Document, len(fields))
	}
	for k, v := range fields {
		doc[k] = v
	}
	return doc
}
