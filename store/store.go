package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Error values returned by every backend.
var (
	ErrNotFound          = errors.New("document not found")
	ErrInvalidCollection = errors.New("invalid collection")
	ErrInvalidID         = errors.New("invalid document id")
	ErrClosed            = errors.New("store is closed")
)

// Document is a schemaless stored object.
type Document map[string]any

// Store is the document store contract.
type Store interface {
	// Get returns the document stored under id, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Search evaluates q against collection.
	Search(ctx context.Context, collection string, q Query) ([]Hit, error)
	// Upsert stores doc under id, replacing any previous document.
	Upsert(ctx context.Context, collection, id string, doc Document) error
	// PartialUpdate merges fields into the top level of an existing document.
	PartialUpdate(ctx context.Context, collection, id string, fields Document) error
}

// Collection names a collection and its backend-specific mapping.
type Collection struct {
	Name    string
	Mapping string
}

// Initializer is implemented by backends that create collections up front.
type Initializer interface {
	// Init creates missing collections. Existing collections are kept.
	// It returns the names that were created.
	Init(ctx context.Context, collections []Collection) ([]string, error)
}

// Filter is an exact-match condition. When Path is set, the filter matches
// if any object in the array at Path has Field equal to Value.
type Filter struct {
	Path  string
	Field string
	Value any
}

// Term returns a top-level equality filter.
func Term(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// NestedTerm returns an equality filter on objects nested under path.
func NestedTerm(path, field string, value any) Filter {
	return Filter{Path: path, Field: field, Value: value}
}

// KNN is a nearest-neighbor clause over a dense vector field.
type KNN struct {
	Field         string
	Vector        []float32
	K             int
	NumCandidates int
}

// Query selects documents from a collection.
type Query struct {
	Filters  []Filter
	KNN      *KNN
	SortBy   string
	SortDesc bool
	// Size caps the number of hits. Zero means DefaultSize.
	Size int
	// Fields restricts the returned source fields. Empty returns everything.
	Fields []string
}

// DefaultSize is the hit cap applied when Query.Size is zero.
const DefaultSize = 10

// Hit is one search result.
type Hit struct {
	ID     string
	Score  float64
	Source Document
}

// Decode unmarshals the hit source into v.
func (h Hit) Decode(v any) error {
	return Decode(h.Source, v)
}

// Encode converts a record into a Document through its JSON form.
func Encode(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

// Decode converts a Document into a record through its JSON form.
func Decode(doc Document, v any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func validateKey(collection, id string) error {
	if collection == "" {
		return ErrInvalidCollection
	}
	if id == "" {
		return ErrInvalidID
	}
	return nil
}
