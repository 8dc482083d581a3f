package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore keeps documents in process memory. Documents are stored in
// their JSON form so callers never share mutable state with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	order []string
	docs  map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memCollection),
	}
}

// Init creates missing collections.
func (s *MemoryStore) Init(_ context.Context, collections []Collection) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var created []string
	for _, c := range collections {
		if c.Name == "" {
			return created, ErrInvalidCollection
		}
		if _, ok := s.collections[c.Name]; ok {
			continue
		}
		s.collections[c.Name] = &memCollection{docs: make(map[string][]byte)}
		created = append(created, c.Name)
	}
	return created, nil
}

// Get returns a copy of the document stored under id.
func (s *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	if err := validateKey(collection, id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var data []byte
	if c, ok := s.collections[collection]; ok {
		data = c.docs[id]
	}
	s.mu.RUnlock()

	if data == nil {
		return nil, ErrNotFound
	}
	return decodeRaw(data)
}

// Search evaluates q over the collection in insertion order.
func (s *MemoryStore) Search(_ context.Context, collection string, q Query) ([]Hit, error) {
	if collection == "" {
		return nil, ErrInvalidCollection
	}

	s.mu.RLock()
	c, ok := s.collections[collection]
	if !ok {
		s.mu.RUnlock()
		return []Hit{}, nil
	}
	raws := make([][]byte, len(c.order))
	ids := make([]string, len(c.order))
	for i, id := range c.order {
		ids[i] = id
		raws[i] = c.docs[id]
	}
	s.mu.RUnlock()

	entries := make([]entry, 0, len(ids))
	for i, id := range ids {
		doc, err := decodeRaw(raws[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{id: id, doc: doc})
	}
	return evaluate(entries, q), nil
}

// Upsert stores doc under id.
func (s *MemoryStore) Upsert(_ context.Context, collection, id string, doc Document) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = data
	return nil
}

// PartialUpdate merges fields into an existing document.
func (s *MemoryStore) PartialUpdate(_ context.Context, collection, id string, fields Document) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return ErrNotFound
	}
	data, ok := c.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc, err := decodeRaw(data)
	if err != nil {
		return err
	}
	updated, err := json.Marshal(merge(doc, fields))
	if err != nil {
		return fmt.Errorf("encode document %s: %w", id, err)
	}
	c.docs[id] = updated
	return nil
}

// Count returns the number of documents in a collection.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[collection]; ok {
		return len(c.docs)
	}
	return 0
}

func (s *MemoryStore) collection(name string) *memCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memCollection{docs: make(map[string][]byte)}
		s.collections[name] = c
	}
	return c
}

func decodeRaw(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
