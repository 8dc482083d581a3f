package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltStore persists documents in a bbolt file with one bucket per
// collection. Queries are evaluated by scanning the bucket.
type BoltStore struct {
	mu     sync.RWMutex
	db     *bolt.DB
	path   string
	closed bool
}

// OpenBoltStore opens or creates the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("ensure store dir: %w", err)
	}
	db, err := bolt.Open(trimmed, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}
	return &BoltStore{db: db, path: trimmed}, nil
}

// Path returns the database file path.
func (s *BoltStore) Path() string {
	return s.path
}

// Close releases the database file.
func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Init creates a bucket per missing collection.
func (s *BoltStore) Init(_ context.Context, collections []Collection) ([]string, error) {
	var created []string
	err := s.update(func(tx *bolt.Tx) error {
		for _, c := range collections {
			if c.Name == "" {
				return ErrInvalidCollection
			}
			if tx.Bucket([]byte(c.Name)) != nil {
				continue
			}
			if _, err := tx.CreateBucket([]byte(c.Name)); err != nil {
				return fmt.Errorf("create bucket %s: %w", c.Name, err)
			}
			created = append(created, c.Name)
		}
		return nil
	})
	return created, err
}

// Get returns the document stored under id.
func (s *BoltStore) Get(_ context.Context, collection, id string) (Document, error) {
	if err := validateKey(collection, id); err != nil {
		return nil, err
	}
	var doc Document
	err := s.view(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return ErrNotFound
		}
		data := bucket.Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		var err error
		doc, err = decodeRaw(data)
		return err
	})
	return doc, err
}

// Search scans the collection bucket in key order and evaluates q.
func (s *BoltStore) Search(_ context.Context, collection string, q Query) ([]Hit, error) {
	if collection == "" {
		return nil, ErrInvalidCollection
	}
	var entries []entry
	err := s.view(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(key, value []byte) error {
			doc, err := decodeRaw(value)
			if err != nil {
				return fmt.Errorf("document %s: %w", key, err)
			}
			entries = append(entries, entry{id: string(key), doc: doc})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return evaluate(entries, q), nil
}

// Upsert stores doc under id, creating the bucket if needed.
func (s *BoltStore) Upsert(_ context.Context, collection, id string, doc Document) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", id, err)
	}
	return s.update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return fmt.Errorf("create bucket %s: %w", collection, err)
		}
		return bucket.Put([]byte(id), data)
	})
}

// PartialUpdate merges fields into an existing document in one transaction.
func (s *BoltStore) PartialUpdate(_ context.Context, collection, id string, fields Document) error {
	if err := validateKey(collection, id); err != nil {
		return err
	}
	return s.update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return ErrNotFound
		}
		data := bucket.Get([]byte(id))
		if data == nil {
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
		return bucket.Put([]byte(id), updated)
	})
}

func (s *BoltStore) view(fn func(tx *bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.View(fn)
}

func (s *BoltStore) update(fn func(tx *bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Update(fn)
}
