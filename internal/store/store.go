// Package store persists typed records in a bbolt database.
//
// Values are JSON encoded under a string key inside a single bucket. Each
// CLI invocation opens the database, does its work, and closes it again, so
// a short open timeout lets a second corral process fail fast instead of
// hanging on the file lock.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/containerd/errdefs"
	bolt "go.etcd.io/bbolt"
)

// DefaultOpenTimeout bounds how long Open waits for the database file lock.
const DefaultOpenTimeout = 5 * time.Second

// Store provides type-safe key-value storage.
type Store[T any] interface {
	Get(ctx context.Context, key string) (*T, error)
	Set(ctx context.Context, key string, value *T) error
	Delete(ctx context.Context, key string) error
	Scan(ctx context.Context, prefix string, fn func(key string, value *T) error) error
	Close() error
}

// BoltStore is a bbolt-backed Store. It owns its database handle.
type BoltStore[T any] struct {
	db     *bolt.DB
	bucket []byte
}

// NewBoltStore opens (creating if needed) the database at dbPath and ensures
// bucket exists.
func NewBoltStore[T any](dbPath, bucket string) (Store[T], error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required: %w", errdefs.ErrInvalidArgument)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{
		Timeout:      DefaultOpenTimeout,
		FreelistType: bolt.FreelistMapType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}

	return &BoltStore[T]{db: db, bucket: []byte(bucket)}, nil
}

func (s *BoltStore[T]) view(fn func(b *bolt.Bucket) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return fmt.Errorf("bucket %s: %w", s.bucket, errdefs.ErrNotFound)
		}
		return fn(b)
	})
}

func (s *BoltStore[T]) update(fn func(b *bolt.Bucket) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return fmt.Errorf("bucket %s: %w", s.bucket, errdefs.ErrNotFound)
		}
		return fn(b)
	})
}

// Get retrieves a value by key. Missing keys return an errdefs.ErrNotFound error.
func (s *BoltStore[T]) Get(ctx context.Context, key string) (*T, error) {
	var value T
	err := s.view(func(b *bolt.Bucket) error {
		data := b.Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%q: %w", key, errdefs.ErrNotFound)
		}
		return json.Unmarshal(data, &value)
	})
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// Set stores a value by key, replacing any existing value.
func (s *BoltStore[T]) Set(ctx context.Context, key string, value *T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}
	return s.update(func(b *bolt.Bucket) error {
		return b.Put([]byte(key), data)
	})
}

// Delete removes a value by key. Deleting a missing key is not an error.
func (s *BoltStore[T]) Delete(ctx context.Context, key string) error {
	return s.update(func(b *bolt.Bucket) error {
		return b.Delete([]byte(key))
	})
}

// Scan calls fn for every key with the given prefix, in key order. An error
// from fn stops the scan and is returned.
func (s *BoltStore[T]) Scan(ctx context.Context, prefix string, fn func(key string, value *T) error) error {
	return s.view(func(b *bolt.Bucket) error {
		c := b.Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			var value T
			if err := json.Unmarshal(v, &value); err != nil {
				return fmt.Errorf("failed to unmarshal value for key %s: %w", string(k), err)
			}
			if err := fn(string(k), &value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close releases the database file lock.
func (s *BoltStore[T]) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
