package cache

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

const (
	bucketPaths      = "paths"
	bucketFormatters = "formatters"
)

var ErrKeyNotFound = errors.New("key not found")

// Bucket stores msgpack encoded values of type V in a bolt bucket.
type Bucket[V any] struct {
	bucket *bolt.Bucket
}

func (b *Bucket[V]) Size() int {
	return b.bucket.Stats().KeyN
}

func (b *Bucket[V]) Get(key string) (*V, error) {
	bytes := b.bucket.Get([]byte(key))
	if bytes == nil {
		return nil, ErrKeyNotFound
	}

	var value V
	if err := msgpack.Unmarshal(bytes, &value); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry for key '%v': %w", key, err)
	}

	return &value, nil
}

func (b *Bucket[V]) Put(key string, value *V) error {
	if bytes, err := msgpack.Marshal(value); err != nil {
		return fmt.Errorf("failed to marshal cache entry for key %v: %w", key, err)
	} else if err = b.bucket.Put([]byte(key), bytes); err != nil {
		return fmt.Errorf("failed to put cache entry for key %v: %w", key, err)
	}

	return nil
}

func (b *Bucket[V]) Delete(key string) error {
	return b.bucket.Delete([]byte(key))
}

func (b *Bucket[V]) DeleteAll() error {
	// deleting through a cursor while iterating skips entries, so collect the keys first
	var keys [][]byte

	if err := b.bucket.ForEach(func(k, _ []byte) error {
		keys = append(keys, slices.Clone(k))

		return nil
	}); err != nil {
		return fmt.Errorf("failed to list cache entries: %w", err)
	}

	for _, k := range keys {
		if err := b.bucket.Delete(k); err != nil {
			return fmt.Errorf("failed to remove cache entry for key %s: %w", string(k), err)
		}
	}

	return nil
}

// BucketPaths holds an Entry per document path, relative to the tree root.
func BucketPaths(tx *bolt.Tx) (*Bucket[Entry], error) {
	return bucket[Entry](bucketPaths, tx)
}

// BucketFormatters holds the hash of the formatter set which produced the path entries.
func BucketFormatters(tx *bolt.Tx) (*Bucket[string], error) {
	return bucket[string](bucketFormatters, tx)
}

func bucket[V any](name string, tx *bolt.Tx) (*Bucket[V], error) {
	var (
		err error
		b   *bolt.Bucket
	)

	if tx.Writable() {
		b, err = tx.CreateBucketIfNotExists([]byte(name))
	} else if b = tx.Bucket([]byte(name)); b == nil {
		err = bolt.ErrBucketNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get/create bucket %s: %w", name, err)
	}

	return &Bucket[V]{b}, nil
}
