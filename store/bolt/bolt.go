// Package bolt implements the persisted store on a local bbolt file.
package bolt

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// DefaultBucket holds the values unless another bucket is given.
const DefaultBucket = "brein"

// DB wraps a bbolt database using a single bucket
type DB struct {
	*bolt.DB
	bucket []byte
}

// Open opens or creates a bbolt database and its bucket
func Open(path, bucket string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if bucket == "" {
		bucket = DefaultBucket
	}

	boltDB, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{DB: boltDB, bucket: []byte(bucket)}
	if err := db.createBucket(); err != nil {
		_ = boltDB.Close()
		return nil, err
	}
	return db, nil
}

// createBucket creates the bucket if it doesn't exist
func (db *DB) createBucket() error {
	return db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(db.bucket)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", db.bucket, err)
		}
		return nil
	})
}

// Get retrieves the value for key
func (db *DB) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var found bool

	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(db.bucket)
		if b == nil {
			return fmt.Errorf("bucket not found: %s", db.bucket)
		}

		data := b.Get([]byte(key))
		if data != nil {
			value, found = string(data), true
		}
		return nil
	})

	return value, found, err
}

// Put stores value under key
func (db *DB) Put(ctx context.Context, key, value string) error {
	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(db.bucket)
		if b == nil {
			return fmt.Errorf("bucket not found: %s", db.bucket)
		}
		return b.Put([]byte(key), []byte(value))
	})
}

// Delete removes a key
func (db *DB) Delete(ctx context.Context, key string) error {
	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(db.bucket)
		if b == nil {
			return fmt.Errorf("bucket not found: %s", db.bucket)
		}
		return b.Delete([]byte(key))
	})
}

// List returns all keys in the bucket
func (db *DB) List() ([]string, error) {
	var keys []string

	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(db.bucket)
		if b == nil {
			return fmt.Errorf("bucket not found: %s", db.bucket)
		}

		return b.ForEach(func(k, v []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})

	return keys, err
}
