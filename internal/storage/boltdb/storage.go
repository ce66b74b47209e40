// Package boltdb keeps the replica state: the replica identity and the
// journal of applied bundles.
package boltdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/iudanet/schoolsync/internal/storage"
)

var (
	// BoltDB bucket names
	bucketMeta      = []byte("meta")
	bucketImports   = []byte("imports")
	bucketImportLog = []byte("import_log")

	keyReplicaID = []byte("replica_id")
)

// Storage represents BoltDB storage of the replica state
type Storage struct {
	db *bbolt.DB
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Открываем BoltDB
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}

	// Инициализируем buckets
	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// initBuckets создает необходимые buckets если они не существуют
// и выдает реплике постоянный идентификатор при первом открытии
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return fmt.Errorf("failed to create meta bucket: %w", err)
		}

		if _, err := tx.CreateBucketIfNotExists(bucketImports); err != nil {
			return fmt.Errorf("failed to create imports bucket: %w", err)
		}

		if _, err := tx.CreateBucketIfNotExists(bucketImportLog); err != nil {
			return fmt.Errorf("failed to create import log bucket: %w", err)
		}

		if meta.Get(keyReplicaID) == nil {
			if err := meta.Put(keyReplicaID, []byte(uuid.NewString())); err != nil {
				return fmt.Errorf("failed to save replica id: %w", err)
			}
		}

		return nil
	})
}

// ReplicaID returns the identity of this replica
func (s *Storage) ReplicaID(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", storage.ErrStorageClosed
	}

	var id string
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMeta)
		if bucket == nil {
			return fmt.Errorf("meta bucket not found")
		}
		id = string(bucket.Get(keyReplicaID))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to get replica id: %w", err)
	}
	return id, nil
}
