package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"

	"github.com/iudanet/schoolsync/internal/models"
	"github.com/iudanet/schoolsync/internal/storage"
)

// SaveImport appends entry to the import journal.
// A re-applied bundle gets a new journal entry; GetImport returns the latest.
func (s *Storage) SaveImport(ctx context.Context, entry *models.ImportEntry) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := msgpack.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal import entry: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		log := tx.Bucket(bucketImportLog)
		imports := tx.Bucket(bucketImports)
		if log == nil || imports == nil {
			return fmt.Errorf("import buckets not found")
		}

		seq, err := log.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		key := seqKey(seq)

		if err := log.Put(key, data); err != nil {
			return fmt.Errorf("failed to save import entry: %w", err)
		}
		if err := imports.Put([]byte(entry.BundleID), key); err != nil {
			return fmt.Errorf("failed to index import entry: %w", err)
		}

		return nil
	})
}

// GetImport returns the latest journal entry of a bundle
// Returns ErrImportNotFound if the bundle was never applied
func (s *Storage) GetImport(ctx context.Context, bundleID string) (*models.ImportEntry, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var entry *models.ImportEntry
	err := s.db.View(func(tx *bbolt.Tx) error {
		key := tx.Bucket(bucketImports).Get([]byte(bundleID))
		if key == nil {
			return storage.ErrImportNotFound
		}

		data := tx.Bucket(bucketImportLog).Get(key)
		if data == nil {
			return storage.ErrImportNotFound
		}

		entry = &models.ImportEntry{}
		return msgpack.Unmarshal(data, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// History returns up to limit journal entries, most recent first.
// limit <= 0 returns the whole journal.
func (s *Storage) History(ctx context.Context, limit int) ([]*models.ImportEntry, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var entries []*models.ImportEntry
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketImportLog).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			entry := &models.ImportEntry{}
			if err := msgpack.Unmarshal(v, entry); err != nil {
				return fmt.Errorf("failed to unmarshal import entry: %w", err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read import history: %w", err)
	}
	return entries, nil
}

// seqKey кодирует номер записи журнала в big-endian для упорядоченного обхода
func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
