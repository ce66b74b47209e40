package storage

import "errors"

// Common storage errors
var (
	// ErrRecordNotFound indicates that no row matches the key
	ErrRecordNotFound = errors.New("record not found")

	// ErrStoreLocked indicates that another process holds the store
	ErrStoreLocked = errors.New("store is locked by another process")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")

	// ErrImportNotFound indicates that the journal has no entry for a bundle
	ErrImportNotFound = errors.New("import not found")
)
