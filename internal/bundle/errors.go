package bundle

import (
	"fmt"

	"github.com/iudanet/schoolsync/internal/models"
)

// ArchiveError is a bundle-level failure. It matches models.ErrArchive.
type ArchiveError struct {
	Err    error
	Member string
}

func archiveErr(member string, err error) *ArchiveError {
	return &ArchiveError{Member: member, Err: err}
}

func (e *ArchiveError) Error() string {
	if e.Member == "" {
		return fmt.Sprintf("%v: %v", models.ErrArchive, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", models.ErrArchive, e.Member, e.Err)
}

func (e *ArchiveError) Unwrap() []error {
	return []error{models.ErrArchive, e.Err}
}
