// Package bundle reads and writes snapshot bundles: a zip archive of CSV
// members plus a _metadata manifest carrying row counts and checksums.
package bundle

import (
	"archive/zip"
	"crypto/rand"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/iudanet/schoolsync/internal/models"
)

// Header identifies the producer of a bundle.
type Header struct {
	ExportedAt time.Time
	ReplicaID  string
	Scope      models.SyncScope
}

// Writer streams members into a bundle. Only one member is open at a time.
type Writer struct {
	zw       *zip.Writer
	manifest *Manifest
	current  *TableWriter
	closed   bool
}

// NewWriter starts a bundle on w and assigns it a new bundle id.
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(h.ExportedAt), entropy)
	if err != nil {
		return nil, fmt.Errorf("failed to generate bundle id: %w", err)
	}

	m := newManifest()
	m.BundleID = id.String()
	m.ReplicaID = h.ReplicaID
	m.Scope = h.Scope
	m.ExportedAt = h.ExportedAt.UTC()

	return &Writer{zw: zip.NewWriter(w), manifest: m}, nil
}

// Manifest returns the manifest accumulated so far.
func (w *Writer) Manifest() *Manifest {
	return w.manifest
}

// Table opens member for writing with the given header row.
// The previously open member is finished first.
func (w *Writer) Table(member string, columns []string) (*TableWriter, error) {
	if w.closed {
		return nil, errors.New("bundle writer is closed")
	}
	_, dup := w.manifest.Counts[member]
	if dup || member == MetadataMember || (w.current != nil && w.current.member == member) {
		return nil, fmt.Errorf("duplicate bundle member %q", member)
	}
	if err := w.finish(); err != nil {
		return nil, err
	}

	f, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     member + ext,
		Method:   zip.Deflate,
		Modified: w.manifest.ExportedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create member %s: %w", member, err)
	}

	h, _ := blake2b.New256(nil)
	tw := &TableWriter{
		member: member,
		hash:   h,
		csv:    csv.NewWriter(io.MultiWriter(f, h)),
	}
	if err := tw.csv.Write(columns); err != nil {
		return nil, fmt.Errorf("failed to write header of %s: %w", member, err)
	}
	w.current = tw
	return tw, nil
}

// Roster opens the id roster of member.
func (w *Writer) Roster(member string) (*TableWriter, error) {
	return w.Table(RosterMember(member), []string{models.KeyColumn})
}

// Close finishes the open member, writes the manifest and closes the archive.
// It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	if err := w.finish(); err != nil {
		return err
	}
	w.closed = true

	f, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:     MetadataMember + ext,
		Method:   zip.Deflate,
		Modified: w.manifest.ExportedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	if err := w.manifest.encode(f); err != nil {
		return err
	}
	if err := w.zw.Close(); err != nil {
		return fmt.Errorf("failed to close bundle: %w", err)
	}
	return nil
}

func (w *Writer) finish() error {
	if w.current == nil {
		return nil
	}
	tw := w.current
	w.current = nil

	tw.csv.Flush()
	if err := tw.csv.Error(); err != nil {
		return fmt.Errorf("failed to flush member %s: %w", tw.member, err)
	}
	w.manifest.Counts[tw.member] = tw.count
	w.manifest.Checksums[tw.member] = hex.EncodeToString(tw.hash.Sum(nil))
	return nil
}

// TableWriter writes the rows of one member.
type TableWriter struct {
	hash   hash.Hash
	csv    *csv.Writer
	member string
	count  int
}

// Write appends one row.
func (t *TableWriter) Write(values []string) error {
	if err := t.csv.Write(values); err != nil {
		return fmt.Errorf("failed to write row of %s: %w", t.member, err)
	}
	t.count++
	return nil
}

// Count returns the number of rows written so far.
func (t *TableWriter) Count() int {
	return t.count
}
