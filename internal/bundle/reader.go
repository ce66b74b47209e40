package bundle

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/iudanet/schoolsync/internal/models"
)

// Reader gives access to the members of a bundle.
type Reader struct {
	closer   io.Closer
	files    map[string]*zip.File
	manifest *Manifest
}

// Open opens the bundle at path and validates its manifest.
func Open(path string) (*Reader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, archiveErr("", err)
	}
	r, err := newReader(&zr.Reader)
	if err != nil {
		_ = zr.Close()
		return nil, err
	}
	r.closer = zr
	return r, nil
}

// NewReader reads a bundle of the given size from ra.
func NewReader(ra io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, archiveErr("", err)
	}
	return newReader(zr)
}

func newReader(zr *zip.Reader) (*Reader, error) {
	r := &Reader{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		name, ok := strings.CutSuffix(f.Name, ext)
		if !ok || strings.Contains(name, "/") {
			continue
		}
		r.files[name] = f
	}

	f, ok := r.files[MetadataMember]
	if !ok {
		return nil, archiveErr(MetadataMember, errors.New("member not found"))
	}
	rc, err := f.Open()
	if err != nil {
		return nil, archiveErr(MetadataMember, err)
	}
	defer rc.Close()

	m, err := decodeManifest(rc)
	if err != nil {
		return nil, archiveErr(MetadataMember, err)
	}
	r.manifest = m
	return r, nil
}

// Manifest returns the bundle manifest.
func (r *Reader) Manifest() *Manifest {
	return r.manifest
}

// Has reports whether member is present.
func (r *Reader) Has(member string) bool {
	_, ok := r.files[member]
	return ok
}

// HasRoster reports whether the id roster of member is present.
func (r *Reader) HasRoster(member string) bool {
	return r.Has(RosterMember(member))
}

// Table opens member for streaming.
func (r *Reader) Table(member string) (*TableReader, error) {
	f, ok := r.files[member]
	if !ok {
		return nil, archiveErr(member, errors.New("member not found"))
	}
	count, ok := r.manifest.Counts[member]
	if !ok {
		return nil, archiveErr(member, errors.New("member not listed in manifest"))
	}
	sum, err := hex.DecodeString(r.manifest.Checksums[member])
	if err != nil || len(sum) != blake2b.Size256 {
		return nil, archiveErr(member, errors.New("invalid checksum in manifest"))
	}

	rc, err := f.Open()
	if err != nil {
		return nil, archiveErr(member, err)
	}

	h, _ := blake2b.New256(nil)
	cr := csv.NewReader(io.TeeReader(rc, h))
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		_ = rc.Close()
		return nil, archiveErr(member, fmt.Errorf("failed to read header: %w", err))
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(col)] = i
	}

	return &TableReader{
		member:   member,
		rc:       rc,
		csv:      cr,
		hash:     h,
		columns:  header,
		index:    index,
		expected: count,
		checksum: sum,
	}, nil
}

// Roster reads the id roster of member.
func (r *Reader) Roster(member string) (map[int64]struct{}, error) {
	name := RosterMember(member)
	t, err := r.Table(name)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	if !t.Has(models.KeyColumn) {
		return nil, archiveErr(name, fmt.Errorf("missing column %q", models.KeyColumn))
	}

	ids := make(map[int64]struct{}, t.expected)
	for {
		row, err := t.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// ростер с битой строкой не может надежно указывать на удаление
			return nil, archiveErr(name, err)
		}
		raw, _ := row.Get(models.KeyColumn)
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, archiveErr(name, fmt.Errorf("line %d: invalid id %q", row.Line, raw))
		}
		ids[id] = struct{}{}
	}
	return ids, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Row is one data row of a member.
type Row struct {
	index  map[string]int
	values []string
	Line   int
}

// Get returns the raw value of column col and whether the column exists.
func (r Row) Get(col string) (string, bool) {
	i, ok := r.index[col]
	if !ok || i >= len(r.values) {
		return "", false
	}
	return r.values[i], true
}

// TableReader streams the rows of one member and verifies the manifest
// count and checksum once the member is exhausted.
type TableReader struct {
	rc       io.ReadCloser
	csv      *csv.Reader
	hash     hash.Hash
	index    map[string]int
	member   string
	columns  []string
	checksum []byte
	expected int
	count    int
}

// Member returns the member name.
func (t *TableReader) Member() string {
	return t.member
}

// Columns returns the header row.
func (t *TableReader) Columns() []string {
	return t.columns
}

// Has reports whether column col is present in the header.
func (t *TableReader) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Next returns the next row.
//
// A row with the wrong number of fields is returned together with a
// *models.RowError wrapping models.ErrMalformedRow; reading may continue.
// At the end of the member Next returns io.EOF, or an *ArchiveError when the
// row count or checksum disagrees with the manifest.
func (t *TableReader) Next() (Row, error) {
	values, err := t.csv.Read()
	if errors.Is(err, io.EOF) {
		return Row{}, t.verify()
	}

	line, _ := t.csv.FieldPos(0)
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) && errors.Is(perr.Err, csv.ErrFieldCount) {
			t.count++
			row := Row{index: t.index, values: values, Line: perr.Line}
			return row, models.NewRowError(models.ErrMalformedRow, t.member, perr.Line,
				"expected %d fields, got %d", len(t.columns), len(values))
		}
		return Row{}, archiveErr(t.member, err)
	}

	t.count++
	return Row{index: t.index, values: values, Line: line}, nil
}

func (t *TableReader) verify() error {
	if _, err := io.Copy(io.Discard, t.rc); err != nil {
		return archiveErr(t.member, err)
	}
	if t.count != t.expected {
		return archiveErr(t.member, fmt.Errorf("row count %d, manifest says %d", t.count, t.expected))
	}
	if got := t.hash.Sum(nil); !bytes.Equal(got, t.checksum) {
		return archiveErr(t.member, errors.New("checksum mismatch"))
	}
	return io.EOF
}

// Close releases the member stream.
func (t *TableReader) Close() error {
	return t.rc.Close()
}

