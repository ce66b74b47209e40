package bundle

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/schoolsync/internal/models"
)

var exportedAt = time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)

func writeBundle(t *testing.T, scope models.SyncScope) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := NewWriter(&buf, Header{ReplicaID: "replica-a", Scope: scope, ExportedAt: exportedAt})
	require.NoError(t, err)

	tw, err := w.Table("sessions", []string{"id", "group_id", "notes"})
	require.NoError(t, err)
	require.NoError(t, tw.Write([]string{"1", "10", "first, with comma"}))
	require.NoError(t, tw.Write([]string{"2", "10", ""}))

	rw, err := w.Roster("sessions")
	require.NoError(t, err)
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, rw.Write([]string{id}))
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func openBytes(t *testing.T, data []byte) (*Reader, error) {
	t.Helper()
	return NewReader(bytes.NewReader(data), int64(len(data)))
}

// rewrite копирует архив, подменяя содержимое одного члена
func rewrite(t *testing.T, data []byte, name string, content []byte) []byte {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		if f.Name == name && content == nil {
			continue
		}
		w, err := zw.Create(f.Name)
		require.NoError(t, err)
		if f.Name == name {
			_, err = w.Write(content)
			require.NoError(t, err)
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		_, err = io.Copy(w, rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestBundle_RoundTrip(t *testing.T) {
	data := writeBundle(t, models.ScopePeriod(4))

	r, err := openBytes(t, data)
	require.NoError(t, err)
	defer r.Close()

	m := r.Manifest()
	assert.Equal(t, FormatVersion, m.FormatVersion)
	assert.Len(t, m.BundleID, 26, "ULID")
	assert.Equal(t, "replica-a", m.ReplicaID)
	assert.Equal(t, models.ScopePeriod(4), m.Scope)
	assert.True(t, exportedAt.Equal(m.ExportedAt))
	assert.Equal(t, map[string]int{"sessions": 2, "_all_sessions_ids": 3}, m.Counts)

	assert.True(t, r.Has("sessions"))
	assert.True(t, r.HasRoster("sessions"))
	assert.False(t, r.Has("memberships"))

	tr, err := r.Table("sessions")
	require.NoError(t, err)
	defer tr.Close()

	assert.Equal(t, []string{"id", "group_id", "notes"}, tr.Columns())
	assert.True(t, tr.Has("notes"))
	assert.False(t, tr.Has("status"))

	row, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, row.Line)
	notes, ok := row.Get("notes")
	assert.True(t, ok)
	assert.Equal(t, "first, with comma", notes)
	_, ok = row.Get("status")
	assert.False(t, ok)

	_, err = tr.Next()
	require.NoError(t, err)
	_, err = tr.Next()
	assert.ErrorIs(t, err, io.EOF)

	ids, err := r.Roster("sessions")
	require.NoError(t, err)
	assert.Equal(t, map[int64]struct{}{1: {}, 2: {}, 3: {}}, ids)
}

func TestBundle_OpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "b.ssb")
	require.NoError(t, os.WriteFile(path, writeBundle(t, models.ScopeAll()), 0o600))

	r, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, models.ScopeAll(), r.Manifest().Scope)
	require.NoError(t, r.Close())
}

func TestBundle_ArchiveErrors(t *testing.T) {
	good := writeBundle(t, models.ScopeAll())

	tests := []struct {
		name   string
		data   func() []byte
		member string
	}{
		{
			name:   "not a zip",
			data:   func() []byte { return []byte("definitely not a zip archive") },
			member: "",
		},
		{
			name:   "missing metadata",
			data:   func() []byte { return rewrite(t, good, "_metadata.csv", nil) },
			member: MetadataMember,
		},
		{
			name: "unsupported format version",
			data: func() []byte {
				return rewrite(t, good, "_metadata.csv", []byte("key,value\nformat_version,2\nbundle_id,x\nscope,all\n"))
			},
			member: MetadataMember,
		},
		{
			name: "bad scope",
			data: func() []byte {
				return rewrite(t, good, "_metadata.csv", []byte("key,value\nformat_version,1\nbundle_id,x\nscope,school\n"))
			},
			member: MetadataMember,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := openBytes(t, tt.data())
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrArchive)

			var aerr *ArchiveError
			require.True(t, errors.As(err, &aerr))
			assert.Equal(t, tt.member, aerr.Member)
		})
	}
}

func drain(t *testing.T, tr *TableReader) error {
	t.Helper()
	for {
		_, err := tr.Next()
		if err != nil {
			var rowErr *models.RowError
			if errors.As(err, &rowErr) {
				continue
			}
			return err
		}
	}
}

func TestBundle_ChecksumMismatch(t *testing.T) {
	data := rewrite(t, writeBundle(t, models.ScopeAll()), "sessions.csv",
		[]byte("id,group_id,notes\n1,10,tampered\n2,10,\n"))

	r, err := openBytes(t, data)
	require.NoError(t, err)

	tr, err := r.Table("sessions")
	require.NoError(t, err)
	defer tr.Close()

	err = drain(t, tr)
	assert.ErrorIs(t, err, models.ErrArchive)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestBundle_CountMismatch(t *testing.T) {
	data := rewrite(t, writeBundle(t, models.ScopeAll()), "sessions.csv",
		[]byte("id,group_id,notes\n1,10,x\n"))

	r, err := openBytes(t, data)
	require.NoError(t, err)

	tr, err := r.Table("sessions")
	require.NoError(t, err)
	defer tr.Close()

	err = drain(t, tr)
	assert.ErrorIs(t, err, models.ErrArchive)
	assert.Contains(t, err.Error(), "row count 1")
}

func TestBundle_FieldCountIsRowError(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, Header{ReplicaID: "r", Scope: models.ScopeAll(), ExportedAt: exportedAt})
	require.NoError(t, err)
	tw, err := w.Table("persons", []string{"id", "first_name"})
	require.NoError(t, err)
	require.NoError(t, tw.Write([]string{"1", "Ana"}))
	require.NoError(t, tw.Write([]string{"2"}))
	require.NoError(t, tw.Write([]string{"3", "Eva"}))
	require.NoError(t, w.Close())

	r, err := openBytes(t, buf.Bytes())
	require.NoError(t, err)
	tr, err := r.Table("persons")
	require.NoError(t, err)
	defer tr.Close()

	_, err = tr.Next()
	require.NoError(t, err)

	_, err = tr.Next()
	assert.ErrorIs(t, err, models.ErrMalformedRow)
	var rowErr *models.RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 3, rowErr.Line)

	row, err := tr.Next()
	require.NoError(t, err)
	name, _ := row.Get("first_name")
	assert.Equal(t, "Eva", name)

	_, err = tr.Next()
	assert.ErrorIs(t, err, io.EOF, "count and checksum include the malformed row")
}

func TestWriter_DuplicateMember(t *testing.T) {
	w, err := NewWriter(io.Discard, Header{Scope: models.ScopeAll(), ExportedAt: exportedAt})
	require.NoError(t, err)

	_, err = w.Table("persons", []string{"id"})
	require.NoError(t, err)
	_, err = w.Table("groups", []string{"id"})
	require.NoError(t, err)
	_, err = w.Table("persons", []string{"id"})
	assert.Error(t, err)
	_, err = w.Table(MetadataMember, []string{"id"})
	assert.Error(t, err)

	require.NoError(t, w.Close())
	_, err = w.Table("sessions", []string{"id"})
	assert.Error(t, err)
}

func TestRosterMember(t *testing.T) {
	assert.Equal(t, "_all_memberships_ids", RosterMember("memberships"))
}
