package bundle

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iudanet/schoolsync/internal/models"
)

// FormatVersion is the only bundle layout this package reads and writes.
const FormatVersion = 1

const (
	// MetadataMember holds the manifest; it is written last.
	MetadataMember = "_metadata"

	rosterPrefix = "_all_"
	rosterSuffix = "_ids"
	ext          = ".csv"

	keyFormatVersion = "format_version"
	keyBundleID      = "bundle_id"
	keyReplicaID     = "replica_id"
	keyExportedAt    = "export_timestamp"
	keyScope         = "scope"
	keyCountPrefix   = "count."
	keyChecksumPfx   = "checksum."
)

// Manifest describes one bundle.
type Manifest struct {
	ExportedAt    time.Time
	Counts        map[string]int
	Checksums     map[string]string
	BundleID      string
	ReplicaID     string
	Scope         models.SyncScope
	FormatVersion int
}

func newManifest() *Manifest {
	return &Manifest{
		FormatVersion: FormatVersion,
		Counts:        make(map[string]int),
		Checksums:     make(map[string]string),
	}
}

// RosterMember returns the member holding the id roster of member.
func RosterMember(member string) string {
	return rosterPrefix + member + rosterSuffix
}

// Members returns the data and roster members listed in the manifest, sorted.
func (m *Manifest) Members() []string {
	out := make([]string, 0, len(m.Counts))
	for name := range m.Counts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (m *Manifest) encode(w io.Writer) error {
	cw := csv.NewWriter(w)

	rows := [][]string{
		{"key", "value"},
		{keyFormatVersion, strconv.Itoa(m.FormatVersion)},
		{keyBundleID, m.BundleID},
		{keyReplicaID, m.ReplicaID},
		{keyExportedAt, models.FormatDateTime(m.ExportedAt)},
		{keyScope, m.Scope.String()},
	}
	for _, name := range m.Members() {
		rows = append(rows,
			[]string{keyCountPrefix + name, strconv.Itoa(m.Counts[name])},
			[]string{keyChecksumPfx + name, m.Checksums[name]},
		)
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func decodeManifest(r io.Reader) (*Manifest, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || records[0][0] != "key" || records[0][1] != "value" {
		return nil, fmt.Errorf("missing key,value header")
	}

	m := newManifest()
	m.FormatVersion = 0
	for _, rec := range records[1:] {
		key, value := rec[0], rec[1]
		switch {
		case key == keyFormatVersion:
			if m.FormatVersion, err = strconv.Atoi(value); err != nil {
				return nil, fmt.Errorf("invalid %s %q", key, value)
			}
		case key == keyBundleID:
			m.BundleID = value
		case key == keyReplicaID:
			m.ReplicaID = value
		case key == keyExportedAt:
			if m.ExportedAt, err = models.ParseDateTime(value); err != nil {
				return nil, fmt.Errorf("invalid %s: %w", key, err)
			}
		case key == keyScope:
			if m.Scope, err = models.ParseScope(value); err != nil {
				return nil, err
			}
		case strings.HasPrefix(key, keyCountPrefix):
			n, convErr := strconv.Atoi(value)
			if convErr != nil || n < 0 {
				return nil, fmt.Errorf("invalid %s %q", key, value)
			}
			m.Counts[strings.TrimPrefix(key, keyCountPrefix)] = n
		case strings.HasPrefix(key, keyChecksumPfx):
			m.Checksums[strings.TrimPrefix(key, keyChecksumPfx)] = value
		}
		// неизвестные ключи пропускаем: их мог добавить более новый экспортер
	}

	if m.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("unsupported format version %d", m.FormatVersion)
	}
	if m.BundleID == "" {
		return nil, fmt.Errorf("missing %s", keyBundleID)
	}
	if m.Scope.Kind == "" {
		return nil, fmt.Errorf("missing %s", keyScope)
	}
	return m, nil
}
