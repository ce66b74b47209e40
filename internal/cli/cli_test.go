package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/schoolsync/internal/bundle"
	"github.com/iudanet/schoolsync/internal/crdt"
	"github.com/iudanet/schoolsync/internal/iocli"
	"github.com/iudanet/schoolsync/internal/logging"
	"github.com/iudanet/schoolsync/internal/models"
	"github.com/iudanet/schoolsync/internal/storage/boltdb"
	"github.com/iudanet/schoolsync/internal/sync"
)

// newTestIO собирает весь вывод в один буфер
func newTestIO(terminal bool, answer string) (*iocli.IOMock, *strings.Builder) {
	out := &strings.Builder{}
	mockIO := &iocli.IOMock{
		PrintlnFunc: func(a ...any) {
			fmt.Fprintln(out, a...)
		},
		PrintfFunc: func(format string, a ...any) {
			fmt.Fprintf(out, format, a...)
		},
		WriteFunc: func(p []byte) (int, error) {
			return out.Write(p)
		},
		IsTerminalFunc: func() bool {
			return terminal
		},
		ReadInputFunc: func(prompt string) (string, error) {
			out.WriteString(prompt)
			return answer, nil
		},
	}
	return mockIO, out
}

func sampleResult(dryRun bool) *models.ReconciliationResult {
	res := models.NewReconciliationResult()
	res.BundleID = "01K4R7J5Z8ZC3Q0W4ZB1T3M9XA"
	res.SourceReplica = "office"
	res.Scope = models.ScopeAll()
	res.DryRun = dryRun
	res.Stats(models.Person).Added = 2
	res.Stats(models.Session).Updated = 1
	res.Stats(models.Membership).Deleted = 1
	res.Stats(models.AttendanceMark).Deleted = 3
	return res
}

func sampleReport() *sync.ConflictReport {
	return &sync.ConflictReport{
		New:       map[models.EntityType]int{models.Person: 1},
		Deletions: map[models.EntityType]int{models.Membership: 1},
		BundleID:  "01K4R7J5Z8ZC3Q0W4ZB1T3M9XA",
		Source:    "office",
		Scope:     models.ScopeAll(),
		Records: []sync.RecordConflicts{
			{
				Type: models.Person,
				Key:  "id=1",
				Conflicts: []crdt.Conflict{
					{Key: "phone", Kind: crdt.BothModified, Local: "555-0100", Remote: "555-0101"},
				},
			},
		},
	}
}

func TestCli_runImport_DryRun(t *testing.T) {
	mockIO, out := newTestIO(true, "")
	mockSync := &sync.ServiceMock{
		DryRunFunc: func(ctx context.Context, bundlePath, actor string) (*models.ReconciliationResult, error) {
			return sampleResult(true), nil
		},
	}
	c := &Cli{io: mockIO, syncService: mockSync, logger: logging.Discard()}

	err := c.runImport(context.Background(), "office.ssb", ImportOptions{Actor: "laptop", DryRun: true})
	require.NoError(t, err)

	require.Len(t, mockSync.DryRunCalls(), 1)
	assert.Equal(t, "office.ssb", mockSync.DryRunCalls()[0].BundlePath)
	assert.Equal(t, "laptop", mockSync.DryRunCalls()[0].Actor)
	assert.Empty(t, mockSync.ReconcileCalls())
	assert.Empty(t, mockIO.ReadInputCalls())

	output := out.String()
	assert.Contains(t, output, "=== Dry Run Result ===")
	assert.Contains(t, output, "Scope:   all")
	assert.Contains(t, output, "attendance_mark")
	assert.Regexp(t, `TOTAL\s+2\s+1\s+4`, output)
	assert.Contains(t, output, "Dry run: no changes were applied.")
}

func TestCli_runImport_Yes(t *testing.T) {
	mockIO, out := newTestIO(false, "")
	mockSync := &sync.ServiceMock{
		ReconcileFunc: func(ctx context.Context, bundlePath, actor string) (*models.ReconciliationResult, error) {
			res := sampleResult(false)
			res.AddError(models.NewRowError(models.ErrReferentialGap, "sessions", 4, "group_id 99 not found"))
			return res, nil
		},
	}
	c := &Cli{io: mockIO, syncService: mockSync, logger: logging.Discard()}

	err := c.runImport(context.Background(), "office.ssb", ImportOptions{Actor: "laptop", Yes: true})
	require.NoError(t, err, "row errors do not fail the import")

	assert.Len(t, mockSync.ReconcileCalls(), 1)
	assert.Empty(t, mockSync.PreviewCalls())

	output := out.String()
	assert.Contains(t, output, "=== Import Result ===")
	assert.Contains(t, output, "Skipped rows (1):")
	assert.Contains(t, output, "sessions line 4: referential gap: group_id 99 not found")
	assert.Contains(t, output, "✓ Bundle applied, 1 row skipped")
}

func TestCli_runImport_Confirmation(t *testing.T) {
	tests := []struct {
		name      string
		answer    string
		reconcile bool
		want      string
	}{
		{name: "yes", answer: "y", reconcile: true, want: "✓ Bundle applied"},
		{name: "full yes", answer: "YES", reconcile: true, want: "✓ Bundle applied"},
		{name: "no", answer: "n", want: "Import cancelled."},
		{name: "empty answer", answer: "", want: "Import cancelled."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockIO, out := newTestIO(true, tt.answer)
			mockSync := &sync.ServiceMock{
				PreviewFunc: func(ctx context.Context, bundlePath string) (*sync.ConflictReport, error) {
					return sampleReport(), nil
				},
				ReconcileFunc: func(ctx context.Context, bundlePath, actor string) (*models.ReconciliationResult, error) {
					return sampleResult(false), nil
				},
			}
			c := &Cli{io: mockIO, syncService: mockSync, logger: logging.Discard()}

			err := c.runImport(context.Background(), "office.ssb", ImportOptions{Actor: "laptop"})
			require.NoError(t, err)

			assert.Len(t, mockSync.PreviewCalls(), 1)
			require.Len(t, mockIO.ReadInputCalls(), 1)
			assert.Equal(t, "Apply this bundle? [y/N]: ", mockIO.ReadInputCalls()[0].Prompt)
			if tt.reconcile {
				assert.Len(t, mockSync.ReconcileCalls(), 1)
			} else {
				assert.Empty(t, mockSync.ReconcileCalls())
			}
			assert.Contains(t, out.String(), "=== Conflict Preview ===")
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestCli_runImport_NotTerminal(t *testing.T) {
	mockIO, _ := newTestIO(false, "")
	mockSync := &sync.ServiceMock{
		PreviewFunc: func(ctx context.Context, bundlePath string) (*sync.ConflictReport, error) {
			return sampleReport(), nil
		},
	}
	c := &Cli{io: mockIO, syncService: mockSync, logger: logging.Discard()}

	err := c.runImport(context.Background(), "office.ssb", ImportOptions{})
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.Empty(t, mockIO.ReadInputCalls())
	assert.Empty(t, mockSync.ReconcileCalls())
}

func TestCli_runImport_Errors(t *testing.T) {
	archive := &bundle.ArchiveError{Member: "sessions", Err: errors.New("checksum mismatch")}

	t.Run("reconcile", func(t *testing.T) {
		mockIO, _ := newTestIO(true, "")
		mockSync := &sync.ServiceMock{
			ReconcileFunc: func(ctx context.Context, bundlePath, actor string) (*models.ReconciliationResult, error) {
				return nil, archive
			},
		}
		c := &Cli{io: mockIO, syncService: mockSync, logger: logging.Discard()}

		err := c.runImport(context.Background(), "office.ssb", ImportOptions{Yes: true})
		assert.ErrorIs(t, err, models.ErrArchive)
		assert.Contains(t, err.Error(), "import failed")
	})

	t.Run("preview", func(t *testing.T) {
		mockIO, _ := newTestIO(true, "y")
		mockSync := &sync.ServiceMock{
			PreviewFunc: func(ctx context.Context, bundlePath string) (*sync.ConflictReport, error) {
				return nil, archive
			},
		}
		c := &Cli{io: mockIO, syncService: mockSync, logger: logging.Discard()}

		err := c.runImport(context.Background(), "office.ssb", ImportOptions{})
		assert.ErrorIs(t, err, models.ErrArchive)
		assert.Empty(t, mockIO.ReadInputCalls())
	})
}

func TestCli_runConflicts(t *testing.T) {
	mockIO, out := newTestIO(false, "")
	mockSync := &sync.ServiceMock{
		PreviewFunc: func(ctx context.Context, bundlePath string) (*sync.ConflictReport, error) {
			r := sampleReport()
			r.Errors = []string{"persons line 3: malformed row: birth_date: invalid date \"31/12\""}
			return r, nil
		},
	}
	c := &Cli{io: mockIO, syncService: mockSync, logger: logging.Discard()}

	require.NoError(t, c.runConflicts(context.Background(), "office.ssb"))

	output := out.String()
	assert.Contains(t, output, "Source:  office")
	assert.Regexp(t, `person\s+1\s+0\s+1`, output)
	assert.Regexp(t, `membership\s+0\s+1\s+0`, output)
	assert.Contains(t, output, "person id=1")
	assert.Regexp(t, `phone\s+both_modified\s+555-0100\s+555-0101`, output)
	assert.Contains(t, output, "Rows that will be skipped (1):")
}

func TestCli_runConflicts_Empty(t *testing.T) {
	mockIO, out := newTestIO(false, "")
	mockSync := &sync.ServiceMock{
		PreviewFunc: func(ctx context.Context, bundlePath string) (*sync.ConflictReport, error) {
			return &sync.ConflictReport{Scope: models.ScopeGroup(12)}, nil
		},
	}
	c := &Cli{io: mockIO, syncService: mockSync, logger: logging.Discard()}

	require.NoError(t, c.runConflicts(context.Background(), "guitar.ssb"))
	assert.Contains(t, out.String(), "Scope:   group:12")
	assert.Contains(t, out.String(), "No differences with the local store.")
}

func TestCli_runExport(t *testing.T) {
	mockIO, out := newTestIO(false, "")
	mockSync := &sync.ServiceMock{
		ExportFileFunc: func(ctx context.Context, scope models.SyncScope, path string) (*bundle.Manifest, error) {
			return &bundle.Manifest{
				BundleID:   "01K4R7J5Z8ZC3Q0W4ZB1T3M9XA",
				ReplicaID:  "office",
				Scope:      scope,
				ExportedAt: time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC),
				Counts:     map[string]int{"attendance": 12, "payments": 3},
				Checksums:  map[string]string{},
			}, nil
		},
	}
	c := &Cli{io: mockIO, syncService: mockSync, logger: logging.Discard()}

	require.NoError(t, c.runExport(context.Background(), models.ScopeGroup(12), "guitar.ssb"))

	require.Len(t, mockSync.ExportFileCalls(), 1)
	assert.Equal(t, models.ScopeGroup(12), mockSync.ExportFileCalls()[0].Scope)

	output := out.String()
	assert.Contains(t, output, "Exported: 2025-09-10T12:00:00Z")
	assert.Regexp(t, `attendance\s+12`, output)
	assert.Regexp(t, `payments\s+3`, output)
	assert.Contains(t, output, "✓ Bundle written to guitar.ssb")
}

func TestCli_runHistory(t *testing.T) {
	ctx := context.Background()
	state, err := boltdb.New(ctx, filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer state.Close()

	mockIO, out := newTestIO(false, "")
	c := &Cli{io: mockIO, history: state, logger: logging.Discard()}

	require.NoError(t, c.runHistory(ctx, 0))
	assert.Contains(t, out.String(), "No bundles imported yet.")

	for i, actor := range []string{"office", "laptop"} {
		res := sampleResult(false)
		res.BundleID = fmt.Sprintf("bundle-%d", i)
		require.NoError(t, state.SaveImport(ctx, models.NewImportEntry(res, actor, time.Now())))
	}

	out.Reset()
	require.NoError(t, c.runHistory(ctx, 1))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "APPLIED")
	assert.Contains(t, lines[1], "bundle-1")
	assert.Regexp(t, `laptop\s+2\s+1\s+4\s+0`, lines[1])
}

func TestConfirmed(t *testing.T) {
	for _, answer := range []string{"y", "Y", "yes", " yes "} {
		assert.True(t, confirmed(answer), answer)
	}
	for _, answer := range []string{"", "n", "no", "yep"} {
		assert.False(t, confirmed(answer), answer)
	}
}

func TestResolveActor(t *testing.T) {
	assert.Equal(t, "flag", resolveActor("flag", "config"))
	assert.Equal(t, "config", resolveActor("", "config"))
	assert.NotEmpty(t, resolveActor("", ""))
}
