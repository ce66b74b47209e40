package sync

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/iudanet/schoolsync/internal/bundle"
	"github.com/iudanet/schoolsync/internal/models"
	"github.com/iudanet/schoolsync/internal/storage"
)

// Export writes a snapshot of the replica within scope.
// Full scopes carry every table and the rosters of roster-capable types,
// a group scope carries only the per-group views.
func (s *service) Export(ctx context.Context, scope models.SyncScope, w io.Writer) (*bundle.Manifest, error) {
	replicaID, err := s.journal.ReplicaID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get replica id: %w", err)
	}

	now := s.clock.Now()
	bw, err := bundle.NewWriter(w, bundle.Header{ReplicaID: replicaID, Scope: scope, ExportedAt: now})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Starting export", "scope", scope.String(), "bundle_id", bw.Manifest().BundleID)

	// Один снимок: все таблицы читаются в одной транзакции
	err = s.store.View(ctx, func(ctx context.Context, rec storage.Records) error {
		if !scope.Full() {
			return s.exportGroup(ctx, rec, bw, scope.ID)
		}
		for _, sch := range models.Schemas() {
			if err := exportTable(ctx, rec, bw, sch, scope); err != nil {
				return err
			}
			if sch.Roster {
				if err := exportRoster(ctx, rec, bw, sch, scope); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export failed: %w", err)
	}

	if err := bw.Close(); err != nil {
		return nil, err
	}

	m := bw.Manifest()
	s.metrics.ObserveExport(m.Counts, now)
	s.logger.Info("Export completed",
		"bundle_id", m.BundleID,
		"scope", scope.String(),
		"members", len(m.Counts))

	return m, nil
}

func (s *service) exportGroup(ctx context.Context, rec storage.Records, bw *bundle.Writer, groupID int64) error {
	ok, err := rec.Exists(ctx, models.Group, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("group %d: %w", groupID, storage.ErrRecordNotFound)
	}

	for _, v := range models.Views() {
		tw, err := bw.Table(v.Member, v.Columns())
		if err != nil {
			return err
		}
		err = rec.ScanView(ctx, v, groupID, func(r models.Record) error {
			return tw.Write(values(v.Columns(), r))
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func exportTable(ctx context.Context, rec storage.Records, bw *bundle.Writer, sch *models.Schema, scope models.SyncScope) error {
	cols := sch.Columns()
	tw, err := bw.Table(sch.Member, cols)
	if err != nil {
		return err
	}
	return rec.Scan(ctx, sch, scope, func(r models.Record) error {
		return tw.Write(values(cols, r))
	})
}

// exportRoster пишет полный список id в той же границе, что и таблица
func exportRoster(ctx context.Context, rec storage.Records, bw *bundle.Writer, sch *models.Schema, scope models.SyncScope) error {
	ids, err := rec.IDs(ctx, sch, scope)
	if err != nil {
		return err
	}
	tw, err := bw.Roster(sch.Member)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := tw.Write([]string{strconv.FormatInt(id, 10)}); err != nil {
			return err
		}
	}
	return nil
}

func values(cols []string, r models.Record) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = r[c]
	}
	return out
}

// ExportFile writes the bundle to a temporary file next to path and renames it
// into place, so a reader never sees a partial bundle.
func (s *service) ExportFile(ctx context.Context, scope models.SyncScope, path string) (*bundle.Manifest, error) {
	dir := filepath.Dir(path)
	file, err := os.CreateTemp(dir, ".schoolsync-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("export: create temp file: %w", err)
	}
	tempPath := file.Name()

	m, err := s.Export(ctx, scope, file)
	if err != nil {
		file.Close()
		os.Remove(tempPath)
		return nil, err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return nil, fmt.Errorf("export: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("export: close: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("export: rename: %w", err)
	}

	return m, nil
}
