package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/iudanet/schoolsync/internal/bundle"
	"github.com/iudanet/schoolsync/internal/crdt"
	"github.com/iudanet/schoolsync/internal/models"
	"github.com/iudanet/schoolsync/internal/storage"
)

// RecordConflicts lists the differing fields of one record
type RecordConflicts struct {
	Type      models.EntityType
	Key       string
	Conflicts []crdt.Conflict
}

// ConflictReport is the read-only comparison of a bundle with the local store
type ConflictReport struct {
	// New количество записей бандла, которых нет локально
	New map[models.EntityType]int
	// Deletions записи, которые будут удалены по ростеру (без учета каскада)
	Deletions map[models.EntityType]int
	BundleID  string
	Source    string
	Records   []RecordConflicts
	Errors    []string
	Scope     models.SyncScope
}

// Empty reports whether applying the bundle would change nothing visible
func (r *ConflictReport) Empty() bool {
	return len(r.New) == 0 && len(r.Deletions) == 0 && len(r.Records) == 0
}

// Preview compares every row of the bundle with the local store.
// Nothing is written.
func (s *service) Preview(ctx context.Context, bundlePath string) (*ConflictReport, error) {
	br, err := bundle.Open(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle: %w", err)
	}
	defer br.Close()

	m := br.Manifest()
	report := &ConflictReport{
		New:       make(map[models.EntityType]int),
		Deletions: make(map[models.EntityType]int),
		BundleID:  m.BundleID,
		Source:    m.ReplicaID,
		Scope:     m.Scope,
	}

	err = s.store.View(ctx, func(ctx context.Context, rec storage.Records) error {
		d := newDecoder(rec, func(_ models.EntityType, e *models.RowError) {
			report.Errors = append(report.Errors, e.Error())
		})

		compare := func(ctx context.Context, in *incoming) error {
			local, err := d.find(ctx, in)
			if errors.Is(err, storage.ErrRecordNotFound) {
				report.New[in.schema.Type]++
				// дочерние строки новой записи не являются разрывом ссылок
				if !in.fromView {
					id, err := strconv.ParseInt(in.key[models.KeyColumn], 10, 64)
					if err != nil {
						return fmt.Errorf("invalid id %q: %w", in.key[models.KeyColumn], err)
					}
					d.confirm(in.schema.Type, id)
				}
				return nil
			}
			if err != nil {
				return err
			}

			remote := in.rec.Clone()
			delete(remote, models.KeyColumn)
			// сравниваем только колонки, присутствующие в бандле
			conflicts := crdt.DetectConflicts(local.Subset(keys(remote)), remote)
			if len(conflicts) > 0 {
				report.Records = append(report.Records, RecordConflicts{
					Type:      in.schema.Type,
					Key:       in.key.String(),
					Conflicts: conflicts,
				})
			}
			return nil
		}

		for _, sch := range models.Schemas() {
			if br.Has(sch.Member) {
				if err := d.eachTable(ctx, br, sch, compare); err != nil {
					return err
				}
			}
			if m.Scope.Full() && sch.Roster && br.HasRoster(sch.Member) {
				n, err := countMissing(ctx, rec, br, sch, m.Scope)
				if err != nil {
					return err
				}
				if n > 0 {
					report.Deletions[sch.Type] = n
				}
			}
		}

		if m.Scope.Kind == models.ScopeKindGroup {
			for _, v := range models.Views() {
				if !br.Has(v.Member) {
					continue
				}
				if err := d.eachView(ctx, br, v, m.Scope.ID, compare); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("preview failed: %w", err)
	}

	s.logger.Debug("Conflict preview built",
		"bundle_id", report.BundleID,
		"conflicting_records", len(report.Records),
		"errors", len(report.Errors))

	return report, nil
}

func countMissing(ctx context.Context, rec storage.Records, br *bundle.Reader, sch *models.Schema, scope models.SyncScope) (int, error) {
	roster, err := br.Roster(sch.Member)
	if err != nil {
		return 0, err
	}
	local, err := rec.IDs(ctx, sch, scope)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range local {
		if _, ok := roster[id]; !ok {
			n++
		}
	}
	return n, nil
}

func keys(r models.Record) []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	return out
}
