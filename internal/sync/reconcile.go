package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/iudanet/schoolsync/internal/bundle"
	"github.com/iudanet/schoolsync/internal/crdt"
	"github.com/iudanet/schoolsync/internal/models"
	"github.com/iudanet/schoolsync/internal/storage"
)

// errDryRun откатывает транзакцию пробного прогона
var errDryRun = errors.New("dry run")

// Reconcile applies the bundle at bundlePath to the local store
func (s *service) Reconcile(ctx context.Context, bundlePath, actor string) (*models.ReconciliationResult, error) {
	return s.reconcile(ctx, bundlePath, actor, false)
}

// DryRun computes the full result of Reconcile and discards every change
func (s *service) DryRun(ctx context.Context, bundlePath, actor string) (*models.ReconciliationResult, error) {
	return s.reconcile(ctx, bundlePath, actor, true)
}

func (s *service) reconcile(ctx context.Context, bundlePath, actor string, dryRun bool) (*models.ReconciliationResult, error) {
	br, err := bundle.Open(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle: %w", err)
	}
	defer br.Close()

	m := br.Manifest()
	s.logger.Info("Starting reconciliation",
		"bundle_id", m.BundleID,
		"source_replica", m.ReplicaID,
		"scope", m.Scope.String(),
		"actor", actor,
		"dry_run", dryRun)

	// Повторное применение безопасно, но о нем стоит знать
	prev, err := s.journal.GetImport(ctx, m.BundleID)
	switch {
	case err == nil:
		s.logger.Info("Bundle was already applied, re-applying",
			"bundle_id", m.BundleID,
			"applied_at", prev.AppliedAt,
			"actor", prev.Actor)
	case !errors.Is(err, storage.ErrImportNotFound):
		s.logger.Warn("Failed to check import journal", "error", err)
	}

	result := models.NewReconciliationResult()
	result.BundleID = m.BundleID
	result.SourceReplica = m.ReplicaID
	result.Scope = m.Scope
	result.DryRun = dryRun

	err = s.store.Update(ctx, func(ctx context.Context, rec storage.Records) error {
		a := &applier{rec: rec, result: result, service: s}
		a.decoder = newDecoder(rec, a.skip)
		if err := a.apply(ctx, br); err != nil {
			return err
		}
		if dryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		s.logger.Error("Reconciliation aborted, no changes applied",
			"bundle_id", m.BundleID,
			"error", err)
		return nil, fmt.Errorf("reconciliation failed: %w", err)
	}

	totals := result.Totals()
	s.logger.Info("Reconciliation completed",
		"bundle_id", m.BundleID,
		"added", totals.Added,
		"updated", totals.Updated,
		"deleted", totals.Deleted,
		"errors", len(result.RowErrors),
		"dry_run", dryRun)

	if dryRun {
		return result, nil
	}

	now := s.clock.Now()
	if err := s.journal.SaveImport(ctx, models.NewImportEntry(result, actor, now)); err != nil {
		s.logger.Warn("Failed to save import journal entry", "error", err)
		// Не прерываем: изменения уже зафиксированы
	}
	s.metrics.ObserveReconcile(result, now)

	return result, nil
}

// applier merges one bundle inside the run transaction
type applier struct {
	*decoder
	rec     storage.Records
	result  *models.ReconciliationResult
	service *service
}

func (a *applier) skip(t models.EntityType, e *models.RowError) {
	a.service.logger.Warn("Skipping bundle row",
		"type", t,
		"member", e.Member,
		"line", e.Line,
		"key", e.Key,
		"reason", e.Error())
	a.result.AddError(e)
}

func (a *applier) apply(ctx context.Context, br *bundle.Reader) error {
	scope := br.Manifest().Scope

	if !scope.Full() {
		// бандл группы никогда не несет удалений
		for _, sch := range models.Schemas() {
			if sch.Roster && br.HasRoster(sch.Member) {
				return &bundle.ArchiveError{
					Member: bundle.RosterMember(sch.Member),
					Err:    fmt.Errorf("roster in %s bundle", scope),
				}
			}
		}
	}

	for _, sch := range models.Schemas() {
		if br.Has(sch.Member) {
			if err := a.eachTable(ctx, br, sch, a.merge); err != nil {
				return err
			}
		}
		if scope.Full() && sch.Roster && br.HasRoster(sch.Member) {
			if err := a.deleteMissing(ctx, br, sch, scope); err != nil {
				return err
			}
		}
	}

	if scope.Kind == models.ScopeKindGroup {
		for _, v := range models.Views() {
			if !br.Has(v.Member) {
				continue
			}
			if err := a.eachView(ctx, br, v, scope.ID, a.merge); err != nil {
				return err
			}
		}
	}

	return nil
}

// merge вставляет новую запись или сливает ее с локальной по полям
func (a *applier) merge(ctx context.Context, in *incoming) error {
	sch := in.schema
	var outcome string

	err := a.rec.Savepoint(ctx, func(ctx context.Context) error {
		local, err := a.find(ctx, in)
		if errors.Is(err, storage.ErrRecordNotFound) {
			rec := in.rec
			if in.fromView && sch.HasUID() && rec[models.UIDColumn] == "" {
				rec = rec.Clone()
				rec[models.UIDColumn] = uuid.NewString()
			}
			id, err := a.rec.Insert(ctx, sch, rec)
			if err != nil {
				return err
			}
			a.confirm(sch.Type, id)
			if in.fromView {
				a.claimed[refKey{t: sch.Type, id: id}] = struct{}{}
			}
			outcome = "added"
			return nil
		}
		if err != nil {
			return err
		}

		changes, rowErr := mergeChanges(in, local)
		if rowErr != nil {
			return rowErr
		}
		if len(changes) == 0 {
			return nil
		}

		id, err := recordID(local)
		if err != nil {
			return err
		}
		if err := a.rec.Update(ctx, sch, id, changes); err != nil {
			return err
		}
		outcome = "updated"
		return nil
	})
	if err != nil {
		return err
	}

	switch outcome {
	case "added":
		a.result.Stats(sch.Type).Added++
	case "updated":
		a.result.Stats(sch.Type).Updated++
	}
	if outcome != "" {
		a.service.logger.Debug("Record merged",
			"type", sch.Type,
			"key", in.key.String(),
			"outcome", outcome)
	}
	return nil
}

// mergeChanges возвращает изменившиеся поля локальной записи
func mergeChanges(in *incoming, local models.Record) (models.Record, error) {
	sch := in.schema
	localUID, remoteUID := local[models.UIDColumn], in.rec[models.UIDColumn]
	if sch.HasUID() && localUID != "" && remoteUID != "" && localUID != remoteUID {
		return nil, in.rowError(models.ErrIntegrityRisk,
			"local uid %s, remote uid %s: ids name different records", localUID, remoteUID)
	}

	fields := make([]string, 0, len(sch.Fields))
	for _, f := range sch.Fields {
		if f.Name == models.KeyColumn || f.Name == models.UIDColumn {
			continue
		}
		fields = append(fields, f.Name)
	}

	changes := models.Record(crdt.MergeRecord(fields, local, in.rec,
		local.Timestamp(sch.Timestamp), in.rec.Timestamp(sch.Timestamp)))
	if sch.HasUID() && localUID == "" && remoteUID != "" {
		changes[models.UIDColumn] = remoteUID
	}
	return changes, nil
}

// deleteMissing удаляет локальные записи в границе бандла, которых нет в ростере
func (a *applier) deleteMissing(ctx context.Context, br *bundle.Reader, sch *models.Schema, scope models.SyncScope) error {
	roster, err := br.Roster(sch.Member)
	if err != nil {
		return err
	}
	local, err := a.rec.IDs(ctx, sch, scope)
	if err != nil {
		return err
	}

	for _, id := range local {
		if _, ok := roster[id]; ok {
			continue
		}
		counts, err := a.rec.Delete(ctx, sch, id)
		if err != nil {
			return err
		}
		for t, n := range counts {
			a.result.Stats(t).Deleted += n
		}
		a.service.logger.Debug("Record deleted by roster",
			"type", sch.Type,
			"id", id,
			"cascade", counts)
	}

	a.forget()
	return nil
}
