package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/iudanet/schoolsync/internal/bundle"
	"github.com/iudanet/schoolsync/internal/models"
	"github.com/iudanet/schoolsync/internal/storage"
)

// incoming is one decoded bundle row ready to be merged
type incoming struct {
	schema *models.Schema
	// key колонки, по которым ищется локальная запись
	key    models.Record
	rec    models.Record
	member string
	line   int
	// fromView строка пришла из представления и не несет id
	fromView bool
}

func (in *incoming) rowError(kind error, format string, args ...any) *models.RowError {
	e := models.NewRowError(kind, in.member, in.line, format, args...)
	e.Key = in.key.String()
	return e
}

type refKey struct {
	t  models.EntityType
	id int64
}

// decoder streams bundle rows as incoming records.
// Row-level failures are passed to onRowError; anything else aborts.
type decoder struct {
	rec        storage.Records
	onRowError func(t models.EntityType, e *models.RowError)
	// refs кэш подтвержденных внешних ключей
	refs map[refKey]struct{}
	// claimed локальные записи, уже сопоставленные строкам представлений
	claimed map[refKey]struct{}
}

func newDecoder(rec storage.Records, onRowError func(models.EntityType, *models.RowError)) *decoder {
	return &decoder{
		rec:        rec,
		onRowError: onRowError,
		refs:       make(map[refKey]struct{}),
		claimed:    make(map[refKey]struct{}),
	}
}

// forget сбрасывает кэш после удалений
func (d *decoder) forget() {
	d.refs = make(map[refKey]struct{})
}

func requireColumns(tr *bundle.TableReader, fields []models.Field) error {
	for _, f := range fields {
		if f.Optional || f.Info {
			continue
		}
		if !tr.Has(f.Name) {
			return &bundle.ArchiveError{Member: tr.Member(), Err: fmt.Errorf("missing required column %q", f.Name)}
		}
	}
	return nil
}

// canonical разбирает присутствующие в строке поля; отсутствующие колонки не попадают в запись
func canonical(row bundle.Row, fields []models.Field, member string) (models.Record, *models.RowError) {
	rec := make(models.Record, len(fields))
	for _, f := range fields {
		if f.Info {
			continue
		}
		raw, ok := row.Get(f.Name)
		if !ok {
			continue
		}
		v, err := f.Kind.Canonical(raw)
		if err != nil {
			return nil, models.NewRowError(models.ErrMalformedRow, member, row.Line, "%s: %v", f.Name, err)
		}
		rec[f.Name] = v
	}
	return rec, nil
}

// each iterates the rows of a member and hands each decoded row to fn
func (d *decoder) each(ctx context.Context, tr *bundle.TableReader, t models.EntityType,
	decode func(bundle.Row) (*incoming, error), fn func(context.Context, *incoming) error) error {
	for {
		row, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err == nil {
			var in *incoming
			if in, err = decode(row); err == nil {
				err = d.checkRefs(ctx, in)
			}
			if err == nil {
				err = fn(ctx, in)
			}
		}

		var rowErr *models.RowError
		if errors.As(err, &rowErr) {
			d.onRowError(t, rowErr)
			continue
		}
		if err != nil {
			return err
		}
	}
}

// eachTable streams an entity table
func (d *decoder) eachTable(ctx context.Context, br *bundle.Reader, sch *models.Schema, fn func(context.Context, *incoming) error) error {
	tr, err := br.Table(sch.Member)
	if err != nil {
		return err
	}
	defer tr.Close()

	if err := requireColumns(tr, sch.Fields); err != nil {
		return err
	}

	return d.each(ctx, tr, sch.Type, func(row bundle.Row) (*incoming, error) {
		rec, rowErr := canonical(row, sch.Fields, sch.Member)
		if rowErr != nil {
			return nil, rowErr
		}
		if rec[models.KeyColumn] == "" {
			return nil, models.NewRowError(models.ErrMalformedRow, sch.Member, row.Line, "empty %s", models.KeyColumn)
		}
		return &incoming{
			schema: sch,
			key:    models.Record{models.KeyColumn: rec[models.KeyColumn]},
			rec:    rec,
			member: sch.Member,
			line:   row.Line,
		}, nil
	}, fn)
}

// eachView streams a per-group view, mapping its rows onto the target table
func (d *decoder) eachView(ctx context.Context, br *bundle.Reader, v *models.View, groupID int64, fn func(context.Context, *incoming) error) error {
	tr, err := br.Table(v.Member)
	if err != nil {
		return err
	}
	defer tr.Close()

	if err := requireColumns(tr, v.Fields); err != nil {
		return err
	}

	target := models.MustSchema(v.Target)
	return d.each(ctx, tr, target.Type, func(row bundle.Row) (*incoming, error) {
		raw, rowErr := canonical(row, v.Fields, v.Member)
		if rowErr != nil {
			return nil, rowErr
		}

		rec := make(models.Record, len(raw)+1)
		for name, val := range raw {
			rec[v.TargetColumn(name)] = val
		}

		// отметка посещаемости ссылается на абонемент человека в группе
		if _, ok := target.Field("membership_id"); ok && rec["membership_id"] == "" && rec["person_id"] != "" {
			personID, err := strconv.ParseInt(rec["person_id"], 10, 64)
			if err != nil {
				return nil, models.NewRowError(models.ErrMalformedRow, v.Member, row.Line,
					"person_id: invalid id %q", rec["person_id"])
			}
			mid, err := d.rec.MembershipFor(ctx, personID, groupID)
			if errors.Is(err, storage.ErrRecordNotFound) {
				return nil, models.NewRowError(models.ErrReferentialGap, v.Member, row.Line,
					"person %d has no membership in group %d", personID, groupID)
			}
			if err != nil {
				return nil, err
			}
			rec["membership_id"] = strconv.FormatInt(mid, 10)
		}

		if err := d.checkGroup(ctx, target, rec, groupID, v.Member, row.Line); err != nil {
			return nil, err
		}

		key := make(models.Record, len(v.Key))
		for _, k := range v.Key {
			key[k] = rec[k]
		}
		return &incoming{
			schema:   target,
			key:      key,
			rec:      rec,
			member:   v.Member,
			line:     row.Line,
			fromView: true,
		}, nil
	}, fn)
}

// checkRefs проверяет, что все внешние ключи существуют локально.
// Недостающие записи никогда не создаются автоматически.
func (d *decoder) checkRefs(ctx context.Context, in *incoming) error {
	for _, f := range in.schema.Fields {
		if f.Ref == "" {
			continue
		}
		v := in.rec[f.Name]
		if v == "" {
			continue
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return in.rowError(models.ErrMalformedRow, "%s: invalid id %q", f.Name, v)
		}

		k := refKey{t: f.Ref, id: id}
		if _, ok := d.refs[k]; ok {
			continue
		}
		ok, err := d.rec.Exists(ctx, f.Ref, id)
		if err != nil {
			return err
		}
		if !ok {
			return in.rowError(models.ErrReferentialGap, "%s %d not found", f.Name, id)
		}
		d.refs[k] = struct{}{}
	}
	return nil
}

// confirm запоминает только что записанную запись как существующую
func (d *decoder) confirm(t models.EntityType, id int64) {
	d.refs[refKey{t: t, id: id}] = struct{}{}
}

// checkGroup проверяет, что занятие и абонемент строки представления
// относятся к группе бандла. Отсутствующие записи оставлены checkRefs.
func (d *decoder) checkGroup(ctx context.Context, target *models.Schema, rec models.Record, groupID int64, member string, line int) error {
	group := strconv.FormatInt(groupID, 10)
	for _, f := range target.Fields {
		if f.Ref != models.Session && f.Ref != models.Membership {
			continue
		}
		v := rec[f.Name]
		if v == "" {
			continue
		}
		owner, err := d.rec.Find(ctx, models.MustSchema(f.Ref), models.Record{models.KeyColumn: v})
		if errors.Is(err, storage.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if owner["group_id"] != group {
			return models.NewRowError(models.ErrReferentialGap, member, line,
				"%s %s belongs to group %s, not %d", f.Name, v, owner["group_id"], groupID)
		}
	}
	return nil
}

// find ищет локальную запись для строки бандла.
// Строка представления сопоставляется сначала по uid, затем по естественному
// ключу среди записей, еще не сопоставленных в этом прогоне: ключ оплаты
// не уникален (две оплаты за день без номера документа).
func (d *decoder) find(ctx context.Context, in *incoming) (models.Record, error) {
	if !in.fromView {
		return d.rec.Find(ctx, in.schema, in.key)
	}

	uid := in.rec[models.UIDColumn]
	if uid != "" {
		local, err := d.rec.Find(ctx, in.schema, models.Record{models.UIDColumn: uid})
		if err == nil {
			return local, d.claim(in.schema.Type, local)
		}
		if !errors.Is(err, storage.ErrRecordNotFound) {
			return nil, err
		}
	}

	candidates, err := d.rec.FindAll(ctx, in.schema, in.key)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		// запись с другим uid - другая оплата
		if uid != "" && c[models.UIDColumn] != "" {
			continue
		}
		id, err := recordID(c)
		if err != nil {
			return nil, err
		}
		if _, taken := d.claimed[refKey{t: in.schema.Type, id: id}]; taken {
			continue
		}
		d.claimed[refKey{t: in.schema.Type, id: id}] = struct{}{}
		return c, nil
	}
	return nil, storage.ErrRecordNotFound
}

func (d *decoder) claim(t models.EntityType, rec models.Record) error {
	id, err := recordID(rec)
	if err != nil {
		return err
	}
	d.claimed[refKey{t: t, id: id}] = struct{}{}
	return nil
}

func recordID(rec models.Record) (int64, error) {
	id, err := strconv.ParseInt(rec[models.KeyColumn], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid local id %q: %w", rec[models.KeyColumn], err)
	}
	return id, nil
}
