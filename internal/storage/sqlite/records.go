package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/schoolsync/internal/dbx"
	"github.com/iudanet/schoolsync/internal/models"
	"github.com/iudanet/schoolsync/internal/storage"
)

// records implements storage.Records over a *sql.DB or an open *sql.Tx
type records struct {
	q     dbx.DBTX
	clock storage.Clock
	// inTx метки копятся в seen и передаются часам только после фиксации
	inTx bool
	seen time.Time
}

var _ storage.Records = (*records)(nil)

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func selectList(fields []models.Field) string {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = quote(f.Name)
	}
	return strings.Join(cols, ", ")
}

// scanRecord читает строку и приводит значения к канонической форме
func scanRecord(rows *sql.Rows, fields []models.Field) (models.Record, error) {
	values := make([]sql.NullString, len(fields))
	ptrs := make([]any, len(fields))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	rec := make(models.Record, len(fields))
	for i, f := range fields {
		raw := values[i].String
		v, err := f.Kind.Canonical(raw)
		if err != nil {
			// локальные данные не по схеме отдаем как есть
			v = raw
		}
		rec[f.Name] = v
	}
	return rec, nil
}

func (r *records) query(ctx context.Context, fields []models.Field, fn func(models.Record) error, query string, args ...any) error {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows, fields)
		if err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// keyPredicate строит WHERE по ключевым колонкам
func keyPredicate(s *models.Schema, key models.Record) (string, []any, error) {
	if len(key) == 0 {
		return "", nil, errors.New("empty key")
	}
	cols := make([]string, 0, len(key))
	for c := range key {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	parts := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for _, c := range cols {
		f, ok := s.Field(c)
		if !ok {
			return "", nil, fmt.Errorf("unknown column %s.%s", s.Table, c)
		}
		v := key[c]
		if v == "" {
			parts = append(parts, fmt.Sprintf("(%s IS NULL OR %s = '')", quote(c), quote(c)))
			continue
		}
		parts = append(parts, quote(c)+" = ?")
		args = append(args, f.Kind.SQLValue(v))
	}
	return strings.Join(parts, " AND "), args, nil
}

// Find returns the row whose key columns equal key
func (r *records) Find(ctx context.Context, s *models.Schema, key models.Record) (models.Record, error) {
	found, err := r.findWhere(ctx, s, key, " LIMIT 1")
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, storage.ErrRecordNotFound
	}
	return found[0], nil
}

// FindAll returns every row whose key columns equal key
func (r *records) FindAll(ctx context.Context, s *models.Schema, key models.Record) ([]models.Record, error) {
	return r.findWhere(ctx, s, key, "")
}

func (r *records) findWhere(ctx context.Context, s *models.Schema, key models.Record, limit string) ([]models.Record, error) {
	where, args, err := keyPredicate(s, key)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s%s",
		selectList(s.Fields), quote(s.Table), where, quote(models.KeyColumn), limit)

	var found []models.Record
	err = r.query(ctx, s.Fields, func(rec models.Record) error {
		found = append(found, rec)
		return nil
	}, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", s.Type, err)
	}
	return found, nil
}

// Exists checks that a row with id exists
func (r *records) Exists(ctx context.Context, t models.EntityType, id int64) (bool, error) {
	s, ok := models.SchemaFor(t)
	if !ok {
		return false, fmt.Errorf("unknown entity type %q", t)
	}

	var one int
	err := r.q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT 1 FROM %s WHERE %s = ? LIMIT 1", quote(s.Table), quote(models.KeyColumn)), id,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s %d: %w", t, id, err)
	}
	return true, nil
}

// Insert stores rec verbatim
func (r *records) Insert(ctx context.Context, s *models.Schema, rec models.Record) (int64, error) {
	cols := make([]string, 0, len(rec))
	marks := make([]string, 0, len(rec))
	args := make([]any, 0, len(rec))
	for _, f := range s.Fields {
		v, ok := rec[f.Name]
		if !ok || f.Info {
			continue
		}
		cols = append(cols, quote(f.Name))
		marks = append(marks, "?")
		args = append(args, f.Kind.SQLValue(v))
	}
	if len(cols) == 0 {
		return 0, fmt.Errorf("nothing to insert into %s", s.Table)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(s.Table), strings.Join(cols, ", "), strings.Join(marks, ", "))
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s: %w", s.Type, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get %s id: %w", s.Type, err)
	}

	r.observe(s, rec)
	return id, nil
}

// Update writes changes into the row with id
func (r *records) Update(ctx context.Context, s *models.Schema, id int64, changes models.Record) error {
	sets := make([]string, 0, len(changes))
	args := make([]any, 0, len(changes)+1)
	for _, f := range s.Fields {
		v, ok := changes[f.Name]
		if !ok || f.Info || f.Name == models.KeyColumn {
			continue
		}
		sets = append(sets, quote(f.Name)+" = ?")
		args = append(args, f.Kind.SQLValue(v))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		quote(s.Table), strings.Join(sets, ", "), quote(models.KeyColumn))
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s %d: %w", s.Type, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrRecordNotFound
	}

	r.observe(s, changes)
	return nil
}

// observe продвигает часы реплики до метки записанной версии
func (r *records) observe(s *models.Schema, rec models.Record) {
	ts := rec.Timestamp(s.Timestamp)
	switch {
	case ts.IsZero() || r.clock == nil:
	case r.inTx:
		if ts.After(r.seen) {
			r.seen = ts
		}
	default:
		r.clock.Observe(ts)
	}
}

// Create inserts a locally created row
func (r *records) Create(ctx context.Context, s *models.Schema, rec models.Record) (int64, error) {
	rec = rec.Clone()
	if s.HasUID() && rec[models.UIDColumn] == "" {
		rec[models.UIDColumn] = uuid.NewString()
	}
	if s.HasTimestamp() {
		now := models.FormatDateTime(r.clock.Now())
		if _, ok := s.Field("created_at"); ok && rec["created_at"] == "" {
			rec["created_at"] = now
		}
		rec[s.Timestamp] = now
	}
	return r.Insert(ctx, s, rec)
}

// Edit applies a local edit and stamps the modification time
func (r *records) Edit(ctx context.Context, s *models.Schema, id int64, changes models.Record) error {
	changes = changes.Clone()
	if s.HasTimestamp() {
		changes[s.Timestamp] = models.FormatDateTime(r.clock.Now())
	}
	return r.Update(ctx, s, id, changes)
}

// Delete removes the row and everything it owns, children first
func (r *records) Delete(ctx context.Context, s *models.Schema, id int64) (map[models.EntityType]int, error) {
	counts := make(map[models.EntityType]int)
	if err := r.deleteCascade(ctx, s, id, counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *records) deleteCascade(ctx context.Context, s *models.Schema, id int64, counts map[models.EntityType]int) error {
	for _, child := range s.Children() {
		ids, err := r.idsWhere(ctx, child.Schema, quote(child.Column)+" = ?", id)
		if err != nil {
			return err
		}
		for _, childID := range ids {
			if err := r.deleteCascade(ctx, child.Schema, childID, counts); err != nil {
				return err
			}
		}
	}

	res, err := r.q.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quote(s.Table), quote(models.KeyColumn)), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", s.Type, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", s.Type, id, err)
	}
	counts[s.Type] += int(n)
	return nil
}

// boundary возвращает предикат границы выгрузки для scope
func boundary(s *models.Schema, scope models.SyncScope) (string, []any, error) {
	switch scope.Kind {
	case models.ScopeKindAll:
		return "", nil, nil
	case models.ScopeKindPeriod:
		if s.Boundary == "" {
			return "", nil, nil
		}
		args := make([]any, strings.Count(s.Boundary, "?"))
		for i := range args {
			args[i] = scope.ID
		}
		return s.Boundary, args, nil
	}
	return "", nil, fmt.Errorf("scope %s has no table boundary", scope)
}

func (r *records) idsWhere(ctx context.Context, s *models.Schema, where string, args ...any) ([]int64, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", quote(models.KeyColumn), quote(s.Table))
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY " + quote(models.KeyColumn)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s ids: %w", s.Type, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s id: %w", s.Type, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IDs lists the ids of s within the boundary of scope
func (r *records) IDs(ctx context.Context, s *models.Schema, scope models.SyncScope) ([]int64, error) {
	where, args, err := boundary(s, scope)
	if err != nil {
		return nil, err
	}
	return r.idsWhere(ctx, s, where, args...)
}

// Scan calls fn for every row of s within the boundary of scope
func (r *records) Scan(ctx context.Context, s *models.Schema, scope models.SyncScope, fn func(models.Record) error) error {
	where, args, err := boundary(s, scope)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT %s FROM %s", selectList(s.Fields), quote(s.Table))
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY " + quote(models.KeyColumn)

	if err := r.query(ctx, s.Fields, fn, query, args...); err != nil {
		return fmt.Errorf("failed to scan %s: %w", s.Type, err)
	}
	return nil
}

const personName = `TRIM(COALESCE(p.first_name, '') || ' ' || COALESCE(p.last_name, ''))`

// viewQueries выборки для представлений; колонки в порядке View.Fields
var viewQueries = map[string]string{
	models.AttendanceSheet: `
		SELECT g.id, g.name, a.person_id, ` + personName + `, a.session_id, s.date,
		       a.status, a.updated_at, a.modified_by
		FROM attendance_marks a
		JOIN sessions s ON s.id = a.session_id
		JOIN class_groups g ON g.id = s.group_id
		LEFT JOIN persons p ON p.id = a.person_id
		WHERE g.id = ?
		ORDER BY s.date, a.session_id, a.person_id
	`,
	models.GroupPayments: `
		SELECT g.id, g.name, pp.id, pp.uid, pp.membership_id, pp.person_id, ` + personName + `,
		       pp.amount, pp.date, pp.method, pp.reference, pp.updated_at, pp.modified_by
		FROM person_payments pp
		JOIN memberships m ON m.id = pp.membership_id
		JOIN class_groups g ON g.id = m.group_id
		LEFT JOIN persons p ON p.id = pp.person_id
		WHERE g.id = ?
		ORDER BY pp.date, pp.id
	`,
}

// ScanView calls fn for every row of view v for one group
func (r *records) ScanView(ctx context.Context, v *models.View, groupID int64, fn func(models.Record) error) error {
	query, ok := viewQueries[v.Name]
	if !ok {
		return fmt.Errorf("unknown view %q", v.Name)
	}
	if err := r.query(ctx, v.Fields, fn, query, groupID); err != nil {
		return fmt.Errorf("failed to scan %s: %w", v.Name, err)
	}
	return nil
}

// MembershipFor returns the membership of a person in a group, active first
func (r *records) MembershipFor(ctx context.Context, personID, groupID int64) (int64, error) {
	var id int64
	err := r.q.QueryRowContext(ctx, `
		SELECT id FROM memberships
		WHERE person_id = ? AND group_id = ?
		ORDER BY is_active DESC, id
		LIMIT 1
	`, personID, groupID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrRecordNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find membership: %w", err)
	}
	return id, nil
}

// Savepoint runs fn inside a savepoint
func (r *records) Savepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	seen := r.seen
	err := dbx.WithSavepoint(ctx, r.q, "record", fn)
	if err != nil {
		r.seen = seen
	}
	return err
}
