package sync

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/schoolsync/internal/bundle"
	"github.com/iudanet/schoolsync/internal/crdt"
	"github.com/iudanet/schoolsync/internal/logging"
	"github.com/iudanet/schoolsync/internal/models"
	"github.com/iudanet/schoolsync/internal/storage/boltdb"
	"github.com/iudanet/schoolsync/internal/storage/sqlite"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var (
	t1 = "2025-09-01T10:00:00Z"
	t2 = "2025-09-02T10:00:00Z"
	t3 = "2025-09-03T10:00:00Z"

	exportTime = time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)
)

// replica - независимая копия приложения: хранилище, журнал и сервис
type replica struct {
	store   *sqlite.Storage
	journal *boltdb.Storage
	svc     Service
	dir     string
}

func newReplica(t *testing.T) *replica {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	store, err := sqlite.New(ctx, filepath.Join(dir, "school.db"),
		sqlite.WithClock(crdt.NewHybridClock(fixedClock{t: exportTime})),
		sqlite.WithLogger(logging.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	journal, err := boltdb.New(ctx, filepath.Join(dir, "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	return &replica{
		store:   store,
		journal: journal,
		svc:     NewService(store, journal, logging.Discard(), WithClock(fixedClock{t: exportTime})),
		dir:     dir,
	}
}

func (r *replica) insert(t *testing.T, typ models.EntityType, rec models.Record) {
	t.Helper()
	_, err := r.store.Records().Insert(context.Background(), models.MustSchema(typ), rec)
	require.NoError(t, err)
}

func (r *replica) update(t *testing.T, typ models.EntityType, id int64, changes models.Record) {
	t.Helper()
	require.NoError(t, r.store.Records().Update(context.Background(), models.MustSchema(typ), id, changes))
}

func (r *replica) get(t *testing.T, typ models.EntityType, id int64) models.Record {
	t.Helper()
	rec, err := r.store.Records().Find(context.Background(), models.MustSchema(typ),
		models.Record{models.KeyColumn: strconv.FormatInt(id, 10)})
	require.NoError(t, err)
	return rec
}

func (r *replica) exists(t *testing.T, typ models.EntityType, id int64) bool {
	t.Helper()
	ok, err := r.store.Records().Exists(context.Background(), typ, id)
	require.NoError(t, err)
	return ok
}

func (r *replica) ids(t *testing.T, typ models.EntityType) []int64 {
	t.Helper()
	ids, err := r.store.Records().IDs(context.Background(), models.MustSchema(typ), models.ScopeAll())
	require.NoError(t, err)
	return ids
}

// snapshot все строки всех таблиц для сравнения состояния хранилища
func (r *replica) snapshot(t *testing.T) map[models.EntityType][]models.Record {
	t.Helper()
	out := make(map[models.EntityType][]models.Record)
	for _, sch := range models.Schemas() {
		err := r.store.Records().Scan(context.Background(), sch, models.ScopeAll(), func(rec models.Record) error {
			out[sch.Type] = append(out[sch.Type], rec)
			return nil
		})
		require.NoError(t, err)
	}
	return out
}

func (r *replica) export(t *testing.T, scope models.SyncScope) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.ssb")
	_, err := r.svc.ExportFile(context.Background(), scope, path)
	require.NoError(t, err)
	return path
}

func (r *replica) reconcile(t *testing.T, path string) *models.ReconciliationResult {
	t.Helper()
	res, err := r.svc.Reconcile(context.Background(), path, "tester")
	require.NoError(t, err)
	return res
}

// seedSchool: группа 10 периода 1 с двумя занятиями и двумя абонементами
func seedSchool(t *testing.T, r *replica) {
	t.Helper()
	r.insert(t, models.Category, models.Record{"id": "1", "name": "Music", "updated_at": t1})
	r.insert(t, models.PriceList, models.Record{"id": "1", "category_id": "1", "name": "Monthly", "plan": "monthly", "price": "80", "is_active": "true", "updated_at": t1})
	r.insert(t, models.Discount, models.Record{"id": "1", "name": "Siblings", "percent": "10", "is_active": "true"})
	r.insert(t, models.Person, models.Record{"id": "1", "first_name": "Ana", "last_name": "Lima", "updated_at": t1})
	r.insert(t, models.Person, models.Record{"id": "2", "first_name": "Bo", "last_name": "Ng", "updated_at": t1})
	r.insert(t, models.Person, models.Record{"id": "3", "first_name": "Cy", "last_name": "Roe", "is_staff": "true", "updated_at": t1})
	r.insert(t, models.Group, models.Record{"id": "10", "name": "Guitar A", "category_id": "1", "staff_id": "3", "period_id": "1", "start_date": "2025-09-01", "end_date": "2026-06-30", "kind": "regular", "is_active": "true", "updated_at": t1})
	r.insert(t, models.Session, models.Record{"id": "100", "group_id": "10", "date": "2025-09-02", "start_time": "17:00", "end_time": "18:00", "duration": "60", "status": "done", "updated_at": t1})
	r.insert(t, models.Session, models.Record{"id": "101", "group_id": "10", "date": "2025-09-09", "start_time": "17:00", "end_time": "18:00", "duration": "60", "status": "scheduled", "updated_at": t1})
	r.insert(t, models.Membership, models.Record{"id": "7", "person_id": "1", "group_id": "10", "price_list_id": "1", "plan": "monthly", "is_active": "true", "date": "2025-09-01", "updated_at": t1})
	r.insert(t, models.Membership, models.Record{"id": "8", "person_id": "2", "group_id": "10", "price_list_id": "1", "plan": "monthly", "discount_id": "1", "is_active": "true", "date": "2025-09-01", "updated_at": t1})
	r.insert(t, models.AttendanceMark, models.Record{"id": "1", "session_id": "100", "membership_id": "7", "person_id": "1", "status": "present", "updated_at": t1})
	r.insert(t, models.AttendanceMark, models.Record{"id": "2", "session_id": "100", "membership_id": "8", "person_id": "2", "status": "absent", "updated_at": t1})
	r.insert(t, models.PersonPayment, models.Record{"id": "1", "membership_id": "7", "person_id": "1", "amount": "80", "date": "2025-09-01", "method": "cash", "updated_at": t1})
	r.insert(t, models.StaffPayment, models.Record{"id": "1", "staff_id": "3", "period_id": "1", "amount": "300", "date": "2025-09-30", "method": "transfer"})
}

// craft собирает бандл вручную
func craft(t *testing.T, scope models.SyncScope, fill func(w *bundle.Writer)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crafted.ssb")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := bundle.NewWriter(f, bundle.Header{ReplicaID: "crafted", Scope: scope, ExportedAt: exportTime})
	require.NoError(t, err)
	fill(w)
	require.NoError(t, w.Close())
	return path
}

func writeTable(t *testing.T, w *bundle.Writer, typ models.EntityType, recs ...models.Record) {
	t.Helper()
	sch := models.MustSchema(typ)
	tw, err := w.Table(sch.Member, sch.Columns())
	require.NoError(t, err)
	for _, rec := range recs {
		require.NoError(t, tw.Write(values(sch.Columns(), rec)))
	}
}

func writeRoster(t *testing.T, w *bundle.Writer, typ models.EntityType, ids ...int64) {
	t.Helper()
	tw, err := w.Roster(models.MustSchema(typ).Member)
	require.NoError(t, err)
	for _, id := range ids {
		require.NoError(t, tw.Write([]string{strconv.FormatInt(id, 10)}))
	}
}
