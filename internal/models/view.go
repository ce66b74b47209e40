package models

// View is a denormalized per-group table used by collection spot-sync.
// Its rows map onto an entity table identified by a natural key instead of id.
type View struct {
	Name   string
	Member string
	Target EntityType
	Fields []Field
	// Key natural key columns on the target table. Rows carrying a uid are
	// matched by uid first; the natural key need not be unique.
	Key []string
	// Rename maps a view column onto the target column it feeds
	Rename map[string]string
}

const (
	AttendanceSheet = "attendance_sheet"
	GroupPayments   = "group_payments"
)

var views = []*View{
	{
		Name:   AttendanceSheet,
		Member: "attendance",
		Target: AttendanceMark,
		Fields: []Field{
			{Name: "group_id", Kind: KindInt, Ref: Group, Info: true},
			{Name: "group_name", Kind: KindString, Info: true},
			{Name: "person_id", Kind: KindInt, Ref: Person},
			{Name: "person_name", Kind: KindString, Info: true},
			{Name: "session_id", Kind: KindInt, Ref: Session},
			{Name: "session_date", Kind: KindDate, Info: true},
			{Name: "status", Kind: KindString},
			{Name: "last_modified", Kind: KindDateTime},
			{Name: "modified_by", Kind: KindString, Optional: true},
		},
		Key:    []string{"session_id", "person_id"},
		Rename: map[string]string{"last_modified": "updated_at"},
	},
	{
		Name:   GroupPayments,
		Member: "payments",
		Target: PersonPayment,
		Fields: []Field{
			{Name: "group_id", Kind: KindInt, Ref: Group, Info: true},
			{Name: "group_name", Kind: KindString, Info: true},
			{Name: "payment_id", Kind: KindInt, Info: true},
			{Name: "uid", Kind: KindString, Optional: true},
			{Name: "membership_id", Kind: KindInt, Ref: Membership},
			{Name: "person_id", Kind: KindInt, Ref: Person},
			{Name: "person_name", Kind: KindString, Info: true},
			{Name: "amount", Kind: KindDecimal},
			{Name: "date", Kind: KindDate},
			{Name: "method", Kind: KindString},
			{Name: "reference", Kind: KindString, Optional: true},
			{Name: "last_modified", Kind: KindDateTime},
			{Name: "modified_by", Kind: KindString, Optional: true},
		},
		Key:    []string{"membership_id", "date", "reference"},
		Rename: map[string]string{"last_modified": "updated_at"},
	},
}

// Views returns the per-group views.
func Views() []*View {
	return views
}

// ViewByMember returns the view exported under bundle member m.
func ViewByMember(m string) (*View, bool) {
	for _, v := range views {
		if v.Member == m {
			return v, true
		}
	}
	return nil, false
}

// Columns returns the view columns in export order.
func (v *View) Columns() []string {
	cols := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		cols[i] = f.Name
	}
	return cols
}

// TargetColumn returns the target table column fed by view column name.
func (v *View) TargetColumn(name string) string {
	if t, ok := v.Rename[name]; ok {
		return t
	}
	return name
}
