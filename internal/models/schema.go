package models

// EntityType identifies one synchronized entity table.
type EntityType string

// Entity types in dependency order: a type only references types listed before it.
const (
	Category       EntityType = "category"
	PriceList      EntityType = "price_list"
	Discount       EntityType = "discount"
	Person         EntityType = "person"
	Group          EntityType = "group"
	Session        EntityType = "session"
	Membership     EntityType = "membership"
	AttendanceMark EntityType = "attendance_mark"
	PersonPayment  EntityType = "person_payment"
	StaffPayment   EntityType = "staff_payment"
)

// Field declares one column of an entity or view.
type Field struct {
	Name string
	Kind Kind
	// Optional поле может отсутствовать в бандле от более старой версии
	Optional bool
	// Ref тип, на id которого ссылается поле (пусто - не внешний ключ)
	Ref EntityType
	// Owner означает, что запись принадлежит Ref и удаляется каскадно вместе с ним
	Owner bool
	// Info поле только для чтения человеком, при импорте игнорируется
	Info bool
}

// Schema is the record model of one entity type.
type Schema struct {
	Type   EntityType
	Table  string
	Member string
	Fields []Field
	// Timestamp имя поля с временем последнего изменения, пусто для legacy-типов
	Timestamp string
	// Roster включает выгрузку полного списка id для обнаружения удалений
	Roster bool
	// Boundary SQL-предикат границы выгрузки для периода, "?" - id периода.
	// Пусто - справочник, выгружается целиком.
	Boundary string
}

// Child describes an owned entity: rows of Schema whose Column points at the owner.
type Child struct {
	Schema *Schema
	Column string
}

// KeyColumn is the merge key of every entity table.
const KeyColumn = "id"

// UIDColumn holds the globally unique id minted when a record is created locally.
const UIDColumn = "uid"

func idField() Field { return Field{Name: KeyColumn, Kind: KindInt} }

func uidField() Field { return Field{Name: UIDColumn, Kind: KindString, Optional: true} }

func ref(name string, t EntityType) Field {
	return Field{Name: name, Kind: KindInt, Ref: t}
}

func owner(name string, t EntityType) Field {
	return Field{Name: name, Kind: KindInt, Ref: t, Owner: true}
}

func stamps() []Field {
	return []Field{
		{Name: "created_at", Kind: KindDateTime, Optional: true},
		{Name: "updated_at", Kind: KindDateTime},
	}
}

func fields(head []Field, tail ...[]Field) []Field {
	out := append([]Field{}, head...)
	for _, t := range tail {
		out = append(out, t...)
	}
	return out
}

const (
	groupsOfPeriod      = `SELECT id FROM class_groups WHERE period_id = ?`
	sessionsOfPeriod    = `SELECT s.id FROM sessions s JOIN class_groups g ON g.id = s.group_id WHERE g.period_id = ?`
	membershipsOfPeriod = `SELECT m.id FROM memberships m JOIN class_groups g ON g.id = m.group_id WHERE g.period_id = ?`
)

var registry = []*Schema{
	{
		Type:   Category,
		Table:  "categories",
		Member: "categories",
		Fields: fields([]Field{
			idField(), uidField(),
			{Name: "name", Kind: KindString},
			{Name: "description", Kind: KindString, Optional: true},
		}, stamps()),
		Timestamp: "updated_at",
	},
	{
		Type:   PriceList,
		Table:  "price_lists",
		Member: "price_lists",
		Fields: fields([]Field{
			idField(), uidField(),
			ref("category_id", Category),
			{Name: "name", Kind: KindString},
			{Name: "plan", Kind: KindString},
			{Name: "price", Kind: KindDecimal},
			{Name: "hours", Kind: KindDecimal, Optional: true},
			{Name: "is_active", Kind: KindBool},
		}, stamps()),
		Timestamp: "updated_at",
	},
	{
		Type:   Discount,
		Table:  "discounts",
		Member: "discounts",
		Fields: []Field{
			idField(), uidField(),
			{Name: "name", Kind: KindString},
			{Name: "percent", Kind: KindDecimal},
			{Name: "amount", Kind: KindDecimal, Optional: true},
			{Name: "is_active", Kind: KindBool},
		},
	},
	{
		Type:   Person,
		Table:  "persons",
		Member: "persons",
		Fields: fields([]Field{
			idField(), uidField(),
			{Name: "first_name", Kind: KindString},
			{Name: "last_name", Kind: KindString},
			{Name: "birth_date", Kind: KindDate, Optional: true},
			{Name: "phone", Kind: KindString, Optional: true},
			{Name: "email", Kind: KindString, Optional: true},
			{Name: "notes", Kind: KindString, Optional: true},
			{Name: "is_staff", Kind: KindBool, Optional: true},
		}, stamps()),
		Timestamp: "updated_at",
	},
	{
		Type:   Group,
		Table:  "class_groups",
		Member: "groups",
		Fields: fields([]Field{
			idField(), uidField(),
			{Name: "name", Kind: KindString},
			ref("category_id", Category),
			ref("staff_id", Person),
			{Name: "period_id", Kind: KindInt},
			{Name: "start_date", Kind: KindDate},
			{Name: "end_date", Kind: KindDate},
			{Name: "schedule", Kind: KindString},
			{Name: "max_size", Kind: KindInt},
			{Name: "kind", Kind: KindString},
			{Name: "is_active", Kind: KindBool},
		}, stamps()),
		Timestamp: "updated_at",
		Boundary:  "period_id = ?",
	},
	{
		Type:   Session,
		Table:  "sessions",
		Member: "sessions",
		Fields: fields([]Field{
			idField(), uidField(),
			owner("group_id", Group),
			{Name: "date", Kind: KindDate},
			{Name: "start_time", Kind: KindTime},
			{Name: "end_time", Kind: KindTime},
			{Name: "duration", Kind: KindInt},
			{Name: "status", Kind: KindString},
			{Name: "notes", Kind: KindString},
		}, stamps()),
		Timestamp: "updated_at",
		Roster:    true,
		Boundary:  "group_id IN (" + groupsOfPeriod + ")",
	},
	{
		Type:   Membership,
		Table:  "memberships",
		Member: "memberships",
		Fields: fields([]Field{
			idField(), uidField(),
			ref("person_id", Person),
			owner("group_id", Group),
			ref("price_list_id", PriceList),
			{Name: "plan", Kind: KindString},
			{Name: "discount_id", Kind: KindInt, Ref: Discount},
			{Name: "hours_purchased", Kind: KindDecimal},
			{Name: "hours_consumed", Kind: KindDecimal},
			{Name: "is_active", Kind: KindBool},
			{Name: "date", Kind: KindDate},
			{Name: "contract_code", Kind: KindString},
		}, stamps()),
		Timestamp: "updated_at",
		Roster:    true,
		Boundary:  "group_id IN (" + groupsOfPeriod + ")",
	},
	{
		Type:   AttendanceMark,
		Table:  "attendance_marks",
		Member: "attendance_marks",
		Fields: fields([]Field{
			idField(), uidField(),
			owner("session_id", Session),
			owner("membership_id", Membership),
			ref("person_id", Person),
			{Name: "status", Kind: KindString},
			{Name: "notes", Kind: KindString, Optional: true},
			{Name: "modified_by", Kind: KindString, Optional: true},
		}, stamps()),
		Timestamp: "updated_at",
		Boundary:  "session_id IN (" + sessionsOfPeriod + ")",
	},
	{
		Type:   PersonPayment,
		Table:  "person_payments",
		Member: "person_payments",
		Fields: fields([]Field{
			idField(), uidField(),
			owner("membership_id", Membership),
			ref("person_id", Person),
			{Name: "amount", Kind: KindDecimal},
			{Name: "date", Kind: KindDate},
			{Name: "method", Kind: KindString},
			{Name: "reference", Kind: KindString, Optional: true},
			{Name: "notes", Kind: KindString, Optional: true},
			{Name: "modified_by", Kind: KindString, Optional: true},
		}, stamps()),
		Timestamp: "updated_at",
		Roster:    true,
		Boundary:  "membership_id IN (" + membershipsOfPeriod + ")",
	},
	{
		Type:   StaffPayment,
		Table:  "staff_payments",
		Member: "staff_payments",
		Fields: []Field{
			idField(), uidField(),
			ref("staff_id", Person),
			{Name: "period_id", Kind: KindInt},
			{Name: "amount", Kind: KindDecimal},
			{Name: "date", Kind: KindDate},
			{Name: "method", Kind: KindString},
			{Name: "notes", Kind: KindString, Optional: true},
		},
		Boundary: "period_id = ?",
	},
}

var (
	byType   = make(map[EntityType]*Schema, len(registry))
	byMember = make(map[string]*Schema, len(registry))
	children = make(map[EntityType][]Child)
)

func init() {
	for _, s := range registry {
		byType[s.Type] = s
		byMember[s.Member] = s
	}
	for _, s := range registry {
		for _, f := range s.Fields {
			if f.Owner {
				children[f.Ref] = append(children[f.Ref], Child{Schema: s, Column: f.Name})
			}
		}
	}
}

// Schemas returns every entity schema in dependency order.
func Schemas() []*Schema {
	return registry
}

// SchemaFor returns the schema of entity type t.
func SchemaFor(t EntityType) (*Schema, bool) {
	s, ok := byType[t]
	return s, ok
}

// MustSchema is SchemaFor for types known at compile time.
func MustSchema(t EntityType) *Schema {
	s, ok := byType[t]
	if !ok {
		panic("models: unknown entity type " + string(t))
	}
	return s
}

// SchemaByMember returns the schema exported under bundle member m.
func SchemaByMember(m string) (*Schema, bool) {
	s, ok := byMember[m]
	return s, ok
}

// Children returns the entities owned by s, deleted in cascade with it.
func (s *Schema) Children() []Child {
	return children[s.Type]
}

// Field returns the field called name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Columns returns the column names in export order.
func (s *Schema) Columns() []string {
	cols := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = f.Name
	}
	return cols
}

// HasTimestamp reports whether the type carries a modification timestamp.
func (s *Schema) HasTimestamp() bool {
	return s.Timestamp != ""
}

// HasUID reports whether the type carries a globally unique record id.
func (s *Schema) HasUID() bool {
	_, ok := s.Field(UIDColumn)
	return ok
}
