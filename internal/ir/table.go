package ir

// Table is a PostgreSQL table (or partition parent).
type Table struct {
	Schema  string
	Name    string
	Columns map[string]*Column
	// ColumnOrder preserves authoring/ordinal order; Columns is keyed by
	// name for O(1) lookup during diffing.
	ColumnOrder      []string
	ForeignKeys      map[string]*ForeignKey
	Indexes          map[string]*Index
	Triggers         map[string]*Trigger
	Policies         map[string]*Policy
	CheckConstraints map[string]*CheckConstraint
	RLSEnabled       bool
	Comment          string
	// Extension names the extension that owns this table, if any. Per
	// invariant #2, any object with a non-empty Extension is introspected
	// but never emitted by the generator.
	Extension string
}

// Column is a single table column.
type Column struct {
	Name                string
	DataType            string // display form, e.g. "numeric(10,2)", "text[]"
	UDTName             string // canonical form, e.g. "_text"
	IsNullable          bool
	ColumnDefault       string // empty if none
	IsPrimaryKey        bool
	IsIdentity          bool
	IdentityGeneration  IdentityGeneration
	Collation           string
	IsGenerated         bool // STORED generated column
	GenerationExpression string
	Comment             string
}

// IdentityGeneration is the identity-column generation mode.
type IdentityGeneration string

const (
	IdentityNone       IdentityGeneration = ""
	IdentityAlways     IdentityGeneration = "ALWAYS"
	IdentityByDefault  IdentityGeneration = "BY DEFAULT"
)

// ForeignKey is an outbound reference from Table's local columns to another
// table's columns.
type ForeignKey struct {
	Name            string
	Columns         []string // local columns, ordered
	ForeignSchema   string
	ForeignTable    string
	ForeignColumns  []string // ordered, position-matched to Columns
	OnDelete        ReferentialAction
	OnUpdate        ReferentialAction
}

// ReferentialAction is a FOREIGN KEY ON DELETE/UPDATE action.
type ReferentialAction string

const (
	ActionNoAction   ReferentialAction = "NO ACTION"
	ActionRestrict   ReferentialAction = "RESTRICT"
	ActionCascade    ReferentialAction = "CASCADE"
	ActionSetNull    ReferentialAction = "SET NULL"
	ActionSetDefault ReferentialAction = "SET DEFAULT"
)

// CheckConstraint is a table- or column-level CHECK.
type CheckConstraint struct {
	Name       string
	Expression string
	// NotValid marks a constraint added with NOT VALID (not enforced on
	// existing rows); carried through but not compared by the differ,
	// which keys check constraints by name only.
	NotValid bool
}

func (t *Table) clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{
		Schema:     t.Schema,
		Name:       t.Name,
		RLSEnabled: t.RLSEnabled,
		Comment:    t.Comment,
		Extension:  t.Extension,
	}
	out.Columns = make(map[string]*Column, len(t.Columns))
	for k, v := range t.Columns {
		cp := *v
		out.Columns[k] = &cp
	}
	out.ColumnOrder = append([]string(nil), t.ColumnOrder...)
	out.ForeignKeys = make(map[string]*ForeignKey, len(t.ForeignKeys))
	for k, v := range t.ForeignKeys {
		cp := *v
		cp.Columns = append([]string(nil), v.Columns...)
		cp.ForeignColumns = append([]string(nil), v.ForeignColumns...)
		out.ForeignKeys[k] = &cp
	}
	out.Indexes = make(map[string]*Index, len(t.Indexes))
	for k, v := range t.Indexes {
		out.Indexes[k] = v.clone()
	}
	out.Triggers = make(map[string]*Trigger, len(t.Triggers))
	for k, v := range t.Triggers {
		out.Triggers[k] = v.clone()
	}
	out.Policies = make(map[string]*Policy, len(t.Policies))
	for k, v := range t.Policies {
		out.Policies[k] = v.clone()
	}
	out.CheckConstraints = make(map[string]*CheckConstraint, len(t.CheckConstraints))
	for k, v := range t.CheckConstraints {
		cp := *v
		out.CheckConstraints[k] = &cp
	}
	return out
}

// NewTable returns an empty, schema-qualified table with all maps
// initialized.
func NewTable(schema, name string) *Table {
	return &Table{
		Schema:           schema,
		Name:             name,
		Columns:          make(map[string]*Column),
		ForeignKeys:      make(map[string]*ForeignKey),
		Indexes:          make(map[string]*Index),
		Triggers:         make(map[string]*Trigger),
		Policies:         make(map[string]*Policy),
		CheckConstraints: make(map[string]*CheckConstraint),
	}
}

// OrderedColumns returns the table's columns in authoring/ordinal order.
func (t *Table) OrderedColumns() []*Column {
	out := make([]*Column, 0, len(t.ColumnOrder))
	for _, name := range t.ColumnOrder {
		if c, ok := t.Columns[name]; ok {
			out = append(out, c)
		}
	}
	return out
}

// AddColumn inserts a column, appending it to ColumnOrder if it is new.
func (t *Table) AddColumn(c *Column) {
	if _, exists := t.Columns[c.Name]; !exists {
		t.ColumnOrder = append(t.ColumnOrder, c.Name)
	}
	t.Columns[c.Name] = c
}

// RemoveColumn drops a column from both the map and the order slice.
func (t *Table) RemoveColumn(name string) {
	delete(t.Columns, name)
	for i, n := range t.ColumnOrder {
		if n == name {
			t.ColumnOrder = append(t.ColumnOrder[:i], t.ColumnOrder[i+1:]...)
			break
		}
	}
}
