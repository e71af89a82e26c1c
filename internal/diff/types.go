// Package diff compares two ir.DbSchema values and produces a structured
// SchemaDiff: a list of Changes, each tagged with a Category, that the
// generator turns into DDL. Every expression-bearing comparison goes through
// ir.Normalize first, so Postgres's own rewriting of stored expressions
// never shows up as a spurious change.
package diff

// Action is what happened to an object between base and target.
type Action string

const (
	ActionCreate Action = "create"
	ActionDrop   Action = "drop"
	ActionUpdate Action = "update"
	// ActionReplace is a drop+create pair, for object kinds Postgres has
	// no in-place ALTER for: policies, triggers, indexes, foreign keys,
	// composite types, domains, and columns whose generation status changes.
	ActionReplace Action = "replace"
)

// Category names the kind of object a Change describes. The string value
// doubles as the label Summarize renders.
type Category string

const (
	CategoryRole          Category = "Role"
	CategoryExtension     Category = "Extension"
	CategoryEnum          Category = "Enum"
	CategoryCompositeType Category = "Composite type"
	CategoryDomain        Category = "Domain"
	CategorySequence      Category = "Sequence"
	CategoryFunction      Category = "Function"
	CategoryTable         Category = "Table"
	CategoryColumn        Category = "Column"
	CategoryCheck         Category = "Check constraint"
	CategoryForeignKey    Category = "Foreign key"
	CategoryIndex         Category = "Index"
	CategoryTrigger       Category = "Trigger"
	CategoryPolicy        Category = "Policy"
	CategoryRLS           Category = "Row level security"
	CategoryView          Category = "View"
	CategoryComment       Category = "Comment"
)

// Change is a single object-level difference between base and target.
type Change struct {
	Category Category
	Action   Action

	// ObjectKey identifies the object for the summary, e.g. `"public"."t"`
	// or `"public"."t"."col"` for a column nested under a table.
	ObjectKey string

	// Table is the owning table's canonical key for changes scoped to a
	// table (column, index, trigger, policy, check, FK, RLS). Empty for
	// schema-level objects.
	Table string

	// Base and Target hold the concrete *ir.* value(s) on either side,
	// nil when that side doesn't exist. The generator type-switches on
	// Category to recover the concrete type.
	Base   any
	Target any

	// Destructive is true when applying this change can lose data.
	Destructive bool

	// Detail is an optional annotation folded into the summary line, e.g.
	// "add values: pending" for an enum, or "generation change" for a column.
	Detail string
}

// SchemaDiff is the full set of changes between a base and a target
// DbSchema. Changes are appended in the order the per-kind passes visit
// objects (a table's column, index, trigger, ... changes sit together, so
// categories interleave); the generator re-orders Changes by its own
// dependency-safe discipline.
type SchemaDiff struct {
	Changes []Change
}

// IsEmpty reports whether the diff has no changes at all.
func (d *SchemaDiff) IsEmpty() bool {
	return d == nil || len(d.Changes) == 0
}

// IsDestructive reports whether applying this diff can lose data: it drops
// a table, drops a column, changes a column's type, or drops an enum.
func (d *SchemaDiff) IsDestructive() bool {
	if d == nil {
		return false
	}
	for _, c := range d.Changes {
		if c.Destructive {
			return true
		}
	}
	return false
}

func (d *SchemaDiff) add(c Change) {
	d.Changes = append(d.Changes, c)
}
