package diff

import (
	"sort"

	"github.com/pgschema/pgschema/internal/defaults"
	"github.com/pgschema/pgschema/internal/ir"
)

// Diff compares base against target and returns the changes that, applied
// to base, yield target. Objects owned by an extension are skipped on both
// sides (invariant #2): the extension, not the diff, owns their lifecycle.
func Diff(base, target *ir.DbSchema) *SchemaDiff {
	if base == nil {
		base = ir.New()
	}
	if target == nil {
		target = ir.New()
	}

	d := &SchemaDiff{}

	diffRoles(d, base, target)
	diffExtensions(d, base, target)
	diffEnums(d, base, target)
	diffCompositeTypes(d, base, target)
	diffDomains(d, base, target)
	diffSequences(d, base, target)
	diffFunctions(d, base, target)
	diffTables(d, base, target)
	diffViews(d, base, target)

	return d
}

func sortedKeys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func diffRoles(d *SchemaDiff, base, target *ir.DbSchema) {
	for _, name := range sortedKeys(base.Roles) {
		if _, ok := target.Roles[name]; !ok {
			if defaults.IsDefaultRole(name) {
				continue
			}
			d.add(Change{Category: CategoryRole, Action: ActionDrop, ObjectKey: name, Base: base.Roles[name]})
		}
	}
	for _, name := range sortedKeys(target.Roles) {
		b, inBase := base.Roles[name]
		t := target.Roles[name]
		if !inBase {
			d.add(Change{Category: CategoryRole, Action: ActionCreate, ObjectKey: name, Target: t})
			continue
		}
		if !rolesEqual(b, t) {
			d.add(Change{Category: CategoryRole, Action: ActionUpdate, ObjectKey: name, Base: b, Target: t})
		}
	}
}

func diffExtensions(d *SchemaDiff, base, target *ir.DbSchema) {
	for _, key := range sortedKeys(base.Extensions) {
		ext := base.Extensions[key]
		if _, ok := target.Extensions[key]; !ok {
			if defaults.IsDefaultExtension(ext.Name) {
				continue
			}
			d.add(Change{Category: CategoryExtension, Action: ActionDrop, ObjectKey: key, Base: ext})
		}
	}
	for _, key := range sortedKeys(target.Extensions) {
		t := target.Extensions[key]
		b, inBase := base.Extensions[key]
		if !inBase {
			d.add(Change{Category: CategoryExtension, Action: ActionCreate, ObjectKey: key, Target: t})
			continue
		}
		if b.Version != t.Version {
			d.add(Change{Category: CategoryExtension, Action: ActionUpdate, ObjectKey: key, Base: b, Target: t})
		}
	}
}

func diffEnums(d *SchemaDiff, base, target *ir.DbSchema) {
	for _, key := range sortedKeys(base.Enums) {
		e := base.Enums[key]
		if e.Extension != "" {
			continue
		}
		if _, ok := target.Enums[key]; !ok {
			d.add(Change{Category: CategoryEnum, Action: ActionDrop, ObjectKey: key, Base: e, Destructive: true})
		}
	}
	for _, key := range sortedKeys(target.Enums) {
		t := target.Enums[key]
		if t.Extension != "" {
			continue
		}
		b, inBase := base.Enums[key]
		if !inBase {
			d.add(Change{Category: CategoryEnum, Action: ActionCreate, ObjectKey: key, Target: t})
			continue
		}
		added := newValues(b.Values, t.Values)
		if len(added) > 0 {
			d.add(Change{
				Category: CategoryEnum, Action: ActionUpdate, ObjectKey: key,
				Base: b, Target: t, Detail: "add values: " + joinComma(added),
			})
		}
		if b.Comment != t.Comment {
			d.add(Change{Category: CategoryComment, Action: ActionUpdate, ObjectKey: key, Base: b.Comment, Target: t.Comment, Detail: "type"})
		}
	}
}

// newValues returns the values present in target but not base, preserving
// target's order (invariant: a full reorder is never attempted).
func newValues(base, target []string) []string {
	have := make(map[string]bool, len(base))
	for _, v := range base {
		have[v] = true
	}
	var out []string
	for _, v := range target {
		if !have[v] {
			out = append(out, v)
		}
	}
	return out
}

func joinComma(vals []string) string {
	out := ""
	for i, v := range vals {
		if i > 0 {
			out += ", "
		}
		out += v
	}
	return out
}

func diffCompositeTypes(d *SchemaDiff, base, target *ir.DbSchema) {
	for _, key := range sortedKeys(base.CompositeTypes) {
		c := base.CompositeTypes[key]
		if c.Extension != "" {
			continue
		}
		if _, ok := target.CompositeTypes[key]; !ok {
			d.add(Change{Category: CategoryCompositeType, Action: ActionDrop, ObjectKey: key, Base: c})
		}
	}
	for _, key := range sortedKeys(target.CompositeTypes) {
		t := target.CompositeTypes[key]
		if t.Extension != "" {
			continue
		}
		b, inBase := base.CompositeTypes[key]
		if !inBase {
			d.add(Change{Category: CategoryCompositeType, Action: ActionCreate, ObjectKey: key, Target: t})
			continue
		}
		if !compositeEqual(b, t) {
			d.add(Change{Category: CategoryCompositeType, Action: ActionReplace, ObjectKey: key, Base: b, Target: t})
		}
		if b.Comment != t.Comment {
			d.add(Change{Category: CategoryComment, Action: ActionUpdate, ObjectKey: key, Base: b.Comment, Target: t.Comment, Detail: "type"})
		}
	}
}

func diffDomains(d *SchemaDiff, base, target *ir.DbSchema) {
	for _, key := range sortedKeys(base.Domains) {
		dom := base.Domains[key]
		if dom.Extension != "" {
			continue
		}
		if _, ok := target.Domains[key]; !ok {
			d.add(Change{Category: CategoryDomain, Action: ActionDrop, ObjectKey: key, Base: dom})
		}
	}
	for _, key := range sortedKeys(target.Domains) {
		t := target.Domains[key]
		if t.Extension != "" {
			continue
		}
		b, inBase := base.Domains[key]
		if !inBase {
			d.add(Change{Category: CategoryDomain, Action: ActionCreate, ObjectKey: key, Target: t})
			continue
		}
		if !domainEqual(b, t) {
			d.add(Change{Category: CategoryDomain, Action: ActionReplace, ObjectKey: key, Base: b, Target: t})
		}
		if b.Comment != t.Comment {
			d.add(Change{Category: CategoryComment, Action: ActionUpdate, ObjectKey: key, Base: b.Comment, Target: t.Comment, Detail: "domain"})
		}
	}
}

func diffSequences(d *SchemaDiff, base, target *ir.DbSchema) {
	for _, key := range sortedKeys(base.Sequences) {
		s := base.Sequences[key]
		if s.Extension != "" {
			continue
		}
		if _, ok := target.Sequences[key]; !ok {
			d.add(Change{Category: CategorySequence, Action: ActionDrop, ObjectKey: key, Base: s})
		}
	}
	for _, key := range sortedKeys(target.Sequences) {
		t := target.Sequences[key]
		if t.Extension != "" {
			continue
		}
		b, inBase := base.Sequences[key]
		if !inBase {
			d.add(Change{Category: CategorySequence, Action: ActionCreate, ObjectKey: key, Target: t})
			continue
		}
		if !sequenceEqual(b, t) {
			d.add(Change{Category: CategorySequence, Action: ActionUpdate, ObjectKey: key, Base: b, Target: t})
		}
	}
}

func diffFunctions(d *SchemaDiff, base, target *ir.DbSchema) {
	for _, key := range sortedKeys(base.Functions) {
		f := base.Functions[key]
		if f.Extension != "" {
			continue
		}
		if _, ok := target.Functions[key]; !ok {
			d.add(Change{Category: CategoryFunction, Action: ActionDrop, ObjectKey: key, Base: f})
		}
	}
	for _, key := range sortedKeys(target.Functions) {
		t := target.Functions[key]
		if t.Extension != "" {
			continue
		}
		b, inBase := base.Functions[key]
		if !inBase {
			d.add(Change{Category: CategoryFunction, Action: ActionCreate, ObjectKey: key, Target: t})
			continue
		}
		if !functionEqual(b, t) {
			d.add(Change{Category: CategoryFunction, Action: ActionUpdate, ObjectKey: key, Base: b, Target: t})
		}
		if b.Comment != t.Comment {
			d.add(Change{Category: CategoryComment, Action: ActionUpdate, ObjectKey: key, Base: b.Comment, Target: t.Comment, Detail: "function"})
		}
	}
}

func diffViews(d *SchemaDiff, base, target *ir.DbSchema) {
	for _, key := range sortedKeys(base.Views) {
		v := base.Views[key]
		if v.Extension != "" {
			continue
		}
		if _, ok := target.Views[key]; !ok {
			d.add(Change{Category: CategoryView, Action: ActionDrop, ObjectKey: key, Base: v})
		}
	}
	for _, key := range sortedKeys(target.Views) {
		t := target.Views[key]
		if t.Extension != "" {
			continue
		}
		b, inBase := base.Views[key]
		if !inBase {
			d.add(Change{Category: CategoryView, Action: ActionCreate, ObjectKey: key, Target: t})
			continue
		}
		if !viewEqual(b, t) {
			d.add(Change{Category: CategoryView, Action: ActionUpdate, ObjectKey: key, Base: b, Target: t})
		}
		if b.Comment != t.Comment {
			kind := "view"
			if t.IsMaterialized {
				kind = "materialized view"
			}
			d.add(Change{Category: CategoryComment, Action: ActionUpdate, ObjectKey: key, Base: b.Comment, Target: t.Comment, Detail: kind})
		}
	}
}

func diffTables(d *SchemaDiff, base, target *ir.DbSchema) {
	for _, key := range sortedKeys(base.Tables) {
		tbl := base.Tables[key]
		if tbl.Extension != "" {
			continue
		}
		if _, ok := target.Tables[key]; !ok {
			d.add(Change{Category: CategoryTable, Action: ActionDrop, ObjectKey: key, Base: tbl, Destructive: true})
		}
	}
	for _, key := range sortedKeys(target.Tables) {
		t := target.Tables[key]
		if t.Extension != "" {
			continue
		}
		b, inBase := base.Tables[key]
		if !inBase {
			d.add(Change{Category: CategoryTable, Action: ActionCreate, ObjectKey: key, Target: t})
			continue
		}
		diffTableBody(d, key, b, t)
	}
}

func diffTableBody(d *SchemaDiff, tableKey string, b, t *ir.Table) {
	if b.Comment != t.Comment {
		d.add(Change{Category: CategoryComment, Action: ActionUpdate, ObjectKey: tableKey, Base: b.Comment, Target: t.Comment, Detail: "table"})
	}
	if b.RLSEnabled != t.RLSEnabled {
		d.add(Change{Category: CategoryRLS, Action: ActionUpdate, ObjectKey: tableKey, Table: tableKey, Base: b.RLSEnabled, Target: t.RLSEnabled})
	}

	diffColumns(d, tableKey, b, t)
	diffChecks(d, tableKey, b, t)
	diffIndexes(d, tableKey, b, t)
	diffForeignKeys(d, tableKey, b, t)
	diffTriggers(d, tableKey, b, t)
	diffPolicies(d, tableKey, b, t)
}

func diffColumns(d *SchemaDiff, tableKey string, b, t *ir.Table) {
	for _, name := range b.ColumnOrder {
		if _, ok := t.Columns[name]; !ok {
			col := b.Columns[name]
			d.add(Change{
				Category: CategoryColumn, Action: ActionDrop, ObjectKey: tableKey + "." + name,
				Table: tableKey, Base: col, Destructive: true,
			})
		}
	}
	for _, name := range t.ColumnOrder {
		tc := t.Columns[name]
		bc, inBase := b.Columns[name]
		if !inBase {
			d.add(Change{Category: CategoryColumn, Action: ActionCreate, ObjectKey: tableKey + "." + name, Table: tableKey, Target: tc})
			continue
		}
		if bc.IsGenerated != tc.IsGenerated {
			d.add(Change{
				Category: CategoryColumn, Action: ActionReplace, ObjectKey: tableKey + "." + name,
				Table: tableKey, Base: bc, Target: tc, Detail: "generation change", Destructive: true,
			})
			continue
		}
		destructive := !dataTypesEqual(bc.DataType, tc.DataType)
		if !columnsEqual(bc, tc) {
			d.add(Change{
				Category: CategoryColumn, Action: ActionUpdate, ObjectKey: tableKey + "." + name,
				Table: tableKey, Base: bc, Target: tc, Destructive: destructive,
			})
		}
	}
}

func diffChecks(d *SchemaDiff, tableKey string, b, t *ir.Table) {
	for _, name := range sortedKeys(b.CheckConstraints) {
		if _, ok := t.CheckConstraints[name]; !ok {
			d.add(Change{Category: CategoryCheck, Action: ActionDrop, ObjectKey: tableKey + "." + name, Table: tableKey, Base: b.CheckConstraints[name]})
		}
	}
	for _, name := range sortedKeys(t.CheckConstraints) {
		tc := t.CheckConstraints[name]
		if _, ok := b.CheckConstraints[name]; !ok {
			d.add(Change{Category: CategoryCheck, Action: ActionCreate, ObjectKey: tableKey + "." + name, Table: tableKey, Target: tc})
		}
		// Identity by name only: Postgres rewrites expressions too
		// aggressively to compare safely once round-tripped.
	}
}

func diffIndexes(d *SchemaDiff, tableKey string, b, t *ir.Table) {
	for _, name := range sortedKeys(b.Indexes) {
		if _, ok := t.Indexes[name]; !ok {
			d.add(Change{Category: CategoryIndex, Action: ActionDrop, ObjectKey: tableKey + "." + name, Table: tableKey, Base: b.Indexes[name]})
		}
	}
	for _, name := range sortedKeys(t.Indexes) {
		ti := t.Indexes[name]
		bi, inBase := b.Indexes[name]
		if !inBase {
			d.add(Change{Category: CategoryIndex, Action: ActionCreate, ObjectKey: tableKey + "." + name, Table: tableKey, Target: ti})
			continue
		}
		if !indexEqual(bi, ti) {
			d.add(Change{Category: CategoryIndex, Action: ActionReplace, ObjectKey: tableKey + "." + name, Table: tableKey, Base: bi, Target: ti})
		}
	}
}

func diffForeignKeys(d *SchemaDiff, tableKey string, b, t *ir.Table) {
	for _, name := range sortedKeys(b.ForeignKeys) {
		if _, ok := t.ForeignKeys[name]; !ok {
			d.add(Change{Category: CategoryForeignKey, Action: ActionDrop, ObjectKey: tableKey + "." + name, Table: tableKey, Base: b.ForeignKeys[name]})
		}
	}
	for _, name := range sortedKeys(t.ForeignKeys) {
		tf := t.ForeignKeys[name]
		bf, inBase := b.ForeignKeys[name]
		if !inBase {
			d.add(Change{Category: CategoryForeignKey, Action: ActionCreate, ObjectKey: tableKey + "." + name, Table: tableKey, Target: tf})
			continue
		}
		if !foreignKeyEqual(bf, tf) {
			d.add(Change{Category: CategoryForeignKey, Action: ActionReplace, ObjectKey: tableKey + "." + name, Table: tableKey, Base: bf, Target: tf})
		}
	}
}

func diffTriggers(d *SchemaDiff, tableKey string, b, t *ir.Table) {
	for _, name := range sortedKeys(b.Triggers) {
		if _, ok := t.Triggers[name]; !ok {
			d.add(Change{Category: CategoryTrigger, Action: ActionDrop, ObjectKey: tableKey + "." + name, Table: tableKey, Base: b.Triggers[name]})
		}
	}
	for _, name := range sortedKeys(t.Triggers) {
		tt := t.Triggers[name]
		bt, inBase := b.Triggers[name]
		if !inBase {
			d.add(Change{Category: CategoryTrigger, Action: ActionCreate, ObjectKey: tableKey + "." + name, Table: tableKey, Target: tt})
			continue
		}
		if !triggerEqual(bt, tt) {
			d.add(Change{Category: CategoryTrigger, Action: ActionReplace, ObjectKey: tableKey + "." + name, Table: tableKey, Base: bt, Target: tt})
		}
	}
}

func diffPolicies(d *SchemaDiff, tableKey string, b, t *ir.Table) {
	for _, name := range sortedKeys(b.Policies) {
		if _, ok := t.Policies[name]; !ok {
			d.add(Change{Category: CategoryPolicy, Action: ActionDrop, ObjectKey: tableKey + "." + name, Table: tableKey, Base: b.Policies[name]})
		}
	}
	for _, name := range sortedKeys(t.Policies) {
		tp := t.Policies[name]
		bp, inBase := b.Policies[name]
		if !inBase {
			d.add(Change{Category: CategoryPolicy, Action: ActionCreate, ObjectKey: tableKey + "." + name, Table: tableKey, Target: tp})
			continue
		}
		if !policyEqual(bp, tp) {
			d.add(Change{Category: CategoryPolicy, Action: ActionReplace, ObjectKey: tableKey + "." + name, Table: tableKey, Base: bp, Target: tp})
		}
	}
}
