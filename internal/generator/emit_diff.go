package generator

import (
	"sort"
	"strings"

	"github.com/pgschema/pgschema/internal/diff"
	"github.com/pgschema/pgschema/internal/ir"
)

// EmitDiff renders a migration script for d: a sequence of semicolon-
// terminated statements, valid as a single batch, that transforms the
// diff's base into its target. The thirteen-step ordering keeps every
// DROP ahead of the CREATE it might conflict with and every CREATE TABLE
// ahead of the FOREIGN KEY that references it, so the script never fails
// on an ordering dependency. An empty diff yields an empty string.
func EmitDiff(d *diff.SchemaDiff) string {
	s := &script{}
	if d == nil {
		return ""
	}

	byCat := make(map[diff.Category][]diff.Change)
	for _, c := range d.Changes {
		byCat[c.Category] = append(byCat[c.Category], c)
	}

	// 1. Roles: drop, create, alter.
	for _, c := range byCat[diff.CategoryRole] {
		if c.Action == diff.ActionDrop {
			s.add(dropRoleSQL(c.Base.(*ir.Role)))
		}
	}
	for _, c := range byCat[diff.CategoryRole] {
		if c.Action == diff.ActionCreate {
			s.add(createRoleSQL(c.Target.(*ir.Role)))
		}
	}
	for _, c := range byCat[diff.CategoryRole] {
		if c.Action == diff.ActionUpdate {
			s.add("ALTER ROLE" + strings.TrimPrefix(createRoleSQL(c.Target.(*ir.Role)), "CREATE ROLE"))
		}
	}

	// 2. CREATE SCHEMA IF NOT EXISTS for schemas introduced by new objects.
	for _, schema := range newSchemas(byCat) {
		s.addf("CREATE SCHEMA IF NOT EXISTS %s;", ir.QuoteIdent(schema))
	}

	// 3. Create extensions.
	for _, c := range byCat[diff.CategoryExtension] {
		if c.Action == diff.ActionCreate {
			s.add(createExtensionSQL(c.Target.(*ir.Extension)))
		}
	}

	// 4. Drop views, functions, sequences, tables.
	for _, c := range byCat[diff.CategoryView] {
		if c.Action == diff.ActionDrop {
			s.add(dropViewSQL(c.Base.(*ir.View)))
		}
	}
	for _, c := range byCat[diff.CategoryFunction] {
		if c.Action == diff.ActionDrop {
			s.add(dropFunctionSQL(c.Base.(*ir.Function)))
		}
	}
	for _, c := range byCat[diff.CategorySequence] {
		if c.Action == diff.ActionDrop {
			s.add(dropSequenceSQL(c.Base.(*ir.Sequence)))
		}
	}
	for _, c := range byCat[diff.CategoryTable] {
		if c.Action == diff.ActionDrop {
			s.add(dropTableSQL(c.Base.(*ir.Table)))
		}
	}

	// 5. Create enums, composite types, domains; then add enum values.
	for _, c := range byCat[diff.CategoryEnum] {
		if c.Action == diff.ActionCreate {
			s.add(createEnumSQL(c.Target.(*ir.Enum)))
		}
	}
	for _, c := range byCat[diff.CategoryCompositeType] {
		if c.Action == diff.ActionCreate {
			s.add(createCompositeSQL(c.Target.(*ir.CompositeType)))
		} else if c.Action == diff.ActionReplace {
			s.add(dropCompositeSQL(c.Base.(*ir.CompositeType)))
			s.add(createCompositeSQL(c.Target.(*ir.CompositeType)))
		}
	}
	for _, c := range byCat[diff.CategoryDomain] {
		if c.Action == diff.ActionCreate {
			s.add(createDomainSQL(c.Target.(*ir.Domain)))
		} else if c.Action == diff.ActionReplace {
			s.add(dropDomainSQL(c.Base.(*ir.Domain)))
			s.add(createDomainSQL(c.Target.(*ir.Domain)))
		}
	}
	for _, c := range byCat[diff.CategoryEnum] {
		if c.Action != diff.ActionUpdate {
			continue
		}
		target := c.Target.(*ir.Enum)
		base := c.Base.(*ir.Enum)
		for _, v := range newEnumValues(base.Values, target.Values) {
			s.add(addEnumValueSQL(target, v))
		}
	}

	// 6. Create/alter sequences.
	for _, c := range byCat[diff.CategorySequence] {
		switch c.Action {
		case diff.ActionCreate:
			s.add(createSequenceSQL(c.Target.(*ir.Sequence)))
		case diff.ActionUpdate:
			s.add(alterSequenceSQL(c.Target.(*ir.Sequence)))
		}
	}

	// 7. Create/replace functions.
	for _, c := range byCat[diff.CategoryFunction] {
		switch c.Action {
		case diff.ActionCreate, diff.ActionUpdate:
			fn := c.Target.(*ir.Function)
			s.add(createFunctionSQL(fn))
			for _, g := range fn.Grants {
				s.add(grantExecuteSQL(fn, g))
			}
		}
	}

	// 8. Create tables; alter existing tables.
	newTables := map[string]*ir.Table{}
	for _, c := range byCat[diff.CategoryTable] {
		if c.Action != diff.ActionCreate {
			continue
		}
		t := c.Target.(*ir.Table)
		s.add(createTableSQL(t))
		newTables[c.ObjectKey] = t
		if t.Comment != "" {
			s.add(commentOnSQL("TABLE", c.ObjectKey, t.Comment))
		}
		for _, col := range t.OrderedColumns() {
			if col.Comment != "" {
				s.add(commentOnSQL("COLUMN", c.ObjectKey+"."+ir.QuoteIdent(col.Name), col.Comment))
			}
		}
		// Non-owning indexes are not inline in CREATE TABLE.
		for _, name := range sortedIndexNames(t) {
			idx := t.Indexes[name]
			if idx.OwningConstraint == "" {
				s.add(createIndexSQL(t.Schema, t.Name, idx))
			}
		}
	}
	emitTableAlters(s, byCat)

	// 9. Create/replace views (materialized views are dropped then
	// recreated, since REFRESH semantics don't apply to a definition
	// change).
	for _, c := range byCat[diff.CategoryView] {
		switch c.Action {
		case diff.ActionCreate:
			s.add(createViewSQL(c.Target.(*ir.View)))
		case diff.ActionUpdate:
			target := c.Target.(*ir.View)
			if target.IsMaterialized {
				s.add(dropViewSQL(c.Base.(*ir.View)))
				s.add(createViewSQL(target))
			} else {
				s.add(strings.Replace(createViewSQL(target), "CREATE VIEW", "CREATE OR REPLACE VIEW", 1))
			}
		}
	}

	// 10. Triggers and policies for newly-created tables.
	for _, key := range sortedKeys(newTables) {
		t := newTables[key]
		if t.RLSEnabled {
			s.add(enableRLSSQL(qualify(t.Schema, t.Name)))
		}
		for _, name := range sortedKeys(t.Triggers) {
			s.add(createTriggerSQL(qualify(t.Schema, t.Name), t.Triggers[name]))
		}
		for _, name := range sortedKeys(t.Policies) {
			s.add(createPolicySQL(qualify(t.Schema, t.Name), t.Policies[name]))
		}
	}

	// 11. All foreign keys, deferred so every referenced table exists.
	for _, key := range sortedKeys(newTables) {
		t := newTables[key]
		for _, name := range sortedKeys(t.ForeignKeys) {
			s.add(createForeignKeySQL(qualify(t.Schema, t.Name), t.ForeignKeys[name]))
		}
	}
	for _, c := range byCat[diff.CategoryForeignKey] {
		if c.Action == diff.ActionCreate || c.Action == diff.ActionReplace {
			s.add(createForeignKeySQL(c.Table, c.Target.(*ir.ForeignKey)))
		}
	}

	// 12. Comments.
	for _, c := range byCat[diff.CategoryComment] {
		emitComment(s, c)
	}

	// 13. Drop domains, composite types, enums; drop extensions last.
	for _, c := range byCat[diff.CategoryDomain] {
		if c.Action == diff.ActionDrop {
			s.add(dropDomainSQL(c.Base.(*ir.Domain)))
		}
	}
	for _, c := range byCat[diff.CategoryCompositeType] {
		if c.Action == diff.ActionDrop {
			s.add(dropCompositeSQL(c.Base.(*ir.CompositeType)))
		}
	}
	for _, c := range byCat[diff.CategoryEnum] {
		if c.Action == diff.ActionDrop {
			s.add(dropEnumSQL(c.Base.(*ir.Enum)))
		}
	}
	for _, c := range byCat[diff.CategoryExtension] {
		if c.Action == diff.ActionDrop {
			s.add(dropExtensionSQL(c.Base.(*ir.Extension)))
		}
	}

	return s.String()
}

// emitTableAlters applies the fixed sub-ordering for an existing table:
// drop FKs, drop checks, drop policies, drop triggers, drop indexes, drop
// columns; then add non-generated columns, alter columns, add generated
// columns, RLS change, add checks, create indexes, create triggers, create
// policies.
func emitTableAlters(s *script, byCat map[diff.Category][]diff.Change) {
	tables := tablesTouched(byCat)

	for _, tableKey := range tables {
		for _, c := range byCat[diff.CategoryForeignKey] {
			if c.Table == tableKey && (c.Action == diff.ActionDrop || c.Action == diff.ActionReplace) {
				s.add(dropConstraintSQL(tableKey, fkName(c)))
			}
		}
		for _, c := range byCat[diff.CategoryCheck] {
			if c.Table == tableKey && c.Action == diff.ActionDrop {
				s.add(dropConstraintSQL(tableKey, c.Base.(*ir.CheckConstraint).Name))
			}
		}
		for _, c := range byCat[diff.CategoryPolicy] {
			if c.Table == tableKey && (c.Action == diff.ActionDrop || c.Action == diff.ActionReplace) {
				s.add(dropPolicySQL(tableKey, policyName(c)))
			}
		}
		for _, c := range byCat[diff.CategoryTrigger] {
			if c.Table == tableKey && (c.Action == diff.ActionDrop || c.Action == diff.ActionReplace) {
				s.add(dropTriggerSQL(tableKey, triggerName(c)))
			}
		}
		for _, c := range byCat[diff.CategoryIndex] {
			if c.Table == tableKey && (c.Action == diff.ActionDrop || c.Action == diff.ActionReplace) {
				idx := c.Base.(*ir.Index)
				if idx.OwningConstraint != "" {
					s.add(dropConstraintSQL(tableKey, idx.OwningConstraint))
				} else if stmt := dropIndexSQL(schemaOf(tableKey), idx); stmt != "" {
					s.add(stmt)
				}
			}
		}
		for _, c := range byCat[diff.CategoryColumn] {
			if c.Table == tableKey && c.Action == diff.ActionDrop {
				s.add(dropColumnSQL(tableKey, c.Base.(*ir.Column).Name))
			}
			if c.Table == tableKey && c.Action == diff.ActionReplace {
				s.add(dropColumnSQL(tableKey, c.Base.(*ir.Column).Name))
			}
		}

		for _, c := range byCat[diff.CategoryColumn] {
			if c.Table != tableKey {
				continue
			}
			switch c.Action {
			case diff.ActionCreate:
				col := c.Target.(*ir.Column)
				if !col.IsGenerated {
					s.add(addColumnSQL(tableKey, col))
					if col.Comment != "" {
						s.add(commentOnSQL("COLUMN", tableKey+"."+ir.QuoteIdent(col.Name), col.Comment))
					}
				}
			case diff.ActionUpdate:
				base, target := c.Base.(*ir.Column), c.Target.(*ir.Column)
				for _, stmt := range alterColumnSQL(tableKey, base, target) {
					s.add(stmt)
				}
				if base.Comment != target.Comment {
					s.add(commentOnSQL("COLUMN", tableKey+"."+ir.QuoteIdent(target.Name), target.Comment))
				}
			case diff.ActionReplace:
				col := c.Target.(*ir.Column)
				if !col.IsGenerated {
					s.add(addColumnSQL(tableKey, col))
					if col.Comment != "" {
						s.add(commentOnSQL("COLUMN", tableKey+"."+ir.QuoteIdent(col.Name), col.Comment))
					}
				}
			}
		}
		for _, c := range byCat[diff.CategoryColumn] {
			if c.Table == tableKey && (c.Action == diff.ActionCreate || c.Action == diff.ActionReplace) {
				col := c.Target.(*ir.Column)
				if col.IsGenerated {
					s.add(addColumnSQL(tableKey, col))
					if col.Comment != "" {
						s.add(commentOnSQL("COLUMN", tableKey+"."+ir.QuoteIdent(col.Name), col.Comment))
					}
				}
			}
		}

		for _, c := range byCat[diff.CategoryRLS] {
			if c.Table == tableKey {
				if c.Target.(bool) {
					s.add(enableRLSSQL(tableKey))
				} else {
					s.add(disableRLSSQL(tableKey))
				}
			}
		}

		for _, c := range byCat[diff.CategoryCheck] {
			if c.Table == tableKey && c.Action == diff.ActionCreate {
				s.add(createCheckSQL(tableKey, c.Target.(*ir.CheckConstraint)))
			}
		}
		for _, c := range byCat[diff.CategoryIndex] {
			if c.Table != tableKey {
				continue
			}
			if c.Action == diff.ActionCreate || c.Action == diff.ActionReplace {
				s.add(createIndexSQL(schemaOf(tableKey), nameOf(tableKey), c.Target.(*ir.Index)))
			}
		}
		for _, c := range byCat[diff.CategoryTrigger] {
			if c.Table != tableKey {
				continue
			}
			if c.Action == diff.ActionCreate || c.Action == diff.ActionReplace {
				s.add(createTriggerSQL(tableKey, c.Target.(*ir.Trigger)))
			}
		}
		for _, c := range byCat[diff.CategoryPolicy] {
			if c.Table != tableKey {
				continue
			}
			if c.Action == diff.ActionCreate || c.Action == diff.ActionReplace {
				s.add(createPolicySQL(tableKey, c.Target.(*ir.Policy)))
			}
		}
	}
}

func tablesTouched(byCat map[diff.Category][]diff.Change) []string {
	seen := map[string]bool{}
	var out []string
	for _, cat := range []diff.Category{
		diff.CategoryColumn, diff.CategoryCheck, diff.CategoryForeignKey,
		diff.CategoryIndex, diff.CategoryTrigger, diff.CategoryPolicy, diff.CategoryRLS,
	} {
		for _, c := range byCat[cat] {
			if c.Table != "" && !seen[c.Table] {
				seen[c.Table] = true
				out = append(out, c.Table)
			}
		}
	}
	sort.Strings(out)
	return out
}

func fkName(c diff.Change) string {
	if c.Base != nil {
		return c.Base.(*ir.ForeignKey).Name
	}
	return c.Target.(*ir.ForeignKey).Name
}

func policyName(c diff.Change) string {
	if c.Base != nil {
		return c.Base.(*ir.Policy).Name
	}
	return c.Target.(*ir.Policy).Name
}

func triggerName(c diff.Change) string {
	if c.Base != nil {
		return c.Base.(*ir.Trigger).Name
	}
	return c.Target.(*ir.Trigger).Name
}

func emitComment(s *script, c diff.Change) {
	target, _ := c.Target.(string)
	on := "TABLE"
	if c.Detail != "" {
		on = strings.ToUpper(c.Detail)
	}
	s.add(commentOnSQL(on, c.ObjectKey, target))
}

func schemaOf(tableKey string) string {
	// tableKey is `"schema"."name"`; split on the first unescaped `"."`.
	for i := 1; i < len(tableKey)-1; i++ {
		if tableKey[i] == '"' && tableKey[i+1] == '.' {
			return ir.UnquoteIdent(tableKey[:i+1])
		}
	}
	return ""
}

func nameOf(tableKey string) string {
	for i := 1; i < len(tableKey)-1; i++ {
		if tableKey[i] == '"' && tableKey[i+1] == '.' {
			return ir.UnquoteIdent(tableKey[i+2:])
		}
	}
	return ir.UnquoteIdent(tableKey)
}

func newSchemas(byCat map[diff.Category][]diff.Change) []string {
	seen := map[string]bool{}
	add := func(schema string) {
		if schema != "" && schema != "public" {
			seen[schema] = true
		}
	}
	for _, c := range byCat[diff.CategoryTable] {
		if c.Action == diff.ActionCreate {
			add(c.Target.(*ir.Table).Schema)
		}
	}
	for _, c := range byCat[diff.CategoryView] {
		if c.Action == diff.ActionCreate {
			add(c.Target.(*ir.View).Schema)
		}
	}
	for _, c := range byCat[diff.CategoryFunction] {
		if c.Action == diff.ActionCreate {
			add(c.Target.(*ir.Function).Schema)
		}
	}
	var out []string
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func newEnumValues(base, target []string) []string {
	have := map[string]bool{}
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

func sortedKeys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
