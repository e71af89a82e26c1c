package generator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pgschema/pgschema/internal/ir"
)

// createTableSQL emits a full CREATE TABLE, including inline PRIMARY KEY
// and UNIQUE clauses for indexes that back a named constraint; other
// indexes, triggers, policies, and foreign keys are emitted separately by
// the caller once every table exists.
func createTableSQL(t *ir.Table) string {
	key := qualify(t.Schema, t.Name)
	var lines []string
	for _, c := range t.OrderedColumns() {
		lines = append(lines, "    "+columnDefSQL(c))
	}

	if pk := primaryKeyIndex(t); pk != nil {
		lines = append(lines, fmt.Sprintf("    PRIMARY KEY (%s)", quoteColumnList(pk.Columns)))
	}
	for _, name := range sortedIndexNames(t) {
		idx := t.Indexes[name]
		if idx.IsPrimary || idx.OwningConstraint == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("    CONSTRAINT %s UNIQUE (%s)", ir.QuoteIdent(idx.OwningConstraint), quoteColumnList(idx.Columns)))
	}
	for _, name := range sortedCheckNames(t) {
		chk := t.CheckConstraints[name]
		lines = append(lines, fmt.Sprintf("    CONSTRAINT %s CHECK (%s)", ir.QuoteIdent(chk.Name), chk.Expression))
	}

	return fmt.Sprintf("CREATE TABLE %s (\n%s\n);", key, strings.Join(lines, ",\n"))
}

func primaryKeyIndex(t *ir.Table) *ir.Index {
	for _, name := range sortedIndexNames(t) {
		if t.Indexes[name].IsPrimary {
			return t.Indexes[name]
		}
	}
	return nil
}

func sortedIndexNames(t *ir.Table) []string {
	out := make([]string, 0, len(t.Indexes))
	for k := range t.Indexes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedCheckNames(t *ir.Table) []string {
	out := make([]string, 0, len(t.CheckConstraints))
	for k := range t.CheckConstraints {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func quoteColumnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = ir.QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

func dropTableSQL(t *ir.Table) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", qualify(t.Schema, t.Name))
}

// createIndexSQL emits CREATE INDEX, or, when the index backs a named
// UNIQUE/PRIMARY KEY constraint, the ALTER TABLE ... ADD CONSTRAINT form
// instead (the generator never emits CREATE UNIQUE INDEX for those).
func createIndexSQL(tableSchema, tableName string, idx *ir.Index) string {
	tableKey := qualify(tableSchema, tableName)
	if idx.OwningConstraint != "" {
		kind := "UNIQUE"
		if idx.IsPrimary {
			kind = "PRIMARY KEY"
		}
		return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s (%s);",
			tableKey, ir.QuoteIdent(idx.OwningConstraint), kind, quoteColumnList(idx.Columns))
	}

	var unique string
	if idx.IsUnique {
		unique = "UNIQUE "
	}
	cols := make([]string, len(idx.Columns))
	for i := range idx.Columns {
		if idx.Expressions[i] != "" {
			cols[i] = "(" + idx.Expressions[i] + ")"
		} else {
			cols[i] = ir.QuoteIdent(idx.Columns[i])
		}
	}
	method := idx.Method
	if method == "" {
		method = ir.MethodBtree
	}
	stmt := fmt.Sprintf("CREATE %sINDEX %s ON %s USING %s (%s)",
		unique, ir.QuoteIdent(idx.Name), tableKey, method, strings.Join(cols, ", "))
	if idx.WhereClause != "" {
		stmt += " WHERE " + idx.WhereClause
	}
	return stmt + ";"
}

func dropIndexSQL(tableSchema string, idx *ir.Index) string {
	if idx.OwningConstraint != "" {
		return "" // the caller drops it via ALTER TABLE ... DROP CONSTRAINT on its owning constraint
	}
	return fmt.Sprintf("DROP INDEX IF EXISTS %s;", qualify(tableSchema, idx.Name))
}

func createCheckSQL(tableKey string, chk *ir.CheckConstraint) string {
	stmt := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)", tableKey, ir.QuoteIdent(chk.Name), chk.Expression)
	if chk.NotValid {
		stmt += " NOT VALID"
	}
	return stmt + ";"
}

func dropConstraintSQL(tableKey, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;", tableKey, ir.QuoteIdent(name))
}

func createForeignKeySQL(tableKey string, fk *ir.ForeignKey) string {
	stmt := fmt.Sprintf(
		"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		tableKey, ir.QuoteIdent(fk.Name), quoteColumnList(fk.Columns),
		qualify(fk.ForeignSchema, fk.ForeignTable), quoteColumnList(fk.ForeignColumns),
	)
	if fk.OnDelete != "" && fk.OnDelete != ir.ActionNoAction {
		stmt += " ON DELETE " + string(fk.OnDelete)
	}
	if fk.OnUpdate != "" && fk.OnUpdate != ir.ActionNoAction {
		stmt += " ON UPDATE " + string(fk.OnUpdate)
	}
	return stmt + ";"
}

func createTriggerSQL(tableKey string, tr *ir.Trigger) string {
	stmt := fmt.Sprintf("CREATE TRIGGER %s %s %s ON %s FOR EACH %s",
		ir.QuoteIdent(tr.Name), tr.Timing, strings.Join(tr.Events, " OR "), tableKey, tr.Orientation)
	if tr.WhenClause != "" {
		stmt += fmt.Sprintf(" WHEN (%s)", tr.WhenClause)
	}
	stmt += fmt.Sprintf(" EXECUTE FUNCTION %s()", normalizeFuncRef(tr.Function))
	return stmt + ";"
}

func normalizeFuncRef(name string) string {
	if !strings.Contains(name, ".") {
		return ir.QuoteQualified("public", name)
	}
	parts := strings.SplitN(name, ".", 2)
	return ir.QuoteQualified(parts[0], parts[1])
}

func dropTriggerSQL(tableKey, name string) string {
	return fmt.Sprintf("DROP TRIGGER IF EXISTS %s ON %s;", ir.QuoteIdent(name), tableKey)
}

func createPolicySQL(tableKey string, p *ir.Policy) string {
	stmt := fmt.Sprintf("CREATE POLICY %s ON %s FOR %s", ir.QuoteIdent(p.Name), tableKey, p.Command)
	if len(p.Roles) > 0 {
		stmt += " TO " + strings.Join(p.Roles, ", ")
	}
	if p.Using != "" {
		stmt += fmt.Sprintf(" USING (%s)", p.Using)
	}
	if p.WithCheck != "" {
		stmt += fmt.Sprintf(" WITH CHECK (%s)", p.WithCheck)
	}
	return stmt + ";"
}

func dropPolicySQL(tableKey, name string) string {
	return fmt.Sprintf("DROP POLICY IF EXISTS %s ON %s;", ir.QuoteIdent(name), tableKey)
}

func enableRLSSQL(tableKey string) string {
	return fmt.Sprintf("ALTER TABLE %s ENABLE ROW LEVEL SECURITY;", tableKey)
}

func disableRLSSQL(tableKey string) string {
	return fmt.Sprintf("ALTER TABLE %s DISABLE ROW LEVEL SECURITY;", tableKey)
}

func commentOnSQL(on, target, comment string) string {
	if comment == "" {
		return fmt.Sprintf("COMMENT ON %s %s IS NULL;", on, target)
	}
	return fmt.Sprintf("COMMENT ON %s %s IS '%s';", on, target, ir.EscapeStringLiteral(comment))
}
