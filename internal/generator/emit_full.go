package generator

import (
	"sort"

	"github.com/pgschema/pgschema/internal/ir"
)

// File is one named SQL file of a split-schema rendering.
type File struct {
	Name string
	SQL  string
}

// EmitFull renders an entire DbSchema as a single canonical schema.sql: one
// statement per object, grouped and ordered so the result can be replayed
// top to bottom against an empty database.
func EmitFull(schema *ir.DbSchema) string {
	s := &script{}
	emitFullInto(s, schema)
	return s.String()
}

// EmitSplit renders schema into the nine numbered files a project checks
// into its schema directory. A file is omitted from the result when the
// schema has nothing to put in it. Every table-bearing file lists tables in
// dependency order, so concatenating the files in name order reproduces
// EmitFull's statement order exactly.
func EmitSplit(schema *ir.DbSchema) []File {
	var files []File
	add := func(name string, s *script) {
		if !s.empty() {
			files = append(files, File{Name: name, SQL: s.String()})
		}
	}

	ext := &script{}
	for _, schemaName := range schemasOf(schema) {
		ext.addf("CREATE SCHEMA IF NOT EXISTS %s;", ir.QuoteIdent(schemaName))
	}
	for _, key := range sortedKeys(schema.Extensions) {
		e := schema.Extensions[key]
		ext.add(createExtensionSQL(e))
	}
	add("00_extensions.sql", ext)

	roles := &script{}
	for _, key := range sortedKeys(schema.Roles) {
		roles.add(createRoleSQL(schema.Roles[key]))
	}
	add("01_roles.sql", roles)

	types := &script{}
	emitTypes(types, schema)
	add("02_types.sql", types)

	seqs := &script{}
	for _, key := range sortedKeys(schema.Sequences) {
		sq := schema.Sequences[key]
		if sq.Extension != "" {
			continue
		}
		seqs.add(createSequenceSQL(sq))
	}
	add("03_sequences.sql", seqs)

	tables := &script{}
	emitTables(tables, schema)
	add("04_tables.sql", tables)

	views := &script{}
	for _, key := range orderedViewKeys(schema) {
		views.add(createViewSQL(schema.Views[key]))
	}
	add("05_views.sql", views)

	funcs := &script{}
	for _, key := range sortedKeys(schema.Functions) {
		f := schema.Functions[key]
		if f.Extension != "" {
			continue
		}
		funcs.add(createFunctionSQL(f))
		for _, g := range f.Grants {
			funcs.add(grantExecuteSQL(f, g))
		}
	}
	add("06_functions.sql", funcs)

	fks := &script{}
	for _, key := range orderedTableKeys(schema) {
		t := schema.Tables[key]
		for _, name := range sortedKeys(t.ForeignKeys) {
			fks.add(createForeignKeySQL(qualify(t.Schema, t.Name), t.ForeignKeys[name]))
		}
	}
	add("07_foreign_keys.sql", fks)

	comments := &script{}
	emitComments(comments, schema)
	add("08_comments.sql", comments)

	return files
}

func emitFullInto(s *script, schema *ir.DbSchema) {
	for _, schemaName := range schemasOf(schema) {
		s.addf("CREATE SCHEMA IF NOT EXISTS %s;", ir.QuoteIdent(schemaName))
	}
	for _, key := range sortedKeys(schema.Extensions) {
		s.add(createExtensionSQL(schema.Extensions[key]))
	}
	for _, key := range sortedKeys(schema.Roles) {
		s.add(createRoleSQL(schema.Roles[key]))
	}
	emitTypes(s, schema)
	for _, key := range sortedKeys(schema.Sequences) {
		sq := schema.Sequences[key]
		if sq.Extension == "" {
			s.add(createSequenceSQL(sq))
		}
	}
	emitTables(s, schema)
	for _, key := range orderedViewKeys(schema) {
		s.add(createViewSQL(schema.Views[key]))
	}
	for _, key := range sortedKeys(schema.Functions) {
		f := schema.Functions[key]
		if f.Extension != "" {
			continue
		}
		s.add(createFunctionSQL(f))
		for _, g := range f.Grants {
			s.add(grantExecuteSQL(f, g))
		}
	}
	for _, key := range orderedTableKeys(schema) {
		t := schema.Tables[key]
		for _, name := range sortedKeys(t.ForeignKeys) {
			s.add(createForeignKeySQL(qualify(t.Schema, t.Name), t.ForeignKeys[name]))
		}
	}
	emitComments(s, schema)
}

func emitTypes(s *script, schema *ir.DbSchema) {
	for _, key := range sortedKeys(schema.Enums) {
		e := schema.Enums[key]
		if e.Extension == "" {
			s.add(createEnumSQL(e))
		}
	}
	for _, key := range sortedKeys(schema.CompositeTypes) {
		c := schema.CompositeTypes[key]
		if c.Extension == "" {
			s.add(createCompositeSQL(c))
		}
	}
	for _, key := range sortedKeys(schema.Domains) {
		d := schema.Domains[key]
		if d.Extension == "" {
			s.add(createDomainSQL(d))
		}
	}
}

// emitTables renders every table in dependency order (a referenced table
// before its referrer), inline PRIMARY KEY/UNIQUE/CHECK included, plus
// each table's non-owning indexes, triggers, policies, and RLS toggle.
// Foreign keys are emitted separately by the caller once every table
// exists, so a cycle between two tables' FKs never blocks CREATE TABLE.
func emitTables(s *script, schema *ir.DbSchema) {
	for _, key := range orderedTableKeys(schema) {
		t := schema.Tables[key]
		s.add(createTableSQL(t))
		if t.Comment != "" {
			s.add(commentOnSQL("TABLE", key, t.Comment))
		}
		for _, col := range t.OrderedColumns() {
			if col.Comment != "" {
				s.add(commentOnSQL("COLUMN", key+"."+ir.QuoteIdent(col.Name), col.Comment))
			}
		}
		for _, name := range sortedIndexNames(t) {
			idx := t.Indexes[name]
			if idx.OwningConstraint == "" {
				s.add(createIndexSQL(t.Schema, t.Name, idx))
			}
		}
		if t.RLSEnabled {
			s.add(enableRLSSQL(key))
		}
		for _, name := range sortedKeys(t.Triggers) {
			s.add(createTriggerSQL(key, t.Triggers[name]))
		}
		for _, name := range sortedKeys(t.Policies) {
			s.add(createPolicySQL(key, t.Policies[name]))
		}
	}
}

func emitComments(s *script, schema *ir.DbSchema) {
	for _, key := range sortedKeys(schema.Enums) {
		if e := schema.Enums[key]; e.Extension == "" && e.Comment != "" {
			s.add(commentOnSQL("TYPE", key, e.Comment))
		}
	}
	for _, key := range sortedKeys(schema.CompositeTypes) {
		if c := schema.CompositeTypes[key]; c.Extension == "" && c.Comment != "" {
			s.add(commentOnSQL("TYPE", key, c.Comment))
		}
	}
	for _, key := range sortedKeys(schema.Domains) {
		if dm := schema.Domains[key]; dm.Extension == "" && dm.Comment != "" {
			s.add(commentOnSQL("DOMAIN", key, dm.Comment))
		}
	}
	for _, key := range orderedViewKeys(schema) {
		v := schema.Views[key]
		if v.Comment == "" {
			continue
		}
		kind := "VIEW"
		if v.IsMaterialized {
			kind = "MATERIALIZED VIEW"
		}
		s.add(commentOnSQL(kind, key, v.Comment))
	}
	for _, key := range sortedKeys(schema.Functions) {
		if fn := schema.Functions[key]; fn.Extension == "" && fn.Comment != "" {
			s.add(commentOnSQL("FUNCTION", key, fn.Comment))
		}
	}
}

func orderedViewKeys(schema *ir.DbSchema) []string {
	out := sortedKeys(schema.Views)
	filtered := out[:0]
	for _, k := range out {
		if schema.Views[k].Extension == "" {
			filtered = append(filtered, k)
		}
	}
	return filtered
}

// orderedTableKeys returns every non-extension-owned table's canonical key
// in dependency order via Kahn's algorithm: a table whose foreign keys all
// point at already-placed tables is placed next. Ties break
// lexicographically for a deterministic, reviewable diff. A cycle (two
// tables each referencing the other) is broken by falling back to
// lexicographic order for whatever remains once no more nodes have
// satisfied in-degree; CREATE TABLE never fails on this because foreign
// keys are always added afterward, separately.
func orderedTableKeys(schema *ir.DbSchema) []string {
	keys := make([]string, 0, len(schema.Tables))
	for k, t := range schema.Tables {
		if t.Extension == "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	deps := make(map[string]map[string]bool, len(keys))
	inDegree := make(map[string]int, len(keys))
	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	for _, k := range keys {
		deps[k] = map[string]bool{}
	}
	for _, k := range keys {
		t := schema.Tables[k]
		for _, name := range sortedKeys(t.ForeignKeys) {
			fk := t.ForeignKeys[name]
			refKey := ir.CanonicalKey(fk.ForeignSchema, fk.ForeignTable)
			if refKey == k || !present[refKey] {
				continue // self-reference or a table outside this set
			}
			if !deps[k][refKey] {
				deps[k][refKey] = true
				inDegree[k]++
			}
		}
	}

	var ready []string
	for _, k := range keys {
		if inDegree[k] == 0 {
			ready = append(ready, k)
		}
	}
	sort.Strings(ready)

	placed := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		if placed[next] {
			continue
		}
		placed[next] = true
		out = append(out, next)
		var freed []string
		for _, k := range keys {
			if placed[k] || !deps[k][next] {
				continue
			}
			delete(deps[k], next)
			inDegree[k]--
			if inDegree[k] == 0 {
				freed = append(freed, k)
			}
		}
		sort.Strings(freed)
		ready = append(ready, freed...)
		sort.Strings(ready)
	}

	// Anything left is part of a dependency cycle; append in lexicographic
	// order rather than dropping it.
	if len(out) < len(keys) {
		for _, k := range keys {
			if !placed[k] {
				out = append(out, k)
			}
		}
	}
	return out
}
