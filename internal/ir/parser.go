package ir

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Parser builds a DbSchema from DDL text by delegating grammar-level work
// to pg_query_go (libpg_query) and walking its parse tree.
type Parser struct {
	schema        *DbSchema
	defaultSchema string

	// pendingSecurityDefiner/pendingConfigParams carry the result of the
	// CREATE FUNCTION preprocessing pass across to parseCreateFunction,
	// which reattaches them to the Function it builds.
	pendingSecurityDefiner bool
	pendingConfigParams    []ConfigParam
}

// NewParser returns a Parser that resolves unqualified names against
// defaultSchema ("public" if empty).
func NewParser(defaultSchema string) *Parser {
	if defaultSchema == "" {
		defaultSchema = "public"
	}
	return &Parser{schema: New(), defaultSchema: defaultSchema}
}

var errTableNotFound = errors.New("target table not found")

// ParseFile is one input to ParseSQL: a named source used only for error
// reporting.
type ParseFile struct {
	Name string
	SQL  string
}

// ParseSQL parses a single blob of DDL text.
func (p *Parser) ParseSQL(sqlText string) (*DbSchema, error) {
	return p.ParseFiles([]ParseFile{{SQL: sqlText}})
}

// ParseFiles parses one or more DDL sources into a single DbSchema. ALTER
// TABLE statements targeting a table not yet seen are buffered and retried
// once after the main pass; CREATE TRIGGER and CREATE POLICY are
// always deferred to a second pass so they see every table.
func (p *Parser) ParseFiles(files []ParseFile) (*DbSchema, error) {
	var deferredTriggersPolicies []rawStmt
	var deferredAlters []rawStmt

	for _, f := range files {
		stmts, err := pg_query.SplitWithParser(f.SQL, true)
		if err != nil {
			return nil, &ParseError{File: f.Name, Cause: err, Excerpt: excerpt(f.SQL)}
		}

		for _, raw := range stmts {
			cleaned := raw
			if looksLikeCreateFunction(raw) {
				var stripped bool
				cleaned, p.pendingSecurityDefiner, p.pendingConfigParams, stripped = preprocessFunctionStmt(raw)
				_ = stripped
			} else {
				p.pendingSecurityDefiner = false
				p.pendingConfigParams = nil
			}

			result, err := pg_query.Parse(cleaned)
			if err != nil {
				return nil, &ParseError{File: f.Name, Cause: err, Excerpt: excerpt(raw)}
			}

			for _, rs := range result.Stmts {
				if rs.Stmt == nil {
					continue
				}
				switch rs.Stmt.Node.(type) {
				case *pg_query.Node_CreateTrigStmt, *pg_query.Node_CreatePolicyStmt:
					deferredTriggersPolicies = append(deferredTriggersPolicies, rawStmt{file: f.Name, text: raw})
					continue
				case *pg_query.Node_AlterTableStmt:
					err := p.processStatement(rs.Stmt)
					if errors.Is(err, errTableNotFound) {
						deferredAlters = append(deferredAlters, rawStmt{file: f.Name, text: raw})
						continue
					}
					if err != nil {
						return nil, &ParseError{File: f.Name, Cause: err, Excerpt: excerpt(raw)}
					}
					continue
				}
				if err := p.processStatement(rs.Stmt); err != nil {
					return nil, &ParseError{File: f.Name, Cause: err, Excerpt: excerpt(raw)}
				}
			}
		}
	}

	for _, rs := range deferredAlters {
		if err := p.reparseAndProcess(rs); err != nil {
			return nil, &ParseError{File: rs.file, Cause: err, Excerpt: excerpt(rs.text)}
		}
	}
	for _, rs := range deferredTriggersPolicies {
		if err := p.reparseAndProcess(rs); err != nil {
			return nil, &ParseError{File: rs.file, Cause: err, Excerpt: excerpt(rs.text)}
		}
	}

	return p.schema, nil
}

type rawStmt struct {
	file string
	text string
}

func (p *Parser) reparseAndProcess(rs rawStmt) error {
	result, err := pg_query.Parse(rs.text)
	if err != nil {
		return err
	}
	for _, s := range result.Stmts {
		if s.Stmt == nil {
			continue
		}
		if err := p.processStatement(s.Stmt); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) processStatement(stmt *pg_query.Node) error {
	switch node := stmt.Node.(type) {
	case *pg_query.Node_CreateStmt:
		return p.parseCreateTable(node.CreateStmt)
	case *pg_query.Node_ViewStmt:
		return p.parseCreateView(node.ViewStmt)
	case *pg_query.Node_CreateTableAsStmt:
		return p.parseCreateTableAs(node.CreateTableAsStmt)
	case *pg_query.Node_IndexStmt:
		return p.parseCreateIndex(node.IndexStmt)
	case *pg_query.Node_CreateEnumStmt:
		return p.parseCreateEnum(node.CreateEnumStmt)
	case *pg_query.Node_CompositeTypeStmt:
		return p.parseCreateComposite(node.CompositeTypeStmt)
	case *pg_query.Node_CreateDomainStmt:
		return p.parseCreateDomain(node.CreateDomainStmt)
	case *pg_query.Node_CreateSeqStmt:
		return p.parseCreateSequence(node.CreateSeqStmt)
	case *pg_query.Node_CreateExtensionStmt:
		return p.parseCreateExtension(node.CreateExtensionStmt)
	case *pg_query.Node_CreateFunctionStmt:
		return p.parseCreateFunction(node.CreateFunctionStmt)
	case *pg_query.Node_CreateTrigStmt:
		return p.parseCreateTrigger(node.CreateTrigStmt)
	case *pg_query.Node_CreatePolicyStmt:
		return p.parseCreatePolicy(node.CreatePolicyStmt)
	case *pg_query.Node_CreateRoleStmt:
		return p.parseCreateRole(node.CreateRoleStmt)
	case *pg_query.Node_AlterTableStmt:
		return p.parseAlterTable(node.AlterTableStmt)
	case *pg_query.Node_CommentStmt:
		return p.parseComment(node.CommentStmt)
	case *pg_query.Node_GrantStmt:
		return p.parseGrant(node.GrantStmt)
	case *pg_query.Node_CreateSchemaStmt:
		return nil
	default:
		return nil
	}
}

// --- name/identifier helpers ---

func (p *Parser) qualifiedName(parts []*pg_query.Node) (schema, name string) {
	schema = p.defaultSchema
	var strs []string
	for _, n := range parts {
		if s := n.GetString_(); s != nil {
			strs = append(strs, s.Sval)
		}
	}
	switch len(strs) {
	case 0:
		return schema, ""
	case 1:
		return schema, strs[0]
	default:
		return strs[len(strs)-2], strs[len(strs)-1]
	}
}

func (p *Parser) rangeVarName(rv *pg_query.RangeVar) (schema, name string) {
	if rv == nil {
		return p.defaultSchema, ""
	}
	schema = rv.Schemaname
	if schema == "" {
		schema = p.defaultSchema
	}
	return schema, rv.Relname
}

// deparseExpr renders an expression node back to SQL text by wrapping it in
// a synthetic RawStmt and calling pg_query's deparser.
func deparseExpr(expr *pg_query.Node) string {
	if expr == nil {
		return ""
	}
	result := &pg_query.ParseResult{Stmts: []*pg_query.RawStmt{{Stmt: expr}}}
	out, err := pg_query.Deparse(result)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func stringValue(n *pg_query.Node) string {
	if n == nil {
		return ""
	}
	if s := n.GetString_(); s != nil {
		return s.Sval
	}
	// SignedIconst/NumericOnly grammar productions (e.g. CREATE SEQUENCE's
	// START/INCREMENT/MINVALUE/MAXVALUE/CACHE) yield a bare Integer/Float
	// node rather than an A_Const.
	if i := n.GetInteger(); i != nil {
		return strconv.FormatInt(int64(i.Ival), 10)
	}
	if f := n.GetFloat(); f != nil {
		return f.Fval
	}
	if c := n.GetAConst(); c != nil {
		if c.Isnull {
			return ""
		}
		switch v := c.Val.(type) {
		case *pg_query.A_Const_Sval:
			return v.Sval.Sval
		case *pg_query.A_Const_Ival:
			return strconv.FormatInt(int64(v.Ival.Ival), 10)
		case *pg_query.A_Const_Fval:
			return v.Fval.Fval
		}
	}
	return ""
}

// parseTypeName renders a pg_query TypeName back into a display-form SQL
// type, including array suffix and typmods (precision/scale/length).
func parseTypeName(tn *pg_query.TypeName) string {
	if tn == nil {
		return ""
	}
	var parts []string
	for _, n := range tn.Names {
		if s := n.GetString_(); s != nil {
			if s.Sval == "pg_catalog" {
				continue
			}
			parts = append(parts, s.Sval)
		}
	}
	base := strings.Join(parts, ".")
	base = mapInternalTypeName(base)

	if len(tn.Typmods) > 0 {
		var mods []string
		for _, m := range tn.Typmods {
			if c := m.GetAConst(); c != nil {
				if iv := c.GetIval(); iv != nil {
					mods = append(mods, strconv.FormatInt(int64(iv.Ival), 10))
				}
			}
		}
		if len(mods) > 0 {
			base = fmt.Sprintf("%s(%s)", base, strings.Join(mods, ","))
		}
	}

	for range tn.ArrayBounds {
		base += "[]"
	}
	return base
}

func mapInternalTypeName(name string) string {
	switch name {
	case "bpchar":
		return "character"
	case "varchar":
		return "character varying"
	case "int4":
		return "integer"
	case "int2":
		return "smallint"
	case "int8":
		return "bigint"
	case "float4":
		return "real"
	case "float8":
		return "double precision"
	case "bool":
		return "boolean"
	case "timestamp":
		return "timestamp"
	case "timestamptz":
		return "timestamp with time zone"
	case "time":
		return "time"
	case "timetz":
		return "time with time zone"
	default:
		return name
	}
}

// --- CREATE TABLE ---

func (p *Parser) parseCreateTable(stmt *pg_query.CreateStmt) error {
	schema, name := p.rangeVarName(stmt.Relation)
	table := NewTable(schema, name)

	for _, elt := range stmt.TableElts {
		switch e := elt.Node.(type) {
		case *pg_query.Node_ColumnDef:
			col := p.parseColumnDef(e.ColumnDef, table)
			table.AddColumn(col)
		case *pg_query.Node_Constraint:
			p.applyTableConstraint(e.Constraint, table)
		}
	}

	p.schema.Tables[CanonicalKey(schema, name)] = table
	return nil
}

func (p *Parser) parseColumnDef(colDef *pg_query.ColumnDef, table *Table) *Column {
	col := &Column{Name: colDef.Colname, IsNullable: true}
	if colDef.TypeName != nil {
		col.DataType = parseTypeName(colDef.TypeName)
	}

	for _, c := range colDef.Constraints {
		cons := c.GetConstraint()
		if cons == nil {
			continue
		}
		switch cons.Contype {
		case pg_query.ConstrType_CONSTR_NOTNULL:
			col.IsNullable = false
		case pg_query.ConstrType_CONSTR_NULL:
			col.IsNullable = true
		case pg_query.ConstrType_CONSTR_DEFAULT:
			col.ColumnDefault = deparseExpr(cons.RawExpr)
		case pg_query.ConstrType_CONSTR_IDENTITY:
			col.IsIdentity = true
			col.IsNullable = false
			switch cons.GeneratedWhen {
			case "a":
				col.IdentityGeneration = IdentityAlways
			case "d":
				col.IdentityGeneration = IdentityByDefault
			}
		case pg_query.ConstrType_CONSTR_GENERATED:
			col.IsGenerated = true
			col.IsNullable = false
			col.GenerationExpression = deparseExpr(cons.RawExpr)
		case pg_query.ConstrType_CONSTR_PRIMARY:
			col.IsPrimaryKey = true
			col.IsNullable = false
			name := cons.Conname
			if name == "" {
				name = table.Name + "_pkey"
			}
			table.Indexes[name] = &Index{
				Name: name, Columns: []string{col.Name}, Expressions: []string{""},
				IsUnique: true, IsPrimary: true, OwningConstraint: name, Method: MethodBtree,
			}
		case pg_query.ConstrType_CONSTR_UNIQUE:
			name := cons.Conname
			if name == "" {
				name = fmt.Sprintf("%s_%s_key", table.Name, col.Name)
			}
			table.Indexes[name] = &Index{
				Name: name, Columns: []string{col.Name}, Expressions: []string{""},
				IsUnique: true, OwningConstraint: name, Method: MethodBtree,
			}
		case pg_query.ConstrType_CONSTR_CHECK:
			name := cons.Conname
			if name == "" {
				name = fmt.Sprintf("%s_%s_check", table.Name, col.Name)
			}
			table.CheckConstraints[name] = &CheckConstraint{
				Name: name, Expression: deparseExpr(cons.RawExpr),
			}
		case pg_query.ConstrType_CONSTR_FOREIGN:
			fk := p.buildForeignKey(cons, table.Name, []string{col.Name})
			table.ForeignKeys[fk.Name] = fk
		}
	}
	return col
}

func (p *Parser) buildForeignKey(cons *pg_query.Constraint, tableName string, localCols []string) *ForeignKey {
	name := cons.Conname
	if name == "" {
		name = fmt.Sprintf("%s_%s_fkey", tableName, strings.Join(localCols, "_"))
	}
	var foreignSchema, foreignTable string
	if cons.Pktable != nil {
		foreignSchema, foreignTable = p.rangeVarName(cons.Pktable)
	}
	var foreignCols []string
	for _, n := range cons.PkAttrs {
		if s := n.GetString_(); s != nil {
			foreignCols = append(foreignCols, s.Sval)
		}
	}
	if len(cons.FkAttrs) > 0 {
		localCols = nil
		for _, n := range cons.FkAttrs {
			if s := n.GetString_(); s != nil {
				localCols = append(localCols, s.Sval)
			}
		}
	}
	return &ForeignKey{
		Name: name, Columns: localCols,
		ForeignSchema: foreignSchema, ForeignTable: foreignTable, ForeignColumns: foreignCols,
		OnDelete: mapFkAction(cons.FkDelAction),
		OnUpdate: mapFkAction(cons.FkUpdAction),
	}
}

func mapFkAction(action string) ReferentialAction {
	switch action {
	case "c":
		return ActionCascade
	case "n":
		return ActionSetNull
	case "d":
		return ActionSetDefault
	case "r":
		return ActionRestrict
	default:
		return ActionNoAction
	}
}

// applyTableConstraint handles a table-level constraint clause (as opposed
// to a column-level one attached inside a ColumnDef).
func (p *Parser) applyTableConstraint(cons *pg_query.Constraint, table *Table) {
	cols := constraintColumnNames(cons.Keys)
	name := cons.Conname

	switch cons.Contype {
	case pg_query.ConstrType_CONSTR_PRIMARY:
		if name == "" {
			name = table.Name + "_pkey"
		}
		exprs := make([]string, len(cols))
		table.Indexes[name] = &Index{
			Name: name, Columns: cols, Expressions: exprs,
			IsUnique: true, IsPrimary: true, OwningConstraint: name, Method: MethodBtree,
		}
		for _, c := range cols {
			if col, ok := table.Columns[c]; ok {
				col.IsPrimaryKey = true
				col.IsNullable = false
			}
		}
	case pg_query.ConstrType_CONSTR_UNIQUE:
		if name == "" {
			name = fmt.Sprintf("%s_%s_key", table.Name, strings.Join(cols, "_"))
		}
		exprs := make([]string, len(cols))
		table.Indexes[name] = &Index{
			Name: name, Columns: cols, Expressions: exprs,
			IsUnique: true, OwningConstraint: name, Method: MethodBtree,
		}
	case pg_query.ConstrType_CONSTR_CHECK:
		if name == "" {
			name = fmt.Sprintf("%s_check", table.Name)
		}
		table.CheckConstraints[name] = &CheckConstraint{Name: name, Expression: deparseExpr(cons.RawExpr)}
	case pg_query.ConstrType_CONSTR_FOREIGN:
		fk := p.buildForeignKey(cons, table.Name, cols)
		table.ForeignKeys[fk.Name] = fk
	}
}

func constraintColumnNames(keys []*pg_query.Node) []string {
	var out []string
	for _, k := range keys {
		if s := k.GetString_(); s != nil {
			out = append(out, s.Sval)
		}
	}
	return out
}

// --- CREATE VIEW ---

func (p *Parser) parseCreateView(stmt *pg_query.ViewStmt) error {
	schema, name := p.rangeVarName(stmt.View)
	v := &View{Schema: schema, Name: name}

	if stmt.Query != nil {
		result := &pg_query.ParseResult{Stmts: []*pg_query.RawStmt{{Stmt: stmt.Query}}}
		if out, err := pg_query.Deparse(result); err == nil {
			v.Definition = strings.TrimSpace(out)
		}
	}
	switch stmt.WithCheckOption {
	case pg_query.ViewCheckOption_LOCAL_CHECK_OPTION:
		v.CheckOption = CheckOptionLocal
	case pg_query.ViewCheckOption_CASCADED_CHECK_OPTION:
		v.CheckOption = CheckOptionCascaded
	}
	for _, opt := range stmt.Options {
		if d := opt.GetDefElem(); d != nil {
			val := stringValue(d.Arg)
			if val != "" {
				v.WithOptions = append(v.WithOptions, fmt.Sprintf("%s=%s", d.Defname, val))
			} else {
				v.WithOptions = append(v.WithOptions, d.Defname)
			}
		}
	}

	p.schema.Views[CanonicalKey(schema, name)] = v
	return nil
}

// parseCreateTableAs handles CREATE MATERIALIZED VIEW, which pg_query_go
// parses as a CreateTableAsStmt rather than a ViewStmt. A plain CREATE
// TABLE AS (Relkind OBJECT_TABLE) produces an ordinary table snapshot, not
// a tracked view, so it is ignored here.
func (p *Parser) parseCreateTableAs(stmt *pg_query.CreateTableAsStmt) error {
	if stmt.Relkind != pg_query.ObjectType_OBJECT_MATVIEW || stmt.Into == nil || stmt.Into.Rel == nil {
		return nil
	}
	schema, name := p.rangeVarName(stmt.Into.Rel)
	v := &View{Schema: schema, Name: name, IsMaterialized: true}
	if stmt.Query != nil {
		result := &pg_query.ParseResult{Stmts: []*pg_query.RawStmt{{Stmt: stmt.Query}}}
		if out, err := pg_query.Deparse(result); err == nil {
			v.Definition = strings.TrimSpace(out)
		}
	}
	p.schema.Views[CanonicalKey(schema, name)] = v
	return nil
}

// --- CREATE INDEX ---

func (p *Parser) parseCreateIndex(stmt *pg_query.IndexStmt) error {
	if stmt.Idxname == "" {
		return nil
	}
	schema, tableName := p.rangeVarName(stmt.Relation)
	table, ok := p.schema.Tables[CanonicalKey(schema, tableName)]
	if !ok {
		return fmt.Errorf("%w: %s.%s (index %s)", errTableNotFound, schema, tableName, stmt.Idxname)
	}

	idx := &Index{
		Name: stmt.Idxname, IsUnique: stmt.Unique, IsPrimary: stmt.Primary,
		Method: MethodBtree,
	}
	if stmt.AccessMethod != "" {
		idx.Method = IndexMethod(stmt.AccessMethod)
	}
	for _, p2 := range stmt.IndexParams {
		elem := p2.GetIndexElem()
		if elem == nil {
			continue
		}
		if elem.Name != "" {
			idx.Columns = append(idx.Columns, elem.Name)
			idx.Expressions = append(idx.Expressions, "")
		} else {
			idx.Columns = append(idx.Columns, "")
			idx.Expressions = append(idx.Expressions, deparseExpr(elem.Expr))
		}
	}
	if stmt.WhereClause != nil {
		idx.WhereClause = deparseExpr(stmt.WhereClause)
	}

	table.Indexes[stmt.Idxname] = idx
	return nil
}

// --- CREATE TYPE ... AS ENUM / composite, CREATE DOMAIN ---

func (p *Parser) parseCreateEnum(stmt *pg_query.CreateEnumStmt) error {
	schema, name := p.qualifiedName(stmt.TypeName)
	if name == "" {
		return nil
	}
	var values []string
	for _, v := range stmt.Vals {
		values = append(values, stringValue(v))
	}
	p.schema.Enums[CanonicalKey(schema, name)] = &Enum{Schema: schema, Name: name, Values: values}
	return nil
}

func (p *Parser) parseCreateComposite(stmt *pg_query.CompositeTypeStmt) error {
	schema, name := p.rangeVarName(stmt.Typevar)
	ct := &CompositeType{Schema: schema, Name: name}
	for _, c := range stmt.Coldeflist {
		if cd := c.GetColumnDef(); cd != nil {
			ct.Attrs = append(ct.Attrs, CompositeAttr{Name: cd.Colname, DataType: parseTypeName(cd.TypeName)})
		}
	}
	p.schema.CompositeTypes[CanonicalKey(schema, name)] = ct
	return nil
}

func (p *Parser) parseCreateDomain(stmt *pg_query.CreateDomainStmt) error {
	schema, name := p.qualifiedName(stmt.Domainname)
	if name == "" {
		return nil
	}
	d := &Domain{Schema: schema, Name: name}
	if stmt.TypeName != nil {
		d.BaseType = parseTypeName(stmt.TypeName)
	}
	for _, c := range stmt.Constraints {
		cons := c.GetConstraint()
		if cons == nil {
			continue
		}
		switch cons.Contype {
		case pg_query.ConstrType_CONSTR_NOTNULL:
			d.NotNull = true
		case pg_query.ConstrType_CONSTR_DEFAULT:
			d.Default = deparseExpr(cons.RawExpr)
		case pg_query.ConstrType_CONSTR_CHECK:
			checkName := cons.Conname
			if checkName == "" {
				checkName = name + "_check"
			}
			d.Checks = append(d.Checks, CheckConstraint{Name: checkName, Expression: deparseExpr(cons.RawExpr)})
		}
	}
	p.schema.Domains[CanonicalKey(schema, name)] = d
	return nil
}

// --- CREATE SEQUENCE / CREATE EXTENSION / CREATE ROLE ---

func (p *Parser) parseCreateSequence(stmt *pg_query.CreateSeqStmt) error {
	schema, name := p.rangeVarName(stmt.Sequence)
	seq := &Sequence{Schema: schema, Name: name, DataType: "bigint"}
	for _, opt := range stmt.Options {
		d := opt.GetDefElem()
		if d == nil {
			continue
		}
		val := stringValue(d.Arg)
		switch d.Defname {
		case "as":
			if d.Arg != nil {
				seq.DataType = parseTypeName(d.Arg.GetTypeName())
			}
		case "start":
			seq.StartValue = val
		case "minvalue":
			seq.MinValue = val
		case "maxvalue":
			seq.MaxValue = val
		case "increment":
			seq.Increment = val
		case "cache":
			seq.CacheSize = val
		case "cycle":
			seq.Cycle = true
		}
	}
	p.schema.Sequences[CanonicalKey(schema, name)] = seq
	return nil
}

func (p *Parser) parseCreateExtension(stmt *pg_query.CreateExtensionStmt) error {
	ext := &Extension{Name: stmt.Extname, Schema: p.defaultSchema}
	for _, opt := range stmt.Options {
		d := opt.GetDefElem()
		if d == nil {
			continue
		}
		switch d.Defname {
		case "schema":
			ext.Schema = stringValue(d.Arg)
		case "version":
			ext.Version = stringValue(d.Arg)
		}
	}
	p.schema.Extensions[CanonicalKey(ext.Schema, ext.Name)] = ext
	return nil
}

// defElemBool reads a DefElem's boolean argument, defaulting to true when
// the arg is absent (bare option keywords like SUPERUSER with no explicit
// value). CREATE ROLE's positive/negative forms (SUPERUSER/NOSUPERUSER,
// LOGIN/NOLOGIN, ...) share one defname and are distinguished only by this
// boolean, not by the name.
func defElemBool(d *pg_query.DefElem) bool {
	if d.Arg == nil {
		return true
	}
	if b := d.Arg.GetBoolean(); b != nil {
		return b.Boolval
	}
	return true
}

func (p *Parser) parseCreateRole(stmt *pg_query.CreateRoleStmt) error {
	role := &Role{Name: stmt.Role, Inherit: true, ConnectionLimit: -1}
	for _, opt := range stmt.Options {
		d := opt.GetDefElem()
		if d == nil {
			continue
		}
		switch d.Defname {
		case "superuser":
			role.Superuser = defElemBool(d)
		case "createdb":
			role.CreateDB = defElemBool(d)
		case "createrole":
			role.CreateRole = defElemBool(d)
		case "inherit":
			role.Inherit = defElemBool(d)
		case "canlogin":
			role.Login = defElemBool(d)
		case "isreplication":
			role.Replication = defElemBool(d)
		case "bypassrls":
			role.BypassRLS = defElemBool(d)
		case "connectionlimit":
			if n, err := strconv.Atoi(stringValue(d.Arg)); err == nil {
				role.ConnectionLimit = n
			}
		case "validUntil":
			role.ValidUntil = stringValue(d.Arg)
		}
	}
	p.schema.Roles[role.Name] = role
	return nil
}

// --- ALTER TABLE ---

func (p *Parser) parseAlterTable(stmt *pg_query.AlterTableStmt) error {
	if stmt.Objtype != pg_query.ObjectType_OBJECT_TABLE {
		return nil
	}
	schema, name := p.rangeVarName(stmt.Relation)
	table, ok := p.schema.Tables[CanonicalKey(schema, name)]
	if !ok {
		return fmt.Errorf("%w: %s.%s", errTableNotFound, schema, name)
	}
	for _, c := range stmt.Cmds {
		cmd := c.GetAlterTableCmd()
		if cmd == nil {
			continue
		}
		if err := p.processAlterCmd(cmd, table); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) processAlterCmd(cmd *pg_query.AlterTableCmd, table *Table) error {
	switch cmd.Subtype {
	case pg_query.AlterTableType_AT_AddColumn:
		if cd := cmd.Def.GetColumnDef(); cd != nil {
			table.AddColumn(p.parseColumnDef(cd, table))
		}
	case pg_query.AlterTableType_AT_DropColumn:
		table.RemoveColumn(cmd.Name)
	case pg_query.AlterTableType_AT_ColumnDefault:
		if col, ok := table.Columns[cmd.Name]; ok {
			if cmd.Def != nil {
				col.ColumnDefault = deparseExpr(cmd.Def)
			} else {
				col.ColumnDefault = ""
			}
		}
	case pg_query.AlterTableType_AT_SetNotNull:
		if col, ok := table.Columns[cmd.Name]; ok {
			col.IsNullable = false
		}
	case pg_query.AlterTableType_AT_DropNotNull:
		if col, ok := table.Columns[cmd.Name]; ok {
			col.IsNullable = true
		}
	case pg_query.AlterTableType_AT_AlterColumnType:
		if col, ok := table.Columns[cmd.Name]; ok {
			if def := cmd.Def.GetColumnDef(); def != nil && def.TypeName != nil {
				col.DataType = parseTypeName(def.TypeName)
			}
		}
	case pg_query.AlterTableType_AT_AddConstraint:
		if cons := cmd.Def.GetConstraint(); cons != nil {
			p.applyTableConstraint(cons, table)
		}
	case pg_query.AlterTableType_AT_DropConstraint:
		delete(table.CheckConstraints, cmd.Name)
		delete(table.ForeignKeys, cmd.Name)
		delete(table.Indexes, cmd.Name)
	case pg_query.AlterTableType_AT_EnableRowSecurity:
		table.RLSEnabled = true
	case pg_query.AlterTableType_AT_DisableRowSecurity:
		table.RLSEnabled = false
	}
	return nil
}

// --- CREATE TRIGGER / CREATE POLICY ---

func (p *Parser) parseCreateTrigger(stmt *pg_query.CreateTrigStmt) error {
	if stmt.Trigname == "" || stmt.Relation == nil {
		return nil
	}
	schema, tableName := p.rangeVarName(stmt.Relation)
	table, ok := p.schema.Tables[CanonicalKey(schema, tableName)]
	if !ok {
		return fmt.Errorf("%w: %s.%s (trigger %s)", errTableNotFound, schema, tableName, stmt.Trigname)
	}

	// CreateTrigStmt.Timing is one of these discrete values, not a bitmask
	// combined with Events. Both use the pg_trigger.tgtype bit values that
	// DecodeTgType reads; AFTER is encoded as 0.
	const (
		timingBefore    = 1 << 1
		timingAfter     = 0
		timingInsteadOf = 1 << 6
	)
	const (
		eventInsert   = 1 << 2
		eventDelete   = 1 << 3
		eventUpdate   = 1 << 4
		eventTruncate = 1 << 5
	)
	timing := TriggerAfter
	switch stmt.Timing {
	case timingBefore:
		timing = TriggerBefore
	case timingInsteadOf:
		timing = TriggerInsteadOf
	case timingAfter:
		timing = TriggerAfter
	}
	orientation := OrientationStatement
	if stmt.Row {
		orientation = OrientationRow
	}
	var events []string
	if stmt.Events&eventInsert != 0 {
		events = append(events, "INSERT")
	}
	if stmt.Events&eventDelete != 0 {
		events = append(events, "DELETE")
	}
	if stmt.Events&eventUpdate != 0 {
		if len(stmt.Columns) > 0 {
			var cols []string
			for _, c := range stmt.Columns {
				if s := c.GetString_(); s != nil {
					cols = append(cols, s.Sval)
				}
			}
			events = append(events, "UPDATE OF "+strings.Join(cols, ","))
		} else {
			events = append(events, "UPDATE")
		}
	}
	if stmt.Events&eventTruncate != 0 {
		events = append(events, "TRUNCATE")
	}

	var funcParts []string
	for _, n := range stmt.Funcname {
		if s := n.GetString_(); s != nil {
			funcParts = append(funcParts, s.Sval)
		}
	}
	funcName := strings.Join(funcParts, ".")

	trig := &Trigger{
		Name: stmt.Trigname, Timing: timing, Orientation: orientation,
		Events: events, Function: funcName,
	}
	if stmt.WhenClause != nil {
		trig.WhenClause = deparseExpr(stmt.WhenClause)
	}
	table.Triggers[stmt.Trigname] = trig
	return nil
}

func (p *Parser) parseCreatePolicy(stmt *pg_query.CreatePolicyStmt) error {
	if stmt.PolicyName == "" || stmt.Table == nil {
		return nil
	}
	schema, tableName := p.rangeVarName(stmt.Table)
	table, ok := p.schema.Tables[CanonicalKey(schema, tableName)]
	if !ok {
		return fmt.Errorf("%w: %s.%s (policy %s)", errTableNotFound, schema, tableName, stmt.PolicyName)
	}

	cmd := PolicyAll
	switch strings.ToLower(stmt.CmdName) {
	case "select":
		cmd = PolicySelect
	case "insert":
		cmd = PolicyInsert
	case "update":
		cmd = PolicyUpdate
	case "delete":
		cmd = PolicyDelete
	}

	var roles []string
	for _, r := range stmt.Roles {
		if rs := r.GetRoleSpec(); rs != nil {
			if rs.Roletype == pg_query.RoleSpecType_ROLESPEC_PUBLIC {
				roles = append(roles, "PUBLIC")
			} else {
				roles = append(roles, rs.Rolename)
			}
		}
	}
	if len(roles) == 0 {
		roles = []string{"PUBLIC"}
	}

	pol := &Policy{Name: stmt.PolicyName, Command: cmd, Roles: roles}
	if stmt.Qual != nil {
		pol.Using = deparseExpr(stmt.Qual)
	}
	if stmt.WithCheck != nil {
		pol.WithCheck = deparseExpr(stmt.WithCheck)
	}
	table.Policies[stmt.PolicyName] = pol
	return nil
}

// --- CREATE FUNCTION / GRANT ---

func (p *Parser) parseCreateFunction(stmt *pg_query.CreateFunctionStmt) error {
	schema, name := p.qualifiedName(stmt.Funcname)
	if name == "" {
		return nil
	}
	fn := &Function{
		Schema: schema, Name: name, IsProcedure: stmt.IsProcedure,
		Language: "sql", Volatility: VolatilityVolatile,
	}

	for _, param := range stmt.Parameters {
		fp := param.GetFunctionParameter()
		if fp == nil {
			continue
		}
		arg := Arg{Name: fp.Name, Mode: ParamIn}
		if fp.ArgType != nil {
			arg.Type = parseTypeName(fp.ArgType)
		}
		switch fp.Mode {
		case pg_query.FunctionParameterMode_FUNC_PARAM_OUT:
			arg.Mode = ParamOut
		case pg_query.FunctionParameterMode_FUNC_PARAM_INOUT:
			arg.Mode = ParamInOut
		case pg_query.FunctionParameterMode_FUNC_PARAM_VARIADIC:
			arg.Mode = ParamVariadic
		}
		if fp.Defexpr != nil {
			arg.Default = deparseExpr(fp.Defexpr)
		}
		fn.Args = append(fn.Args, arg)
	}

	if !stmt.IsProcedure && stmt.ReturnType != nil {
		fn.ReturnType = parseTypeName(stmt.ReturnType)
	}

	for _, opt := range stmt.Options {
		d := opt.GetDefElem()
		if d == nil {
			continue
		}
		switch d.Defname {
		case "language":
			fn.Language = stringValue(d.Arg)
		case "as":
			fn.Body = functionBodyText(d.Arg)
		case "volatility":
			switch stringValue(d.Arg) {
			case "immutable":
				fn.Volatility = VolatilityImmutable
			case "stable":
				fn.Volatility = VolatilityStable
			default:
				fn.Volatility = VolatilityVolatile
			}
		case "strict":
			fn.IsStrict = defElemBool(d)
		case "security":
			fn.SecurityDefiner = defElemBool(d)
		}
	}

	// Reattach what the preprocessing pass stripped before this statement
	// was parsed: SECURITY DEFINER and SET param = 'value' clauses.
	if p.pendingSecurityDefiner {
		fn.SecurityDefiner = true
	}
	fn.ConfigParams = append(fn.ConfigParams, p.pendingConfigParams...)

	p.schema.Functions[fn.Signature()] = fn
	return nil
}

func functionBodyText(arg *pg_query.Node) string {
	if arg == nil {
		return ""
	}
	if l := arg.GetList(); l != nil {
		var parts []string
		for _, item := range l.Items {
			parts = append(parts, stringValue(item))
		}
		return strings.Join(parts, "\n")
	}
	return stringValue(arg)
}

func (p *Parser) parseGrant(stmt *pg_query.GrantStmt) error {
	if !stmt.IsGrant || stmt.Objtype != pg_query.ObjectType_OBJECT_FUNCTION {
		return nil
	}
	var grantees []string
	for _, g := range stmt.Grantees {
		if rs := g.GetRoleSpec(); rs != nil {
			if rs.Roletype == pg_query.RoleSpecType_ROLESPEC_PUBLIC {
				grantees = append(grantees, "PUBLIC")
			} else {
				grantees = append(grantees, rs.Rolename)
			}
		}
	}
	hasExecute := false
	for _, priv := range stmt.Privileges {
		if ap := priv.GetAccessPriv(); ap != nil && strings.EqualFold(ap.PrivName, "execute") {
			hasExecute = true
		}
	}
	if !hasExecute {
		return nil
	}
	for _, obj := range stmt.Objects {
		owa := obj.GetObjectWithArgs()
		if owa == nil {
			continue
		}
		schema, name := p.qualifiedName(owa.Objname)
		var argTypes []string
		for _, t := range owa.Objargs {
			argTypes = append(argTypes, parseTypeName(t))
		}
		key := FunctionSignatureKey(schema, name, argTypes)
		fn, ok := p.schema.Functions[key]
		if !ok {
			continue
		}
		for _, grantee := range grantees {
			fn.Grants = append(fn.Grants, Grant{Grantee: grantee, Privilege: "EXECUTE"})
		}
	}
	return nil
}

// --- COMMENT ON ---

func (p *Parser) parseComment(stmt *pg_query.CommentStmt) error {
	if stmt == nil || stmt.Comment == "" || stmt.Object == nil {
		return nil
	}
	items := objectNameList(stmt.Object)

	switch stmt.Objtype {
	case pg_query.ObjectType_OBJECT_TABLE:
		schema, name := splitQualified(items, p.defaultSchema)
		if t, ok := p.schema.Tables[CanonicalKey(schema, name)]; ok {
			t.Comment = stmt.Comment
		}
	case pg_query.ObjectType_OBJECT_COLUMN:
		if len(items) < 2 {
			return nil
		}
		colName := items[len(items)-1]
		schema, name := splitQualified(items[:len(items)-1], p.defaultSchema)
		if t, ok := p.schema.Tables[CanonicalKey(schema, name)]; ok {
			if col, ok := t.Columns[colName]; ok {
				col.Comment = stmt.Comment
			}
		}
	case pg_query.ObjectType_OBJECT_VIEW:
		schema, name := splitQualified(items, p.defaultSchema)
		if v, ok := p.schema.Views[CanonicalKey(schema, name)]; ok {
			v.Comment = stmt.Comment
		}
	case pg_query.ObjectType_OBJECT_FUNCTION:
		owa := stmt.Object.GetObjectWithArgs()
		if owa == nil {
			return nil
		}
		schema, name := p.qualifiedName(owa.Objname)
		var argTypes []string
		for _, t := range owa.Objargs {
			argTypes = append(argTypes, parseTypeName(t))
		}
		if fn, ok := p.schema.Functions[FunctionSignatureKey(schema, name, argTypes)]; ok {
			fn.Comment = stmt.Comment
		}
	}
	return nil
}

func objectNameList(n *pg_query.Node) []string {
	var out []string
	if l, ok := n.Node.(*pg_query.Node_List); ok && l.List != nil {
		for _, item := range l.List.Items {
			if s := item.GetString_(); s != nil {
				out = append(out, s.Sval)
			}
		}
	} else if s := n.GetString_(); s != nil {
		out = append(out, s.Sval)
	}
	return out
}

func splitQualified(items []string, defaultSchema string) (schema, name string) {
	switch len(items) {
	case 0:
		return defaultSchema, ""
	case 1:
		return defaultSchema, items[0]
	default:
		return items[len(items)-2], items[len(items)-1]
	}
}

// --- function preprocessing pass ---

var createFunctionRe = regexp.MustCompile(`(?is)^\s*CREATE\s+(OR\s+REPLACE\s+)?(FUNCTION|PROCEDURE)\b`)

func looksLikeCreateFunction(stmt string) bool {
	return createFunctionRe.MatchString(stmt)
}

var securityDefinerRe = regexp.MustCompile(`(?i)\bSECURITY\s+DEFINER\b`)
var setParamRe = regexp.MustCompile(`(?i)\bSET\s+([a-zA-Z_][a-zA-Z0-9_.]*)\s*(?:=|\bTO\b)\s*('(?:[^']|'')*'|[^\s,;]+)`)

// preprocessFunctionStmt strips SECURITY DEFINER and SET param = value
// clauses from a CREATE FUNCTION/PROCEDURE statement's text, returning the
// cleaned text plus the stripped data so the caller can reattach it to the
// Function built from the cleaned parse.
func preprocessFunctionStmt(stmt string) (cleaned string, securityDefiner bool, params []ConfigParam, stripped bool) {
	cleaned = stmt
	if securityDefinerRe.MatchString(cleaned) {
		securityDefiner = true
		cleaned = securityDefinerRe.ReplaceAllString(cleaned, " ")
		stripped = true
	}
	for {
		loc := setParamRe.FindStringSubmatchIndex(cleaned)
		if loc == nil {
			break
		}
		key := cleaned[loc[2]:loc[3]]
		val := cleaned[loc[4]:loc[5]]
		val = strings.Trim(val, "'")
		params = append(params, ConfigParam{Key: key, Value: val})
		cleaned = cleaned[:loc[0]] + " " + cleaned[loc[1]:]
		stripped = true
	}
	return cleaned, securityDefiner, params, stripped
}
