package ir

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"
)

// Querier is the minimal surface the Inspector needs from a connection
// pool; *pgxpool.Pool satisfies it directly. Tests substitute a fake.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Inspector builds a DbSchema by issuing the nine catalog queries that
// cover every tracked object against a live database, in parallel, and
// decoding their JSON/relational results.
type Inspector struct {
	db     Querier
	ignore IgnoreFilter
}

// IgnoreFilter abstracts the merged built-in-plus-overlay exclusion rules
// so this package doesn't import internal/defaults (which would invert the
// natural dependency direction); the pipeline wires a concrete
// implementation in.
type IgnoreFilter interface {
	IsExcludedSchema(schema string) bool
}

// NewInspector creates an Inspector bound to db, applying ignore (nil is
// valid — it means "no additional exclusions beyond what every query's own
// WHERE-clause fragment already encodes").
func NewInspector(db Querier, ignore IgnoreFilter) *Inspector {
	return &Inspector{db: db, ignore: ignore}
}

// Introspect runs the nine-query plan and assembles a DbSchema. The SQL
// filter from schemaFilterSQL drops pg_toast*/pg_temp* namespaces and, if
// targetSchemas is non-empty, restricts to only those namespaces. The
// excluded-schema set is applied to the decoded rows through the
// IgnoreFilter; extension and role rows are not filtered by it.
func (insp *Inspector) Introspect(ctx context.Context, targetSchemas []string) (*DbSchema, error) {
	out := New()
	out.Metadata.Source = "introspect"

	filter := insp.schemaFilterSQL(targetSchemas)

	type job struct {
		stage string
		run   func(ctx context.Context) error
	}

	jobs := []job{
		{"enums", func(ctx context.Context) error { return insp.loadEnums(ctx, out, filter) }},
		{"composite_types", func(ctx context.Context) error { return insp.loadComposites(ctx, out, filter) }},
		{"domains", func(ctx context.Context) error { return insp.loadDomains(ctx, out, filter) }},
		{"sequences", func(ctx context.Context) error { return insp.loadSequences(ctx, out, filter) }},
		{"extensions", func(ctx context.Context) error { return insp.loadExtensions(ctx, out, filter) }},
		{"functions", func(ctx context.Context) error { return insp.loadFunctions(ctx, out, filter) }},
		{"roles", func(ctx context.Context) error { return insp.loadRoles(ctx, out, filter) }},
		{"views", func(ctx context.Context) error { return insp.loadViews(ctx, out, filter) }},
		{"tables_bulk", func(ctx context.Context) error { return insp.loadTablesBulk(ctx, out, filter) }},
	}

	// The nine queries are issued in parallel and joined; the first error
	// wins and the others' partial results are discarded.
	eg, egCtx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		j := j
		eg.Go(func() error {
			if err := j.run(egCtx); err != nil {
				return &IntrospectionError{Stage: j.stage, Cause: err}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// schemaFilterSQL renders the WHERE-clause fragment shared by the
// schema-scoped queries: it drops pg_toast*/pg_temp* namespaces and applies
// the targetSchemas restriction. The excluded-schema set is not part of the
// SQL; it lives in internal/defaults and reaches the Inspector through
// IgnoreFilter, which excluded() applies to decoded rows.
func (insp *Inspector) schemaFilterSQL(targetSchemas []string) string {
	var b strings.Builder
	b.WriteString("and n.nspname not like 'pg\\_toast%' and n.nspname not like 'pg\\_temp%'")
	if len(targetSchemas) > 0 {
		b.WriteString(" and n.nspname in (")
		for i, s := range targetSchemas {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(quoteLiteral(s))
		}
		b.WriteString(")")
	}
	return b.String()
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (insp *Inspector) excluded(schema string) bool {
	if insp.ignore != nil {
		return insp.ignore.IsExcludedSchema(schema)
	}
	return false
}

func collectQuery[T any](ctx context.Context, insp *Inspector, sqlText string) ([]T, error) {
	rows, err := insp.db.Query(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByNameLax[T])
}

func (insp *Inspector) loadEnums(ctx context.Context, out *DbSchema, filter string) error {
	rows, err := collectQuery[enumRow](ctx, insp, fmt.Sprintf(queryEnums, filter))
	if err != nil {
		return err
	}
	for _, r := range rows {
		if insp.excluded(r.Schema) {
			continue
		}
		out.Enums[CanonicalKey(r.Schema, r.Name)] = &Enum{
			Schema: r.Schema, Name: r.Name, Values: r.Values,
			Comment: r.Comment, Extension: r.Extension,
		}
	}
	return nil
}

func (insp *Inspector) loadComposites(ctx context.Context, out *DbSchema, filter string) error {
	rows, err := collectQuery[compositeRow](ctx, insp, fmt.Sprintf(queryCompositeTypes, filter))
	if err != nil {
		return err
	}
	for _, r := range rows {
		if insp.excluded(r.Schema) {
			continue
		}
		ct := &CompositeType{Schema: r.Schema, Name: r.Name, Comment: r.Comment, Extension: r.Extension}
		for _, a := range r.Attrs {
			ct.Attrs = append(ct.Attrs, CompositeAttr{Name: a.Name, DataType: a.DataType})
		}
		out.CompositeTypes[CanonicalKey(r.Schema, r.Name)] = ct
	}
	return nil
}

func (insp *Inspector) loadDomains(ctx context.Context, out *DbSchema, filter string) error {
	rows, err := collectQuery[domainRow](ctx, insp, fmt.Sprintf(queryDomains, filter))
	if err != nil {
		return err
	}
	for _, r := range rows {
		if insp.excluded(r.Schema) {
			continue
		}
		d := &Domain{
			Schema: r.Schema, Name: r.Name, BaseType: r.BaseType,
			NotNull: r.NotNull, Default: r.Default,
			Comment: r.Comment, Extension: r.Extension,
		}
		for _, c := range r.Checks {
			d.Checks = append(d.Checks, CheckConstraint{Name: c.Name, Expression: c.Definition})
		}
		out.Domains[CanonicalKey(r.Schema, r.Name)] = d
	}
	return nil
}

func (insp *Inspector) loadSequences(ctx context.Context, out *DbSchema, filter string) error {
	rows, err := collectQuery[sequenceRow](ctx, insp, fmt.Sprintf(querySequences, filter))
	if err != nil {
		return err
	}
	for _, r := range rows {
		if insp.excluded(r.Schema) {
			continue
		}
		out.Sequences[CanonicalKey(r.Schema, r.Name)] = &Sequence{
			Schema: r.Schema, Name: r.Name, DataType: r.DataType,
			StartValue: string(r.StartValue), MinValue: string(r.MinValue),
			MaxValue: string(r.MaxValue), Increment: string(r.Increment),
			Cycle: r.Cycle, CacheSize: string(r.CacheSize),
			OwnedBy: r.OwnedBy, Extension: r.Extension,
		}
	}
	return nil
}

func (insp *Inspector) loadExtensions(ctx context.Context, out *DbSchema, filter string) error {
	rows, err := collectQuery[extensionRow](ctx, insp, fmt.Sprintf(queryExtensions, filter))
	if err != nil {
		return err
	}
	for _, r := range rows {
		out.Extensions[CanonicalKey(r.Schema, r.Name)] = &Extension{
			Name: r.Name, Schema: r.Schema, Version: r.Version,
		}
	}
	return nil
}

var argRe = regexp.MustCompile(`^\s*(?:(IN|OUT|INOUT|VARIADIC)\s+)?(?:([a-zA-Z_][a-zA-Z0-9_]*)\s+)?([^=]+?)(?:\s*=\s*(.+))?$`)

// parseArguments decodes pg_get_function_arguments' comma-separated text
// (mode, name, type, default) into ordered Args. Top-level commas only are
// split on; commas inside type parameters (numeric(10,2)) are protected by
// paren-depth tracking.
func parseArguments(text string) []Arg {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := splitTopLevel(text, ',')
	args := make([]Arg, 0, len(parts))
	for _, p := range parts {
		m := argRe.FindStringSubmatch(strings.TrimSpace(p))
		if m == nil {
			continue
		}
		mode := ParamIn
		if m[1] != "" {
			mode = ParamMode(m[1])
		}
		args = append(args, Arg{
			Name:    m[2],
			Type:    strings.TrimSpace(m[3]),
			Mode:    mode,
			Default: strings.TrimSpace(m[4]),
		})
	}
	return args
}

func splitTopLevel(s string, sep rune) []string {
	var parts []string
	depth := 0
	last := 0
	for i, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, s[last:])
	return parts
}

func (insp *Inspector) loadFunctions(ctx context.Context, out *DbSchema, filter string) error {
	rows, err := collectQuery[functionRow](ctx, insp, fmt.Sprintf(queryFunctions, filter))
	if err != nil {
		return err
	}
	for _, r := range rows {
		if insp.excluded(r.Schema) {
			continue
		}
		f := &Function{
			Schema: r.Schema, Name: r.Name,
			Args:       parseArguments(r.ArgumentsText),
			ReturnType: r.ReturnType, Language: r.Language, Body: r.Body,
			Volatility:      Volatility(r.Volatility),
			IsStrict:        r.IsStrict,
			SecurityDefiner: r.SecurityDefiner,
			IsProcedure:     r.Kind == "p",
			Extension:       r.Extension,
			Comment:         r.Comment,
		}
		for _, cfg := range r.ConfigParams {
			if k, v, ok := strings.Cut(cfg, "="); ok {
				f.ConfigParams = append(f.ConfigParams, ConfigParam{Key: k, Value: v})
			}
		}
		for _, g := range r.Grants {
			f.Grants = append(f.Grants, Grant{Grantee: g.Grantee, Privilege: g.Privilege})
		}
		out.Functions[f.Signature()] = f
	}
	return nil
}

func (insp *Inspector) loadRoles(ctx context.Context, out *DbSchema, filter string) error {
	// pg_roles has no namespace, so the schema filter does not apply.
	rows, err := collectQuery[roleRow](ctx, insp, fmt.Sprintf(queryRoles, ""))
	if err != nil {
		return err
	}
	for _, r := range rows {
		out.Roles[r.Name] = &Role{
			Name: r.Name, Superuser: r.Superuser, CreateDB: r.CreateDB,
			CreateRole: r.CreateRole, Inherit: r.Inherit, Login: r.Login,
			Replication: r.Replication, BypassRLS: r.BypassRLS,
			ConnectionLimit: r.ConnectionLimit, ValidUntil: r.ValidUntil,
		}
	}
	return nil
}

func (insp *Inspector) loadViews(ctx context.Context, out *DbSchema, filter string) error {
	rows, err := collectQuery[viewRow](ctx, insp, fmt.Sprintf(queryViews, filter))
	if err != nil {
		return err
	}
	for _, r := range rows {
		if insp.excluded(r.Schema) {
			continue
		}
		out.Views[CanonicalKey(r.Schema, r.Name)] = &View{
			Schema: r.Schema, Name: r.Name, Definition: r.Definition,
			IsMaterialized: r.IsMaterialized, Comment: r.Comment, Extension: r.Extension,
		}
	}
	return nil
}

// loadTablesBulk issues the single bulk query and stitches its nine keyed
// arrays into per-table structures, avoiding O(N) round trips.
func (insp *Inspector) loadTablesBulk(ctx context.Context, out *DbSchema, filter string) error {
	sqlText := fmt.Sprintf(queryTablesBulk, filter)
	rows, err := insp.db.Query(ctx, sqlText)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		return fmt.Errorf("tables-bulk query returned no rows")
	}
	var raw json.RawMessage
	if err := rows.Scan(&raw); err != nil {
		return err
	}
	rows.Close()

	var payload bulkPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("decoding bulk payload: %w", err)
	}

	for _, t := range payload.Tables {
		if insp.excluded(t.Schema) {
			continue
		}
		out.Tables[CanonicalKey(t.Schema, t.Name)] = NewTable(t.Schema, t.Name)
	}

	for _, c := range payload.Columns {
		tbl, ok := out.Tables[CanonicalKey(c.Schema, c.Table)]
		if !ok {
			continue
		}
		col := &Column{
			Name: c.Name, DataType: c.DataType, UDTName: c.UDTName,
			IsNullable: c.IsNullable, ColumnDefault: c.ColumnDefault,
			Collation: c.Collation, IsGenerated: c.IsGenerated,
			GenerationExpression: c.GenerationExpression,
			IsIdentity:           c.IsIdentity,
			IdentityGeneration:   IdentityGeneration(c.IdentityGeneration),
			Comment:              c.Comment,
		}
		tbl.AddColumn(col)
	}

	for _, fk := range payload.ForeignKeys {
		tbl, ok := out.Tables[CanonicalKey(fk.Schema, fk.Table)]
		if !ok {
			continue
		}
		tbl.ForeignKeys[fk.Name] = &ForeignKey{
			Name: fk.Name, Columns: fk.Columns,
			ForeignSchema: fk.ForeignSchema, ForeignTable: fk.ForeignTable,
			ForeignColumns: fk.ForeignColumns,
			OnDelete:       ReferentialAction(fk.OnDelete),
			OnUpdate:       ReferentialAction(fk.OnUpdate),
		}
	}

	for _, idx := range payload.Indexes {
		tbl, ok := out.Tables[CanonicalKey(idx.Schema, idx.Table)]
		if !ok {
			continue
		}
		cols, exprs := splitIndexDef(idx.Definition)
		tbl.Indexes[idx.Name] = &Index{
			Name: idx.Name, Columns: cols, Expressions: exprs,
			IsUnique: idx.IsUnique, IsPrimary: idx.IsPrimary,
			OwningConstraint: idx.OwningConstraint,
			Method:           IndexMethod(idx.Method),
			WhereClause:      idx.Where,
			Comment:          idx.Comment,
		}
	}

	for _, tg := range payload.Triggers {
		tbl, ok := out.Tables[CanonicalKey(tg.Schema, tg.Table)]
		if !ok {
			continue
		}
		timing, orientation, events := DecodeTgType(tg.TgType)
		when := extractWhenClause(tg.Definition)
		events = mergeUpdateOfEvents(events, extractUpdateOf(tg.Definition))
		funcName := tg.FunctionName
		if tg.FunctionSchema != "" && tg.FunctionSchema != "public" {
			funcName = tg.FunctionSchema + "." + tg.FunctionName
		}
		tbl.Triggers[tg.Name] = &Trigger{
			Name: tg.Name, Timing: timing, Orientation: orientation,
			Events: events, Function: funcName, WhenClause: when, Comment: tg.Comment,
		}
	}

	for _, pol := range payload.Policies {
		tbl, ok := out.Tables[CanonicalKey(pol.Schema, pol.Table)]
		if !ok {
			continue
		}
		tbl.Policies[pol.Name] = &Policy{
			Name: pol.Name, Command: PolicyCommand(strings.ToUpper(pol.Command)),
			Roles: pol.Roles, Using: pol.Using, WithCheck: pol.WithCheck,
		}
	}

	for _, r := range payload.RLS {
		tbl, ok := out.Tables[CanonicalKey(r.Schema, r.Table)]
		if !ok {
			continue
		}
		tbl.RLSEnabled = r.Enabled
	}

	for _, chk := range payload.CheckConstraints {
		tbl, ok := out.Tables[CanonicalKey(chk.Schema, chk.Table)]
		if !ok {
			continue
		}
		tbl.CheckConstraints[chk.Name] = &CheckConstraint{Name: chk.Name, Expression: chk.Expression}
	}

	for _, c := range payload.TableComments {
		tbl, ok := out.Tables[CanonicalKey(c.Schema, c.Table)]
		if !ok {
			continue
		}
		tbl.Comment = c.Comment
	}

	return nil
}

// splitIndexDef recovers the ordered column/expression list from
// pg_get_indexdef's output by reading the comma-separated list inside the
// outermost parens with paren-depth tracking. A plain column
// reference populates Columns at that position; anything else (a function
// call, a cast, an operator expression) populates Expressions instead.
func splitIndexDef(def string) (columns, expressions []string) {
	open := strings.IndexByte(def, '(')
	if open < 0 {
		return nil, nil
	}
	depth := 0
	end := -1
	for i := open; i < len(def); i++ {
		switch def[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end != -1 {
			break
		}
	}
	if end == -1 {
		return nil, nil
	}
	inner := def[open+1 : end]
	for _, part := range splitTopLevel(inner, ',') {
		part = strings.TrimSpace(part)
		// Strip a trailing ASC/DESC/NULLS FIRST/LAST/opclass for the plain
		// column case; an expression is anything that doesn't round-trip
		// as a bare (possibly quoted) identifier.
		ident := firstToken(part)
		if isPlainIdentifier(ident) && ident == part {
			columns = append(columns, UnquoteIdent(ident))
			expressions = append(expressions, "")
		} else if isPlainIdentifier(ident) {
			columns = append(columns, UnquoteIdent(ident))
			expressions = append(expressions, "")
		} else {
			columns = append(columns, "")
			expressions = append(expressions, part)
		}
	}
	return columns, expressions
}

func firstToken(s string) string {
	i := strings.IndexAny(s, " \t")
	if i == -1 {
		return s
	}
	return s[:i]
}

var plainIdentRe = regexp.MustCompile(`^("[^"]+"|[a-zA-Z_][a-zA-Z0-9_]*)$`)

func isPlainIdentifier(s string) bool {
	return plainIdentRe.MatchString(s)
}

var whenRe = regexp.MustCompile(`(?i)\bWHEN\s*\((.*?)\)\s*EXECUTE\s+(?:FUNCTION|PROCEDURE)`)

func extractWhenClause(def string) string {
	m := whenRe.FindStringSubmatch(def)
	if m == nil {
		return ""
	}
	return m[1]
}

var updateOfRe = regexp.MustCompile(`(?i)\bUPDATE\s+OF\s+([a-zA-Z0-9_",\s]+?)\s+(?:ON|OR)`)

func extractUpdateOf(def string) string {
	m := updateOfRe.FindStringSubmatch(def)
	if m == nil {
		return ""
	}
	var cols []string
	for _, c := range strings.Split(m[1], ",") {
		cols = append(cols, UnquoteIdent(strings.TrimSpace(c)))
	}
	return "UPDATE OF " + strings.Join(cols, ",")
}

// mergeUpdateOfEvents replaces a bare "UPDATE" entry with its "UPDATE OF
// ..." refinement when one was recovered from the trigger definition.
func mergeUpdateOfEvents(events []string, updateOf string) []string {
	if updateOf == "" {
		return events
	}
	out := make([]string, 0, len(events))
	for _, e := range events {
		if e == "UPDATE" {
			out = append(out, updateOf)
		} else {
			out = append(out, e)
		}
	}
	return out
}

// NumericAlias normalizes PostgreSQL's internal type aliases to their
// standard SQL spellings. Nothing in the module calls it; the differ's
// column-type equivalence rule uses CanonicalTypeName.
func NumericAlias(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "decimal":
		return "numeric"
	case "int", "int4":
		return "integer"
	case "int8":
		return "bigint"
	case "int2":
		return "smallint"
	case "bool":
		return "boolean"
	case "float8", "float":
		return "double precision"
	case "float4", "real":
		return "real"
	default:
		return strings.ToLower(strings.TrimSpace(t))
	}
}

var _ = sort.Strings
var _ = strconv.Itoa
