package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgschema/pgschema/internal/diff"
	"github.com/pgschema/pgschema/internal/ir"
)

func newUsersTable() *ir.Table {
	t := ir.NewTable("public", "users")
	t.AddColumn(&ir.Column{Name: "id", DataType: "uuid", IsPrimaryKey: true})
	t.Indexes["users_pkey"] = &ir.Index{
		Name: "users_pkey", Columns: []string{"id"}, IsUnique: true, IsPrimary: true, OwningConstraint: "users_pkey",
	}
	return t
}

func TestEmitDiff_EmptyYieldsEmptyString(t *testing.T) {
	assert.Equal(t, "", EmitDiff(&diff.SchemaDiff{}))
	assert.Equal(t, "", EmitDiff(nil))
}

func TestEmitDiff_CreateTableThenForeignKeyOrdering(t *testing.T) {
	base := ir.New()

	orders := ir.NewTable("public", "orders")
	orders.AddColumn(&ir.Column{Name: "id", DataType: "uuid", IsPrimaryKey: true})
	orders.AddColumn(&ir.Column{Name: "user_id", DataType: "uuid"})
	orders.ForeignKeys["orders_user_id_fkey"] = &ir.ForeignKey{
		Name: "orders_user_id_fkey", Columns: []string{"user_id"},
		ForeignSchema: "public", ForeignTable: "users", ForeignColumns: []string{"id"},
		OnDelete: ir.ActionCascade,
	}

	target := ir.New()
	target.Tables[ir.CanonicalKey("public", "users")] = newUsersTable()
	target.Tables[ir.CanonicalKey("public", "orders")] = orders

	d := diff.Diff(base, target)
	sql := EmitDiff(d)

	usersIdx := strings.Index(sql, `CREATE TABLE "public"."users"`)
	ordersIdx := strings.Index(sql, `CREATE TABLE "public"."orders"`)
	fkIdx := strings.Index(sql, `ADD CONSTRAINT "orders_user_id_fkey"`)

	require.GreaterOrEqual(t, usersIdx, 0)
	require.GreaterOrEqual(t, ordersIdx, 0)
	require.GreaterOrEqual(t, fkIdx, 0)
	assert.Less(t, ordersIdx, fkIdx, "CREATE TABLE must precede the foreign key referencing another new table")
	assert.Contains(t, sql, `FOREIGN KEY ("user_id")`)
	assert.Contains(t, sql, `ON DELETE CASCADE`)
}

func TestEmitDiff_ColumnTypeChangeUsesAlterTypeWithUsing(t *testing.T) {
	base := ir.New()
	tBase := ir.NewTable("public", "t")
	tBase.AddColumn(&ir.Column{Name: "id", DataType: "integer", IsPrimaryKey: true})
	base.Tables[ir.CanonicalKey("public", "t")] = tBase

	target := ir.New()
	tTarget := ir.NewTable("public", "t")
	tTarget.AddColumn(&ir.Column{Name: "id", DataType: "bigint", IsPrimaryKey: true})
	target.Tables[ir.CanonicalKey("public", "t")] = tTarget

	d := diff.Diff(base, target)
	sql := EmitDiff(d)
	assert.Contains(t, sql, `ALTER TABLE "public"."t" ALTER COLUMN "id" TYPE bigint USING "id"::bigint;`)
}

func TestEmitDiff_ColumnCommentAlone(t *testing.T) {
	base := ir.New()
	tBase := ir.NewTable("public", "t")
	tBase.AddColumn(&ir.Column{Name: "id", DataType: "integer", IsPrimaryKey: true})
	base.Tables[ir.CanonicalKey("public", "t")] = tBase

	target := ir.New()
	tTarget := ir.NewTable("public", "t")
	tTarget.AddColumn(&ir.Column{Name: "id", DataType: "integer", IsPrimaryKey: true, Comment: "primary key"})
	target.Tables[ir.CanonicalKey("public", "t")] = tTarget

	d := diff.Diff(base, target)
	sql := EmitDiff(d)
	assert.Contains(t, sql, `COMMENT ON COLUMN "public"."t"."id" IS 'primary key';`)
}

func TestEmitDiff_TableCommentUsesTableKeyword(t *testing.T) {
	base := ir.New()
	target := ir.New()
	tTarget := ir.NewTable("public", "t")
	tTarget.Comment = "holds things"
	tTarget.AddColumn(&ir.Column{Name: "id", DataType: "integer", IsPrimaryKey: true})
	target.Tables[ir.CanonicalKey("public", "t")] = tTarget

	d := diff.Diff(base, target)
	sql := EmitDiff(d)
	assert.Contains(t, sql, `COMMENT ON TABLE "public"."t" IS 'holds things';`)
}

func TestEmitDiff_ViewCommentUsesViewKeyword(t *testing.T) {
	base := ir.New()
	base.Views[ir.CanonicalKey("public", "v")] = &ir.View{Schema: "public", Name: "v", Definition: "SELECT 1"}

	target := ir.New()
	target.Views[ir.CanonicalKey("public", "v")] = &ir.View{Schema: "public", Name: "v", Definition: "SELECT 1", Comment: "a view"}

	d := diff.Diff(base, target)
	sql := EmitDiff(d)
	assert.Contains(t, sql, `COMMENT ON VIEW "public"."v" IS 'a view';`)
	assert.NotContains(t, sql, `CREATE VIEW`, "unchanged view definition must not be re-emitted")
}

func TestEmitDiff_FunctionCommentUsesFunctionKeyword(t *testing.T) {
	base := ir.New()
	fn := &ir.Function{Schema: "public", Name: "add", Args: []ir.Arg{{Name: "a", Type: "integer", Mode: ir.ParamIn}}, ReturnType: "integer", Language: "sql", Body: "select a"}
	base.Functions[fn.Signature()] = fn

	target := ir.New()
	fnTarget := *fn
	fnTarget.Comment = "adds one"
	target.Functions[fnTarget.Signature()] = &fnTarget

	d := diff.Diff(base, target)
	sql := EmitDiff(d)
	assert.Contains(t, sql, `COMMENT ON FUNCTION "public"."add"(integer) IS 'adds one';`)
}

func TestEmitDiff_TableAlterSubOrdering(t *testing.T) {
	base := ir.New()
	tBase := ir.NewTable("public", "t")
	tBase.AddColumn(&ir.Column{Name: "id", DataType: "integer", IsPrimaryKey: true})
	tBase.ForeignKeys["t_fk"] = &ir.ForeignKey{
		Name: "t_fk", Columns: []string{"id"}, ForeignSchema: "public", ForeignTable: "other", ForeignColumns: []string{"id"},
	}
	base.Tables[ir.CanonicalKey("public", "t")] = tBase

	target := ir.New()
	tTarget := ir.NewTable("public", "t")
	tTarget.AddColumn(&ir.Column{Name: "id", DataType: "integer", IsPrimaryKey: true})
	tTarget.AddColumn(&ir.Column{Name: "extra", DataType: "text"})
	target.Tables[ir.CanonicalKey("public", "t")] = tTarget

	d := diff.Diff(base, target)
	sql := EmitDiff(d)

	dropFK := strings.Index(sql, `DROP CONSTRAINT IF EXISTS "t_fk"`)
	addCol := strings.Index(sql, `ADD COLUMN "extra" text`)
	require.GreaterOrEqual(t, dropFK, 0)
	require.GreaterOrEqual(t, addCol, 0)
	assert.Less(t, dropFK, addCol, "dropping the stale foreign key must precede adding the new column")
}

func TestEmitFull_TablesInDependencyOrder(t *testing.T) {
	schema := ir.New()
	schema.Tables[ir.CanonicalKey("public", "orders")] = func() *ir.Table {
		t := ir.NewTable("public", "orders")
		t.AddColumn(&ir.Column{Name: "id", DataType: "uuid", IsPrimaryKey: true})
		t.AddColumn(&ir.Column{Name: "user_id", DataType: "uuid"})
		t.ForeignKeys["orders_user_id_fkey"] = &ir.ForeignKey{
			Name: "orders_user_id_fkey", Columns: []string{"user_id"},
			ForeignSchema: "public", ForeignTable: "users", ForeignColumns: []string{"id"},
		}
		return t
	}()
	schema.Tables[ir.CanonicalKey("public", "users")] = newUsersTable()

	sql := EmitFull(schema)
	usersIdx := strings.Index(sql, `CREATE TABLE "public"."users"`)
	ordersIdx := strings.Index(sql, `CREATE TABLE "public"."orders"`)
	fkIdx := strings.Index(sql, `ADD CONSTRAINT "orders_user_id_fkey"`)

	require.GreaterOrEqual(t, usersIdx, 0)
	require.GreaterOrEqual(t, ordersIdx, 0)
	assert.Less(t, usersIdx, ordersIdx, "referenced table must be created before its referrer")
	assert.Greater(t, fkIdx, ordersIdx, "foreign keys are deferred past every CREATE TABLE")
}

func TestEmitSplit_OmitsEmptyFilesAndNamesLexicographically(t *testing.T) {
	schema := ir.New()
	schema.Tables[ir.CanonicalKey("public", "users")] = newUsersTable()
	schema.Roles["app_user"] = &ir.Role{Name: "app_user", Login: true}

	files := EmitSplit(schema)
	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"01_roles.sql", "04_tables.sql"}, names)

	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}

func TestEmitSplit_ConcatenationMatchesEmitFull(t *testing.T) {
	schema := ir.New()
	schema.Extensions[ir.CanonicalKey("", "pgcrypto")] = &ir.Extension{Name: "pgcrypto"}
	schema.Tables[ir.CanonicalKey("public", "users")] = newUsersTable()
	schema.Views[ir.CanonicalKey("public", "active_users")] = &ir.View{
		Schema: "public", Name: "active_users", Definition: `SELECT "id" FROM "public"."users"`,
	}

	full := EmitFull(schema)
	files := EmitSplit(schema)

	var joined []string
	for _, f := range files {
		joined = append(joined, f.SQL)
	}
	assert.Equal(t, full, strings.Join(joined, "\n\n"))
}

func TestEmitFull_CycleBetweenTwoTablesStillEmitsBoth(t *testing.T) {
	schema := ir.New()
	a := ir.NewTable("public", "a")
	a.AddColumn(&ir.Column{Name: "id", DataType: "uuid", IsPrimaryKey: true})
	a.AddColumn(&ir.Column{Name: "b_id", DataType: "uuid"})
	a.ForeignKeys["a_b_fkey"] = &ir.ForeignKey{Name: "a_b_fkey", Columns: []string{"b_id"}, ForeignSchema: "public", ForeignTable: "b", ForeignColumns: []string{"id"}}

	b := ir.NewTable("public", "b")
	b.AddColumn(&ir.Column{Name: "id", DataType: "uuid", IsPrimaryKey: true})
	b.AddColumn(&ir.Column{Name: "a_id", DataType: "uuid"})
	b.ForeignKeys["b_a_fkey"] = &ir.ForeignKey{Name: "b_a_fkey", Columns: []string{"a_id"}, ForeignSchema: "public", ForeignTable: "a", ForeignColumns: []string{"id"}}

	schema.Tables[ir.CanonicalKey("public", "a")] = a
	schema.Tables[ir.CanonicalKey("public", "b")] = b

	sql := EmitFull(schema)
	assert.Contains(t, sql, `CREATE TABLE "public"."a"`)
	assert.Contains(t, sql, `CREATE TABLE "public"."b"`)
	assert.Contains(t, sql, `ADD CONSTRAINT "a_b_fkey"`)
	assert.Contains(t, sql, `ADD CONSTRAINT "b_a_fkey"`)
}

func TestCreateEnumSQL(t *testing.T) {
	e := &ir.Enum{Schema: "public", Name: "status", Values: []string{"active", "inactive"}}
	assert.Equal(t, `CREATE TYPE "public"."status" AS ENUM ('active', 'inactive');`, createEnumSQL(e))
}

func TestCreateRoleSQL(t *testing.T) {
	r := &ir.Role{Name: "app_user", Login: true, Inherit: true, ConnectionLimit: 5}
	sql := createRoleSQL(r)
	assert.Contains(t, sql, `CREATE ROLE "app_user" WITH`)
	assert.Contains(t, sql, "LOGIN")
	assert.Contains(t, sql, "INHERIT")
	assert.Contains(t, sql, "CONNECTION LIMIT 5")
}
