package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSQL_Table(t *testing.T) {
	sql := `
CREATE TABLE public.users (
    id bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    email text NOT NULL UNIQUE,
    name text,
    created_at timestamptz NOT NULL DEFAULT now()
);
`
	schema, err := NewParser("public").ParseSQL(sql)
	require.NoError(t, err)

	table, ok := schema.GetTable("public", "users")
	require.True(t, ok)
	assert.Len(t, table.Columns, 4)

	id := table.Columns["id"]
	require.NotNil(t, id)
	assert.True(t, id.IsPrimaryKey)
	assert.True(t, id.IsIdentity)
	assert.Equal(t, IdentityAlways, id.IdentityGeneration)

	email := table.Columns["email"]
	require.NotNil(t, email)
	assert.False(t, email.IsNullable)

	createdAt := table.Columns["created_at"]
	require.NotNil(t, createdAt)
	assert.Equal(t, "now()", createdAt.ColumnDefault)

	var foundUnique bool
	for _, idx := range table.Indexes {
		if idx.IsUnique && !idx.IsPrimary {
			foundUnique = true
			assert.Equal(t, []string{"email"}, idx.Columns)
		}
	}
	assert.True(t, foundUnique, "expected a unique index backing the email column")
}

func TestParseSQL_ForeignKeyAndCheck(t *testing.T) {
	sql := `
CREATE TABLE public.accounts (id bigint PRIMARY KEY);
CREATE TABLE public.orders (
    id bigint PRIMARY KEY,
    account_id bigint REFERENCES public.accounts(id) ON DELETE CASCADE,
    total numeric(10,2) CHECK (total >= 0)
);
`
	schema, err := NewParser("public").ParseSQL(sql)
	require.NoError(t, err)

	orders, ok := schema.GetTable("public", "orders")
	require.True(t, ok)
	require.Len(t, orders.ForeignKeys, 1)
	for _, fk := range orders.ForeignKeys {
		assert.Equal(t, "accounts", fk.ForeignTable)
		assert.Equal(t, []string{"account_id"}, fk.Columns)
		assert.Equal(t, ActionCascade, fk.OnDelete)
	}
	require.Len(t, orders.CheckConstraints, 1)

	total := orders.Columns["total"]
	require.NotNil(t, total)
	assert.Equal(t, "numeric(10,2)", total.DataType)
}

func TestParseSQL_IndexExpressionAndPartial(t *testing.T) {
	sql := `
CREATE TABLE public.widgets (id bigint PRIMARY KEY, name text, active boolean);
CREATE INDEX widgets_lower_name_idx ON public.widgets (lower(name)) WHERE active;
`
	schema, err := NewParser("public").ParseSQL(sql)
	require.NoError(t, err)

	table, ok := schema.GetTable("public", "widgets")
	require.True(t, ok)
	idx, ok := table.Indexes["widgets_lower_name_idx"]
	require.True(t, ok)
	assert.Equal(t, []string{""}, idx.Columns)
	assert.Equal(t, []string{"lower(name)"}, idx.Expressions)
	assert.NotEmpty(t, idx.WhereClause)
}

func TestParseSQL_ViewAndMaterializedView(t *testing.T) {
	sql := `
CREATE TABLE public.items (id bigint PRIMARY KEY, price numeric);
CREATE VIEW public.cheap_items AS SELECT id FROM public.items WHERE price < 10;
CREATE MATERIALIZED VIEW public.item_totals AS SELECT count(*) AS n FROM public.items;
`
	schema, err := NewParser("public").ParseSQL(sql)
	require.NoError(t, err)

	v, ok := schema.Views[CanonicalKey("public", "cheap_items")]
	require.True(t, ok)
	assert.False(t, v.IsMaterialized)
	assert.NotEmpty(t, v.Definition)

	mv, ok := schema.Views[CanonicalKey("public", "item_totals")]
	require.True(t, ok)
	assert.True(t, mv.IsMaterialized)
}

func TestParseSQL_EnumCompositeDomain(t *testing.T) {
	sql := `
CREATE TYPE public.mood AS ENUM ('sad', 'ok', 'happy');
CREATE TYPE public.point AS (x integer, y integer);
CREATE DOMAIN public.positive_int AS integer NOT NULL CHECK (VALUE > 0);
`
	schema, err := NewParser("public").ParseSQL(sql)
	require.NoError(t, err)

	enum, ok := schema.Enums[CanonicalKey("public", "mood")]
	require.True(t, ok)
	assert.Equal(t, []string{"sad", "ok", "happy"}, enum.Values)

	ct, ok := schema.CompositeTypes[CanonicalKey("public", "point")]
	require.True(t, ok)
	assert.Len(t, ct.Attrs, 2)

	dom, ok := schema.Domains[CanonicalKey("public", "positive_int")]
	require.True(t, ok)
	assert.True(t, dom.NotNull)
	assert.Len(t, dom.Checks, 1)
}

func TestParseSQL_AlterTableBeforeCreateIsBufferedOnce(t *testing.T) {
	sql := `
ALTER TABLE public.posts ADD COLUMN published boolean NOT NULL DEFAULT false;
CREATE TABLE public.posts (id bigint PRIMARY KEY, title text);
`
	schema, err := NewParser("public").ParseSQL(sql)
	require.NoError(t, err)

	posts, ok := schema.GetTable("public", "posts")
	require.True(t, ok)
	col, ok := posts.Columns["published"]
	require.True(t, ok)
	assert.Equal(t, "false", col.ColumnDefault)
}

func TestParseSQL_AlterTableForMissingTableErrors(t *testing.T) {
	sql := `ALTER TABLE public.ghost ADD COLUMN x integer;`
	_, err := NewParser("public").ParseSQL(sql)
	assert.Error(t, err)
}

func TestParseSQL_TriggerAndPolicyDeferToSecondPass(t *testing.T) {
	sql := `
CREATE TRIGGER set_updated_at
    BEFORE UPDATE ON public.accounts
    FOR EACH ROW EXECUTE FUNCTION public.touch_updated_at();

CREATE POLICY self_access ON public.accounts
    FOR SELECT USING (owner_id = current_setting('app.user_id')::bigint);

CREATE TABLE public.accounts (id bigint PRIMARY KEY, owner_id bigint);
`
	schema, err := NewParser("public").ParseSQL(sql)
	require.NoError(t, err)

	accounts, ok := schema.GetTable("public", "accounts")
	require.True(t, ok)

	trig, ok := accounts.Triggers["set_updated_at"]
	require.True(t, ok)
	assert.Equal(t, TriggerBefore, trig.Timing)
	assert.Equal(t, OrientationRow, trig.Orientation)
	assert.Contains(t, trig.Events, "UPDATE")

	pol, ok := accounts.Policies["self_access"]
	require.True(t, ok)
	assert.Equal(t, PolicySelect, pol.Command)
	assert.Equal(t, []string{"PUBLIC"}, pol.Roles)
}

func TestParseSQL_Sequence(t *testing.T) {
	sql := `CREATE SEQUENCE public.order_seq AS bigint START WITH 100 INCREMENT BY 1 MINVALUE 1 NO MAXVALUE CACHE 1;`
	schema, err := NewParser("public").ParseSQL(sql)
	require.NoError(t, err)

	seq, ok := schema.Sequences[CanonicalKey("public", "order_seq")]
	require.True(t, ok)
	assert.Equal(t, "100", seq.StartValue)
	assert.Equal(t, "1", seq.Increment)
}

func TestParseSQL_ExtensionAndRole(t *testing.T) {
	sql := `
CREATE EXTENSION IF NOT EXISTS pgcrypto WITH SCHEMA public;
CREATE ROLE app_readonly LOGIN NOINHERIT CONNECTION LIMIT 5;
`
	schema, err := NewParser("public").ParseSQL(sql)
	require.NoError(t, err)

	ext, ok := schema.Extensions[CanonicalKey("public", "pgcrypto")]
	require.True(t, ok)
	assert.Equal(t, "public", ext.Schema)

	role, ok := schema.Roles["app_readonly"]
	require.True(t, ok)
	assert.True(t, role.Login)
	assert.False(t, role.Inherit)
	assert.Equal(t, 5, role.ConnectionLimit)
}

func TestParseSQL_FunctionSecurityDefinerAndSetParams(t *testing.T) {
	sql := `
CREATE FUNCTION public.current_tenant() RETURNS integer
    LANGUAGE sql
    SECURITY DEFINER
    SET search_path = public
    AS $$ SELECT 1 $$;
`
	schema, err := NewParser("public").ParseSQL(sql)
	require.NoError(t, err)

	fn, ok := schema.Functions[FunctionSignatureKey("public", "current_tenant", nil)]
	require.True(t, ok)
	assert.True(t, fn.SecurityDefiner)
	require.Len(t, fn.ConfigParams, 1)
	assert.Equal(t, "search_path", fn.ConfigParams[0].Key)
	assert.Equal(t, "public", fn.ConfigParams[0].Value)
}

func TestParseSQL_GrantExecuteOnFunction(t *testing.T) {
	sql := `
CREATE FUNCTION public.add(a integer, b integer) RETURNS integer
    LANGUAGE sql AS $$ SELECT a + b $$;
GRANT EXECUTE ON FUNCTION public.add(integer, integer) TO app_readonly;
`
	schema, err := NewParser("public").ParseSQL(sql)
	require.NoError(t, err)

	fn, ok := schema.Functions[FunctionSignatureKey("public", "add", []string{"integer", "integer"})]
	require.True(t, ok)
	require.Len(t, fn.Grants, 1)
	assert.Equal(t, "app_readonly", fn.Grants[0].Grantee)
	assert.Equal(t, "EXECUTE", fn.Grants[0].Privilege)
}

func TestParseSQL_CommentOnTableAndColumn(t *testing.T) {
	sql := `
CREATE TABLE public.widgets (id bigint PRIMARY KEY, name text);
COMMENT ON TABLE public.widgets IS 'all known widgets';
COMMENT ON COLUMN public.widgets.name IS 'display name';
`
	schema, err := NewParser("public").ParseSQL(sql)
	require.NoError(t, err)

	table, ok := schema.GetTable("public", "widgets")
	require.True(t, ok)
	assert.Equal(t, "all known widgets", table.Comment)
	assert.Equal(t, "display name", table.Columns["name"].Comment)
}

func TestParseSQL_SyntaxErrorReturnsParseError(t *testing.T) {
	_, err := NewParser("public").ParseSQL("CREATE TBLE public.broken (id int);")
	require.Error(t, err)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseSQL_MultipleFilesShareOneSchema(t *testing.T) {
	files := []ParseFile{
		{Name: "00_tables.sql", SQL: `CREATE TABLE public.accounts (id bigint PRIMARY KEY);`},
		{Name: "01_alters.sql", SQL: `ALTER TABLE public.accounts ADD COLUMN name text;`},
	}
	schema, err := NewParser("public").ParseFiles(files)
	require.NoError(t, err)

	accounts, ok := schema.GetTable("public", "accounts")
	require.True(t, ok)
	assert.Contains(t, accounts.Columns, "name")
}
