package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgschema/pgschema/internal/ir"
)

func schemaWithUsersTable(pkType string) *ir.DbSchema {
	s := ir.New()
	t := ir.NewTable("public", "users")
	t.AddColumn(&ir.Column{Name: "id", DataType: pkType, IsPrimaryKey: true, IsNullable: false})
	s.Tables[ir.CanonicalKey("public", "users")] = t
	return s
}

func TestDiff_EmptyPush(t *testing.T) {
	base := schemaWithUsersTable("uuid")
	target := schemaWithUsersTable("uuid")

	d := Diff(base, target)
	assert.True(t, d.IsEmpty())
	assert.Equal(t, []string{"No changes detected"}, d.Summarize())
}

func TestDiff_AddNonNullColumnWithDefault(t *testing.T) {
	base := ir.New()
	tBase := ir.NewTable("public", "t")
	tBase.AddColumn(&ir.Column{Name: "id", DataType: "integer", IsPrimaryKey: true})
	base.Tables[ir.CanonicalKey("public", "t")] = tBase

	target := ir.New()
	tTarget := ir.NewTable("public", "t")
	tTarget.AddColumn(&ir.Column{Name: "id", DataType: "integer", IsPrimaryKey: true})
	tTarget.AddColumn(&ir.Column{Name: "name", DataType: "text", ColumnDefault: "'x'"})
	target.Tables[ir.CanonicalKey("public", "t")] = tTarget

	d := Diff(base, target)
	require.Len(t, d.Changes, 1)
	assert.Equal(t, CategoryColumn, d.Changes[0].Category)
	assert.Equal(t, ActionCreate, d.Changes[0].Action)
	assert.False(t, d.Changes[0].Destructive)
}

func TestDiff_TypeChangeIsDestructive(t *testing.T) {
	base := schemaWithUsersTable("integer")
	target := schemaWithUsersTable("bigint")

	d := Diff(base, target)
	require.Len(t, d.Changes, 1)
	assert.True(t, d.Changes[0].Destructive)
	assert.True(t, d.IsDestructive())
}

func TestDiff_DropTableIsDestructiveAndGated(t *testing.T) {
	base := schemaWithUsersTable("uuid")
	target := ir.New()

	d := Diff(base, target)
	require.Len(t, d.Changes, 1)
	assert.Equal(t, ActionDrop, d.Changes[0].Action)
	assert.True(t, d.Changes[0].Destructive)
	assert.Equal(t, []string{"- Table '\"public\".\"users\"'"}, d.Summarize())
}

func TestDiff_EnumAddValue(t *testing.T) {
	base := ir.New()
	base.Enums[ir.CanonicalKey("public", "status")] = &ir.Enum{
		Schema: "public", Name: "status", Values: []string{"active", "inactive"},
	}
	target := ir.New()
	target.Enums[ir.CanonicalKey("public", "status")] = &ir.Enum{
		Schema: "public", Name: "status", Values: []string{"active", "inactive", "pending"},
	}

	d := Diff(base, target)
	require.Len(t, d.Changes, 1)
	assert.Equal(t, "add values: pending", d.Changes[0].Detail)
}

func TestDiff_RLSAndPolicyEnable(t *testing.T) {
	base := ir.New()
	baseTable := ir.NewTable("public", "posts")
	base.Tables[ir.CanonicalKey("public", "posts")] = baseTable

	target := ir.New()
	targetTable := ir.NewTable("public", "posts")
	targetTable.RLSEnabled = true
	targetTable.Policies["read_all"] = &ir.Policy{
		Name: "read_all", Command: ir.PolicySelect, Roles: []string{"public"}, Using: "true",
	}
	target.Tables[ir.CanonicalKey("public", "posts")] = targetTable

	d := Diff(base, target)
	require.Len(t, d.Changes, 2)

	var sawRLS, sawPolicy bool
	for _, c := range d.Changes {
		if c.Category == CategoryRLS {
			sawRLS = true
		}
		if c.Category == CategoryPolicy && c.Action == ActionCreate {
			sawPolicy = true
		}
	}
	assert.True(t, sawRLS)
	assert.True(t, sawPolicy)
}

func TestDiff_DefaultRoleNeverDropped(t *testing.T) {
	base := ir.New()
	base.Roles["authenticated"] = &ir.Role{Name: "authenticated"}
	target := ir.New()

	d := Diff(base, target)
	assert.True(t, d.IsEmpty())
}

func TestDiff_ExtensionOwnedObjectSkipped(t *testing.T) {
	base := ir.New()
	owned := ir.NewTable("public", "audit_log")
	owned.Extension = "supa_audit"
	base.Tables[ir.CanonicalKey("public", "audit_log")] = owned
	target := ir.New()

	d := Diff(base, target)
	assert.True(t, d.IsEmpty())
}

func TestDiff_FunctionOverloadsKeyedBySignature(t *testing.T) {
	base := ir.New()
	target := ir.New()
	fn := &ir.Function{
		Schema: "public", Name: "add",
		Args:       []ir.Arg{{Name: "a", Type: "integer", Mode: ir.ParamIn}, {Name: "b", Type: "integer", Mode: ir.ParamIn}},
		ReturnType: "integer", Language: "sql", Body: "select a + b",
	}
	target.Functions[fn.Signature()] = fn

	d := Diff(base, target)
	require.Len(t, d.Changes, 1)
	assert.Equal(t, `"public"."add"(integer, integer)`, d.Changes[0].ObjectKey)
}

func TestDiff_FunctionCommentChange(t *testing.T) {
	base := ir.New()
	target := ir.New()
	baseFn := &ir.Function{
		Schema: "public", Name: "add",
		Args:       []ir.Arg{{Name: "a", Type: "integer", Mode: ir.ParamIn}},
		ReturnType: "integer", Language: "sql", Body: "select a",
	}
	targetFn := &ir.Function{
		Schema: "public", Name: "add",
		Args:       []ir.Arg{{Name: "a", Type: "integer", Mode: ir.ParamIn}},
		ReturnType: "integer", Language: "sql", Body: "select a",
		Comment: "adds one",
	}
	base.Functions[baseFn.Signature()] = baseFn
	target.Functions[targetFn.Signature()] = targetFn

	d := Diff(base, target)
	require.Len(t, d.Changes, 1)
	assert.Equal(t, CategoryComment, d.Changes[0].Category)
	assert.Equal(t, "function", d.Changes[0].Detail)
}
