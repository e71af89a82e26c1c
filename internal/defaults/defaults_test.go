package defaults

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsExcludedSchema(t *testing.T) {
	assert.True(t, IsExcludedSchema("pg_catalog"))
	assert.True(t, IsExcludedSchema("information_schema"))
	assert.True(t, IsExcludedSchema("auth"))
	assert.True(t, IsExcludedSchema("pg_toast_12345"))
	assert.True(t, IsExcludedSchema("pg_temp_3"))
	assert.False(t, IsExcludedSchema("public"))
	assert.False(t, IsExcludedSchema("app"))
}

func TestIsDefaultRole(t *testing.T) {
	assert.True(t, IsDefaultRole("authenticated"))
	assert.True(t, IsDefaultRole("pg_monitor"))
	assert.True(t, IsDefaultRole("supabase_admin"))
	assert.False(t, IsDefaultRole("app_user"))
}

func TestIsDefaultExtension(t *testing.T) {
	assert.True(t, IsDefaultExtension("pgcrypto"))
	assert.False(t, IsDefaultExtension("postgis"))
}

// golden snapshot: catching an accidental edit to the catalog's membership
// is cheaper than chasing the spurious diffs it would cause downstream.
func TestExcludedSchemasSnapshot(t *testing.T) {
	want := []string{
		"pg_catalog", "information_schema", "auth", "storage", "extensions",
		"realtime", "graphql", "graphql_public", "vault", "pgsodium",
		"pgsodium_masks", "supa_audit", "net", "pgtle", "repack", "tiger",
		"topology", "supabase_migrations", "supabase_functions", "cron",
		"pgbouncer",
	}
	assert.Len(t, ExcludedSchemas, len(want))
	for _, w := range want {
		assert.True(t, ExcludedSchemas[w], "missing %s from catalog", w)
	}
}
