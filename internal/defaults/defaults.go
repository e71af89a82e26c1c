// Package defaults is the pure, versioned catalog of PostgreSQL- and
// Supabase-managed objects that the introspector excludes and the differ
// never drops. It is the single source for the excluded-schema set, which
// is load-bearing across every introspection query — duplicating this list
// anywhere else is a bug.
package defaults

import "strings"

// ExcludedSchemas is the canonical set of namespaces the introspector never
// touches: the PostgreSQL system catalog plus every Supabase-managed
// schema.
var ExcludedSchemas = map[string]bool{
	"pg_catalog":          true,
	"information_schema":  true,
	"auth":                true,
	"storage":             true,
	"extensions":          true,
	"realtime":            true,
	"graphql":             true,
	"graphql_public":      true,
	"vault":               true,
	"pgsodium":            true,
	"pgsodium_masks":      true,
	"supa_audit":          true,
	"net":                 true,
	"pgtle":               true,
	"repack":              true,
	"tiger":                true,
	"topology":            true,
	"supabase_migrations": true,
	"supabase_functions":  true,
	"cron":                true,
	"pgbouncer":           true,
}

// excludedSchemaPrefixes catches the pg_toast*/pg_temp* families, whose
// suffix (a backing relation or backend PID) makes a literal set
// unworkable.
var excludedSchemaPrefixes = []string{"pg_toast", "pg_temp"}

// IsExcludedSchema reports whether schema should never be introspected,
// parsed into, or emitted.
func IsExcludedSchema(schema string) bool {
	if ExcludedSchemas[schema] {
		return true
	}
	for _, p := range excludedSchemaPrefixes {
		if strings.HasPrefix(schema, p) {
			return true
		}
	}
	return false
}

// DefaultRoles are roles the differ never proposes dropping, even if they
// are absent from the target schema.
var DefaultRoles = map[string]bool{
	"authenticated":  true,
	"anon":           true,
	"service_role":   true,
	"authenticator":  true,
	"postgres":       true,
	"dashboard_user": true,
	"pgbouncer":      true,
}

// IsDefaultRole reports whether name is a default role: literal membership,
// or a "pg_"/"supabase" prefix.
func IsDefaultRole(name string) bool {
	if DefaultRoles[name] {
		return true
	}
	return strings.HasPrefix(name, "pg_") || strings.HasPrefix(name, "supabase")
}

// DefaultExtensions are extensions the differ never proposes dropping.
var DefaultExtensions = map[string]bool{
	"uuid-ossp":         true,
	"pgcrypto":          true,
	"pg_graphql":        true,
	"pg_stat_statements": true,
	"pgjwt":             true,
	"pgsodium":          true,
	"supabase_vault":    true,
	"plpgsql":           true,
}

// IsDefaultExtension reports whether name is never a drop candidate.
func IsDefaultExtension(name string) bool {
	return DefaultExtensions[name]
}
